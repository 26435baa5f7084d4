package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sams-edu/attendance-api/internal/models"
	"github.com/sams-edu/attendance-api/internal/service"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
	"github.com/sams-edu/attendance-api/pkg/response"
)

// ReportHandler wires HTTP endpoints to the report service.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// ClassReport godoc
// @Summary Per-student attendance aggregate for one class
// @Tags Reports
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /classes/{id}/report [get]
func (h *ReportHandler) ClassReport(c *gin.Context) {
	report, err := h.service.ClassReport(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ClassReportCSV godoc
// @Summary Download the class report as CSV
// @Tags Reports
// @Produce text/csv
// @Param id path string true "Class ID"
// @Success 200 {string} string "CSV file"
// @Security BearerAuth
// @Router /classes/{id}/report/csv [get]
func (h *ReportHandler) ClassReportCSV(c *gin.Context) {
	data, filename, err := h.service.ClassReportCSV(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func overviewFilterFromQuery(c *gin.Context) (models.OverviewFilter, error) {
	filter := models.OverviewFilter{
		Department: c.Query("department"),
		CourseID:   c.Query("course_id"),
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		filter.To = &to
	}
	return filter, nil
}

// Overview godoc
// @Summary Institution-wide per-class attendance aggregate
// @Tags Reports
// @Produce json
// @Param department query string false "Department filter"
// @Param course_id query string false "Course filter"
// @Param from query string false "Session date lower bound (YYYY-MM-DD)"
// @Param to query string false "Session date upper bound (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/overview [get]
func (h *ReportHandler) Overview(c *gin.Context) {
	filter, err := overviewFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.service.Overview(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// OverviewCSV godoc
// @Summary Download the institution-wide report as CSV
// @Tags Reports
// @Produce text/csv
// @Param department query string false "Department filter"
// @Param course_id query string false "Course filter"
// @Param from query string false "Session date lower bound (YYYY-MM-DD)"
// @Param to query string false "Session date upper bound (YYYY-MM-DD)"
// @Success 200 {string} string "CSV file"
// @Security BearerAuth
// @Router /reports/overview/csv [get]
func (h *ReportHandler) OverviewCSV(c *gin.Context) {
	filter, err := overviewFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	data, filename, err := h.service.OverviewCSV(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// ClassReportPDF godoc
// @Summary Download the class report as PDF
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Class ID"
// @Success 200 {string} string "PDF file"
// @Security BearerAuth
// @Router /classes/{id}/report/pdf [get]
func (h *ReportHandler) ClassReportPDF(c *gin.Context) {
	data, filename, err := h.service.ClassReportPDF(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
