package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sams-edu/attendance-api/internal/service"
	appErrors "github.com/sams-edu/attendance-api/pkg/errors"
	"github.com/sams-edu/attendance-api/pkg/response"
)

// AttendanceHandler wires HTTP endpoints to the attendance and aggregation
// services.
type AttendanceHandler struct {
	attendance  *service.AttendanceService
	aggregation *service.AggregationService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(attendance *service.AttendanceService, aggregation *service.AggregationService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, aggregation: aggregation}
}

// Mark godoc
// @Summary Mark one student's attendance for a session
// @Description Re-marking overwrites the previous mark. Rejected once the session is finalized or its edit window has expired.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.MarkRequest true "Mark payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req service.MarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark payload"))
		return
	}
	mark, err := h.attendance.Mark(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mark)
}

// BulkMark godoc
// @Summary Mark several students of one session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body service.BulkMarkRequest true "Bulk mark payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /attendance/bulk [post]
func (h *AttendanceHandler) BulkMark(c *gin.Context) {
	var req service.BulkMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk mark payload"))
		return
	}
	result, err := h.attendance.BulkMark(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// CheckIn godoc
// @Summary Student self check-in to an active session
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id}/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	mark, err := h.attendance.CheckIn(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mark)
}

// Roster godoc
// @Summary Session roster with marks and the current editability verdict
// @Tags Attendance
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /sessions/{id}/roster [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	roster, err := h.attendance.Roster(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, roster)
}

// StudentHistory godoc
// @Summary A student's per-session marks for one class
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param classId path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/classes/{classId}/attendance [get]
func (h *AttendanceHandler) StudentHistory(c *gin.Context) {
	rows, err := h.attendance.StudentHistory(c.Request.Context(), actorFromContext(c), c.Param("studentId"), c.Param("classId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}

// StudentSummary godoc
// @Summary A student's attendance percentage, optionally per class
// @Description Percent is null until the student has at least one recorded mark
// @Tags Attendance
// @Produce json
// @Param studentId path string true "Student ID"
// @Param class_id query string false "Class scope"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/attendance/summary [get]
func (h *AttendanceHandler) StudentSummary(c *gin.Context) {
	actor := actorFromContext(c)
	studentID := c.Param("studentId")
	if actor.IsStudent() && actor.StudentID != studentID {
		response.Error(c, appErrors.ErrForbidden)
		return
	}
	var classID *string
	if v := c.Query("class_id"); v != "" {
		classID = &v
	}
	summary, err := h.aggregation.Summary(c.Request.Context(), studentID, classID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
