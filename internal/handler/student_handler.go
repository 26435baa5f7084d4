package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sams-edu/attendance-api/internal/models"
	"github.com/sams-edu/attendance-api/internal/service"
	"github.com/sams-edu/attendance-api/pkg/response"
)

// StudentHandler wires HTTP endpoints to the student directory and the
// student's own class listing.
type StudentHandler struct {
	students    *service.StudentService
	enrollments *service.EnrollmentService
}

// NewStudentHandler creates a new handler.
func NewStudentHandler(students *service.StudentService, enrollments *service.EnrollmentService) *StudentHandler {
	return &StudentHandler{students: students, enrollments: enrollments}
}

// Get godoc
// @Summary Get one student profile
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), actorFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, student)
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param department query string false "Department filter"
// @Param year query int false "Year filter"
// @Param section query string false "Section filter"
// @Param search query string false "Name or code search"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Department: c.Query("department"),
		Section:    c.Query("section"),
		Search:     c.Query("search"),
	}
	filter.Year, _ = strconv.Atoi(c.Query("year"))
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	students, pagination, err := h.students.List(c.Request.Context(), actorFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Classes godoc
// @Summary List the classes a student is enrolled in
// @Tags Students
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/classes [get]
func (h *StudentHandler) Classes(c *gin.Context) {
	classes, err := h.enrollments.ListClassesByStudent(c.Request.Context(), actorFromContext(c), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, classes)
}
