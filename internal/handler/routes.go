package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/sams-edu/attendance-api/internal/middleware"
	"github.com/sams-edu/attendance-api/internal/models"
)

// Handlers groups every HTTP handler for route registration.
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Course       *CourseHandler
	Class        *ClassHandler
	Session      *SessionHandler
	Attendance   *AttendanceHandler
	Report       *ReportHandler
	Notification *NotificationHandler
	Student      *StudentHandler
}

// Register mounts all API routes under the given group. auth is the
// token-validating middleware; role gates are coarse route filters, with
// ownership enforced inside the services.
func Register(api *gin.RouterGroup, h Handlers, auth gin.HandlerFunc) {
	api.POST("/auth/login", h.Auth.Login)

	protected := api.Group("")
	protected.Use(auth)

	protected.PUT("/auth/password", h.Auth.ChangePassword)

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleFaculty)
	faculty := middleware.RequireRoles(models.RoleFaculty)

	protected.POST("/users", adminOnly, h.User.Create)
	protected.GET("/users", adminOnly, h.User.List)
	protected.GET("/users/:id", h.User.Get)
	protected.DELETE("/users/:id", adminOnly, h.User.Delete)

	protected.POST("/courses", adminOnly, h.Course.Create)
	protected.GET("/courses", h.Course.List)
	protected.GET("/courses/:id", h.Course.Get)
	protected.DELETE("/courses/:id", adminOnly, h.Course.Delete)

	protected.POST("/classes", adminOnly, h.Class.Create)
	protected.GET("/classes", staff, h.Class.List)
	protected.GET("/classes/:id", h.Class.Get)
	protected.DELETE("/classes/:id", adminOnly, h.Class.Delete)
	protected.GET("/classes/:id/students", staff, h.Class.ListEnrollments)
	protected.DELETE("/classes/:id/students/:studentId", adminOnly, h.Class.Unenroll)
	protected.GET("/classes/:id/sessions", faculty, h.Session.ListByClass)
	protected.GET("/classes/:id/report", staff, h.Report.ClassReport)
	protected.GET("/classes/:id/report/csv", staff, h.Report.ClassReportCSV)
	protected.GET("/classes/:id/report/pdf", staff, h.Report.ClassReportPDF)

	protected.POST("/enrollments", adminOnly, h.Class.Enroll)

	protected.GET("/reports/overview", adminOnly, h.Report.Overview)
	protected.GET("/reports/overview/csv", adminOnly, h.Report.OverviewCSV)

	protected.POST("/sessions", faculty, h.Session.Create)
	protected.GET("/sessions/:id", staff, h.Session.Get)
	protected.POST("/sessions/:id/finalize", faculty, h.Session.Finalize)
	protected.PUT("/sessions/:id/active", faculty, h.Session.SetActive)
	protected.GET("/sessions/:id/roster", staff, h.Attendance.Roster)
	protected.POST("/sessions/:id/check-in", middleware.RequireRoles(models.RoleStudent), h.Attendance.CheckIn)

	protected.POST("/attendance/mark", faculty, h.Attendance.Mark)
	protected.POST("/attendance/bulk", faculty, h.Attendance.BulkMark)

	protected.GET("/students", staff, h.Student.List)
	protected.GET("/students/:studentId", h.Student.Get)
	protected.GET("/students/:studentId/classes", h.Student.Classes)
	protected.GET("/students/:studentId/attendance/summary", h.Attendance.StudentSummary)
	protected.GET("/students/:studentId/classes/:classId/attendance", h.Attendance.StudentHistory)

	protected.GET("/notifications", h.Notification.List)
	protected.PUT("/notifications/:id/read", h.Notification.MarkRead)
}
