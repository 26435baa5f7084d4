package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/sams-edu/attendance-api/api/swagger"
	"github.com/sams-edu/attendance-api/internal/handler"
	"github.com/sams-edu/attendance-api/internal/middleware"
	"github.com/sams-edu/attendance-api/internal/repository"
	"github.com/sams-edu/attendance-api/internal/service"
	"github.com/sams-edu/attendance-api/pkg/cache"
	"github.com/sams-edu/attendance-api/pkg/config"
	"github.com/sams-edu/attendance-api/pkg/database"
	"github.com/sams-edu/attendance-api/pkg/logger"
	corsmiddleware "github.com/sams-edu/attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sams-edu/attendance-api/pkg/middleware/requestid"
)

// @title Student Attendance API
// @version 1.0.0
// @description Attendance session lifecycle, percentage aggregation and scheduling for a campus attendance system
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, report caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, userRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, courseRepo, facultyRepo, studentRepo, userRepo, validate, logr)
	sessionSvc := service.NewSessionService(sessionRepo, classRepo, userRepo, cfg.Attendance.EditWindow, validate, logr)
	sessionSvc.UseMetrics(metricsSvc)
	aggregationSvc := service.NewAggregationService(attendanceRepo, notificationRepo, studentRepo,
		cfg.Attendance.LowAttendanceThreshold, cfg.Attendance.AlertDedupWindow, logr)
	aggregationSvc.UseMetrics(metricsSvc)
	reportSvc := service.NewReportService(attendanceRepo, classRepo, redisClient, cfg.Reports.CacheTTL, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, sessionRepo, classRepo, enrollmentRepo,
		aggregationSvc, reportSvc, userRepo, cfg.Attendance.EditWindow, validate, logr)
	attendanceSvc.UseMetrics(metricsSvc)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, classRepo, studentRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	studentSvc := service.NewStudentService(studentRepo, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.Register(api, handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		User:         handler.NewUserHandler(userSvc),
		Course:       handler.NewCourseHandler(courseSvc),
		Class:        handler.NewClassHandler(classSvc, enrollmentSvc),
		Session:      handler.NewSessionHandler(sessionSvc),
		Attendance:   handler.NewAttendanceHandler(attendanceSvc, aggregationSvc),
		Report:       handler.NewReportHandler(reportSvc),
		Notification: handler.NewNotificationHandler(notificationSvc),
		Student:      handler.NewStudentHandler(studentSvc, enrollmentSvc),
	}, middleware.Auth(authSvc, studentRepo, facultyRepo))

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
