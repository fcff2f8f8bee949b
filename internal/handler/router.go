package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/classconnect-api/internal/middleware"
	"github.com/noah-isme/classconnect-api/internal/models"
	"github.com/noah-isme/classconnect-api/internal/service"
	"github.com/noah-isme/classconnect-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classconnect-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classconnect-api/pkg/middleware/requestid"
)

// DownloadRoute is the signed download path relative to the API prefix.
const DownloadRoute = "/files/download"

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	EnableMetrics  bool
}

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth      *AuthHandler
	Student   *StudentHandler
	Teacher   *TeacherHandler
	Classroom *ClassroomHandler
	File      *FileHandler
	Metrics   *MetricsHandler
}

// NewRouter builds the gin engine. limiter may be nil to disable throttling.
func NewRouter(cfg RouterConfig, h Handlers, tokens middleware.TokenValidator, limiter *middleware.RateLimiter, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if cfg.EnableMetrics {
		r.GET("/metrics", h.Metrics.Prometheus)
	}
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	throttle := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		throttle = limiter.Middleware()
	}
	auth := middleware.JWT(tokens)
	teacherOnly := middleware.RequireRoles(models.RoleTeacher)
	studentOnly := middleware.RequireRoles(models.RoleStudent)

	api := r.Group(cfg.APIPrefix)
	// The signed token authorises downloads; a session, when present, only tags the access log.
	api.GET(DownloadRoute, middleware.OptionalJWT(tokens), h.File.Download)

	for _, entry := range []struct {
		path  string
		role  models.UserRole
		guard gin.HandlerFunc
	}{
		{"/students", models.RoleStudent, studentOnly},
		{"/teachers", models.RoleTeacher, teacherOnly},
	} {
		group := api.Group(entry.path)
		group.POST("/register", throttle, h.Auth.Register(entry.role))
		group.POST("/login", throttle, h.Auth.Login(entry.role))
		group.POST("/refresh", throttle, h.Auth.Refresh)
		group.POST("/logout", auth, entry.guard, h.Auth.Logout)
	}

	students := api.Group("/students/:studentID", auth, studentOnly, middleware.RequireSelf("studentID"))
	students.GET("/classrooms", h.Student.Classrooms)
	students.GET("/classrooms/:classroomID/tasks", h.Student.Tasks)
	students.POST("/classrooms/:classroomID/tasks/:taskID", h.Student.Submit)

	teachers := api.Group("/teachers/:teacherID", auth, teacherOnly, middleware.RequireSelf("teacherID"))
	teachers.POST("/classrooms", h.Teacher.CreateClassroom)
	teachers.GET("/classrooms", h.Teacher.ListClassrooms)

	classrooms := api.Group("/classrooms/:classroomID", auth)
	classrooms.PUT("", teacherOnly, h.Classroom.Rename)
	classrooms.DELETE("", teacherOnly, h.Classroom.Delete)
	classrooms.POST("/students", teacherOnly, h.Classroom.AddStudent)
	classrooms.DELETE("/students/:studentID", teacherOnly, h.Classroom.RemoveStudent)
	classrooms.POST("/tasks", teacherOnly, h.Classroom.AssignTask)
	classrooms.PUT("/tasks/:taskID", teacherOnly, h.Classroom.UpdateTask)
	classrooms.GET("/tasks/:taskID/submissions", teacherOnly, h.Classroom.Submissions)
	classrooms.GET("/tasks/:taskID/submissions/export", teacherOnly, h.Classroom.Export)
	classrooms.GET("/tasks/:taskID/submission", middleware.RequireRoles(models.RoleTeacher, models.RoleStudent), h.Classroom.SubmissionStatus)

	return r
}
