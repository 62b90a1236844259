package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/duetable-api/internal/middleware"
	"github.com/noah-isme/duetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/duetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/duetable-api/pkg/middleware/requestid"
)

// RouterConfig collects everything the HTTP surface needs.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Observer       middleware.RequestObserver
	Tokens         middleware.TokenValidator

	Session     *SessionHandler
	Courses     *CourseHandler
	Assignments *AssignmentHandler
	Metrics     *MetricsHandler
}

// NewRouter registers every route on a fresh engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Observer))

	r.GET("/health", cfg.Metrics.Health)
	r.GET("/ready", cfg.Metrics.Ready)
	r.GET("/metrics", cfg.Metrics.Prometheus)
	if cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.GET("/metrics/summary", cfg.Metrics.Summary)

	api.POST("/session", cfg.Session.Login)
	api.GET("/session", cfg.Session.Get)

	authed := api.Group("")
	authed.Use(middleware.Session(cfg.Tokens))
	authed.DELETE("/session", cfg.Session.Logout)
	authed.PUT("/session/term", cfg.Session.SetTerm)

	authed.GET("/semesters", cfg.Courses.Semesters)
	authed.GET("/courses", cfg.Courses.Courses)

	authed.GET("/dashboard", cfg.Assignments.Dashboard)
	authed.POST("/assignments/sync", cfg.Assignments.Sync)
	authed.GET("/assignments/status", cfg.Assignments.Status)
	authed.GET("/assignments", cfg.Assignments.Table)
	authed.GET("/assignments/export", cfg.Assignments.Export)
	authed.POST("/assignments/:id/finished", cfg.Assignments.ToggleFinished)

	return r
}
