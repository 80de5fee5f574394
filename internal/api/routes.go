package api

import (
	"net/http"

	"github.com/IvanYuichiC/etab-flow-sign/internal/api/handlers"
	"github.com/IvanYuichiC/etab-flow-sign/internal/api/middleware"
	"github.com/IvanYuichiC/etab-flow-sign/internal/services"
	"github.com/IvanYuichiC/etab-flow-sign/internal/workflow"
	"github.com/IvanYuichiC/etab-flow-sign/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Router struct {
	engine         *gin.Engine
	logger         *zap.Logger
	metrics        *metrics.MetricsCollector
	authHandler    *handlers.AuthHandler
	docHandler     *handlers.DocumentHandler
	userHandler    *handlers.UserHandler
	authMiddleware *middleware.AuthMiddleware
	reqMiddleware  *middleware.RequestMiddleware
}

func NewRouter(
	logger *zap.Logger,
	metricsCollector *metrics.MetricsCollector,
	sessions *services.SessionStore,
	docService *services.DocumentService,
	workflowEngine *workflow.Engine,
	db *gorm.DB,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	reqMiddleware := middleware.NewRequestMiddleware(logger)
	authMiddleware := middleware.NewAuthMiddleware(sessions, db)

	engine.Use(reqMiddleware.ProcessRequest())
	engine.Use(reqMiddleware.RecoverPanic())
	engine.Use(reqMiddleware.LoginAttemptMiddleware())

	return &Router{
		engine:         engine,
		logger:         logger,
		metrics:        metricsCollector,
		authHandler:    handlers.NewAuthHandler(sessions, db, logger),
		docHandler:     handlers.NewDocumentHandler(docService, workflowEngine, db, logger),
		userHandler:    handlers.NewUserHandler(db, logger),
		authMiddleware: authMiddleware,
		reqMiddleware:  reqMiddleware,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "up", "name": "etab-flow-sign"})
	})

	r.engine.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"counters":  r.metrics.GetCounters(),
			"latencies": r.metrics.GetLatencies(),
		})
	})

	r.engine.POST("/login", r.authHandler.Login)
	r.engine.GET("/logout", r.authHandler.Logout)

	// Public tracking endpoint, resolved from the QR code on the document.
	r.engine.GET("/track/:id", r.docHandler.TrackDocument)

	authorized := r.engine.Group("/")
	authorized.Use(r.authMiddleware.RequireAuth())
	{
		authorized.GET("/dashboard", r.docHandler.ShowDashboard)
		authorized.GET("/me", r.userHandler.Me)
		authorized.GET("/users", r.userHandler.ListUsers)
		authorized.GET("/documents", r.docHandler.ListDocuments)
		authorized.POST("/documents", r.docHandler.CreateDocument)
		authorized.GET("/documents/:id/sign", r.docHandler.ShowSignPage)
		authorized.POST("/documents/:id/sign", r.docHandler.SignDocument)
		authorized.POST("/documents/:id/return", r.docHandler.ReturnDocument)
		authorized.GET("/documents/:id/audit", r.docHandler.AuditTrail)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

func (r *Router) Run(addr string) error {
	r.logger.Info("Starting HTTP server", zap.String("address", addr))
	return r.engine.Run(addr)
}
