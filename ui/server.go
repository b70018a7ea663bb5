// Package ui exposes the admin surface: a JSON API over gin for operators to
// inspect check-ins, drive flag lifecycles, and pull reports. It carries no
// business rules; every decision lives in the app services.
package ui

import (
	"talentbridge/internal/container"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server represents the admin web server
type Server struct {
	router *gin.Engine
	cnt    *container.Container
	logger *zap.Logger
}

// NewServer creates a new admin server instance
func NewServer(cnt *container.Container) *Server {
	gin.SetMode(cnt.Config.Server.GinMode)
	s := &Server{
		router: gin.New(),
		cnt:    cnt,
		logger: cnt.Logger,
	}
	s.router.Use(gin.Recovery())
	s.registerRoutes()
	return s
}

// Router exposes the underlying engine; used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api")

	api.POST("/introductions", s.handleCreateIntroduction)
	api.GET("/introductions/:id", s.handleGetIntroduction)
	api.POST("/introductions/:id/status", s.handleUpdateIntroductionStatus)

	api.GET("/check-ins", s.handleListCheckIns)
	api.GET("/check-ins/:id", s.handleGetCheckIn)
	api.POST("/check-ins/:id/resend", s.handleResendCheckIn)
	api.POST("/check-ins/:id/classify", s.handleClassifyCheckIn)
	api.POST("/check-ins/:id/review", s.handleReviewCheckIn)

	api.POST("/scheduler/run", s.handleSchedulerRun)

	api.GET("/flags", s.handleListFlags)
	api.GET("/flags/:id", s.handleGetFlag)
	api.POST("/flags", s.handleRaiseFlag)
	api.POST("/flags/:id/recalculate", s.handleRecalculateFlag)
	api.POST("/flags/:id/begin-review", s.handleBeginReview)
	api.POST("/flags/:id/false-positive", s.handleFalsePositive)
	api.POST("/flags/:id/invoice", s.handleSendInvoice)
	api.POST("/flags/:id/paid", s.handleMarkPaid)
	api.POST("/flags/:id/dispute", s.handleRaiseDispute)
	api.POST("/flags/:id/resolve", s.handleResolveInFavor)
	api.POST("/flags/:id/write-off", s.handleWriteOff)

	api.GET("/reports/summary", s.handleReportSummary)
	api.GET("/reports/export", s.handleReportExport)
}

// Run starts the server on the given address
func (s *Server) Run(addr string) error {
	s.logger.Info("admin server starting", zap.String("addr", addr))
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}
