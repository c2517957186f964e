package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"order-recon-go/config"
	"order-recon-go/internal/errs"
	"order-recon-go/internal/harvester"
	"order-recon-go/internal/metrics"
	"order-recon-go/internal/reconciler"
	"order-recon-go/internal/repository"
	"order-recon-go/internal/scheduler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db        *gorm.DB
	repo      *repository.Repository
	harvester *harvester.Harvester
	engine    *reconciler.Engine
	scheduler *scheduler.Scheduler
	metrics   *metrics.Metrics
	cfg       *config.Config
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, repo *repository.Repository, h *harvester.Harvester, e *reconciler.Engine, s *scheduler.Scheduler, m *metrics.Metrics, cfg *config.Config) *Handlers {
	return &Handlers{
		db:        db,
		repo:      repo,
		harvester: h,
		engine:    e,
		scheduler: s,
		metrics:   m,
		cfg:       cfg,
	}
}

// SetupRoutes registers all routes on the router
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/sync/gmail", h.SyncGmail)
		api.GET("/sync/gmail/status", h.SyncStatus)
		api.POST("/uploads", h.UploadSpreadsheet)
		api.POST("/reports", h.GenerateReport)

		imports := api.Group("/imports")
		{
			imports.GET("", h.ListImports)
			imports.GET("/rows", h.ListImportRows)
			imports.DELETE("/:month", h.DeleteImport)
		}

		sched := api.Group("/scheduler")
		{
			sched.POST("/start", h.StartScheduler)
			sched.POST("/stop", h.StopScheduler)
			sched.POST("/run", h.RunSchedulerOnce)
			sched.GET("/status", h.SchedulerStatus)
		}
	}
}

// respondError maps the error taxonomy onto HTTP statuses: validation 400,
// credential 401, provider 502, everything else 500.
func respondError(c *gin.Context, err error) {
	var (
		validationErr *errs.ValidationError
		credentialErr *errs.CredentialError
		providerErr   *errs.ProviderError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
			Code:    http.StatusBadRequest,
		})
	case errors.As(err, &credentialErr):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "credential_error",
			Message: credentialErr.Error(),
			Code:    http.StatusUnauthorized,
		})
	case errors.As(err, &providerErr):
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "provider_error",
			Message: providerErr.Error(),
			Code:    http.StatusBadGateway,
		})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
			Code:    http.StatusInternalServerError,
		})
	}
}
