package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"go.uber.org/zap"
)

// logService is the interface expected by the handlers, satisfied by
// *service.LogService.
type logService interface {
	Create(ctx context.Context, req *model.CreateRequest) (*model.LogRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*model.LogRecord, error)
	Query(ctx context.Context, f model.QueryFilter) (*model.Page, error)
	Verify(ctx context.Context, id uuid.UUID) (*model.Verification, error)
	Stats(ctx context.Context) (*model.Stats, error)
	Health(ctx context.Context) model.Health
	Sweep(ctx context.Context, days int) (int64, error)
}

// LogHandler serves the audit log API.
type LogHandler struct {
	svc    logService
	logger *zap.Logger
}

// NewLogHandler creates a new LogHandler.
func NewLogHandler(svc logService, logger *zap.Logger) *LogHandler {
	return &LogHandler{svc: svc, logger: logger}
}

// Register mounts the log routes on the given router group.
func (h *LogHandler) Register(rg *gin.RouterGroup) {
	logs := rg.Group("/logs")
	{
		logs.POST("", h.Create)
		logs.GET("", h.Query)
		logs.GET("/:id", h.Get)
		logs.GET("/:id/verify", h.Verify)
	}
	rg.GET("/stats", h.Stats)
}

// RegisterHealth mounts GET /health on the given router group.
func (h *LogHandler) RegisterHealth(rg gin.IRoutes) {
	rg.GET("/health", h.Health)
}

// Create handles POST /logs. It ingests a record and schedules anchoring.
func (h *LogHandler) Create(c *gin.Context) {
	var req model.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, CodeValidation, bindingMessage(err))
		return
	}

	rec, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, model.NewCreateResponse(rec))
}

// Query handles GET /logs with filters and pagination.
func (h *LogHandler) Query(c *gin.Context) {
	var params model.QueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		abortWith(c, http.StatusBadRequest, CodeValidation, bindingMessage(err))
		return
	}

	page, err := h.svc.Query(c.Request.Context(), params.Filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get handles GET /logs/:id.
func (h *LogHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Verify handles GET /logs/:id/verify. It compares the stored digest with the
// ledger.
func (h *LogHandler) Verify(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	v, err := h.svc.Verify(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// Stats handles GET /stats.
func (h *LogHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	SetLogsGauge(st)
	c.JSON(http.StatusOK, st)
}

// Health handles GET /health. It always answers 200; the body says whether
// the service is degraded.
func (h *LogHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Health(c.Request.Context()))
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortWith(c, http.StatusBadRequest, CodeInvalidID, "Invalid UUID format")
		return uuid.Nil, false
	}
	return id, true
}
