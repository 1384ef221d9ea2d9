package webhooks

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"github.com/jmerrifield20/anchorlog/internal/identity"
	"go.uber.org/zap"
)

// Handler serves the admin webhook subscription routes.
type Handler struct {
	svc    *Service
	tokens *identity.AdminTokenIssuer
	logger *zap.Logger
}

// NewHandler creates a new webhook Handler.
func NewHandler(svc *Service, tokens *identity.AdminTokenIssuer, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts /admin/webhooks on rg behind the admin token guard.
func (h *Handler) Register(rg *gin.RouterGroup) {
	wh := rg.Group("/admin/webhooks", identity.RequireAdmin(h.tokens))
	{
		wh.POST("", h.CreateSubscription)
		wh.GET("", h.ListSubscriptions)
		wh.DELETE("/:id", h.DeleteSubscription)
	}
}

// CreateSubscription handles POST /admin/webhooks.
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "url and at least one known event are required"})
		return
	}

	sub, err := h.svc.Subscribe(c.Request.Context(), &req)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": ve.Msg})
			return
		}
		h.logger.Error("create webhook subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error", "message": "failed to create subscription"})
		return
	}

	// The secret is returned once so the operator can store it.
	c.JSON(http.StatusCreated, gin.H{
		"subscription": sub,
		"secret":       sub.Secret,
		"note":         "Store the secret securely. It will not be shown again.",
	})
}

// ListSubscriptions handles GET /admin/webhooks.
func (h *Handler) ListSubscriptions(c *gin.Context) {
	subs, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list webhook subscriptions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error", "message": "failed to list subscriptions"})
		return
	}
	if subs == nil {
		subs = []*Subscription{}
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs, "count": len(subs)})
}

// DeleteSubscription handles DELETE /admin/webhooks/:id.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id", "message": "invalid subscription ID"})
		return
	}

	if err := h.svc.Unsubscribe(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
			return
		}
		h.logger.Error("delete webhook subscription", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database_error", "message": "failed to delete subscription"})
		return
	}
	c.Status(http.StatusNoContent)
}
