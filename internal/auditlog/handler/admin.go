package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/anchorlog/internal/identity"
	"go.uber.org/zap"
)

// SweepRequest is the body of POST /admin/retention/sweep.
type SweepRequest struct {
	Days int `json:"days" binding:"required,min=1"`
}

// AdminHandler serves operator-only maintenance routes.
type AdminHandler struct {
	svc    logService
	tokens *identity.AdminTokenIssuer
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler. Routes are guarded by admin JWTs
// issued by tokens.
func NewAdminHandler(svc logService, tokens *identity.AdminTokenIssuer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, tokens: tokens, logger: logger}
}

// Register mounts the admin routes on the given router group.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", identity.RequireAdmin(h.tokens))
	{
		admin.POST("/retention/sweep", h.Sweep)
	}
}

// Sweep handles POST /admin/retention/sweep. It deletes records older than
// the requested number of days.
func (h *AdminHandler) Sweep(c *gin.Context) {
	var req SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWith(c, http.StatusBadRequest, CodeValidation, bindingMessage(err))
		return
	}

	n, err := h.svc.Sweep(c.Request.Context(), req.Days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RecordRetentionDeleted(n)

	var subject string
	if claims := identity.AdminClaimsFromCtx(c); claims != nil {
		subject = claims.Subject
	}
	h.logger.Info("manual retention sweep",
		zap.String("admin", subject),
		zap.Int("days", req.Days),
		zap.Int64("deleted", n),
	)
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}
