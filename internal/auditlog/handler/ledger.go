package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/anchorlog/internal/ledger"
	"github.com/jmerrifield20/anchorlog/internal/trustledger"
	"go.uber.org/zap"
)

// LedgerHandler exposes read-only endpoints for the embedded chain ledger.
// It is mounted only when the chain driver is active.
type LedgerHandler struct {
	chain  trustledger.Ledger
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(chain trustledger.Ledger, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{chain: chain, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/verify", h.Verify)
		l.GET("/entries", h.ListEntries)
		l.GET("/entries/:idx", h.GetEntry)
	}
}

// Overview handles GET /ledger and returns the chain length and tip hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.chain.Len(ctx)
	if err != nil {
		h.logger.Error("ledger Len", zap.Error(err))
		abortWith(c, http.StatusInternalServerError, CodeLedger, "Failed to query ledger")
		return
	}

	root, err := h.chain.Root(ctx)
	if err != nil {
		h.logger.Error("ledger Root", zap.Error(err))
		abortWith(c, http.StatusInternalServerError, CodeLedger, "Failed to query ledger root")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": count,
		"root":    root,
	})
}

// Verify handles GET /ledger/verify. A broken chain is reported with the
// first offending index; a storage failure is a 500.
func (h *LedgerHandler) Verify(c *gin.Context) {
	err := h.chain.Verify(c.Request.Context())
	var ce *trustledger.ChainError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true})
	case errors.As(err, &ce):
		h.logger.Warn("ledger integrity check failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"valid": false, "index": ce.Index, "message": ce.Reason})
	default:
		h.logger.Error("ledger Verify", zap.Error(err))
		abortWith(c, http.StatusInternalServerError, CodeLedger, "Failed to verify ledger")
	}
}

// ListEntries handles GET /ledger/entries?from=&limit=.
func (h *LedgerHandler) ListEntries(c *gin.Context) {
	var q struct {
		From  int `form:"from"  binding:"omitempty,min=0"`
		Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWith(c, http.StatusBadRequest, CodeValidation, bindingMessage(err))
		return
	}
	if q.Limit == 0 {
		q.Limit = 50
	}

	entries, err := h.chain.Range(c.Request.Context(), q.From, q.Limit)
	if err != nil {
		h.logger.Error("ledger Range", zap.Error(err))
		abortWith(c, http.StatusInternalServerError, CodeLedger, "Failed to query ledger")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "from": q.From, "limit": q.Limit})
}

// GetEntry handles GET /ledger/entries/:idx. When the memo carries a log tag
// the anchored digest is returned alongside the entry.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		abortWith(c, http.StatusBadRequest, CodeValidation, "idx must be a non-negative integer")
		return
	}

	entry, err := h.chain.Get(c.Request.Context(), idx)
	if err != nil {
		if errors.Is(err, trustledger.ErrEntryNotFound) {
			abortWith(c, http.StatusNotFound, CodeNotFound, "Ledger entry not found")
			return
		}
		h.logger.Error("ledger Get", zap.Int("idx", idx), zap.Error(err))
		abortWith(c, http.StatusInternalServerError, CodeLedger, "Failed to query ledger")
		return
	}
	resp := gin.H{"entry": entry}
	if hash, ok := ledger.ExtractTaggedHash([]string{entry.Memo}); ok {
		resp["anchored_hash"] = hash
	}
	c.JSON(http.StatusOK, resp)
}
