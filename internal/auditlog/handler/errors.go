package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmerrifield20/anchorlog/internal/auditlog/model"
	"github.com/jmerrifield20/anchorlog/internal/ledger"
	"go.uber.org/zap"
)

// Error codes returned in the "error" field of failed responses.
const (
	CodeValidation  = "validation_error"
	CodeInvalidID   = "invalid_id"
	CodeNotFound    = "not_found"
	CodeDatabase    = "database_error"
	CodeLedger      = "ledger_error"
	CodeRateLimited = "rate_limited"
)

func abortWith(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": msg})
}

// respondError maps a service error to its HTTP status and fixed public
// message. Internal detail goes to the log only.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var valErr *model.ValidationError
	var verifyErr *ledger.VerifyError

	switch {
	case errors.As(err, &valErr):
		abortWith(c, http.StatusBadRequest, CodeValidation, valErr.Msg)
	case errors.Is(err, model.ErrNotFound):
		abortWith(c, http.StatusNotFound, CodeNotFound, "Log entry not found")
	case errors.As(err, &verifyErr):
		logger.Warn("ledger verification error", zap.Error(err))
		abortWith(c, http.StatusBadGateway, CodeLedger, "Failed to verify on ledger")
	default:
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		abortWith(c, http.StatusInternalServerError, CodeDatabase, "Database operation failed")
	}
}

// bindingMessage turns a gin binding error into a client-facing message.
// validator.ValidationErrors are rendered per field.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request: " + err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed on '%s'", field, fe.Tag())
	}
}

// toSnake converts a Go field name such as EventType to event_type.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
