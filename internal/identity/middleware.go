package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxAdminClaims = "anchorlog_admin_claims"

// RequireAdmin returns a Gin middleware that requires a valid admin Bearer
// token. The verified claims are stored on the context.
func RequireAdmin(tokens *AdminTokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Bearer admin token required",
			})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid admin token",
			})
			return
		}

		c.Set(ctxAdminClaims, claims)
		c.Next()
	}
}

// AdminClaimsFromCtx retrieves the claims injected by RequireAdmin.
func AdminClaimsFromCtx(c *gin.Context) *AdminTokenClaims {
	v, _ := c.Get(ctxAdminClaims)
	claims, _ := v.(*AdminTokenClaims)
	return claims
}
