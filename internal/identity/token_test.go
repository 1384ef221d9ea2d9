package identity_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/anchorlog/internal/identity"
)

const testIssuer = "anchorlog-test"

func TestAdminTokenIssuer_IssueVerify(t *testing.T) {
	ti := identity.NewAdminTokenIssuer("s3cret", testIssuer, time.Hour)

	token, err := ti.Issue("ops@example.com")
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "ops@example.com" || claims.Role != identity.AdminRole {
		t.Errorf("claims = %+v", claims)
	}
}

func TestAdminTokenIssuer_Verify_expired(t *testing.T) {
	ti := identity.NewAdminTokenIssuer("s3cret", testIssuer, time.Nanosecond)
	token, err := ti.Issue("ops")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestAdminTokenIssuer_Verify_wrongSecret(t *testing.T) {
	a := identity.NewAdminTokenIssuer("one", testIssuer, time.Hour)
	b := identity.NewAdminTokenIssuer("two", testIssuer, time.Hour)
	token, _ := a.Issue("ops")
	if _, err := b.Verify(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestAdminTokenIssuer_Verify_wrongIssuer(t *testing.T) {
	a := identity.NewAdminTokenIssuer("s3cret", "elsewhere", time.Hour)
	b := identity.NewAdminTokenIssuer("s3cret", testIssuer, time.Hour)
	token, _ := a.Issue("ops")
	if _, err := b.Verify(token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}

func TestAdminTokenIssuer_disabled(t *testing.T) {
	ti := identity.NewAdminTokenIssuer("", testIssuer, time.Hour)
	if ti.Enabled() {
		t.Error("issuer without secret should be disabled")
	}
	if _, err := ti.Issue("ops"); !errors.Is(err, identity.ErrNoSecret) {
		t.Errorf("Issue() = %v, want ErrNoSecret", err)
	}
	if _, err := ti.Verify("x.y.z"); !errors.Is(err, identity.ErrNoSecret) {
		t.Errorf("Verify() = %v, want ErrNoSecret", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ti := identity.NewAdminTokenIssuer("s3cret", testIssuer, time.Hour)
	valid, _ := ti.Issue("ops")

	r := gin.New()
	r.GET("/admin", identity.RequireAdmin(ti), func(c *gin.Context) {
		c.String(http.StatusOK, identity.AdminClaimsFromCtx(c).Subject)
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusOK && w.Body.String() != "ops" {
				t.Errorf("subject = %q", w.Body.String())
			}
		})
	}
}
