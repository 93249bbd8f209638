package httpkit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type jwtConfig struct{ secret string }

func (c jwtConfig) GetJWTAccessSecret() string { return c.secret }
func (c jwtConfig) IsJWTEnabled() bool         { return c.secret != "" }

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestRouter(cfg jwtConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(OptionalAuth(cfg))
	r.GET("/whoami", func(c *gin.Context) {
		uid, ok := ResolveUserID(c, "")
		if !ok {
			return
		}
		c.String(http.StatusOK, uid)
	})
	return r
}

func TestOptionalAuthUsesEmailClaim(t *testing.T) {
	cfg := jwtConfig{secret: "s3cret"}
	r := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/whoami?user_id=ignored@example.com", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, cfg.secret, jwt.MapClaims{
		"sub":   "42",
		"email": "Lead@Example.com",
		"type":  "access",
	}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "lead@example.com" {
		t.Fatalf("expected verified email as user id, got %d %q", w.Code, w.Body.String())
	}
}

func TestOptionalAuthRejectsBadSignature(t *testing.T) {
	r := newTestRouter(jwtConfig{secret: "s3cret"})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "other", jwt.MapClaims{"sub": "42"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", w.Code)
	}
}

func TestResolveUserIDFallsBackToQuery(t *testing.T) {
	r := newTestRouter(jwtConfig{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami?user_id=anon@example.com", nil))
	if w.Body.String() != "anon@example.com" {
		t.Fatalf("expected query user id, got %q", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without any user id, got %d", w.Code)
	}
}

func TestResolveUserIDIgnoresCallerIDWhenJWTEnabled(t *testing.T) {
	r := newTestRouter(jwtConfig{secret: "s3cret"})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami?user_id=victim@example.com", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d %q", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "victim@example.com") {
		t.Fatalf("caller-supplied user id leaked into response: %q", w.Body.String())
	}
}
