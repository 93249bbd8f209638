package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "sdr_assistant_backend/internal/http"
	"sdr_assistant_backend/platform/httpkit"
	"sdr_assistant_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type routerConfig struct{ secret string }

func (routerConfig) GetHTTPAddr() string          { return ":0" }
func (routerConfig) GetCORSAllowAll() bool        { return false }
func (routerConfig) GetCORSOrigins() []string     { return []string{"http://localhost:4200"} }
func (routerConfig) GetCORSAllowCreds() bool      { return true }
func (c routerConfig) GetJWTAccessSecret() string { return c.secret }
func (c routerConfig) IsJWTEnabled() bool         { return c.secret != "" }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": httpkit.GetIdentity(c).UserID()})
	})
	ctx.Protected.GET("/admin", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newEngine(cfg routerConfig, health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  cfg,
		Logger:  logger.New("test"),
		Health:  health,
		Modules: []apphttp.Module{echoModule{}},
	})
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealthReportsStoreOutage(t *testing.T) {
	if w := serve(newEngine(routerConfig{}, pinger{}), http.MethodGet, "/api/health"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w := serve(newEngine(routerConfig{}, pinger{err: errors.New("down")}), http.MethodGet, "/api/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestProtectedRequiresTokenWhenJWTEnabled(t *testing.T) {
	engine := newEngine(routerConfig{secret: "s3cret"}, nil)
	if w := serve(engine, http.MethodGet, "/api/v1/admin"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w := serve(engine, http.MethodGet, "/api/v1/whoami"); w.Code != http.StatusOK {
		t.Fatalf("expected optional auth to pass, got %d", w.Code)
	}
}

func TestProtectedOpenWithoutJWT(t *testing.T) {
	engine := newEngine(routerConfig{}, nil)
	if w := serve(engine, http.MethodGet, "/api/v1/admin"); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	w := serve(newEngine(routerConfig{}, nil), http.MethodGet, "/api/health")
	if w.Header().Get(httpkit.HeaderRequestID) == "" {
		t.Fatal("expected request id header")
	}
}
