// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"sdr_assistant_backend/platform/config"
	"sdr_assistant_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level access.
	Engine *gin.Engine
	// V1 is the /api/v1 route group. A bearer token is optional here; when
	// present it must be valid and it decides the user id.
	V1 *gin.RouterGroup
	// Protected is the /api/v1 group that requires a valid bearer token when
	// JWT validation is enabled.
	Protected *gin.RouterGroup
	// Config is the JWT configuration for scoped auth middleware.
	Config config.JWTConfig
	// ChatRateLimiter throttles message submission per client IP.
	ChatRateLimiter *httpkit.IPRateLimiter
}
