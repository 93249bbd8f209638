// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Identity represents the caller of a request.
// Handlers use it instead of reading gin context keys directly.
type Identity interface {
	// UserID returns the conversation owner id (an email address or token subject).
	UserID() string
	// IsAuthenticated returns true if the id came from a verified token.
	IsAuthenticated() bool
}

type identity struct {
	userID        string
	authenticated bool
}

func (i *identity) UserID() string        { return i.userID }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if no verified user is present.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := raw.(string)
	if !ok || uid == "" {
		return &identity{}
	}
	return &identity{userID: uid, authenticated: true}
}

// ResolveUserID returns the verified user id when present, otherwise the
// caller-supplied fallback (body field or user_id query parameter). The
// fallback is ignored when JWT validation is enabled. It aborts with 401 and
// returns false when no user id is available.
func ResolveUserID(c *gin.Context, fallback string) (string, bool) {
	if id := GetIdentity(c); id.IsAuthenticated() {
		return id.UserID(), true
	}
	if c.GetBool(ContextTokenRequiredKey) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: errMissingToken})
		return "", false
	}
	if uid := strings.TrimSpace(fallback); uid != "" {
		return uid, true
	}
	if uid := strings.TrimSpace(c.Query("user_id")); uid != "" {
		return uid, true
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "user id is required"})
	return "", false
}
