package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"glampbook/internal/app/auth"
)

// Identity is resolved by the gateway and forwarded in these headers.
const (
	UserIDHeader    = "X-User-ID"
	UserRolesHeader = "X-User-Roles"
)

// PrincipalMiddleware puts the forwarded identity on the request context so
// the bus middleware can authorize commands. Anonymous requests pass through.
func PrincipalMiddleware(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(UserIDHeader))
	if userID == "" {
		c.Next()
		return
	}
	p := auth.Principal{UserID: userID, Roles: auth.ParseRoles(c.GetHeader(UserRolesHeader))}
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
	c.Next()
}

func currentPrincipal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.FromContext(c.Request.Context())
	if !ok || !p.Authenticated() {
		return auth.Principal{}, false
	}
	return p, true
}

func requirePrincipal(c *gin.Context) (auth.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required", "kind": "unauthenticated"})
		return auth.Principal{}, false
	}
	return p, true
}
