// Package ginmw provides Gin HTTP middleware for the shelfmate auth core.
//
// The guards accept a *shelfmate.Client plus a *gate.Gate and translate the
// gate's decisions into HTTP responses: protected handlers run only when
// the gate renders, everything else becomes a redirect. The gate resolves
// its own wait state with a bounded wait, so no request hangs on a role
// resolution that never settles.
package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
	"github.com/adarshmaurya03/shelfmate-suite/gate"
)

// Context keys for storing auth data in gin.Context.
const (
	KeyUserID = "shelfmate_user_id"
	KeyAccess = "shelfmate_access"
)

// Protect returns Gin middleware guarding a subtree that requires a
// resolved session. On success the user id and resolved access are stored
// in the context (retrievable via GetUserID, GetAccess).
func Protect(client *shelfmate.Client, g *gate.Gate) gin.HandlerFunc {
	return protect(client, g, false)
}

// ProtectAdmin returns Gin middleware guarding the admin subtree: it
// additionally requires the resolved access to be admin.
func ProtectAdmin(client *shelfmate.Client, g *gate.Gate) gin.HandlerFunc {
	return protect(client, g, true)
}

func protect(client *shelfmate.Client, g *gate.Gate, requireAdmin bool) gin.HandlerFunc {
	routes := client.Config().Routes

	return func(c *gin.Context) {
		switch g.Check(c.Request.Context(), requireAdmin) {
		case gate.Render:
			if src := client.Sessions(); src != nil {
				c.Set(KeyUserID, src.UserID())
			}
			if resolver := client.Access(); resolver != nil {
				c.Set(KeyAccess, resolver.Access())
			}
			c.Next()

		case gate.RedirectUnauthorized:
			c.Redirect(http.StatusFound, routes.Unauthorized)
			c.Abort()

		default:
			// RedirectLogin, and anything unexpected, fails closed.
			c.Redirect(http.StatusFound, routes.Login)
			c.Abort()
		}
	}
}

// GetUserID returns the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) string {
	v, _ := c.Get(KeyUserID)
	s, _ := v.(string)
	return s
}

// GetAccess returns the resolved access from the Gin context. Absence
// reads as logged out.
func GetAccess(c *gin.Context) shelfmate.ResolvedAccess {
	v, ok := c.Get(KeyAccess)
	if !ok {
		return shelfmate.LoggedOut()
	}
	access, ok := v.(shelfmate.ResolvedAccess)
	if !ok {
		return shelfmate.LoggedOut()
	}
	return access
}
