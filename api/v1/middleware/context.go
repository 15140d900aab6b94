package middleware

import (
	"github.com/gin-gonic/gin"

	"ploxora/internal/auth"
	"ploxora/internal/model"
)

const (
	principalKey = "principal"
	userKey      = "user"
	tokenKey     = "sessionToken"
)

// SetPrincipal stores the authenticated caller on the request
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
}

// Principal returns the authenticated caller, or the zero principal
func Principal(c *gin.Context) auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.Principal{}
}

// User returns the stored user behind a session or client key, nil for API key callers
func User(c *gin.Context) *model.User {
	if v, ok := c.Get(userKey); ok {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// SessionToken returns the session token of the request, "" when none
func SessionToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

func setUser(c *gin.Context, u *model.User) {
	c.Set(userKey, u)
	SetPrincipal(c, auth.PrincipalFor(u))
}
