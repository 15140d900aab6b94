package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ploxora/internal/auth"
	"ploxora/internal/errs"
	"ploxora/internal/httpx"
	"ploxora/internal/model"
)

// Header names and query parameters carrying credentials
const (
	APIKeyParam     = "x-api-key"
	ClientKeyHeader = "x-client-key"
)

// SessionAuthenticator resolves a session token to its user
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// ClientKeyResolver resolves a client API key to its owner
type ClientKeyResolver interface {
	ResolveClientKey(ctx context.Context, key string) (*model.User, error)
}

// APIKeyRequired guards the static-key API with the x-api-key query parameter.
// An empty configured key disables the API.
func APIKeyRequired(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			httpx.FailErr(c, httpx.ErrForbidden("api key access is disabled"))
			c.Abort()
			return
		}
		key := c.Query(APIKeyParam)
		if key == "" {
			httpx.FailErr(c, httpx.ErrUnauthorized("missing api key"))
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			httpx.FailErr(c, httpx.ErrUnauthorized("invalid api key"))
			c.Abort()
			return
		}
		SetPrincipal(c, auth.APIPrincipal())
		c.Next()
	}
}

// SessionRequired resolves the SESSION-COOKIE to a user. Stale cookies are cleared.
func SessionRequired(cookies *auth.CookieStore, users SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := cookies.Token(c.Request)
		if !ok {
			httpx.FailErr(c, httpx.ErrUnauthorized("LOGIN-IN-FIRST"))
			c.Abort()
			return
		}
		user, err := users.Authenticate(c.Request.Context(), token)
		if err != nil {
			if clearErr := cookies.Clear(c.Writer, c.Request); clearErr != nil {
				logrus.WithError(clearErr).Warn("Failed to clear session cookie")
			}
			rejectAuth(c, err)
			return
		}
		c.Set(tokenKey, token)
		setUser(c, user)
		c.Next()
	}
}

// AdminRequired rejects callers that are not administrators
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Principal(c).Admin {
			httpx.FailErr(c, httpx.ErrForbidden("admin access required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClientKeyRequired authenticates the client API with the x-client-key header or query parameter
func ClientKeyRequired(users ClientKeyResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(ClientKeyHeader)
		if key == "" {
			key = c.Query(ClientKeyHeader)
		}
		if key == "" {
			httpx.FailErr(c, httpx.ErrUnauthorized("missing client key"))
			c.Abort()
			return
		}
		user, err := users.ResolveClientKey(c.Request.Context(), key)
		if err != nil {
			rejectAuth(c, err)
			return
		}
		setUser(c, user)
		c.Next()
	}
}

// PoweredBy sets the X-Powered-By header on every response
func PoweredBy(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Powered-By", name)
		c.Next()
	}
}

// rejectAuth answers 401 for unknown or banned accounts and passes other errors through
func rejectAuth(c *gin.Context, err error) {
	if errors.Is(err, errs.ErrNotFound) {
		httpx.FailErr(c, httpx.NewAppError(http.StatusUnauthorized, httpx.CodeAuthFailed, "NO-USER", nil))
	} else {
		httpx.Error(c, err)
	}
	c.Abort()
}
