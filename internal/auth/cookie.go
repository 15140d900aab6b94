package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

// CookieName is the name of the panel's session cookie
const CookieName = "SESSION-COOKIE"

const tokenValue = "token"

// CookieStore signs the session cookie that carries the session token
type CookieStore struct {
	store *sessions.CookieStore
}

// NewCookieStore creates a cookie store signed with secret
func NewCookieStore(secret string, ttl time.Duration, secure bool) *CookieStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	cs := sessions.NewCookieStore([]byte(secret))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieStore{store: cs}
}

func (c *CookieStore) get(r *http.Request) *sessions.Session {
	// a tampered or stale cookie yields a fresh session
	sess, _ := c.store.Get(r, CookieName)
	return sess
}

// Token returns the session token carried by the request's cookie
func (c *CookieStore) Token(r *http.Request) (string, bool) {
	v, ok := c.get(r).Values[tokenValue]
	if !ok {
		return "", false
	}
	token, ok := v.(string)
	return token, ok && token != ""
}

// SetToken writes token into the session cookie
func (c *CookieStore) SetToken(w http.ResponseWriter, r *http.Request, token string) error {
	sess := c.get(r)
	sess.Values[tokenValue] = token
	return sess.Save(r, w)
}

// Clear expires the session cookie
func (c *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	sess := c.get(r)
	delete(sess.Values, tokenValue)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
