package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ploxora/internal/errs"
)

// DefaultRealtimeTTL bounds a realtime token when no lifetime is configured
const DefaultRealtimeTTL = time.Hour

// Claims is the payload of a realtime token
type Claims struct {
	UID      string `json:"uid"`
	Username string `json:"sub"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Admin reports whether the token was issued to an administrator
func (c *Claims) Admin() bool {
	return c.Role == RoleAdmin
}

// RealtimeTokens issues and verifies the HS256 tokens presented on the
// Socket.IO handshake. Browsers cannot attach the session cookie to every
// transport, so a signed-in user trades it for one of these first.
type RealtimeTokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewRealtimeTokens creates a token issuer signing with secret
func NewRealtimeTokens(secret, issuer string, ttl time.Duration) *RealtimeTokens {
	if ttl <= 0 {
		ttl = DefaultRealtimeTTL
	}
	return &RealtimeTokens{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a token for p and returns it with its expiry
func (t *RealtimeTokens) Issue(p Principal) (string, time.Time, error) {
	if len(t.secret) == 0 {
		return "", time.Time{}, errors.New("realtime token secret not configured")
	}
	now := t.now()
	expireAt := now.Add(t.ttl)
	claims := Claims{
		UID:      p.UserID,
		Username: p.Name(),
		Role:     p.Role(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Name(),
			ExpiresAt: jwt.NewNumericDate(expireAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    t.issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign realtime token: %w", err)
	}
	return signed, expireAt, nil
}

// Parse verifies a token. Failures wrap errs.ErrAuthFailed.
func (t *RealtimeTokens) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("missing realtime token: %w", errs.ErrAuthFailed)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime token: %v: %w", err, errs.ErrAuthFailed)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid realtime token: %w", errs.ErrAuthFailed)
	}
	return claims, nil
}
