package ws

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"ploxora/internal/auth"
)

// RequireToken rejects Socket.IO handshakes without a valid realtime token
func RequireToken(next http.Handler, tokens *auth.RealtimeTokens, logger *logrus.Entry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// only the initial GET carries the handshake
		if r.Method == http.MethodGet && r.URL.Query().Get("sid") == "" {
			token := extractToken(r)
			if token == "" {
				logger.Debugf("Handshake rejected: no token from %s", r.RemoteAddr)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			claims, err := tokens.Parse(token)
			if err != nil {
				logger.Debugf("Handshake rejected: invalid token from %s: %v", r.RemoteAddr, err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			logger.Debugf("Handshake accepted: user=%s (ID=%s)", claims.Username, claims.UID)
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken reads the token query parameter, then a Bearer header
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return ""
}
