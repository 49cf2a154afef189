// Package auth guards the MCP HTTP endpoint with a static bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// NewAuthMiddleware returns middleware that admits only requests carrying
//
//	Authorization: Bearer <token>
//
// The prefix is case-sensitive and takes exactly one space. An empty token
// disables the check. Rejections are answered with 401 and logged at Warn
// on logger, which may be nil.
func NewAuthMiddleware(token string, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	want := []byte(token)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			if reason := rejectReason(r.Header.Get("Authorization"), want); reason != "" {
				logger.Warn("rejected request",
					zap.String("reason", reason),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("path", r.URL.Path),
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="springboardvr-mcp"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rejectReason returns why header does not authorise the request, or "" when
// it does.
func rejectReason(header string, want []byte) string {
	if header == "" {
		return "missing authorization header"
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "not a bearer credential"
	}
	provided := header[len(bearerPrefix):]
	if provided == "" {
		return "empty bearer token"
	}
	if subtle.ConstantTimeCompare([]byte(provided), want) != 1 {
		return "token mismatch"
	}
	return ""
}
