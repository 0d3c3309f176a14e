package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/auth"
)

// publicPaths are paths that don't require authentication.
var publicPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// Auth returns a middleware that authenticates requests. Probe and metrics
// paths are public. A nil authenticator allows every request.
func Auth(
	authenticator auth.Authenticator,
	logger *zap.Logger,
) Middleware {
	return func(next http.Handler) http.Handler {
		if authenticator == nil {
			return next
		}

		return http.HandlerFunc(func(
			w http.ResponseWriter,
			r *http.Request,
		) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			info, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeAuthError(w, authenticator.Method(), err)
				return
			}

			logger.Debug("authentication successful",
				zap.String("subject", info.Subject),
				zap.String("method", string(info.Method)),
				zap.String("path", r.URL.Path),
			)

			if holder, ok := r.Context().Value(subjectKey).(*subjectHolder); ok {
				holder.subject = info.Subject
			}

			ctx := auth.WithAuthInfo(r.Context(), info)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isPublicPath checks whether the given path is a public path that
// does not require authentication. Sub-paths of a public path are public
// too, but /healthXXX is not.
func isPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}

	for p := range publicPaths {
		if strings.HasPrefix(path, p+"/") {
			return true
		}
	}

	return false
}

// authErrorResponse is the JSON error response for auth failures.
type authErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeAuthError writes a 401 response with the challenge for the
// configured method.
func writeAuthError(w http.ResponseWriter, method auth.AuthMethod, err error) {
	w.Header().Set("Content-Type", "application/json")

	setWWWAuthenticateHeader(w, method, err)

	w.WriteHeader(http.StatusUnauthorized)

	resp := authErrorResponse{
		Code:    http.StatusUnauthorized,
		Message: err.Error(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// setWWWAuthenticateHeader sets the WWW-Authenticate header. A Basic
// challenge is sent whenever Basic is accepted so browsers show a login
// prompt for the page.
func setWWWAuthenticateHeader(
	w http.ResponseWriter,
	method auth.AuthMethod,
	err error,
) {
	basic := `Basic realm="` + auth.Realm + `"`

	switch {
	case errors.Is(err, auth.ErrInvalidAPIKey):
		w.Header().Set("WWW-Authenticate", "API-Key")
	case method == auth.AuthMethodAPIKey:
		w.Header().Set("WWW-Authenticate", "API-Key")
	case errors.Is(err, auth.ErrInvalidCredentials), method == auth.AuthMethodBasic:
		w.Header().Set("WWW-Authenticate", basic)
	case errors.Is(err, auth.ErrUnauthenticated):
		w.Header().Set("WWW-Authenticate", basic+", API-Key")
	}
}
