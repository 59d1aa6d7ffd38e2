package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/accounthub/internal/auth"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const (
	// ctxKeyRequestID is the context key for the request ID.
	ctxKeyRequestID contextKey = "request_id"

	// ctxKeyPrincipal is the context key for the authenticated principal.
	ctxKeyPrincipal contextKey = "principal"
)

// requestIDMiddleware generates a unique request ID for each request.
// If the client sends an X-Request-ID header, it is used; otherwise one is generated.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs each HTTP request with method, path, status, and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		durationMs := time.Since(start).Milliseconds()
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration_ms", durationMs,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		if s.metrics != nil {
			s.metrics.WriteRequestMetric(r.URL.Path, r.Method, wrapped.status, float64(durationMs))
		}
	})
}

// recoveryMiddleware catches panics in handlers and returns a 500 response.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered in HTTP handler",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", r.Context().Value(ctxKeyRequestID),
				)
				writeFailure(w, http.StatusInternalServerError, "Failed execute task", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles Cross-Origin Resource Sharing headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", joinOrDefault(s.cfg.CORS.AllowedMethods, "GET, POST, PUT, PATCH, DELETE, OPTIONS"))
			w.Header().Set("Access-Control-Allow-Headers", joinOrDefault(s.cfg.CORS.AllowedHeaders, "Authorization, Content-Type, X-Request-ID"))
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// bodySizeLimitMiddleware limits the size of incoming request bodies to prevent
// denial-of-service attacks via oversized payloads.
func (s *Server) bodySizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		}
		next.ServeHTTP(w, r)
	})
}

// sessionPrincipal resolves the session cookie to a live principal.
//
// Returns the principal only when the cookie parses, the signature and
// expiry hold, the principal still exists, and the token was issued after
// the principal's last password change. Each failure comes back as the
// matching sentinel for the caller to map.
func (s *Server) sessionPrincipal(r *http.Request) (*auth.User, error) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}

	claims, err := auth.ParseSessionToken(cookie.Value, s.secCfg.Secret)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		return nil, err
	}

	if err := auth.CheckSessionFreshness(claims, user); err != nil {
		return nil, err
	}

	return user, nil
}

// requireSession admits only requests bearing a valid, fresh session cookie.
// The resolved principal is stored in the request context.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessionPrincipal(r)
		if err != nil {
			// A dangling principal lookup is an authentication failure,
			// not a 404: the session names someone who no longer exists.
			if errors.Is(err, auth.ErrSessionStale) {
				writeFailure(w, http.StatusUnauthorized, "User password has changed, please relogin", errorDetail(err))
				return
			}
			writeFailure(w, http.StatusUnauthorized, "Login Requires! Please Login", errorDetail(err))
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyPrincipal, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireLoggedOut rejects requests bearing a valid, fresh session.
//
// A missing, malformed, expired, or stale cookie passes through: those
// sessions cannot act, so the bearer counts as logged out.
func (s *Server) requireLoggedOut(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.sessionPrincipal(r); err == nil {
			writeFailure(w, http.StatusUnauthorized, "Logout Requires! Please Logout First",
				errorDetail(auth.ErrAlreadyAuthenticated))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireRole admits only principals whose role name is in the allowed set.
// Role names are compared case-sensitively as opaque labels.
func (s *Server) requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := principalFromContext(r.Context())
			if user == nil {
				writeFailure(w, http.StatusUnauthorized, "Login Requires! Please Login", errorDetail(auth.ErrInvalidToken))
				return
			}

			for _, role := range roles {
				if user.RoleName == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			// Generic message: do not leak which roles would have been allowed.
			writeFailure(w, http.StatusForbidden, "Not allowed to perform this action",
				errorDetail(auth.ErrForbidden))
		})
	}
}

// requireUnverified rejects principals whose account is already verified.
// Guards the verification-link endpoint against pointless re-sends.
func (s *Server) requireUnverified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := principalFromContext(r.Context())
		if user == nil {
			writeFailure(w, http.StatusUnauthorized, "Login Requires! Please Login", errorDetail(auth.ErrInvalidToken))
			return
		}
		if user.AccountVerified {
			writeFailure(w, http.StatusUnauthorized, "Cant execute request",
				errorDetail(auth.ErrAlreadyVerified))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// principalFromContext returns the authenticated principal stored by
// requireSession, or nil outside a session-gated route.
func principalFromContext(ctx context.Context) *auth.User {
	user, _ := ctx.Value(ctxKeyPrincipal).(*auth.User)
	return user
}

// isAllowedOrigin checks if the origin is in the allowed list.
// An empty list allows all origins (dev mode).
func (s *Server) isAllowedOrigin(origin string) bool {
	if len(s.cfg.CORS.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.cfg.CORS.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// requestIDBytes is the number of random bytes used for request IDs.
const requestIDBytes = 8

// generateRequestID creates a random hex request ID.
func generateRequestID() string {
	b := make([]byte, requestIDBytes)
	//nolint:errcheck // crypto/rand.Read always returns len(b) on supported platforms
	rand.Read(b)
	return hex.EncodeToString(b)
}

// joinOrDefault joins a string slice with ", " or returns the default if empty.
func joinOrDefault(values []string, defaultVal string) string {
	if len(values) == 0 {
		return defaultVal
	}
	result := values[0]
	for _, v := range values[1:] {
		result += ", " + v
	}
	return result
}
