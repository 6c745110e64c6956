package server

import (
	"context"
	"net/http"
	"strings"

	"resumescan/internal/observability"
	"resumescan/internal/types"
)

type contextKey string

const userContextKey contextKey = "authenticated-user"

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes(om *observability.ObservabilityManager) *http.ServeMux {
	mux := http.NewServeMux()

	// Add middleware layers with observability
	rateLimitHandler := s.createRateLimitMiddleware(om)
	requestLimitHandler := s.requestSizeLimitMiddleware()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	// Account endpoints; signup and login are the only unauthenticated
	// mutating routes, so they stay behind the rate limiter.
	mux.HandleFunc("POST /auth/signup",
		rateLimitHandler(requestLimitHandler(s.signupHandler)),
	)
	mux.HandleFunc("POST /auth/login",
		rateLimitHandler(requestLimitHandler(s.loginHandler)),
	)
	mux.HandleFunc("POST /auth/logout",
		rateLimitHandler(s.sessionMiddleware(s.logoutHandler)),
	)

	// User endpoints
	mux.HandleFunc("GET /entitlement",
		rateLimitHandler(s.sessionMiddleware(s.entitlementHandler)),
	)
	mux.HandleFunc("POST /scan",
		rateLimitHandler(s.sessionMiddleware(requestLimitHandler(s.createScanHandler(om)))),
	)
	mux.HandleFunc("GET /scans",
		rateLimitHandler(s.sessionMiddleware(s.listScansHandler)),
	)
	mux.HandleFunc("GET /scans/{id}",
		rateLimitHandler(s.sessionMiddleware(s.getScanHandler)),
	)
	mux.HandleFunc("GET /scans/{id}/report",
		rateLimitHandler(s.sessionMiddleware(s.scanReportHandler)),
	)
	mux.HandleFunc("POST /payments",
		rateLimitHandler(s.sessionMiddleware(requestLimitHandler(s.createSubmitPaymentHandler(om)))),
	)
	mux.HandleFunc("GET /payments",
		rateLimitHandler(s.sessionMiddleware(s.listPaymentsHandler)),
	)

	// Admin endpoints
	mux.HandleFunc("POST /admin/payments/verify",
		rateLimitHandler(s.sessionMiddleware(s.adminMiddleware(requestLimitHandler(s.createVerifyPaymentHandler(om))))),
	)
	mux.HandleFunc("GET /admin/payments/pending",
		rateLimitHandler(s.sessionMiddleware(s.adminMiddleware(s.pendingPaymentsHandler))),
	)
	mux.HandleFunc("GET /admin/logs",
		rateLimitHandler(s.sessionMiddleware(s.adminMiddleware(s.adminLogsHandler))),
	)

	return mux
}

// sessionMiddleware authenticates requests via bearer session tokens
func (s *Server) sessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.Logger.Info("Authentication failed: missing session token",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Missing session token", "Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		user, err := s.Auth.UserFromToken(r.Context(), token)
		if err != nil {
			s.Logger.Info("Authentication failed: invalid session",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"token_prefix", maskToken(token))
			writeErrorResponse(w, "Invalid session", "Session is expired or unknown", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next(w, r.WithContext(ctx))
	}
}

// adminMiddleware restricts a route to users with the admin role.
// Must run after sessionMiddleware.
func (s *Server) adminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		if user == nil || !user.IsAdmin() {
			s.Logger.Info("Authorization failed: admin role required",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			writeErrorResponse(w, "Forbidden", "Administrator role required", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// userFrom returns the authenticated user stored by sessionMiddleware
func userFrom(ctx context.Context) *types.User {
	user, _ := ctx.Value(userContextKey).(*types.User)
	return user
}

// bearerToken extracts the session token from the Authorization header
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				// Limit the request body size
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// maskToken masks a session token for logging (shows only first 8 characters)
func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:8] + "****"
}
