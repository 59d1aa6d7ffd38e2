package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/accounthub/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Route("/user", func(r chi.Router) {
			// Entry points for the logged-out
			r.Group(func(r chi.Router) {
				r.Use(s.requireLoggedOut)
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
				r.Post("/forgot-password", s.handleForgotPassword)
				r.Post("/reset-password", s.handleResetPassword)
				r.Post("/reset-password/", s.handleResetPassword)
			})

			// Verification completes from the email link, session or not
			r.Get("/email-verification-process", s.handleVerifyEmail)
			r.Get("/email-verification-process/", s.handleVerifyEmail)

			// Self-service, session required
			r.Group(func(r chi.Router) {
				r.Use(s.requireSession)
				r.Get("/", s.handleUserDetail)
				r.Patch("/", s.handleUpdatePassword)
				r.Get("/logout", s.handleLogout)
				r.Post("/update/profile", s.handleProfileUpdate)

				r.With(s.requireUnverified).Post("/send-verification-link", s.handleSendVerificationLink)
				r.With(s.requireRole(auth.RoleSuperAdmin)).Get("/list", s.handleListUsers)
			})
		})

		// Role administration, admins only
		r.Route("/role", func(r chi.Router) {
			r.Use(s.requireSession)
			r.Use(s.requireRole(auth.RoleSuperAdmin))

			r.Get("/", s.handleListRoles)
			r.Post("/", s.handleCreateRole)
			r.Patch("/", s.handleAssignRole)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleRoleDetail)
				r.Patch("/", s.handleUpdateRole)
				r.Delete("/", s.handleDeleteRole)
			})
		})

		// Audit trail, admins only
		r.With(s.requireSession, s.requireRole(auth.RoleSuperAdmin)).
			Get("/audit", s.handleListAudit)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
