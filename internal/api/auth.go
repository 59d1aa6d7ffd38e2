package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/accounthub/internal/audit"
	"github.com/nerrad567/accounthub/internal/auth"
)

// registerRequest is the request body for POST /user/register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest is the request body for POST /user/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleRegister creates a new account with the default USER role and logs
// the new principal straight in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFormErrors(w, []fieldError{{Type: "body", Detail: "invalid JSON body"}})
		return
	}

	var fields []fieldError
	if !auth.IsValidUsername(req.Username) {
		fields = append(fields, fieldError{Type: "username", Detail: "Username must be 3-64 characters of letters, digits, dot, dash or underscore"})
	}
	if !auth.IsValidEmail(req.Email) {
		fields = append(fields, fieldError{Type: "email", Detail: "Please enter valid email"})
	}
	if !auth.IsStrongPassword(req.Password) {
		fields = append(fields, fieldError{Type: "password", Detail: "Password must have at least 8 characters, have a combination of numbers, uppercase, lowercase letters and unique characters"})
	}
	if len(fields) > 0 {
		writeFormErrors(w, fields)
		return
	}

	role, err := s.roles.GetByName(r.Context(), auth.RoleUser)
	if err != nil {
		s.logger.Error("default role missing", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed register user", nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed register user", nil)
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.Username, // profile starts with the username as display name
		PasswordHash: hash,
		RoleID:       role.ID,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		s.metric("register", "rejected")
		s.writeAuthError(w, "Failed register user", err)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		s.logger.Error("issue session failed", "error", err, "user_id", user.ID)
		writeFailure(w, http.StatusInternalServerError, "Failed register user", nil)
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	s.auditEvent(r, audit.EventRegister, user.ID, user.ID, map[string]any{"username": user.Username})
	s.metric("register", "success")

	writeSuccess(w, http.StatusOK, "Success register user", map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role_id":  user.RoleID,
	})
}

// handleLogin verifies credentials and sets the session cookie.
//
// Unknown username and wrong password produce the same envelope so the
// endpoint cannot be used to probe for accounts.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFormErrors(w, []fieldError{{Type: "body", Detail: "invalid JSON body"}})
		return
	}

	user, err := s.users.GetByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, auth.ErrPrincipalNotFound) {
			err = auth.ErrInvalidCredentials
		}
		s.auditEvent(r, audit.EventLoginFailed, "", "", map[string]any{"username": req.Username})
		s.metric("login", "invalid_credentials")
		s.writeAuthError(w, "Failed to login", err)
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		s.auditEvent(r, audit.EventLoginFailed, "", user.ID, map[string]any{"username": req.Username})
		s.metric("login", "invalid_credentials")
		s.writeAuthError(w, "Failed to login", auth.ErrInvalidCredentials)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		s.logger.Error("issue session failed", "error", err, "user_id", user.ID)
		writeFailure(w, http.StatusInternalServerError, "Failed to login", nil)
		return
	}

	s.auditEvent(r, audit.EventLogin, user.ID, user.ID, nil)
	s.metric("login", "success")

	writeSuccess(w, http.StatusOK, "Success login", map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.RoleName,
	})
}

// handleLogout clears the session cookie. The JWT itself stays valid until
// expiry; logout is a client-side cookie removal, as it always was.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := principalFromContext(r.Context())

	http.SetCookie(w, auth.ExpiredSessionCookie())

	s.auditEvent(r, audit.EventLogout, user.ID, user.ID, nil)
	s.metric("logout", "success")

	writeSuccess(w, http.StatusOK, "Success logout user", nil)
}

// issueSession signs a fresh session token for the principal and sets it as
// the HTTP-only cookie.
func (s *Server) issueSession(w http.ResponseWriter, user *auth.User) error {
	token, err := auth.IssueSessionToken(user, s.secCfg.Secret, s.sessionTTL)
	if err != nil {
		return err
	}
	http.SetCookie(w, auth.NewSessionCookie(token, s.sessionTTL))
	return nil
}

// auditEvent records an audit entry, logging (not failing) on error. The
// request outcome never depends on the audit trail being writable.
func (s *Server) auditEvent(r *http.Request, event, actorID, subjectID string, detail map[string]any) {
	entry := &audit.Entry{
		Event:      event,
		ActorID:    actorID,
		SubjectID:  subjectID,
		Detail:     detail,
		RemoteAddr: r.RemoteAddr,
	}
	// Detached context: the entry should land even if the client hangs up.
	if err := s.auditRepo.Create(context.WithoutCancel(r.Context()), entry); err != nil {
		s.logger.Error("audit write failed", "event", event, "error", err)
	}
}

// metric records an auth event outcome when a metrics sink is configured.
func (s *Server) metric(event, outcome string) {
	if s.metrics != nil {
		s.metrics.WriteAuthEvent(event, outcome)
	}
}
