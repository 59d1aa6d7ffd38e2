package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/accounthub/internal/audit"
	"github.com/nerrad567/accounthub/internal/auth"
	"github.com/nerrad567/accounthub/internal/mail"
)

type updatePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type profileUpdateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// userSummary is the list/detail projection of a principal. The password
// hash and token fields never leave the repository layer.
type userSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Photo    string `json:"photo,omitempty"`
	Role     string `json:"role"`
}

func summarize(u *auth.User) userSummary {
	return userSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Photo:    u.Photo,
		Role:     u.RoleName,
	}
}

// handleUserDetail returns the authenticated principal's own profile.
func (s *Server) handleUserDetail(w http.ResponseWriter, r *http.Request) {
	user := principalFromContext(r.Context())

	writeSuccess(w, http.StatusOK, "Success get user information", map[string]any{
		"username":  user.Username,
		"email":     user.Email,
		"full_name": user.FullName,
		"photo":     user.Photo,
		"role":      user.RoleName,
		"verified":  user.AccountVerified,
	})
}

// handleUpdatePassword changes the principal's own password after checking
// the old one. Every other session dies with the password change; this
// request gets a fresh cookie so the caller stays logged in.
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	user := principalFromContext(r.Context())

	var req updatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFormErrors(w, []fieldError{{Type: "body", Detail: "invalid JSON body"}})
		return
	}
	if req.OldPassword == "" {
		writeFormErrors(w, []fieldError{{Type: "oldPassword", Detail: "Old password is required"}})
		return
	}
	if !auth.IsStrongPassword(req.NewPassword) {
		writeFormErrors(w, []fieldError{{Type: "newPassword", Detail: "Password must have at least 8 characters, have a combination of numbers, uppercase, lowercase letters and unique characters"}})
		return
	}

	ok, err := auth.VerifyPassword(req.OldPassword, user.PasswordHash)
	if err != nil || !ok {
		s.writeAuthError(w, "Failed to update user password", auth.ErrInvalidCredentials)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed to update user password", nil)
		return
	}

	if err := s.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		s.writeAuthError(w, "Failed to update user password", err)
		return
	}

	if err := s.issueSession(w, user); err != nil {
		s.logger.Error("issue session failed", "error", err, "user_id", user.ID)
		writeFailure(w, http.StatusInternalServerError, "Failed to update user password", nil)
		return
	}

	s.auditEvent(r, audit.EventPasswordChange, user.ID, user.ID, nil)
	s.metric("password_change", "success")

	writeSuccess(w, http.StatusOK, "Success update user password", map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// handleProfileUpdate changes username, email, and full name. Changing the
// email drops the verified flag and triggers a fresh verification mail.
func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	user := principalFromContext(r.Context())

	var req profileUpdateRequest
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
	if req.FullName == "" {
		fields = append(fields, fieldError{Type: "full_name", Detail: "Full name required"})
	}
	if len(fields) > 0 {
		writeFormErrors(w, fields)
		return
	}

	emailChanged := req.Email != user.Email
	emailVerified := user.EmailVerified && !emailChanged

	err := s.users.UpdateProfile(r.Context(), user.ID, req.Username, req.Email, req.FullName, emailVerified)
	if err != nil {
		s.writeAuthError(w, "Failed to update user profile", err)
		return
	}

	if emailChanged {
		if err := s.sendVerification(r, user.ID, req.Email); err != nil {
			s.logger.Error("send verification mail failed", "error", err, "user_id", user.ID)
			writeFailure(w, http.StatusInternalServerError, "Failed send email", nil)
			return
		}
	}

	// Username rides in the session claims; refresh the cookie to match.
	user.Username = req.Username
	if err := s.issueSession(w, user); err != nil {
		s.logger.Error("issue session failed", "error", err, "user_id", user.ID)
		writeFailure(w, http.StatusInternalServerError, "Failed to update user profile", nil)
		return
	}

	s.auditEvent(r, audit.EventProfileUpdate, user.ID, user.ID, map[string]any{
		"username":      req.Username,
		"email_changed": emailChanged,
	})

	message := "Success update user profile"
	if emailChanged {
		message = "Success update user profile, we send verification url to your new email"
	}
	writeSuccess(w, http.StatusOK, message, map[string]any{
		"id":             user.ID,
		"username":       req.Username,
		"email":          req.Email,
		"full_name":      req.FullName,
		"email_verified": emailVerified,
	})
}

// handleForgotPassword issues a RESET token for the account holding the
// given email and mails the reset link.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFormErrors(w, []fieldError{{Type: "body", Detail: "invalid JSON body"}})
		return
	}
	if !auth.IsValidEmail(req.Email) {
		writeFormErrors(w, []fieldError{{Type: "email", Detail: "Please enter valid email"}})
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		s.metric("forgot_password", "unknown_email")
		s.writeAuthError(w, "Failed reset email", err)
		return
	}

	token, err := s.tokens.Issue(r.Context(), user.ID, auth.TokenTypeReset, s.tokenTTL)
	if err != nil {
		s.logger.Error("issue reset token failed", "error", err, "user_id", user.ID)
		writeFailure(w, http.StatusInternalServerError, "Failed reset email", nil)
		return
	}

	link := s.links.ResetPassword(token)
	if err := s.mailer.Send(r.Context(), user.Email, "Reset Password", mail.LinkBody(link)); err != nil {
		s.logger.Error("send reset mail failed", "error", err, "user_id", user.ID)
		writeFailure(w, http.StatusInternalServerError, "Failed reset email", nil)
		return
	}

	s.tokenMetric(auth.TokenTypeReset, "issued")
	writeSuccess(w, http.StatusOK, "Success send reset link to your mail", []any{})
}

// handleResetPassword completes the reset flow: the token from the mailed
// link proves control of the inbox, the new password replaces the old one,
// and the token is consumed only after the write lands.
func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeFormErrors(w, []fieldError{{Type: "token", Detail: "Your token is missing"}})
		return
	}

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFormErrors(w, []fieldError{{Type: "body", Detail: "invalid JSON body"}})
		return
	}
	if !auth.IsStrongPassword(req.Password) {
		writeFormErrors(w, []fieldError{{Type: "password", Detail: "Password must have at least 8 characters, have a combination of numbers, uppercase, lowercase letters and unique characters"}})
		return
	}

	principalID, err := s.tokens.Validate(r.Context(), token, auth.TokenTypeReset)
	if err != nil {
		s.tokenMetric(auth.TokenTypeReset, "rejected")
		s.writeAuthError(w, "Token invalid", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Failed reset your password", nil)
		return
	}

	if err := s.users.UpdatePassword(r.Context(), principalID, hash); err != nil {
		s.writeAuthError(w, "Failed reset your password", err)
		return
	}

	// Consume only after the password write: a failed write must leave the
	// token usable for another attempt.
	if err := s.tokens.Consume(r.Context(), principalID); err != nil {
		s.logger.Error("consume reset token failed", "error", err, "user_id", principalID)
	}

	user, err := s.users.GetByID(r.Context(), principalID)
	if err != nil {
		s.writeAuthError(w, "Failed reset your password", err)
		return
	}

	s.auditEvent(r, audit.EventPasswordReset, user.ID, user.ID, nil)
	s.tokenMetric(auth.TokenTypeReset, "consumed")

	writeSuccess(w, http.StatusOK, "Success reset your password", map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// handleSendVerificationLink issues a VERIFICATION token for the
// authenticated principal and mails the verification link.
func (s *Server) handleSendVerificationLink(w http.ResponseWriter, r *http.Request) {
	user := principalFromContext(r.Context())

	if err := s.sendVerification(r, user.ID, user.Email); err != nil {
		s.logger.Error("send verification mail failed", "error", err, "user_id", user.ID)
		writeFailure(w, http.StatusInternalServerError, "Failed send email", nil)
		return
	}

	writeSuccess(w, http.StatusOK, "We send verification url to your email", []any{})
}

// handleVerifyEmail completes the verification flow from the mailed link.
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeFormErrors(w, []fieldError{{Type: "token", Detail: "Your token is missing"}})
		return
	}

	principalID, err := s.tokens.Validate(r.Context(), token, auth.TokenTypeVerification)
	if err != nil {
		s.tokenMetric(auth.TokenTypeVerification, "rejected")
		s.writeAuthError(w, "Token invalid", err)
		return
	}

	if err := s.users.SetVerified(r.Context(), principalID); err != nil {
		s.writeAuthError(w, "Failed to verification email", err)
		return
	}

	if err := s.tokens.Consume(r.Context(), principalID); err != nil {
		s.logger.Error("consume verification token failed", "error", err, "user_id", principalID)
	}

	user, err := s.users.GetByID(r.Context(), principalID)
	if err != nil {
		s.writeAuthError(w, "Failed to verification email", err)
		return
	}

	s.auditEvent(r, audit.EventEmailVerified, user.ID, user.ID, nil)
	s.tokenMetric(auth.TokenTypeVerification, "consumed")

	writeSuccess(w, http.StatusOK, "Email successfully verified", map[string]any{
		"id":               user.ID,
		"username":         user.Username,
		"email_verified":   user.EmailVerified,
		"account_verified": user.AccountVerified,
	})
}

// handleListUsers returns a page of accounts, admin only. Supports
// case-insensitive username search and cursor pagination: pass the ID of
// the last user of the previous page to fetch the next one.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	cursor := r.URL.Query().Get("cursor")

	limit := s.cfg.ItemLimit
	if limit <= 0 {
		limit = 10
	}

	users, err := s.users.List(r.Context(), search, cursor, limit)
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeFailure(w, http.StatusInternalServerError, "Cant get user list", nil)
		return
	}

	list := make([]userSummary, len(users))
	for i := range users {
		list[i] = summarize(&users[i])
	}

	writeSuccess(w, http.StatusOK, "Success get user list", list)
}

// sendVerification issues a VERIFICATION token and mails its link. Shared
// by the explicit resend endpoint and the email-change path of the profile
// update.
func (s *Server) sendVerification(r *http.Request, principalID, email string) error {
	token, err := s.tokens.Issue(r.Context(), principalID, auth.TokenTypeVerification, s.tokenTTL)
	if err != nil {
		return err
	}

	link := s.links.EmailVerification(token)
	if err := s.mailer.Send(r.Context(), email, "Email Verification", mail.LinkBody(link)); err != nil {
		return err
	}

	s.tokenMetric(auth.TokenTypeVerification, "issued")
	return nil
}

// tokenMetric records a one-time token lifecycle event when a metrics sink
// is configured.
func (s *Server) tokenMetric(typ auth.TokenType, phase string) {
	if s.metrics != nil {
		s.metrics.WriteTokenEvent(string(typ), phase)
	}
}
