package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 3-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,64}$`)

// emailPattern is a pragmatic email format check; deliverability is
// ultimately proven by the verification flow, not the regexp.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 3-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// IsValidEmail checks if an email address is plausibly well-formed.
func IsValidEmail(email string) bool {
	return len(email) <= 254 && emailPattern.MatchString(email)
}

// minPasswordLength is the minimum allowed password length.
const minPasswordLength = 8

// IsStrongPassword checks that a password is at least 8 characters and mixes
// upper case, lower case, digits, and at least one other character class.
func IsStrongPassword(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	var upper, lower, digit, other bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			other = true
		}
	}
	return upper && lower && digit && other
}

// Well-known role names. Roles live in the roles table; these two are seeded
// on first boot and referenced throughout the API.
const (
	// RoleUser is the default role assigned at registration.
	RoleUser = "USER"

	// RoleSuperAdmin can list users and administer roles.
	RoleSuperAdmin = "SUPER ADMIN"
)

// TokenType tags a one-time token with the workflow it belongs to.
// A token of one type must never authorise the other workflow.
type TokenType string

const (
	// TokenTypeReset marks a password-reset token.
	TokenTypeReset TokenType = "RESET"

	// TokenTypeVerification marks an email-verification token.
	TokenTypeVerification TokenType = "VERIFICATION"
)

// IsValidTokenType returns true for a known one-time token type tag.
func IsValidTokenType(t TokenType) bool {
	return t == TokenTypeReset || t == TokenTypeVerification
}

// User represents a principal: an authenticated account identity.
type User struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	FullName          string     `json:"full_name"`
	Photo             string     `json:"photo,omitempty"`
	PasswordHash      string     `json:"-"` // never serialised
	PasswordChangedAt time.Time  `json:"-"`
	EmailVerified     bool       `json:"email_verified"`
	AccountVerified   bool       `json:"account_verified"`
	RoleID            string     `json:"role_id"`
	RoleName          string     `json:"role,omitempty"` // populated on reads via join
	TokenDigest       string     `json:"-"`              // never serialised
	TokenExpiresAt    *time.Time `json:"-"`
	TokenType         TokenType  `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// HasOneTimeToken reports whether the principal currently has an outstanding
// one-time token (issued and not yet consumed or cleared).
func (u *User) HasOneTimeToken() bool {
	return u.TokenDigest != ""
}

// Role represents a named category referenced by principals. Roles are a
// flat enumerated set: no hierarchy, no inheritance.
type Role struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid session token")
	ErrSessionStale         = errors.New("session predates password change")
	ErrPrincipalNotFound    = errors.New("principal not found")
	ErrForbidden            = errors.New("insufficient permissions")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrTokenNotFound        = errors.New("one-time token not found")
	ErrTokenExpired         = errors.New("one-time token has expired")
	ErrTokenTypeMismatch    = errors.New("one-time token type mismatch")
	ErrUsernameExists       = errors.New("username already exists")
	ErrEmailExists          = errors.New("email already exists")
	ErrRoleNotFound         = errors.New("role not found")
	ErrRoleExists           = errors.New("role already exists")
	ErrAlreadyVerified      = errors.New("account already verified")
)
