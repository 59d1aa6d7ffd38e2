package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "Authorization"

// SessionClaims extends JWT registered claims with accounthub-specific fields.
// The subject is the principal ID; Username is carried for logging only and
// is never trusted for authorisation decisions.
type SessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// IssueSessionToken creates a signed session token for a principal.
//
// The token embeds the principal ID (subject), username, issued-at and
// expiry. Validity beyond signature and expiry — in particular freshness
// against the principal's password-changed timestamp — is checked by
// CheckSessionFreshness, not here.
func IssueSessionToken(user *User, secret string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 72 * time.Hour // default 3-day session
	}

	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Username: user.Username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates and parses a session token, returning its claims.
//
// Every failure — missing token, malformed token, signature mismatch,
// expired-by-clock — collapses into ErrInvalidToken so callers cannot
// distinguish a forged token from a merely expired one.
func ParseSessionToken(tokenString, secret string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing issued-at", ErrInvalidToken)
	}

	return claims, nil
}

// CheckSessionFreshness rejects sessions issued before the principal's most
// recent password change. The password-changed timestamp acts as an implicit
// generation counter: changing the password revokes every previously issued
// session without a server-side session registry.
func CheckSessionFreshness(claims *SessionClaims, user *User) error {
	if claims == nil || claims.IssuedAt == nil {
		return ErrInvalidToken
	}
	if !claims.IssuedAt.Time.After(user.PasswordChangedAt) {
		return ErrSessionStale
	}
	return nil
}

// NewSessionCookie builds the HTTP-only session cookie carrying a signed token.
func NewSessionCookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ExpiredSessionCookie builds a cookie that clears the session on the client:
// empty value, immediate expiry.
func ExpiredSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
