package mail

import (
	"fmt"
	"net/url"
	"strings"
)

// Link paths under the service base URL. The token rides in the query string
// so the plaintext never appears in any stored URL path log.
const (
	resetPasswordPath     = "/api/v1/user/reset-password/"
	emailVerificationPath = "/api/v1/user/email-verification-process/"
)

// Links builds the URLs embedded in outbound messages.
type Links struct {
	baseURL string
}

// NewLinks creates a link builder rooted at the externally visible base URL.
func NewLinks(baseURL string) *Links {
	return &Links{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// ResetPassword returns the password-reset URL carrying the raw token.
func (l *Links) ResetPassword(token string) string {
	return l.baseURL + resetPasswordPath + "?token=" + url.QueryEscape(token)
}

// EmailVerification returns the verification URL carrying the raw token.
func (l *Links) EmailVerification(token string) string {
	return l.baseURL + emailVerificationPath + "?token=" + url.QueryEscape(token)
}

// LinkBody renders the single-link HTML body used by both token mails.
func LinkBody(link string) string {
	return fmt.Sprintf(`<a href=%q>%s</a>`, link, link)
}
