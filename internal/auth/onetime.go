package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// oneTimeTokenBytes is the number of random bytes in a one-time token (256-bit).
const oneTimeTokenBytes = 32

// HashToken computes the SHA-256 digest of a raw token string for storage.
// Raw tokens are never stored — only their digests. Possession of the
// plaintext is the only credential; the digest is the lookup key.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// generateToken creates a cryptographically random token string.
func generateToken() (string, error) {
	b := make([]byte, oneTimeTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating one-time token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// OneTimeTokens implements the single-use, typed, time-bound token workflow
// used for password reset and email verification.
//
// Per-principal state machine: NONE → ISSUED → (CONSUMED | EXPIRED), where
// EXPIRED transitions back to NONE on the next validation attempt. Expiry is
// not actively swept; cleanup is lazy.
type OneTimeTokens struct {
	users UserRepository
}

// NewOneTimeTokens creates the one-time token workflow over the given
// principal repository.
func NewOneTimeTokens(users UserRepository) *OneTimeTokens {
	return &OneTimeTokens{users: users}
}

// Issue generates a random token, persists its digest, expiry, and type on
// the principal in a single atomic write, and returns the plaintext for
// inclusion in an out-of-band message (email link).
//
// A principal has at most one outstanding token: issuing overwrites any
// prior token of either type, so a new reset token invalidates a pending
// verification token and vice versa.
func (s *OneTimeTokens) Issue(ctx context.Context, principalID string, typ TokenType, ttl time.Duration) (string, error) {
	if !IsValidTokenType(typ) {
		return "", fmt.Errorf("issuing one-time token: unknown type %q", typ)
	}

	raw, err := generateToken()
	if err != nil {
		return "", err
	}

	expiresAt := time.Now().Add(ttl)
	if err := s.users.SetOneTimeToken(ctx, principalID, HashToken(raw), expiresAt, typ); err != nil {
		return "", fmt.Errorf("persisting one-time token: %w", err)
	}

	return raw, nil
}

// Validate checks a presented token against the stored digest and returns
// the matched principal's ID.
//
// Checks run in a fixed order:
//  1. Existence — digest lookup fails with ErrTokenNotFound.
//  2. Expiry — an expired token fails with ErrTokenExpired and the stored
//     token fields are cleared as a side effect, so a second attempt fails
//     with ErrTokenNotFound.
//  3. Type — a stored type differing from requiredType fails with
//     ErrTokenTypeMismatch even when the digest matches exactly.
//
// Validation does not consume the token. The caller must Consume it once
// the guarded action (password update, verification flag) has completed,
// so a partial failure never strands the user with a burned token.
func (s *OneTimeTokens) Validate(ctx context.Context, plaintext string, requiredType TokenType) (string, error) {
	user, err := s.users.GetByTokenDigest(ctx, HashToken(plaintext))
	if err != nil {
		return "", err
	}

	if user.TokenExpiresAt == nil || time.Now().After(*user.TokenExpiresAt) {
		// Lazy cleanup: clear the stale token so the digest can never match again.
		if clearErr := s.users.ClearOneTimeToken(ctx, user.ID); clearErr != nil {
			return "", fmt.Errorf("clearing expired token: %w", clearErr)
		}
		return "", ErrTokenExpired
	}

	if user.TokenType != requiredType {
		return "", ErrTokenTypeMismatch
	}

	return user.ID, nil
}

// Consume clears the principal's stored token fields after the guarded
// business action has succeeded. Consuming is idempotent: clearing an
// already-cleared token is a no-op.
func (s *OneTimeTokens) Consume(ctx context.Context, principalID string) error {
	if err := s.users.ClearOneTimeToken(ctx, principalID); err != nil {
		return fmt.Errorf("consuming one-time token: %w", err)
	}
	return nil
}
