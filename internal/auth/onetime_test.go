package auth

import (
	"errors"
	"testing"
	"time"
)

func TestOneTimeTokens_IssueValidateConsume(t *testing.T) {
	db := testDB(t)
	user := testUserWithRole(t, db, "alice")
	tokens := NewOneTimeTokens(NewUserRepository(db))

	raw, err := tokens.Issue(t.Context(), user.ID, TokenTypeReset, 5*time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if raw == "" {
		t.Fatal("Issue() returned empty plaintext")
	}

	// Validation succeeds and does not consume
	id, err := tokens.Validate(t.Context(), raw, TokenTypeReset)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if id != user.ID {
		t.Errorf("Validate() principal = %q, want %q", id, user.ID)
	}

	// A second validation of the same token still succeeds
	if _, err := tokens.Validate(t.Context(), raw, TokenTypeReset); err != nil {
		t.Fatalf("second Validate() before consume error = %v", err)
	}

	if err := tokens.Consume(t.Context(), user.ID); err != nil {
		t.Fatalf("Consume() error = %v", err)
	}

	// Replay after consume fails as if the token never existed
	if _, err := tokens.Validate(t.Context(), raw, TokenTypeReset); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Validate() after consume error = %v, want ErrTokenNotFound", err)
	}
}

func TestOneTimeTokens_UnknownToken(t *testing.T) {
	db := testDB(t)
	tokens := NewOneTimeTokens(NewUserRepository(db))

	_, err := tokens.Validate(t.Context(), "never-issued", TokenTypeReset)
	if !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("Validate() error = %v, want ErrTokenNotFound", err)
	}
}

func TestOneTimeTokens_Expiry(t *testing.T) {
	db := testDB(t)
	user := testUserWithRole(t, db, "alice")
	repo := NewUserRepository(db)
	tokens := NewOneTimeTokens(repo)

	raw, err := tokens.Issue(t.Context(), user.ID, TokenTypeVerification, -time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// First attempt reports expiry and lazily clears the stored token
	if _, err := tokens.Validate(t.Context(), raw, TokenTypeVerification); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Validate() error = %v, want ErrTokenExpired", err)
	}

	stored, err := repo.GetByID(t.Context(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.HasOneTimeToken() {
		t.Error("expired token should be cleared after the failed validation")
	}

	// Second attempt: the digest no longer exists
	if _, err := tokens.Validate(t.Context(), raw, TokenTypeVerification); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("second Validate() error = %v, want ErrTokenNotFound", err)
	}
}

func TestOneTimeTokens_TypeMismatch(t *testing.T) {
	db := testDB(t)
	user := testUserWithRole(t, db, "alice")
	tokens := NewOneTimeTokens(NewUserRepository(db))

	raw, err := tokens.Issue(t.Context(), user.ID, TokenTypeVerification, 5*time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := tokens.Validate(t.Context(), raw, TokenTypeReset); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("Validate() error = %v, want ErrTokenTypeMismatch", err)
	}

	// The mismatch does not burn the token for its real purpose
	if _, err := tokens.Validate(t.Context(), raw, TokenTypeVerification); err != nil {
		t.Errorf("Validate() with matching type error = %v", err)
	}
}

func TestOneTimeTokens_IssueOverwrites(t *testing.T) {
	db := testDB(t)
	user := testUserWithRole(t, db, "alice")
	tokens := NewOneTimeTokens(NewUserRepository(db))

	first, err := tokens.Issue(t.Context(), user.ID, TokenTypeReset, 5*time.Minute)
	if err != nil {
		t.Fatalf("first Issue() error = %v", err)
	}

	// Second issue of a different type replaces the first entirely
	second, err := tokens.Issue(t.Context(), user.ID, TokenTypeVerification, 5*time.Minute)
	if err != nil {
		t.Fatalf("second Issue() error = %v", err)
	}

	if _, err := tokens.Validate(t.Context(), first, TokenTypeReset); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("superseded token error = %v, want ErrTokenNotFound", err)
	}
	if _, err := tokens.Validate(t.Context(), second, TokenTypeVerification); err != nil {
		t.Errorf("replacement token error = %v", err)
	}
}

func TestOneTimeTokens_InvalidType(t *testing.T) {
	db := testDB(t)
	user := testUserWithRole(t, db, "alice")
	tokens := NewOneTimeTokens(NewUserRepository(db))

	if _, err := tokens.Issue(t.Context(), user.ID, TokenType("SESSION"), 5*time.Minute); err == nil {
		t.Error("Issue() should reject an unknown token type")
	}
}

func TestOneTimeTokens_UnknownPrincipal(t *testing.T) {
	db := testDB(t)
	tokens := NewOneTimeTokens(NewUserRepository(db))

	if _, err := tokens.Issue(t.Context(), "usr-missing", TokenTypeReset, 5*time.Minute); !errors.Is(err, ErrPrincipalNotFound) {
		t.Errorf("Issue() error = %v, want ErrPrincipalNotFound", err)
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	a := HashToken("some-token")
	b := HashToken("some-token")
	if a != b {
		t.Error("HashToken should be deterministic")
	}
	if a == HashToken("other-token") {
		t.Error("different tokens should have different digests")
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(a))
	}
}
