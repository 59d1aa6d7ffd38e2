package auth

import "testing"

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"simple", "alice", true},
		{"with separators", "alice.smith_99-x", true},
		{"minimum length", "abc", true},
		{"too short", "ab", false},
		{"too long", string(make([]byte, 65)), false},
		{"empty", "", false},
		{"spaces", "alice smith", false},
		{"at sign", "alice@home", false},
		{"unicode", "ålice", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidUsername(tt.username); got != tt.want {
				t.Errorf("IsValidUsername(%q) = %v, want %v", tt.username, got, tt.want)
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"simple", "alice@example.com", true},
		{"subdomain", "alice@mail.example.co.uk", true},
		{"plus tag", "alice+tag@example.com", true},
		{"empty", "", false},
		{"no at", "alice.example.com", false},
		{"no domain", "alice@", false},
		{"no local part", "@example.com", false},
		{"embedded space", "alice smith@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{"all classes", "Str0ng-pass", true},
		{"exactly eight", "Aa1-bcde", true},
		{"too short", "Aa1-bcd", false},
		{"no upper", "weak-pass1", false},
		{"no lower", "WEAK-PASS1", false},
		{"no digit", "Weak-pass", false},
		{"no symbol", "Weakpass1", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStrongPassword(tt.password); got != tt.want {
				t.Errorf("IsStrongPassword(%q) = %v, want %v", tt.password, got, tt.want)
			}
		})
	}
}

func TestIsValidTokenType(t *testing.T) {
	if !IsValidTokenType(TokenTypeReset) {
		t.Error("RESET should be a valid token type")
	}
	if !IsValidTokenType(TokenTypeVerification) {
		t.Error("VERIFICATION should be a valid token type")
	}
	if IsValidTokenType(TokenType("SESSION")) {
		t.Error("unknown token type should be invalid")
	}
	if IsValidTokenType(TokenType("")) {
		t.Error("empty token type should be invalid")
	}
}

func TestUserHasOneTimeToken(t *testing.T) {
	var u User
	if u.HasOneTimeToken() {
		t.Error("fresh user should have no outstanding token")
	}

	u.TokenDigest = "abc123"
	if !u.HasOneTimeToken() {
		t.Error("user with a stored digest should report an outstanding token")
	}
}
