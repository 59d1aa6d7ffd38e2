package auth

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the auth schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	migrationSQL := `
		CREATE TABLE roles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL,
			photo TEXT,
			password_hash TEXT NOT NULL,
			password_changed_at TEXT NOT NULL,
			email_verified INTEGER NOT NULL DEFAULT 0,
			account_verified INTEGER NOT NULL DEFAULT 0,
			role_id TEXT NOT NULL,
			token_digest TEXT,
			token_expires_at TEXT,
			token_type TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			FOREIGN KEY (role_id) REFERENCES roles(id)
		) STRICT;

		CREATE UNIQUE INDEX idx_users_token_digest ON users(token_digest) WHERE token_digest IS NOT NULL;
		CREATE INDEX idx_users_role ON users(role_id);
	`
	if _, err := db.Exec(migrationSQL); err != nil {
		t.Fatalf("applying auth migration: %v", err)
	}

	return db
}

// seedTestRole inserts a role and returns it.
func seedTestRole(t *testing.T, db *sql.DB, name string) *Role {
	t.Helper()

	repo := NewRoleRepository(db)
	role := &Role{Name: name}
	if err := repo.Create(t.Context(), role); err != nil {
		t.Fatalf("creating test role %s: %v", name, err)
	}
	return role
}

// seedTestUser inserts a test user with the given role and returns it.
// The password is always "Test-passw0rd".
func seedTestUser(t *testing.T, db *sql.DB, username, roleID string) *User {
	t.Helper()

	hash, err := HashPassword("Test-passw0rd")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	repo := NewUserRepository(db)
	user := &User{
		Username:     username,
		Email:        username + "@example.com",
		FullName:     username,
		PasswordHash: hash,
		RoleID:       roleID,
	}
	if err := repo.Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", username, err)
	}
	return user
}

// testUserWithRole sets up the standard USER role (if needed) and a user
// holding it, for tests that only care about a single principal.
func testUserWithRole(t *testing.T, db *sql.DB, username string) *User {
	t.Helper()

	repo := NewRoleRepository(db)
	role, err := repo.GetByName(t.Context(), RoleUser)
	if err != nil {
		role = seedTestRole(t, db, RoleUser)
	}
	return seedTestUser(t, db, username, role.ID)
}
