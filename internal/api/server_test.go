package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/accounthub/internal/audit"
	"github.com/nerrad567/accounthub/internal/auth"
	"github.com/nerrad567/accounthub/internal/infrastructure/config"
	"github.com/nerrad567/accounthub/internal/infrastructure/logging"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// recordingMailer captures outbound messages so tests can fish the token
// link out of the body instead of running a relay.
type recordingMailer struct {
	lastTo      string
	lastSubject string
	lastBody    string
	sent        int
}

func (m *recordingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.lastTo = to
	m.lastSubject = subject
	m.lastBody = htmlBody
	m.sent++
	return nil
}

// lastToken extracts the raw token from the most recent mailed link.
func (m *recordingMailer) lastToken(t *testing.T) string {
	t.Helper()

	idx := strings.Index(m.lastBody, "token=")
	if idx < 0 {
		t.Fatalf("no token in mail body: %q", m.lastBody)
	}
	token := m.lastBody[idx+len("token="):]
	if end := strings.IndexAny(token, `"<`); end >= 0 {
		token = token[:end]
	}
	return token
}

// testServer creates a Server backed by a temp-file SQLite database with
// the full schema applied and the built-in roles seeded.
func testServer(t *testing.T) (*Server, *recordingMailer) {
	t.Helper()

	db := setupTestDB(t)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
	users := auth.NewUserRepository(db)
	roles := auth.NewRoleRepository(db)

	if err := auth.SeedRoles(t.Context(), roles); err != nil {
		t.Fatalf("seeding roles: %v", err)
	}

	mailer := &recordingMailer{}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:      "127.0.0.1",
			Port:      0,
			Timeouts:  config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
			ItemLimit: 10,
		},
		Security: config.SecurityConfig{
			Secret:          testSecret,
			SessionTTL:      3600,
			OneTimeTokenTTL: 300,
		},
		Service: config.ServiceConfig{
			Name:    "accounthub",
			BaseURL: "http://localhost:8080",
		},
		Logger:  log,
		Users:   users,
		Roles:   roles,
		Tokens:  auth.NewOneTimeTokens(users),
		Mailer:  mailer,
		Audit:   audit.NewSQLiteRepository(db),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, mailer
}

// setupTestDB creates a temp-file SQLite database with the full schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "api-test-*.db")
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

	schema := `
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

		CREATE TABLE audit_logs (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL,
			actor_id TEXT,
			subject_id TEXT,
			detail TEXT,
			remote_addr TEXT,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, execErr := db.Exec(schema); execErr != nil {
		t.Fatalf("creating test schema: %v", execErr)
	}

	return db
}

// doJSON performs a request against the router with an optional JSON body
// and session cookie, returning the recorder.
func doJSON(router http.Handler, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body) //nolint:errcheck // test body always marshals
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// sessionCookie extracts the Authorization cookie from a response.
func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("response carries no session cookie")
	return nil
}

// envelope decodes the standard response envelope.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  json.RawMessage `json:"errors"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding envelope: %v (body: %s)", err, w.Body.String())
	}
	return env
}

// registerUser drives the register endpoint and returns the session cookie.
func registerUser(t *testing.T, router http.Handler, username string) *http.Cookie {
	t.Helper()

	w := doJSON(router, http.MethodPost, "/api/v1/user/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "Str0ng-pass",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("register %s failed: %d %s", username, w.Code, w.Body.String())
	}
	return sessionCookie(t, w)
}

// promoteToAdmin flips a registered user's role straight in the repository.
func promoteToAdmin(t *testing.T, srv *Server, username string) {
	t.Helper()

	user, err := srv.users.GetByUsername(t.Context(), username)
	if err != nil {
		t.Fatalf("looking up %s: %v", username, err)
	}
	role, err := srv.roles.GetByName(t.Context(), auth.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("looking up admin role: %v", err)
	}
	if err := srv.users.SetRole(t.Context(), user.ID, role.ID); err != nil {
		t.Fatalf("promoting %s: %v", username, err)
	}
}

// expiredCookie builds a session cookie whose token expired an hour ago.
func expiredCookie(t *testing.T) *http.Cookie {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": "usr-gone1234",
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}
	return &http.Cookie{Name: auth.SessionCookieName, Value: signed}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(router, http.MethodGet, "/api/v1/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestServerLifecycle(t *testing.T) {
	srv, _ := testServer(t)

	if err := srv.HealthCheck(t.Context()); err == nil {
		t.Error("HealthCheck() should fail before Start()")
	}

	if err := srv.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() after Start() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNew_MissingDeps(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	_, err := New(Deps{Logger: log})
	if err == nil {
		t.Error("New() should reject missing repositories")
	}

	_, err = New(Deps{})
	if err == nil {
		t.Error("New() should reject missing logger")
	}
}
