package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines the interface for principal persistence.
// All lookups are point queries keyed by unique fields.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByTokenDigest(ctx context.Context, digest string) (*User, error)
	List(ctx context.Context, search, cursor string, limit int) ([]User, error)
	UpdateProfile(ctx context.Context, id, username, email, fullName string, emailVerified bool) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetRole(ctx context.Context, id, roleID string) error
	SetVerified(ctx context.Context, id string) error
	SetOneTimeToken(ctx context.Context, id, digest string, expiresAt time.Time, typ TokenType) error
	ClearOneTimeToken(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed principal repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// userColumns is the select list shared by every principal read.
// Role name comes from a join so the access gate never needs a second query.
const userColumns = `u.id, u.username, u.email, u.full_name, u.photo, u.password_hash,
	u.password_changed_at, u.email_verified, u.account_verified, u.role_id, r.name,
	u.token_digest, u.token_expires_at, u.token_type, u.created_at, u.updated_at`

const userSelect = "SELECT " + userColumns + " FROM users u LEFT JOIN roles r ON r.id = u.role_id"

// Create inserts a new principal. The ID is generated if empty.
// The password-changed timestamp is backdated by one second so a session
// issued in the same request is strictly after it.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = "usr-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC()
	user.CreatedAt = now.Truncate(time.Second)
	user.UpdatedAt = user.CreatedAt
	user.PasswordChangedAt = user.CreatedAt.Add(-time.Second)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, full_name, photo, password_hash,
		 password_changed_at, email_verified, account_verified, role_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.FullName, nullString(user.Photo),
		user.PasswordHash, formatTime(user.PasswordChangedAt),
		boolToInt(user.EmailVerified), boolToInt(user.AccountVerified),
		user.RoleID, formatTime(user.CreatedAt), formatTime(user.UpdatedAt),
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return constraint
		}
		return fmt.Errorf("creating user: %w", err)
	}

	return nil
}

// GetByID retrieves a principal by its unique ID.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getUser(ctx, userSelect+" WHERE u.id = ?", id)
}

// GetByUsername retrieves a principal by its unique username.
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx, userSelect+" WHERE u.username = ?", username)
}

// GetByEmail retrieves a principal by its unique email address.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, userSelect+" WHERE u.email = ?", email)
}

// GetByTokenDigest retrieves the principal holding the given one-time token
// digest. A missing row maps to ErrTokenNotFound rather than
// ErrPrincipalNotFound: the digest is the credential being checked.
func (r *SQLiteUserRepository) GetByTokenDigest(ctx context.Context, digest string) (*User, error) {
	row := r.db.QueryRowContext(ctx, userSelect+" WHERE u.token_digest = ?", digest)
	u, err := scanUserFrom(row)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return u, nil
}

// List returns a page of principals ordered by username, optionally filtered
// by a case-insensitive username substring search. The cursor is the ID of
// the last principal of the previous page; results start strictly after it.
func (r *SQLiteUserRepository) List(ctx context.Context, search, cursor string, limit int) ([]User, error) {
	query := userSelect
	var conds []string
	var args []any

	if search != "" {
		conds = append(conds, "u.username LIKE '%' || ? || '%' COLLATE NOCASE")
		args = append(args, search)
	}
	if cursor != "" {
		conds = append(conds, "u.username > (SELECT username FROM users WHERE id = ?)")
		args = append(args, cursor)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY u.username ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}

	if users == nil {
		users = []User{}
	}
	return users, nil
}

// UpdateProfile modifies a principal's username, email, full name, and
// email-verified flag in one statement.
func (r *SQLiteUserRepository) UpdateProfile(ctx context.Context, id, username, email, fullName string, emailVerified bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, full_name = ?, email_verified = ?, updated_at = ? WHERE id = ?`,
		username, email, fullName, boolToInt(emailVerified), formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return constraint
		}
		return fmt.Errorf("updating profile: %w", err)
	}

	return requireRowAffected(result)
}

// UpdatePassword changes a principal's password hash and bumps the
// password-changed timestamp, invalidating every previously issued session.
// The timestamp is backdated by one second so a replacement session issued
// in the same request stays fresh.
func (r *SQLiteUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	now := time.Now().UTC()

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, password_changed_at = ?, updated_at = ? WHERE id = ?`,
		passwordHash, formatTime(now.Add(-time.Second)), formatTime(now), id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	return requireRowAffected(result)
}

// SetRole assigns a role to a principal.
func (r *SQLiteUserRepository) SetRole(ctx context.Context, id, roleID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role_id = ?, updated_at = ? WHERE id = ?`,
		roleID, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("setting role: %w", err)
	}

	return requireRowAffected(result)
}

// SetVerified marks a principal's email and account as verified.
func (r *SQLiteUserRepository) SetVerified(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = 1, account_verified = 1, updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("setting verified: %w", err)
	}

	return requireRowAffected(result)
}

// SetOneTimeToken stores a one-time token digest, expiry, and type on a
// principal. A single UPDATE overwrites any prior outstanding token — last
// write wins, with no read-modify-write window.
func (r *SQLiteUserRepository) SetOneTimeToken(ctx context.Context, id, digest string, expiresAt time.Time, typ TokenType) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET token_digest = ?, token_expires_at = ?, token_type = ?, updated_at = ? WHERE id = ?`,
		digest, formatTime(expiresAt.UTC()), string(typ), formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("setting one-time token: %w", err)
	}

	return requireRowAffected(result)
}

// ClearOneTimeToken nulls a principal's one-time token fields. Clearing an
// already-clear principal is a successful no-op.
func (r *SQLiteUserRepository) ClearOneTimeToken(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET token_digest = NULL, token_expires_at = NULL, token_type = NULL, updated_at = ? WHERE id = ?`,
		formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("clearing one-time token: %w", err)
	}

	return requireRowAffected(result)
}

// Count returns the total number of principals.
func (r *SQLiteUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return count, nil
}

// getUser executes a query and scans a single principal result.
func (r *SQLiteUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	return scanUserFrom(row)
}

// scanner is an interface for sql.Row and sql.Rows Scan methods.
type scanner interface {
	Scan(dest ...any) error
}

// scanUserFrom scans a principal from any scanner (Row or Rows).
func scanUserFrom(s scanner) (*User, error) {
	var u User
	var photo, roleName, tokenDigest, tokenExpiresAt, tokenType sql.NullString
	var emailVerified, accountVerified int
	var passwordChangedAt, createdAt, updatedAt string

	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &photo, &u.PasswordHash,
		&passwordChangedAt, &emailVerified, &accountVerified, &u.RoleID, &roleName,
		&tokenDigest, &tokenExpiresAt, &tokenType, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.EmailVerified = emailVerified != 0
	u.AccountVerified = accountVerified != 0
	if photo.Valid {
		u.Photo = photo.String
	}
	if roleName.Valid {
		u.RoleName = roleName.String
	}
	if tokenDigest.Valid {
		u.TokenDigest = tokenDigest.String
	}
	if tokenType.Valid {
		u.TokenType = TokenType(tokenType.String)
	}
	if tokenExpiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, tokenExpiresAt.String) //nolint:errcheck // format is controlled
		u.TokenExpiresAt = &t
	}

	u.PasswordChangedAt, _ = time.Parse(time.RFC3339, passwordChangedAt) //nolint:errcheck // format is controlled
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)                 //nolint:errcheck // format is controlled
	u.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)                 //nolint:errcheck // format is controlled

	return &u, nil
}

// Helper functions.

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// requireRowAffected maps a zero-row UPDATE to ErrPrincipalNotFound.
func requireRowAffected(result sql.Result) error {
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrPrincipalNotFound
	}
	return nil
}

// uniqueViolation maps a SQLite UNIQUE constraint error to the matching
// sentinel. The constraint name in the driver message identifies the column.
func uniqueViolation(err error) (error, bool) {
	if err == nil {
		return nil, false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "unique constraint") {
		return nil, false
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return ErrUsernameExists, true
	case strings.Contains(msg, "users.email"):
		return ErrEmailExists, true
	case strings.Contains(msg, "roles.name"):
		return ErrRoleExists, true
	default:
		return fmt.Errorf("unique constraint violation: %w", err), true
	}
}
