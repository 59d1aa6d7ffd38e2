// Package audit provides the append-only audit trail of authentication
// and account events.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event names recorded in the audit trail. Actor is the authenticated
// principal performing the action; subject is the principal acted upon.
// For self-service actions they are the same.
const (
	EventRegister       = "register"
	EventLogin          = "login"
	EventLoginFailed    = "login_failed"
	EventLogout         = "logout"
	EventPasswordChange = "password_change"
	EventPasswordReset  = "password_reset"
	EventEmailVerified  = "email_verified"
	EventProfileUpdate  = "profile_update"
	EventRoleAssigned   = "role_assigned"
)

// Entry represents a single audit trail record.
type Entry struct {
	ID         string         `json:"id"`
	Event      string         `json:"event"`
	ActorID    string         `json:"actor_id,omitempty"`
	SubjectID  string         `json:"subject_id,omitempty"`
	Detail     map[string]any `json:"detail,omitempty"`
	RemoteAddr string         `json:"remote_addr,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which audit entries to return.
type Filter struct {
	Event     string // optional: filter by event name
	SubjectID string // optional: filter by acted-upon principal
	Limit     int    // default 50, max 200
	Offset    int    // pagination offset
}

// ListResult contains the paginated audit trail results.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the interface for audit trail operations.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores audit entries in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit trail repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new audit entry. The ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = "aud-" + uuid.NewString()[:8]
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var detailJSON *string
	if entry.Detail != nil {
		b, err := json.Marshal(entry.Detail)
		if err != nil {
			return fmt.Errorf("marshalling audit detail: %w", err)
		}
		s := string(b)
		detailJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, event, actor_id, subject_id, detail, remote_addr, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Event,
		nullableString(entry.ActorID), nullableString(entry.SubjectID),
		detailJSON, nullableString(entry.RemoteAddr),
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns audit entries matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for audit queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	// Build WHERE clause dynamically.
	var conditions []string
	var args []any

	if filter.Event != "" {
		conditions = append(conditions, "event = ?")
		args = append(args, filter.Event)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_logs %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit entries: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, event, actor_id, subject_id, detail, remote_addr, created_at FROM audit_logs %s ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var actorID, subjectID, detailJSON, remoteAddr sql.NullString
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Event,
			&actorID, &subjectID, &detailJSON, &remoteAddr, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		if actorID.Valid {
			entry.ActorID = actorID.String
		}
		if subjectID.Valid {
			entry.SubjectID = subjectID.String
		}
		if remoteAddr.Valid {
			entry.RemoteAddr = remoteAddr.String
		}
		if detailJSON.Valid && detailJSON.String != "" {
			var detail map[string]any
			if json.Unmarshal([]byte(detailJSON.String), &detail) == nil {
				entry.Detail = detail
			}
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing audit entry timestamp %q: %w", createdAt, err)
		}
		entry.CreatedAt = t

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}

	if entries == nil {
		entries = []Entry{}
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}
