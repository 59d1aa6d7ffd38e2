package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoleRepository defines the interface for role persistence.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, id string) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]Role, error)
	Update(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// SQLiteRoleRepository implements RoleRepository using SQLite.
type SQLiteRoleRepository struct {
	db *sql.DB
}

// NewRoleRepository creates a new SQLite-backed role repository.
func NewRoleRepository(db *sql.DB) *SQLiteRoleRepository {
	return &SQLiteRoleRepository{db: db}
}

// Create inserts a new role. The ID is generated if empty.
// Role names are case-sensitive opaque labels; no normalisation happens here.
func (r *SQLiteRoleRepository) Create(ctx context.Context, role *Role) error {
	if role.ID == "" {
		role.ID = "rol-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Truncate(time.Second)
	role.CreatedAt = now
	role.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		role.ID, role.Name, formatTime(role.CreatedAt), formatTime(role.UpdatedAt),
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return constraint
		}
		return fmt.Errorf("creating role: %w", err)
	}

	return nil
}

// GetByID retrieves a role by its unique ID.
func (r *SQLiteRoleRepository) GetByID(ctx context.Context, id string) (*Role, error) {
	return r.getRole(ctx, "SELECT id, name, created_at, updated_at FROM roles WHERE id = ?", id)
}

// GetByName retrieves a role by its exact name.
func (r *SQLiteRoleRepository) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.getRole(ctx, "SELECT id, name, created_at, updated_at FROM roles WHERE name = ?", name)
}

// List returns all roles ordered by name.
func (r *SQLiteRoleRepository) List(ctx context.Context) ([]Role, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name, created_at, updated_at FROM roles ORDER BY name ASC")
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		role, err := scanRoleFrom(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating roles: %w", err)
	}

	if roles == nil {
		roles = []Role{}
	}
	return roles, nil
}

// Update renames a role.
func (r *SQLiteRoleRepository) Update(ctx context.Context, id, name string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE roles SET name = ?, updated_at = ? WHERE id = ?`,
		name, formatTime(time.Now().UTC()), id,
	)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return constraint
		}
		return fmt.Errorf("updating role: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// Delete removes a role. Deleting a role still assigned to a principal fails
// on the foreign key constraint; reassign those principals first.
func (r *SQLiteRoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM roles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting role: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrRoleNotFound
	}
	return nil
}

func (r *SQLiteRoleRepository) getRole(ctx context.Context, query string, args ...any) (*Role, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	role, err := scanRoleFrom(row)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func scanRoleFrom(s scanner) (*Role, error) {
	var role Role
	var createdAt, updatedAt string

	err := s.Scan(&role.ID, &role.Name, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("scanning role: %w", err)
	}

	role.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	role.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &role, nil
}
