package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/nerrad567/accounthub/internal/infrastructure/logging"
)

// SeedRoles ensures the built-in roles exist. Safe to call on every startup.
func SeedRoles(ctx context.Context, roles RoleRepository) error {
	for _, name := range []string{RoleUser, RoleSuperAdmin} {
		if _, err := roles.GetByName(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, ErrRoleNotFound) {
			return fmt.Errorf("checking role %q: %w", name, err)
		}

		if err := roles.Create(ctx, &Role{Name: name}); err != nil {
			// Another instance may have raced us to it.
			if errors.Is(err, ErrRoleExists) {
				continue
			}
			return fmt.Errorf("seeding role %q: %w", name, err)
		}
	}
	return nil
}

// SeedSuperAdmin creates the initial administrator account when the user
// table is empty. The generated password is printed once to the log; it
// must be changed after first login.
func SeedSuperAdmin(ctx context.Context, users UserRepository, roles RoleRepository, logger *logging.Logger) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil
	}

	role, err := roles.GetByName(ctx, RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("looking up admin role: %w", err)
	}

	password, err := generatePassword()
	if err != nil {
		return fmt.Errorf("generating admin password: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	admin := &User{
		Username:        "admin",
		Email:           "admin@localhost",
		FullName:        "Administrator",
		PasswordHash:    hash,
		EmailVerified:   true,
		AccountVerified: true,
		RoleID:          role.ID,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	logger.Warn("seeded initial admin account, change the password after first login",
		"username", admin.Username,
		"password", password,
	)

	return nil
}

// generatePassword returns a random password strong enough to pass the
// complexity check, with enough entropy that complexity is moot anyway.
func generatePassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "Aa1-" + hex.EncodeToString(buf), nil
}
