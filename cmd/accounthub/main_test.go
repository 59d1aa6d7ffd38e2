package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("ACCOUNTHUB_CONFIG")
	defer os.Setenv("ACCOUNTHUB_CONFIG", originalEnv)

	os.Setenv("ACCOUNTHUB_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingSecret verifies run fails when the signing secret is absent.
func TestRun_MissingSecret(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
service:
  name: accounthub-test

database:
  path: "` + filepath.Join(tmpDir, "test.db") + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: 8080

mail:
  enabled: false

metrics:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("ACCOUNTHUB_CONFIG")
	defer os.Setenv("ACCOUNTHUB_CONFIG", originalEnv)
	os.Setenv("ACCOUNTHUB_CONFIG", configPath)

	originalSecret := os.Getenv("ACCOUNTHUB_SECRET")
	defer os.Setenv("ACCOUNTHUB_SECRET", originalSecret)
	os.Unsetenv("ACCOUNTHUB_SECRET")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail without a signing secret")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("ACCOUNTHUB_CONFIG")
	defer os.Setenv("ACCOUNTHUB_CONFIG", originalEnv)

	os.Unsetenv("ACCOUNTHUB_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("ACCOUNTHUB_CONFIG")
	defer os.Setenv("ACCOUNTHUB_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("ACCOUNTHUB_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_SuccessfulStartupAndShutdown tests full startup and clean shutdown
// against a fresh database, with mail and metrics disabled.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
service:
  name: accounthub-test
  base_url: "http://127.0.0.1:18080"

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

api:
  host: "127.0.0.1"
  port: 18080

security:
  secret: "test-secret-for-development-only-32ch"
  session_ttl: 3600
  one_time_token_ttl: 300

mail:
  enabled: false

metrics:
  enabled: false

logging:
  level: error
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("ACCOUNTHUB_CONFIG")
	defer os.Setenv("ACCOUNTHUB_CONFIG", originalEnv)
	os.Setenv("ACCOUNTHUB_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	// The bootstrap run leaves a migrated database behind
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing after run: %v", err)
	}
}
