package database

import (
	"testing"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantUp      bool
		wantOK      bool
	}{
		{
			name:        "valid up migration",
			filename:    "20260118_120000_initial_schema.up.sql",
			wantVersion: "20260118_120000",
			wantUp:      true,
			wantOK:      true,
		},
		{
			name:        "valid down migration",
			filename:    "20260118_120000_initial_schema.down.sql",
			wantVersion: "20260118_120000",
			wantUp:      false,
			wantOK:      true,
		},
		{
			name:     "not sql",
			filename: "README.md",
			wantOK:   false,
		},
		{
			name:     "missing direction",
			filename: "20260118_120000_initial_schema.sql",
			wantOK:   false,
		},
		{
			name:     "too few parts",
			filename: "schema.up.sql",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if isUp != tt.wantUp {
				t.Errorf("isUp = %v, want %v", isUp, tt.wantUp)
			}
		})
	}
}

func TestExtractMigrationName(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"20260118_120000_initial_schema.up.sql", "initial_schema"},
		{"20260201_090000_add_audit_logs.up.sql", "add_audit_logs"},
		{"plain.sql", "plain"},
	}

	for _, tt := range tests {
		if got := extractMigrationName(tt.filename); got != tt.want {
			t.Errorf("extractMigrationName(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
