package migrations

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readGenerated(t *testing.T, config Config) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join(config.OutputFolder, config.OutputFilename))
	if err != nil {
		t.Fatalf("Failed to read generated file: %v", err)
	}
	return string(content)
}

func TestGeneratePostgres(t *testing.T) {
	config := Config{
		OutputFolder:     t.TempDir(),
		OutputFilename:   "test_migration.sql",
		SchemaName:       "projections",
		TransitionsTable: "subsystem_transitions",
	}

	if err := GeneratePostgres(&config); err != nil {
		t.Fatalf("GeneratePostgres failed: %v", err)
	}

	sql := readGenerated(t, config)
	required := []string{
		"CREATE SCHEMA IF NOT EXISTS projections",
		"CREATE TABLE IF NOT EXISTS projections.subsystem_transitions",
		"seq BIGSERIAL PRIMARY KEY",
		"id TEXT NOT NULL UNIQUE",
		"correlation_id TEXT NOT NULL",
		"CHECK (to_state IN ('not_ready', 'ready', 'starting', 'started', 'stopping', 'stopped'))",
		"occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		"CREATE INDEX IF NOT EXISTS idx_subsystem_transitions_correlation",
		"ON projections.subsystem_transitions (correlation_id, seq)",
	}
	for _, s := range required {
		if !strings.Contains(sql, s) {
			t.Errorf("postgres migration missing required string: %s", s)
		}
	}
}

func TestGenerateMySQL(t *testing.T) {
	config := Config{
		OutputFolder:     t.TempDir(),
		OutputFilename:   "test_migration.sql",
		SchemaName:       "projections",
		TransitionsTable: "journal",
	}

	if err := GenerateMySQL(&config); err != nil {
		t.Fatalf("GenerateMySQL failed: %v", err)
	}

	sql := readGenerated(t, config)
	required := []string{
		"CREATE DATABASE IF NOT EXISTS projections",
		"CREATE TABLE IF NOT EXISTS projections.journal",
		"seq BIGINT AUTO_INCREMENT PRIMARY KEY",
		"to_state ENUM('not_ready', 'ready', 'starting', 'started', 'stopping', 'stopped') NOT NULL",
		"occurred_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)",
		"INDEX idx_journal_correlation (correlation_id, seq)",
		"ENGINE=InnoDB",
	}
	for _, s := range required {
		if !strings.Contains(sql, s) {
			t.Errorf("mysql migration missing required string: %s", s)
		}
	}
}

func TestGenerateSQLite(t *testing.T) {
	config := Config{
		OutputFolder:     t.TempDir(),
		OutputFilename:   "test_migration.sql",
		SchemaName:       "projections",
		TransitionsTable: "subsystem_transitions",
	}

	if err := GenerateSQLite(&config); err != nil {
		t.Fatalf("GenerateSQLite failed: %v", err)
	}

	sql := readGenerated(t, config)
	required := []string{
		"CREATE TABLE IF NOT EXISTS projections_subsystem_transitions",
		"seq INTEGER PRIMARY KEY AUTOINCREMENT",
		"occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP",
		"ON projections_subsystem_transitions (correlation_id, seq)",
	}
	for _, s := range required {
		if !strings.Contains(sql, s) {
			t.Errorf("sqlite migration missing required string: %s", s)
		}
	}
	if strings.Contains(sql, "CREATE SCHEMA") {
		t.Error("sqlite migration must not create a schema")
	}
}

func TestGenerate_CreatesOutputFolder(t *testing.T) {
	config := DefaultConfig()
	config.OutputFolder = filepath.Join(t.TempDir(), "nested", "migrations")

	if err := GeneratePostgres(&config); err != nil {
		t.Fatalf("GeneratePostgres failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(config.OutputFolder, config.OutputFilename)); err != nil {
		t.Errorf("migration file was not created: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.SchemaName != "projections" {
		t.Errorf("unexpected schema name: %s", config.SchemaName)
	}
	if config.TransitionsTable != "subsystem_transitions" {
		t.Errorf("unexpected transitions table: %s", config.TransitionsTable)
	}
	if !strings.HasSuffix(config.OutputFilename, "_init_projections_journal.sql") {
		t.Errorf("unexpected filename: %s", config.OutputFilename)
	}
}

func TestGenerate_RejectsUnsafeIdentifiers(t *testing.T) {
	cases := []struct {
		name   string
		config Config
	}{
		{"empty schema", Config{SchemaName: "", TransitionsTable: "t"}},
		{"injected schema", Config{SchemaName: "x; DROP TABLE users", TransitionsTable: "t"}},
		{"leading digit table", Config{SchemaName: "projections", TransitionsTable: "1table"}},
		{"quoted table", Config{SchemaName: "projections", TransitionsTable: "t'"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.config.OutputFolder = t.TempDir()
			tc.config.OutputFilename = "never.sql"

			for name, generate := range map[string]func(*Config) error{
				"postgres": GeneratePostgres,
				"mysql":    GenerateMySQL,
				"sqlite":   GenerateSQLite,
			} {
				if err := generate(&tc.config); err == nil {
					t.Errorf("%s: expected validation error", name)
				}
			}
			if _, err := os.Stat(filepath.Join(tc.config.OutputFolder, "never.sql")); err == nil {
				t.Error("migration file written despite invalid configuration")
			}
		})
	}
}
