package migrations

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/getpup/pupsourcing-projections"
)

var identifierRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// validateIdentifier ensures an identifier contains only safe characters for SQL.
func validateIdentifier(name, fieldName string) error {
	if name == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("%s must start with a letter and contain only letters, numbers, and underscores (got: %s)", fieldName, name)
	}
	return nil
}

// validateConfig validates all identifiers to prevent SQL injection.
func validateConfig(config *Config) error {
	if err := validateIdentifier(config.SchemaName, "SchemaName"); err != nil {
		return err
	}
	if err := validateIdentifier(config.TransitionsTable, "TransitionsTable"); err != nil {
		return err
	}
	return nil
}

// Config configures migration generation for the transition journal.
type Config struct {
	// OutputFolder is the directory where the migration file will be written
	OutputFolder string

	// OutputFilename is the name of the migration file
	OutputFilename string

	// SchemaName is the database schema name (PostgreSQL) or database name (MySQL).
	// SQLite has no schemas, so it becomes a table name prefix (e.g. projections_subsystem_transitions).
	SchemaName string

	// TransitionsTable is the name of the subsystem transition journal table
	TransitionsTable string
}

// DefaultConfig returns the default configuration for journal migrations.
func DefaultConfig() Config {
	timestamp := time.Now().Format("20060102150405")
	return Config{
		OutputFolder:     "migrations",
		OutputFilename:   fmt.Sprintf("%s_init_projections_journal.sql", timestamp),
		SchemaName:       "projections",
		TransitionsTable: "subsystem_transitions",
	}
}

// GeneratePostgres generates a PostgreSQL migration file.
func GeneratePostgres(config *Config) error {
	return generate(config, PostgresSQL)
}

// GenerateMySQL generates a MySQL/MariaDB migration file.
func GenerateMySQL(config *Config) error {
	return generate(config, MySQLSQL)
}

// GenerateSQLite generates a SQLite migration file.
func GenerateSQLite(config *Config) error {
	return generate(config, SQLiteSQL)
}

func generate(config *Config, render func(*Config) (string, error)) error {
	sql, err := render(config)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(config.OutputFolder, 0o755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	outputPath := filepath.Join(config.OutputFolder, config.OutputFilename)
	if err := os.WriteFile(outputPath, []byte(sql), 0o600); err != nil {
		return fmt.Errorf("failed to write migration file: %w", err)
	}

	return nil
}

// stateList renders the subsystem states as a quoted SQL list.
func stateList() string {
	states := projections.SubsystemStates()
	quoted := make([]string, len(states))
	for i, s := range states {
		quoted[i] = "'" + string(s) + "'"
	}
	return strings.Join(quoted, ", ")
}

// PostgresSQL returns the PostgreSQL journal schema.
func PostgresSQL(config *Config) (string, error) {
	if err := validateConfig(config); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}

	return fmt.Sprintf(`-- Projection Subsystem Journal Migration
-- Generated: %s
-- Database: PostgreSQL

CREATE SCHEMA IF NOT EXISTS %s;

-- One row per subsystem state transition, in the order they happened
CREATE TABLE IF NOT EXISTS %s.%s (
    seq BIGSERIAL PRIMARY KEY,
    id TEXT NOT NULL UNIQUE,
    correlation_id TEXT NOT NULL,
    from_state TEXT NOT NULL,
    to_state TEXT NOT NULL CHECK (to_state IN (%s)),
    occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Index for listing the transitions of one start/stop cycle
CREATE INDEX IF NOT EXISTS idx_%s_correlation
    ON %s.%s (correlation_id, seq);
`,
		time.Now().Format(time.RFC3339),
		config.SchemaName,
		config.SchemaName, config.TransitionsTable,
		stateList(),
		config.TransitionsTable, config.SchemaName, config.TransitionsTable,
	), nil
}

// MySQLSQL returns the MySQL/MariaDB journal schema.
func MySQLSQL(config *Config) (string, error) {
	if err := validateConfig(config); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}

	return fmt.Sprintf(`-- Projection Subsystem Journal Migration
-- Generated: %s
-- Database: MySQL/MariaDB

CREATE DATABASE IF NOT EXISTS %s
    DEFAULT CHARACTER SET utf8mb4
    DEFAULT COLLATE utf8mb4_unicode_ci;

-- One row per subsystem state transition, in the order they happened
CREATE TABLE IF NOT EXISTS %s.%s (
    seq BIGINT AUTO_INCREMENT PRIMARY KEY,
    id VARCHAR(36) NOT NULL UNIQUE,
    correlation_id VARCHAR(64) NOT NULL,
    from_state VARCHAR(16) NOT NULL,
    to_state ENUM(%s) NOT NULL,
    occurred_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),

    INDEX idx_%s_correlation (correlation_id, seq)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`,
		time.Now().Format(time.RFC3339),
		config.SchemaName,
		config.SchemaName, config.TransitionsTable,
		stateList(),
		config.TransitionsTable,
	), nil
}

// SQLiteSQL returns the SQLite journal schema.
func SQLiteSQL(config *Config) (string, error) {
	if err := validateConfig(config); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}

	// SQLite doesn't support schemas, so we use table name prefixes instead
	table := config.SchemaName + "_" + config.TransitionsTable

	return fmt.Sprintf(`-- Projection Subsystem Journal Migration
-- Generated: %s
-- Database: SQLite

-- One row per subsystem state transition, in the order they happened
CREATE TABLE IF NOT EXISTS %s (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    correlation_id TEXT NOT NULL,
    from_state TEXT NOT NULL,
    to_state TEXT NOT NULL CHECK (to_state IN (%s)),
    occurred_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Index for listing the transitions of one start/stop cycle
CREATE INDEX IF NOT EXISTS idx_%s_correlation
    ON %s (correlation_id, seq);
`,
		time.Now().Format(time.RFC3339),
		table,
		stateList(),
		table, table,
	), nil
}
