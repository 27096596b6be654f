package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/getpup/pupsourcing-projections/pkg/migrations"
	"github.com/getpup/pupsourcing-projections/store"
)

// Dialect selects the SQL flavour of the backing database.
type Dialect string

const (
	// DialectPostgres targets PostgreSQL through github.com/lib/pq.
	DialectPostgres Dialect = "postgres"

	// DialectMySQL targets MySQL/MariaDB through github.com/go-sql-driver/mysql.
	// The DSN must set parseTime=true.
	DialectMySQL Dialect = "mysql"

	// DialectSQLite targets SQLite through github.com/mattn/go-sqlite3.
	DialectSQLite Dialect = "sqlite"
)

// ParseDialect parses a dialect or driver name.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q", store.ErrUnknownDialect, name)
	}
}

// DriverName returns the database/sql driver name registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return string(d)
}

// placeholder returns the bind parameter for the n-th (1-based) argument.
func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// TableConfig configures where the journal table lives.
type TableConfig struct {
	// SchemaName is the schema (PostgreSQL), database (MySQL) or table prefix (SQLite).
	SchemaName string

	// TransitionsTable is the name of the journal table.
	TransitionsTable string
}

// DefaultTableConfig returns the default table configuration.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		SchemaName:       "projections",
		TransitionsTable: "subsystem_transitions",
	}
}

// qualifiedTable returns the table reference for the dialect.
func (c TableConfig) qualifiedTable(d Dialect) string {
	if d == DialectSQLite {
		return c.SchemaName + "_" + c.TransitionsTable
	}
	return c.SchemaName + "." + c.TransitionsTable
}

func (c TableConfig) migrationConfig() *migrations.Config {
	return &migrations.Config{
		SchemaName:       c.SchemaName,
		TransitionsTable: c.TransitionsTable,
	}
}

// MigrationUp returns the SQL that creates the journal table for the dialect.
func MigrationUp(d Dialect, config TableConfig) (string, error) {
	switch d {
	case DialectPostgres:
		return migrations.PostgresSQL(config.migrationConfig())
	case DialectMySQL:
		return migrations.MySQLSQL(config.migrationConfig())
	case DialectSQLite:
		return migrations.SQLiteSQL(config.migrationConfig())
	default:
		return "", fmt.Errorf("%w: %q", store.ErrUnknownDialect, string(d))
	}
}

// MigrationDown returns the SQL that drops the journal table for the dialect.
func MigrationDown(d Dialect, config TableConfig) (string, error) {
	// Validation is shared with MigrationUp so identifiers are never interpolated unchecked.
	if _, err := MigrationUp(d, config); err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;\n", config.qualifiedTable(d)), nil
}

// statements splits a migration script into individual statements.
func statements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(lines, "\n")))
		}
	}
	return out
}
