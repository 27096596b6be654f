//go:build integration

package integration_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/getpup/pupsourcing-projections/store/sqlstore"
)

// getTestDB returns a database connection for integration tests.
// It uses DATABASE_URL (PostgreSQL) when set and a temporary SQLite file otherwise.
func getTestDB(t *testing.T) (*sql.DB, sqlstore.Dialect) {
	t.Helper()

	dialect := sqlstore.DialectSQLite
	dsn := filepath.Join(t.TempDir(), "journal.db")
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dialect = sqlstore.DialectPostgres
		dsn = dbURL
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if dialect == sqlstore.DialectSQLite {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db, dialect
}

// setupJournal creates a transition journal in its own tables and drops them after the test.
func setupJournal(t *testing.T, db *sql.DB, dialect sqlstore.Dialect, table string) *sqlstore.Store {
	t.Helper()

	config := sqlstore.DefaultTableConfig()
	config.TransitionsTable = table

	s, err := sqlstore.NewWithConfig(db, dialect, config)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to create tables: %v", err)
	}

	t.Cleanup(func() {
		down, err := sqlstore.MigrationDown(dialect, config)
		if err != nil {
			t.Logf("warning: failed to build drop statement: %v", err)
			return
		}
		if _, err := db.Exec(down); err != nil {
			t.Logf("warning: failed to drop tables: %v", err)
		}
	})

	return s
}
