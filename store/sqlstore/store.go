// Package sqlstore is a database/sql implementation of the transition journal store.
// It supports PostgreSQL, MySQL/MariaDB and SQLite. Callers register the driver
// with a blank import of github.com/lib/pq, github.com/go-sql-driver/mysql or
// github.com/mattn/go-sqlite3.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/getpup/pupsourcing-projections"
	"github.com/getpup/pupsourcing-projections/store"
	"github.com/google/uuid"
)

// Store is a SQL implementation of TransitionStore.
type Store struct {
	db      *sql.DB
	dialect Dialect
	config  TableConfig
	table   string
}

// Compile-time check that Store implements TransitionStore.
var _ store.TransitionStore = (*Store)(nil)

// New creates a new store with the default table configuration.
func New(db *sql.DB, dialect Dialect) (*Store, error) {
	return NewWithConfig(db, dialect, DefaultTableConfig())
}

// NewWithConfig creates a new store with a custom table configuration.
// Returns an error for an unknown dialect or unsafe identifiers.
func NewWithConfig(db *sql.DB, dialect Dialect, config TableConfig) (*Store, error) {
	if _, err := MigrationUp(dialect, config); err != nil {
		return nil, err
	}

	return &Store{
		db:      db,
		dialect: dialect,
		config:  config,
		table:   config.qualifiedTable(dialect),
	}, nil
}

// Migrate creates the journal table if it does not exist.
// Statements are executed one at a time.
func (s *Store) Migrate(ctx context.Context) error {
	script, err := MigrationUp(s.dialect, s.config)
	if err != nil {
		return err
	}

	for _, stmt := range statements(script) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate transition journal: %w", err)
		}
	}
	return nil
}

// RecordTransition appends a transition to the journal.
// Assigns a new ID when t.ID is empty and OccurredAt when it is zero.
func (s *Store) RecordTransition(ctx context.Context, t store.Transition) (store.Transition, error) {
	if t.To == "" {
		return store.Transition{}, store.ErrInvalidTransition
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now()
	}
	t.OccurredAt = t.OccurredAt.UTC()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, correlation_id, from_state, to_state, occurred_at)
		VALUES (%s, %s, %s, %s, %s)
	`, s.table, s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3),
		s.dialect.placeholder(4), s.dialect.placeholder(5))

	_, err := s.db.ExecContext(ctx, query,
		t.ID, string(t.CorrelationID), string(t.From), string(t.To), t.OccurredAt)
	if err != nil {
		return store.Transition{}, fmt.Errorf("failed to record transition: %w", err)
	}

	return t, nil
}

// ListTransitions returns the transitions recorded for a correlation id in recording order.
func (s *Store) ListTransitions(ctx context.Context, correlationID projections.CorrelationID) ([]store.Transition, error) {
	query := fmt.Sprintf(`
		SELECT id, correlation_id, from_state, to_state, occurred_at
		FROM %s
		WHERE correlation_id = %s
		ORDER BY seq
	`, s.table, s.dialect.placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, string(correlationID))
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	transitions := make([]store.Transition, 0)
	for rows.Next() {
		t, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}

	return transitions, nil
}

// LatestTransition returns the most recently recorded transition.
// Returns projections.ErrTransitionNotFound if the journal is empty.
func (s *Store) LatestTransition(ctx context.Context) (store.Transition, error) {
	query := fmt.Sprintf(`
		SELECT id, correlation_id, from_state, to_state, occurred_at
		FROM %s
		ORDER BY seq DESC
		LIMIT 1
	`, s.table)

	t, err := scanTransition(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Transition{}, projections.ErrTransitionNotFound
	}
	if err != nil {
		return store.Transition{}, fmt.Errorf("failed to get latest transition: %w", err)
	}

	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransition(row scanner) (store.Transition, error) {
	var (
		t                       store.Transition
		correlationID, from, to string
	)
	if err := row.Scan(&t.ID, &correlationID, &from, &to, &t.OccurredAt); err != nil {
		return store.Transition{}, err
	}
	t.CorrelationID = projections.CorrelationID(correlationID)
	t.From = projections.SubsystemState(from)
	t.To = projections.SubsystemState(to)
	return t, nil
}
