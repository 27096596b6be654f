// Package migrations generates SQL migrations for the projection subsystem transition journal.
// It produces the journal schema for PostgreSQL, MySQL/MariaDB and SQLite. The generated
// table layout is the one read and written by the store/sql package.
package migrations
