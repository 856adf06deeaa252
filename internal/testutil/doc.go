// Package testutil provides databases and fixtures for tests.
//
// NewSQLiteDB gives every test its own migrated SQLite file. NewPostgresDB,
// built only with the integration tag, starts a PostgreSQL container.
package testutil
