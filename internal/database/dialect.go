package database

// Dialect abstracts the SQL that differs between database backends.
// Each backend (SQLite, PostgreSQL) implements this interface.
type Dialect interface {
	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection.
	// For SQLite this is the file path; for PostgreSQL a connection string.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// CreateTableSQL returns the DDL for the documents table. Documents are
	// keyed by (collection, id) and the body must be valid JSON.
	CreateTableSQL() string

	// CreateIndexSQL returns DDL for the secondary index on update time.
	CreateIndexSQL() string

	// UpsertDocumentSQL inserts a document or replaces the body of the
	// existing one with the same key. Parameters: collection, id, pipeline, body.
	UpsertDocumentSQL() string

	// CountDocumentsSQL counts documents in one collection.
	CountDocumentsSQL() string

	// SelectDocumentSQL returns the body of one document as text.
	SelectDocumentSQL() string
}
