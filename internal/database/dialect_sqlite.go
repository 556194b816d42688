package database

import "strings"

// SQLiteDialect implements the Dialect interface for SQLite databases.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string          { return "sqlite" }
func (d *SQLiteDialect) Placeholder(index int) string { return "?" }

// DSN adds a busy timeout so that a second process writing the same file
// waits instead of failing with "database is locked".
func (d *SQLiteDialect) DSN(pathOrConnStr string) string {
	if strings.Contains(pathOrConnStr, "_pragma=busy_timeout") {
		return pathOrConnStr
	}
	sep := "?"
	if strings.Contains(pathOrConnStr, "?") {
		sep = "&"
	}
	return pathOrConnStr + sep + "_pragma=busy_timeout(5000)"
}

func (d *SQLiteDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		pipeline TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL CHECK (json_valid(body)),
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	)`
}

func (d *SQLiteDialect) CreateIndexSQL() string {
	return "CREATE INDEX IF NOT EXISTS documents_updated_at_idx ON documents (collection, updated_at)"
}

func (d *SQLiteDialect) UpsertDocumentSQL() string {
	return `INSERT INTO documents (collection, id, pipeline, body) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			pipeline = excluded.pipeline, body = excluded.body, updated_at = CURRENT_TIMESTAMP`
}

func (d *SQLiteDialect) CountDocumentsSQL() string {
	return "SELECT COUNT(*) FROM documents WHERE collection = ?"
}

func (d *SQLiteDialect) SelectDocumentSQL() string {
	return "SELECT body FROM documents WHERE collection = ? AND id = ?"
}
