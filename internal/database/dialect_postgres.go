package database

import "fmt"

// PostgresDialect implements the Dialect interface for PostgreSQL databases.
// Bodies are stored as JSONB so they can be queried with the JSON operators.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string              { return "pgx" }
func (d *PostgresDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *PostgresDialect) Placeholder(index int) string    { return fmt.Sprintf("$%d", index) }

func (d *PostgresDialect) CreateTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		pipeline TEXT NOT NULL DEFAULT '',
		body JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	)`
}

func (d *PostgresDialect) CreateIndexSQL() string {
	return "CREATE INDEX IF NOT EXISTS documents_updated_at_idx ON documents (collection, updated_at)"
}

func (d *PostgresDialect) UpsertDocumentSQL() string {
	return fmt.Sprintf(`INSERT INTO documents (collection, id, pipeline, body) VALUES (%s, %s, %s, %s)
		ON CONFLICT (collection, id) DO UPDATE SET
			pipeline = excluded.pipeline, body = excluded.body, updated_at = now()`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4))
}

func (d *PostgresDialect) CountDocumentsSQL() string {
	return "SELECT COUNT(*) FROM documents WHERE collection = " + d.Placeholder(1)
}

func (d *PostgresDialect) SelectDocumentSQL() string {
	return fmt.Sprintf("SELECT body::text FROM documents WHERE collection = %s AND id = %s",
		d.Placeholder(1), d.Placeholder(2))
}
