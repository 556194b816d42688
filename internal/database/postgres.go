package database

import (
	"bytes"
	"context"
	"database/sql"

	"github.com/cdtdelta/mft2es/internal/bulk"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var nulEscape = []byte(`\u0000`)

// pgSanitizeBody strips \u0000 escapes from a JSON body. SQLite stores these
// fine but PostgreSQL JSONB rejects them with "unsupported Unicode escape
// sequence". Escaped backslashes are skipped as a pair so that a literal
// `\\u0000` in a string survives.
func pgSanitizeBody(body []byte) []byte {
	if !bytes.Contains(body, nulEscape) {
		return body
	}
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' || i+1 >= len(body) {
			out = append(out, body[i])
			continue
		}
		if bytes.HasPrefix(body[i:], nulEscape) {
			i += len(nulEscape) - 1
			continue
		}
		out = append(out, body[i], body[i+1])
		i++
	}
	return out
}

// PostgresStore keeps documents in a PostgreSQL database.
// It implements the Store interface.
type PostgresStore struct {
	connStr string
	conn    *sql.DB
	dialect Dialect
}

// OpenPostgres connects to the database at connStr and creates the
// documents table if needed. The database itself must already exist.
func OpenPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	d := &PostgresDialect{}
	conn, err := open(ctx, d, connStr)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{connStr: connStr, conn: conn, dialect: d}, nil
}

// Bulk upserts items into collection, recording the pipeline name.
func (db *PostgresStore) Bulk(ctx context.Context, collection, pipeline string, items []bulk.Item) ([]bulk.ItemResult, error) {
	return upsertItems(ctx, db.conn, db.dialect, collection, pipeline, items, pgSanitizeBody)
}

// CountDocuments returns the number of documents in collection.
func (db *PostgresStore) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return countDocuments(ctx, db.conn, db.dialect, collection)
}

// Document returns the stored body of one document.
func (db *PostgresStore) Document(ctx context.Context, collection, id string) ([]byte, error) {
	return selectDocument(ctx, db.conn, db.dialect, collection, id)
}

// Close closes the database connection.
func (db *PostgresStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the connection string used to connect to the database.
func (db *PostgresStore) Path() string {
	return db.connStr
}
