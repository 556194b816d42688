package database

import (
	"context"
	"database/sql"

	"github.com/cdtdelta/mft2es/internal/bulk"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps documents in a single SQLite file.
// It implements the Store interface.
type SQLiteStore struct {
	path    string
	conn    *sql.DB
	dialect Dialect
}

// OpenSQLite opens the SQLite document store at path, creating the file
// and schema when they do not exist.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	d := &SQLiteDialect{}
	conn, err := open(ctx, d, path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; SQLite serialises writes anyway.
	conn.SetMaxOpenConns(1)
	return &SQLiteStore{path: path, conn: conn, dialect: d}, nil
}

// Bulk upserts items into collection, recording the pipeline name.
func (db *SQLiteStore) Bulk(ctx context.Context, collection, pipeline string, items []bulk.Item) ([]bulk.ItemResult, error) {
	return upsertItems(ctx, db.conn, db.dialect, collection, pipeline, items, nil)
}

// CountDocuments returns the number of documents in collection.
func (db *SQLiteStore) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return countDocuments(ctx, db.conn, db.dialect, collection)
}

// Document returns the stored body of one document.
func (db *SQLiteStore) Document(ctx context.Context, collection, id string) ([]byte, error) {
	return selectDocument(ctx, db.conn, db.dialect, collection, id)
}

// Close closes the database connection.
func (db *SQLiteStore) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the file path of the database.
func (db *SQLiteStore) Path() string {
	return db.path
}
