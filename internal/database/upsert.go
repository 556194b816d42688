package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cdtdelta/mft2es/internal/bulk"
	"github.com/cdtdelta/mft2es/internal/model"
)

// Item statuses reported by the SQL stores, mirroring the HTTP codes the
// Elasticsearch client reports.
const (
	statusOK       = 200
	statusRejected = 400
)

// upsertItems writes items inside a single transaction. Each item runs
// under its own savepoint so a rejected body rolls back only that item.
// The pipeline name is recorded with each row; no ingest processing
// happens in SQL stores. sanitize, when non-nil, rewrites the body before it is written.
func upsertItems(ctx context.Context, conn *sql.DB, d Dialect, collection, pipeline string, items []bulk.Item, sanitize func([]byte) []byte) ([]bulk.ItemResult, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w: %w", model.ErrTransport, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, d.UpsertDocumentSQL())
	if err != nil {
		return nil, fmt.Errorf("preparing upsert statement: %w: %w", model.ErrTransport, err)
	}
	defer stmt.Close()

	results := make([]bulk.ItemResult, 0, len(items))
	for _, it := range items {
		body := it.Body
		if sanitize != nil {
			body = sanitize(body)
		}
		if err := upsertOne(ctx, tx, stmt, collection, pipeline, it.ID, body); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("upserting %s: %w: %w", it.ID, model.ErrTransport, ctx.Err())
			}
			var txErr *savepointError
			if errors.As(err, &txErr) {
				return nil, fmt.Errorf("upserting %s: %w: %w", it.ID, model.ErrTransport, err)
			}
			results = append(results, bulk.ItemResult{ID: it.ID, Status: statusRejected, Error: err.Error()})
			continue
		}
		results = append(results, bulk.ItemResult{ID: it.ID, Status: statusOK})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w: %w", model.ErrTransport, err)
	}
	return results, nil
}

// savepointError marks a failure of the savepoint bookkeeping itself, after
// which the transaction cannot be trusted.
type savepointError struct{ err error }

func (e *savepointError) Error() string { return "savepoint: " + e.err.Error() }
func (e *savepointError) Unwrap() error { return e.err }

func upsertOne(ctx context.Context, tx *sql.Tx, stmt *sql.Stmt, collection, pipeline, id string, body []byte) error {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT item"); err != nil {
		return &savepointError{err}
	}
	if _, err := stmt.ExecContext(ctx, collection, id, pipeline, string(body)); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT item"); rbErr != nil {
			return &savepointError{rbErr}
		}
		if _, relErr := tx.ExecContext(ctx, "RELEASE SAVEPOINT item"); relErr != nil {
			return &savepointError{relErr}
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT item"); err != nil {
		return &savepointError{err}
	}
	return nil
}

func countDocuments(ctx context.Context, conn *sql.DB, d Dialect, collection string) (int64, error) {
	var count int64
	err := conn.QueryRowContext(ctx, d.CountDocumentsSQL(), collection).Scan(&count)
	return count, err
}

func selectDocument(ctx context.Context, conn *sql.DB, d Dialect, collection, id string) ([]byte, error) {
	var body string
	if err := conn.QueryRowContext(ctx, d.SelectDocumentSQL(), collection, id).Scan(&body); err != nil {
		return nil, fmt.Errorf("reading document %s/%s: %w", collection, id, err)
	}
	return []byte(body), nil
}

// createSchema builds the documents table and its index.
func createSchema(ctx context.Context, conn *sql.DB, d Dialect) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, d.CreateTableSQL()); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, d.CreateIndexSQL()); err != nil {
		return fmt.Errorf("creating documents index: %w", err)
	}
	return tx.Commit()
}

// open connects with d and ensures the schema exists.
func open(ctx context.Context, d Dialect, pathOrConnStr string) (*sql.DB, error) {
	conn, err := sql.Open(d.DriverName(), d.DSN(pathOrConnStr))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify the connection works
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w: %w", model.ErrTransport, err)
	}

	if err := createSchema(ctx, conn, d); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return conn, nil
}
