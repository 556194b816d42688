// Package database stores MFT documents in a SQL database, one row per
// document keyed by collection and content identity. It serves the same
// bulk contract as the Elasticsearch client.
package database

import (
	"context"

	"github.com/cdtdelta/mft2es/internal/bulk"
)

// Store defines the document operations the import path needs.
type Store interface {
	bulk.Indexer

	// CountDocuments returns the number of documents in collection.
	CountDocuments(ctx context.Context, collection string) (int64, error)

	// Document returns the stored JSON body of one document.
	Document(ctx context.Context, collection, id string) ([]byte, error)

	// Lifecycle
	Close() error
	Path() string
}
