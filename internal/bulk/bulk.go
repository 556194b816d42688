// Package bulk writes document batches to a store keyed by content identity.
// Per-document rejections are collected and reported; they never abort the
// rest of the batch.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cdtdelta/mft2es/internal/identity"
	"github.com/cdtdelta/mft2es/internal/model"
)

// DefaultRequestSize is the number of documents sent per bulk request.
const DefaultRequestSize = 500

// Item is one document ready for upsert.
type Item struct {
	ID   string
	Body []byte
}

// ItemResult is the store's verdict on one Item. An empty Error means the
// item was written.
type ItemResult struct {
	ID     string
	Status int
	Error  string
}

// Indexer submits a request of items as one bulk write. The results are in
// item order. A non-nil error means the request was not attempted or was
// rejected as a whole.
type Indexer interface {
	Bulk(ctx context.Context, collection, pipeline string, items []Item) ([]ItemResult, error)
}

// Failure describes one document the store did not accept.
type Failure struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

// Result counts the outcome of one or more writes.
type Result struct {
	Success  int
	Failures []Failure
}

// Add folds other into r.
func (r *Result) Add(other Result) {
	r.Success += other.Success
	r.Failures = append(r.Failures, other.Failures...)
}

// Total is the number of documents accounted for.
func (r Result) Total() int {
	return r.Success + len(r.Failures)
}

// Writer hashes documents and hands them to an Indexer. It issues one
// request at a time.
type Writer struct {
	idx         Indexer
	hasher      *identity.Hasher
	requestSize int
	logger      *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer) error

// WithHasher sets the identity hasher. Default is BLAKE3.
func WithHasher(h *identity.Hasher) Option {
	return func(w *Writer) error {
		if h != nil {
			w.hasher = h
		}
		return nil
	}
}

// WithRequestSize caps the number of documents per bulk request.
func WithRequestSize(n int) Option {
	return func(w *Writer) error {
		if n <= 0 {
			return fmt.Errorf("request size must be positive, got %d: %w", n, model.ErrInvalidConfiguration)
		}
		w.requestSize = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewWriter creates a Writer over idx.
func NewWriter(idx Indexer, opts ...Option) (*Writer, error) {
	if idx == nil {
		return nil, ErrIndexerRequired
	}
	w := &Writer{
		idx:         idx,
		hasher:      identity.New(identity.BLAKE3),
		requestSize: DefaultRequestSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// ErrIndexerRequired is returned when a Writer is created without an Indexer.
var ErrIndexerRequired = errors.New("indexer required")

// Write upserts docs into collection, splitting them into requests of at
// most the configured request size. Documents that cannot be encoded or that
// the store rejects are returned as failures. If a request fails as a whole,
// Write stops and returns the counts so far with an error wrapping
// model.ErrTransport; the remaining documents are not attempted.
func (w *Writer) Write(ctx context.Context, docs []model.Document, collection, pipeline string) (Result, error) {
	var res Result
	items := make([]Item, 0, len(docs))
	for _, doc := range docs {
		body, err := identity.Canonical(doc)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Reason: err.Error()})
			continue
		}
		items = append(items, Item{ID: w.hasher.Sum(body), Body: body})
	}

	for start := 0; start < len(items); start += w.requestSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := min(start+w.requestSize, len(items))
		request := items[start:end]

		results, err := w.idx.Bulk(ctx, collection, pipeline, request)
		if err != nil {
			if !errors.Is(err, model.ErrTransport) {
				err = fmt.Errorf("%w: %w", model.ErrTransport, err)
			}
			return res, fmt.Errorf("bulk request of %d documents: %w", len(request), err)
		}
		res.Add(tally(request, results))
		w.logger.Debug("bulk request done", "collection", collection, "documents", len(request), "success", res.Success, "failed", len(res.Failures))
	}
	return res, nil
}

// tally matches results to items by position. Items the store did not
// report on count as failures so no document goes unaccounted.
func tally(items []Item, results []ItemResult) Result {
	var res Result
	for i, item := range items {
		if i >= len(results) {
			res.Failures = append(res.Failures, Failure{ID: item.ID, Reason: "no result reported by store"})
			continue
		}
		r := results[i]
		if r.Error != "" {
			res.Failures = append(res.Failures, Failure{ID: item.ID, Status: r.Status, Reason: r.Error})
			continue
		}
		res.Success++
	}
	return res
}
