// Package pipeline turns decoder streams into batches of output documents,
// either chunk by chunk on the calling goroutine or across a worker pool.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/cdtdelta/mft2es/internal/chunk"
	"github.com/cdtdelta/mft2es/internal/config"
	"github.com/cdtdelta/mft2es/internal/model"
)

// Source is the decoder output the pipeline reads from.
type Source interface {
	Records() iter.Seq[json.RawMessage]
	Paths() iter.Seq[[]byte]
	Err() error
}

// WorkerResolver maps a requested pool size to the size actually used.
type WorkerResolver func(requested int) int

// Pipeline chunks a Source and formats each chunk.
type Pipeline struct {
	src         Source
	chunkSize   int
	batchChunks int
	parallel    bool
	workers     int
	resolve     WorkerResolver
	opts        Options
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithChunkSize sets the number of records per chunk. Default is 500.
func WithChunkSize(size int) Option {
	return func(p *Pipeline) error {
		if size <= 0 {
			return fmt.Errorf("chunk size must be positive, got %d: %w", size, model.ErrInvalidConfiguration)
		}
		p.chunkSize = size
		return nil
	}
}

// WithBatchChunks sets how many processed chunks the sequential strategy
// buffers before yielding a batch. Default is 1.
func WithBatchChunks(n int) Option {
	return func(p *Pipeline) error {
		if n <= 0 {
			return fmt.Errorf("batch chunks must be positive, got %d: %w", n, model.ErrInvalidConfiguration)
		}
		p.batchChunks = n
		return nil
	}
}

// WithParallel selects the worker pool strategy.
func WithParallel(parallel bool) Option {
	return func(p *Pipeline) error {
		p.parallel = parallel
		return nil
	}
}

// WithWorkers requests a pool size; 0 lets the resolver pick.
func WithWorkers(n int) Option {
	return func(p *Pipeline) error {
		p.workers = n
		return nil
	}
}

// WithWorkerResolver replaces config.Workers as the pool size resolver.
func WithWorkerResolver(r WorkerResolver) Option {
	return func(p *Pipeline) error {
		if r != nil {
			p.resolve = r
		}
		return nil
	}
}

// WithMode selects standard or timeline documents.
func WithMode(m model.Mode) Option {
	return func(p *Pipeline) error {
		p.opts.Mode = m
		return nil
	}
}

// WithTags sets the tag list attached to every document.
func WithTags(tags []string) Option {
	return func(p *Pipeline) error {
		p.opts.Tags = slices.Clone(tags)
		return nil
	}
}

// WithMFTPath records the input file path in timeline documents.
func WithMFTPath(path string) Option {
	return func(p *Pipeline) error {
		p.opts.MFTPath = path
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New creates a pipeline over src.
func New(src Source, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		src:         src,
		chunkSize:   500,
		batchChunks: 1,
		resolve:     config.Workers,
		opts:        Options{Tags: []string{model.DefaultTag}},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Batches yields batches of documents until the source is exhausted.
// The sequence stops after the first error.
func (p *Pipeline) Batches(ctx context.Context) iter.Seq2[[]model.Document, error] {
	if p.parallel {
		return p.parallelBatches(ctx)
	}
	return p.sequentialBatches(ctx)
}

// sequentialBatches reads both streams chunk by chunk in lock-step and
// yields after every batchChunks processed chunks, then a final flush that
// may be empty.
func (p *Pipeline) sequentialBatches(ctx context.Context) iter.Seq2[[]model.Document, error] {
	return func(yield func([]model.Document, error) bool) {
		recChunks, err := chunk.Chunks(p.chunkSize, p.src.Records())
		if err != nil {
			yield(nil, err)
			return
		}
		pathChunks, err := chunk.Chunks(p.chunkSize, p.src.Paths())
		if err != nil {
			yield(nil, err)
			return
		}
		buffer := []model.Document{}
		buffered := 0
		index := 0
		for pair := range chunk.Pull(recChunks, pathChunks) {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			records, paths := pair.Left, pair.Right
			if !pair.Aligned() {
				if err := p.src.Err(); err != nil {
					yield(nil, fmt.Errorf("decoding: %w", err))
					return
				}
				yield(nil, fmt.Errorf("chunk %d: %d records, %d paths: %w",
					index, len(records), len(paths), model.ErrAlignment))
				return
			}

			docs, err := runChunk(Chunk{Records: records, Paths: paths}, p.opts)
			if err != nil {
				yield(nil, fmt.Errorf("chunk %d: %w", index, err))
				return
			}
			p.logger.Debug("processed chunk", "chunk", index, "records", len(records), "documents", len(docs))

			buffer = append(buffer, docs...)
			buffered++
			if buffered == p.batchChunks {
				if !yield(buffer, nil) {
					return
				}
				buffer = []model.Document{}
				buffered = 0
			}
			index++
		}

		if err := p.src.Err(); err != nil {
			yield(nil, fmt.Errorf("decoding: %w", err))
			return
		}
		yield(buffer, nil)
	}
}

// parallelBatches materialises every chunk pair, runs them on an ants pool
// and yields all documents as one batch. Documents keep chunk order.
func (p *Pipeline) parallelBatches(ctx context.Context) iter.Seq2[[]model.Document, error] {
	return func(yield func([]model.Document, error) bool) {
		records := slices.Collect(p.src.Records())
		paths := slices.Collect(p.src.Paths())
		if err := p.src.Err(); err != nil {
			yield(nil, fmt.Errorf("decoding: %w", err))
			return
		}
		if len(records) != len(paths) {
			yield(nil, fmt.Errorf("%d records, %d paths: %w", len(records), len(paths), model.ErrAlignment))
			return
		}

		recChunks, err := chunk.Slice(p.chunkSize, records)
		if err != nil {
			yield(nil, err)
			return
		}
		pathChunks, err := chunk.Slice(p.chunkSize, paths)
		if err != nil {
			yield(nil, err)
			return
		}

		workers := p.resolve(p.workers)
		pool, err := ants.NewPool(workers)
		if err != nil {
			yield(nil, fmt.Errorf("creating worker pool: %w", err))
			return
		}
		defer pool.Release()
		p.logger.Debug("dispatching chunks", "chunks", len(recChunks), "workers", workers)

		results := make([][]model.Document, len(recChunks))
		errs := make([]error, len(recChunks))
		var wg sync.WaitGroup
		for i := range recChunks {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				break
			}
			in := Chunk{Records: recChunks[i], Paths: pathChunks[i]}
			wg.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				results[i], errs[i] = runChunk(in, p.opts)
			})
			if err != nil {
				wg.Done()
				errs[i] = fmt.Errorf("submitting chunk: %w", err)
				break
			}
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				yield(nil, fmt.Errorf("chunk %d: %w", i, err))
				return
			}
		}

		total := 0
		for _, r := range results {
			total += len(r)
		}
		out := make([]model.Document, 0, total)
		for _, r := range results {
			out = append(out, r...)
		}
		yield(out, nil)
	}
}

// runChunk runs ProcessChunk and turns failures and panics into ErrWorker.
// Alignment errors keep their own identity.
func runChunk(in Chunk, opts Options) (docs []model.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("panic: %v: %w", r, model.ErrWorker)
		}
	}()
	docs, err = ProcessChunk(in, opts)
	if err != nil && !errors.Is(err, model.ErrAlignment) {
		return nil, fmt.Errorf("%w: %w", model.ErrWorker, err)
	}
	return docs, err
}
