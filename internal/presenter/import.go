package presenter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cdtdelta/mft2es/internal/bulk"
	"github.com/cdtdelta/mft2es/internal/config"
	"github.com/cdtdelta/mft2es/internal/decoder"
	"github.com/cdtdelta/mft2es/internal/identity"
	"github.com/cdtdelta/mft2es/internal/model"
	"github.com/cdtdelta/mft2es/internal/pipeline"
)

// Importer sends the documents of MFT files to a store.
type Importer struct {
	cfg    config.Config
	dec    decoder.Decoder
	writer *bulk.Writer
	logger *slog.Logger
}

// NewImporter creates an Importer writing through idx.
func NewImporter(cfg config.Config, dec decoder.Decoder, idx bulk.Indexer, logger *slog.Logger) (*Importer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	alg, err := identity.ParseAlgorithm(cfg.Hash)
	if err != nil {
		return nil, err
	}
	w, err := bulk.NewWriter(idx,
		bulk.WithRequestSize(cfg.Store.BulkSize),
		bulk.WithHasher(identity.New(alg)),
		bulk.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &Importer{cfg: cfg, dec: dec, writer: w, logger: logger}, nil
}

// Run imports every MFT file found under paths.
//
// A batch whose request fails as a whole is logged and counted, and the run
// moves on to the next batch. A file whose streams cannot be opened or do
// not line up is skipped. A worker failure stops the run.
func (im *Importer) Run(ctx context.Context, paths []string) (Summary, error) {
	var sum Summary
	files, err := Discover(paths)
	if err != nil {
		return sum, err
	}
	if len(files) == 0 {
		im.logger.Warn("no MFT files found", "paths", paths)
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		im.logger.Info("importing", "file", file, "index", im.cfg.Store.Index)
		err := im.importFile(ctx, file, &sum)
		switch {
		case err == nil:
			sum.Files++
		case errors.Is(err, model.ErrWorker), errors.Is(err, model.ErrInvalidConfiguration), ctx.Err() != nil:
			return sum, err
		default:
			im.logger.Error("skipping file", "file", file, "error", err)
			sum.Skipped++
		}
	}
	im.logger.Info("import completed", "files", sum.Files, "indexed", sum.Indexed, "failed", sum.Failed)
	return sum, nil
}

func (im *Importer) importFile(ctx context.Context, file string, sum *Summary) error {
	opts, err := pipelineOptions(im.cfg, file, im.logger)
	if err != nil {
		return err
	}
	streams, err := im.dec.Open(ctx, file)
	if err != nil {
		return fmt.Errorf("decoding %s: %w", file, err)
	}
	defer streams.Close()

	p, err := pipeline.New(streams, opts...)
	if err != nil {
		return err
	}

	for batch, err := range p.Batches(ctx) {
		if err != nil {
			return fmt.Errorf("processing %s: %w", file, err)
		}
		if len(batch) == 0 {
			continue
		}
		sum.Batches++

		res, err := im.writer.Write(ctx, batch, im.cfg.Store.Index, im.cfg.Store.Pipeline)
		sum.addResult(res)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sum.TransportErrors++
			sum.Unsent += len(batch) - res.Total()
			im.logger.Error("bulk write failed", "file", file, "batch", sum.Batches, "error", err)
			continue
		}
		im.logger.Debug("batch written", "file", file, "batch", sum.Batches,
			"documents", len(batch), "indexed", sum.Indexed, "failed", sum.Failed)
	}

	if err := streams.Close(); err != nil {
		return fmt.Errorf("closing decoder for %s: %w", file, err)
	}
	return nil
}
