package presenter

import (
	"log/slog"

	"github.com/cdtdelta/mft2es/internal/config"
	"github.com/cdtdelta/mft2es/internal/decoder"
	"github.com/cdtdelta/mft2es/internal/formatter"
	"github.com/cdtdelta/mft2es/internal/pipeline"
)

// NewDecoder returns the decoder selected by cfg.
func NewDecoder(cfg config.Decoder) decoder.Decoder {
	if cfg.Kind == config.DecoderSidecar {
		return decoder.Sidecar{RecordsSuffix: cfg.RecordsSuffix, PathsSuffix: cfg.PathsSuffix}
	}
	return decoder.Command{Path: cfg.Command}
}

// pipelineOptions maps cfg onto the pipeline settings for one input file.
func pipelineOptions(cfg config.Config, file string, logger *slog.Logger) ([]pipeline.Option, error) {
	mode, err := cfg.ParsedMode()
	if err != nil {
		return nil, err
	}
	return []pipeline.Option{
		pipeline.WithChunkSize(cfg.ChunkSize),
		pipeline.WithBatchChunks(cfg.BatchChunks),
		pipeline.WithParallel(cfg.Multiprocess),
		pipeline.WithWorkers(cfg.Workers),
		pipeline.WithMode(mode),
		pipeline.WithTags(formatter.ParseTags(cfg.Tags)),
		pipeline.WithMFTPath(file),
		pipeline.WithLogger(logger),
	}, nil
}
