package presenter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cdtdelta/mft2es/internal/config"
	"github.com/cdtdelta/mft2es/internal/decoder"
	"github.com/cdtdelta/mft2es/internal/model"
	"github.com/cdtdelta/mft2es/internal/pipeline"
)

// Exporter writes the documents of MFT files to JSON files.
type Exporter struct {
	cfg    config.Config
	dec    decoder.Decoder
	logger *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(cfg config.Config, dec decoder.Decoder, logger *slog.Logger) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{cfg: cfg, dec: dec, logger: logger}, nil
}

// OutputPath returns where the export of input goes: output when set,
// otherwise input with its extension replaced by .json.
func OutputPath(input, output string) string {
	if output != "" {
		return output
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".json"
}

// Run exports each input file to its own JSON array file and returns the
// paths written. An explicit output file only makes sense for one input.
func (ex *Exporter) Run(ctx context.Context, inputs []string) ([]string, error) {
	if ex.cfg.Output != "" && len(inputs) > 1 {
		return nil, fmt.Errorf("output file set for %d inputs: %w", len(inputs), model.ErrInvalidConfiguration)
	}
	var written []string
	for _, input := range inputs {
		out := OutputPath(input, ex.cfg.Output)
		ex.logger.Info("converting", "file", input, "output", out)
		n, err := ex.exportFile(ctx, input, out)
		if err != nil {
			return written, err
		}
		ex.logger.Info("converted", "file", input, "documents", n)
		written = append(written, out)
	}
	return written, nil
}

func (ex *Exporter) exportFile(ctx context.Context, input, output string) (int, error) {
	opts, err := pipelineOptions(ex.cfg, input, ex.logger)
	if err != nil {
		return 0, err
	}
	streams, err := ex.dec.Open(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("decoding %s: %w", input, err)
	}
	defer streams.Close()

	p, err := pipeline.New(streams, opts...)
	if err != nil {
		return 0, err
	}

	f, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", output, err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	w := bufio.NewWriter(f)
	aw := newArrayWriter(w)
	for batch, err := range p.Batches(ctx) {
		if err != nil {
			return aw.count, fmt.Errorf("processing %s: %w", input, err)
		}
		for _, doc := range batch {
			if err := aw.write(doc); err != nil {
				return aw.count, fmt.Errorf("writing %s: %w", output, err)
			}
		}
	}
	if err := aw.close(); err != nil {
		return aw.count, fmt.Errorf("writing %s: %w", output, err)
	}
	if err := w.Flush(); err != nil {
		return aw.count, fmt.Errorf("writing %s: %w", output, err)
	}
	if err := streams.Close(); err != nil {
		return aw.count, fmt.Errorf("closing decoder for %s: %w", input, err)
	}
	if err := f.Chmod(0o644); err != nil {
		return aw.count, fmt.Errorf("writing %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return aw.count, fmt.Errorf("writing %s: %w", output, err)
	}
	if err := os.Rename(f.Name(), output); err != nil {
		return aw.count, fmt.Errorf("replacing %s: %w", output, err)
	}
	committed = true
	return aw.count, nil
}

// arrayWriter streams documents as a JSON array indented by two spaces.
type arrayWriter struct {
	w     io.Writer
	buf   bytes.Buffer
	enc   *json.Encoder
	count int
}

func newArrayWriter(w io.Writer) *arrayWriter {
	aw := &arrayWriter{w: w}
	aw.enc = json.NewEncoder(&aw.buf)
	aw.enc.SetEscapeHTML(false)
	aw.enc.SetIndent("  ", "  ")
	return aw
}

func (aw *arrayWriter) write(doc model.Document) error {
	aw.buf.Reset()
	if aw.count == 0 {
		aw.buf.WriteString("[\n  ")
	} else {
		aw.buf.WriteString(",\n  ")
	}
	if err := aw.enc.Encode(doc); err != nil {
		return err
	}
	aw.buf.Truncate(aw.buf.Len() - 1) // drop the encoder's newline
	aw.count++
	_, err := aw.w.Write(aw.buf.Bytes())
	return err
}

func (aw *arrayWriter) close() error {
	end := "\n]"
	if aw.count == 0 {
		end = "[]"
	}
	_, err := io.WriteString(aw.w, end)
	return err
}
