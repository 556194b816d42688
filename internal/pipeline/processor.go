package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cdtdelta/mft2es/internal/formatter"
	"github.com/cdtdelta/mft2es/internal/model"
)

// Chunk is one unit of work: aligned raw records and raw path strings.
// It holds only values so it can cross to any worker.
type Chunk struct {
	Records []json.RawMessage
	Paths   [][]byte
}

// Options configures how a chunk is formatted.
type Options struct {
	Mode    model.Mode
	Tags    []string
	MFTPath string
}

// ProcessChunk decodes and formats every record of the chunk, in order.
// In timeline mode the documents of one record are contiguous.
func ProcessChunk(in Chunk, opts Options) ([]model.Document, error) {
	if len(in.Records) != len(in.Paths) {
		return nil, fmt.Errorf("%d records, %d paths: %w", len(in.Records), len(in.Paths), model.ErrAlignment)
	}

	docs := make([]model.Document, 0, len(in.Records))
	for i, raw := range in.Records {
		rec, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		path := PathString(in.Paths[i])

		switch opts.Mode {
		case model.ModeTimeline:
			docs = append(docs, formatter.Timeline(rec, path, opts.MFTPath, opts.Tags)...)
		default:
			docs = append(docs, formatter.Standard(rec, path, opts.Tags))
		}
	}
	return docs, nil
}

func decodeRecord(raw json.RawMessage) (model.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var rec model.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("decoding record: not a JSON object")
	}
	return rec, nil
}

// PathString decodes a raw path as UTF-8, replacing invalid bytes, and trims
// surrounding whitespace.
func PathString(raw []byte) string {
	s := string(raw)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return strings.TrimSpace(s)
}
