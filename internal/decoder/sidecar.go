package decoder

import (
	"context"
	"fmt"
	"os"
)

// Default sidecar suffixes, matching `mft_dump -o jsonl` and `mft_dump -o csv`
// output saved next to the MFT file.
const (
	DefaultRecordsSuffix = ".jsonl"
	DefaultPathsSuffix   = ".csv"
)

// Sidecar reads output that the decoder already wrote next to the input:
// <input><RecordsSuffix> and <input><PathsSuffix>.
type Sidecar struct {
	RecordsSuffix string
	PathsSuffix   string
}

// Open opens both sidecar files of path.
func (d Sidecar) Open(ctx context.Context, path string) (Streams, error) {
	recSuffix, pathSuffix := d.RecordsSuffix, d.PathsSuffix
	if recSuffix == "" {
		recSuffix = DefaultRecordsSuffix
	}
	if pathSuffix == "" {
		pathSuffix = DefaultPathsSuffix
	}

	rf, err := os.Open(path + recSuffix)
	if err != nil {
		return nil, fmt.Errorf("opening records: %w", err)
	}
	pf, err := os.Open(path + pathSuffix)
	if err != nil {
		rf.Close()
		return nil, fmt.Errorf("opening paths: %w", err)
	}
	return newStreams(rf, pf, rf.Close, pf.Close), nil
}
