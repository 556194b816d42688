// Package decoder adapts the external MFT decoder to the two lock-step
// streams the pipeline consumes: one JSON document per entry and one
// resolved path per entry, in the same order.
package decoder

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
)

// Decoder opens the record and path streams of one MFT file.
type Decoder interface {
	Open(ctx context.Context, path string) (Streams, error)
}

// Streams is the decoder output for one input file. Each stream may be
// iterated once. Err reports the first read error of either stream and is
// only meaningful after iteration stops.
type Streams interface {
	Records() iter.Seq[json.RawMessage]
	Paths() iter.Seq[[]byte]
	Err() error
	Close() error
}

// pathHeaders are last-column names of a CSV header row.
var pathHeaders = map[string]bool{"FullPath": true, "full_path": true}

// streams reads JSON lines from one reader and CSV rows from another.
type streams struct {
	records io.Reader
	paths   io.Reader
	closers []func() error

	mu  sync.Mutex
	err error

	closeOnce sync.Once
	closeErr  error
}

func newStreams(records, paths io.Reader, closers ...func() error) *streams {
	return &streams{records: records, paths: paths, closers: closers}
}

func (s *streams) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Err returns the first read error seen on either stream.
func (s *streams) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Records yields one raw JSON document per non-blank line.
func (s *streams) Records() iter.Seq[json.RawMessage] {
	return func(yield func(json.RawMessage) bool) {
		scanner := bufio.NewScanner(s.records)
		// Allow up to 10MB per line; records with many attributes get long.
		scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			// The scanner reuses its buffer; chunks outlive the next Scan.
			if !yield(json.RawMessage(bytes.Clone(line))) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			s.setErr(fmt.Errorf("reading records at line %d: %w", lineNum, err))
		}
	}
}

// Paths yields the last column of each CSV row. A leading header row is skipped.
func (s *streams) Paths() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		reader := csv.NewReader(newNullStripper(s.paths))
		reader.FieldsPerRecord = -1
		reader.LazyQuotes = true

		first := true
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				s.setErr(fmt.Errorf("reading paths: %w", err))
				return
			}
			if len(row) == 0 {
				continue
			}
			last := row[len(row)-1]
			if first {
				first = false
				if pathHeaders[strings.TrimSpace(last)] {
					continue
				}
			}
			if !yield([]byte(last)) {
				return
			}
		}
	}
}

// Close releases both underlying streams and returns their errors joined.
// Later calls return the same result.
func (s *streams) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		for _, c := range s.closers {
			if err := c(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// nullStripper wraps a reader and strips null bytes from the stream so the
// CSV reader does not choke on padded decoder output.
type nullStripper struct {
	r io.Reader
}

func newNullStripper(r io.Reader) io.Reader {
	return &nullStripper{r: r}
}

func (ns *nullStripper) Read(p []byte) (int, error) {
	n, err := ns.r.Read(p)
	if n > 0 {
		cleaned := bytes.ReplaceAll(p[:n], []byte{0}, nil)
		n = copy(p, cleaned)
	}
	return n, err
}

// FromReaders builds Streams over already-open readers, e.g. in tests or
// when the decoder output arrives over another channel.
func FromReaders(records, paths io.Reader) Streams {
	return newStreams(records, paths)
}
