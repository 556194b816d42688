package decoder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// DefaultCommand is the decoder binary shipped with the Rust mft crate.
const DefaultCommand = "mft_dump"

// Command runs the external decoder twice over the same file, once for JSON
// lines and once for CSV, and streams both outputs.
type Command struct {
	// Path is the decoder binary; DefaultCommand when empty.
	Path string
}

// Open starts both decoder processes. They are reaped by Close.
func (d Command) Open(ctx context.Context, path string) (Streams, error) {
	bin := d.Path
	if bin == "" {
		bin = DefaultCommand
	}

	records, waitRecords, err := start(ctx, bin, "jsonl", path)
	if err != nil {
		return nil, err
	}
	paths, waitPaths, err := start(ctx, bin, "csv", path)
	if err != nil {
		records.Close()
		waitRecords()
		return nil, err
	}

	closeRecords := func() error {
		records.Close()
		return waitRecords()
	}
	closePaths := func() error {
		paths.Close()
		return waitPaths()
	}
	return newStreams(records, paths, closeRecords, closePaths), nil
}

func start(ctx context.Context, bin, format, path string) (io.ReadCloser, func() error, error) {
	cmd := exec.CommandContext(ctx, bin, "-o", format, path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("%s pipe: %w", format, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting %s -o %s: %w", bin, format, err)
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			msg := strings.TrimSpace(stderr.String())
			if msg != "" {
				return fmt.Errorf("%s -o %s: %w: %s", bin, format, err, msg)
			}
			return fmt.Errorf("%s -o %s: %w", bin, format, err)
		}
		return nil
	}
	return out, wait, nil
}
