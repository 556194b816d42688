package presenter

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cdtdelta/mft2es/internal/bulk"
)

// maxReportedFailures caps the failures kept for the summary.
const maxReportedFailures = 5

// Summary counts the outcome of an import run.
type Summary struct {
	Files   int
	Skipped int
	Batches int

	Indexed int
	Failed  int
	// Unsent counts documents of batches whose request failed as a whole.
	Unsent int

	TransportErrors int
	Failures        []bulk.Failure
}

func (s *Summary) addResult(res bulk.Result) {
	s.Indexed += res.Success
	s.Failed += len(res.Failures)
	for _, f := range res.Failures {
		if len(s.Failures) >= maxReportedFailures {
			break
		}
		s.Failures = append(s.Failures, f)
	}
}

// Render writes the summary as text tables.
func (s Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	// Don't uppercase the header values.
	t.Style().Format.Header = text.FormatDefault

	t.AppendHeader(table.Row{"files", "skipped", "batches", "indexed", "failed", "unsent", "transport errors"})
	t.AppendRow(table.Row{s.Files, s.Skipped, s.Batches, s.Indexed, s.Failed, s.Unsent, s.TransportErrors})
	t.Render()

	if len(s.Failures) == 0 {
		return
	}
	f := table.NewWriter()
	f.SetOutputMirror(w)
	f.Style().Format.Header = text.FormatDefault
	f.SetTitle(fmt.Sprintf("first %d of %d failures", len(s.Failures), s.Failed))
	f.AppendHeader(table.Row{"id", "status", "reason"})
	for _, fl := range s.Failures {
		f.AppendRow(table.Row{fl.ID, fl.Status, fl.Reason})
	}
	f.Render()
}
