package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/renameio/v2"
)

// Format selects a report renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Render writes the run in the given format.
func Render(w io.Writer, r *Run, format Format) error {
	switch format {
	case FormatText:
		return renderText(w, r)
	case FormatJSON:
		return renderJSON(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// WriteFile renders the run to path atomically. A partially written report
// is never observable.
func WriteFile(path string, r *Run, format Format) error {
	var buf bytes.Buffer
	if err := Render(&buf, r, format); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

func renderJSON(w io.Writer, r *Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func renderText(w io.Writer, r *Run) error {
	for _, d := range r.Documents {
		status := "ok"
		if d.Failed() {
			status = "FAIL"
		}
		if _, err := fmt.Fprintf(w, "%s: %s (%d examples)\n", d.Path, status, len(d.Examples)); err != nil {
			return err
		}
		for _, f := range d.Findings {
			if err := renderFinding(w, &f); err != nil {
				return err
			}
		}
	}

	t := r.Totals
	_, err := fmt.Fprintf(w,
		"%d documents, %d examples: %d passed, %d failed, %d cached, %d skipped, %d findings\n",
		t.Documents, t.Examples, t.Passed, t.Failed, t.Cached, t.Skipped, t.Findings)
	return err
}

func renderFinding(w io.Writer, f *Finding) error {
	loc := ""
	if f.Line > 0 {
		loc = fmt.Sprintf(" (line %d)", f.Line)
	}
	if _, err := fmt.Fprintf(w, "  [%s]%s %s\n", f.Kind, loc, f.Message); err != nil {
		return err
	}
	if f.Expected != "" || f.Actual != "" {
		if _, err := fmt.Fprintf(w, "    expected: %q\n    actual:   %q\n", f.Expected, f.Actual); err != nil {
			return err
		}
	}
	return nil
}
