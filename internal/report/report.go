// Package report defines the canonical record of a verification run and its
// renderers.
//
// A Run is assembled once per invocation and finalized exactly once, also on
// failure paths. Ordering is deterministic: documents sort by path, findings
// keep example order. Nothing in a Run may depend on map iteration or
// concurrency timing; only the run ID and the two timestamps vary between
// otherwise identical runs.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ExampleStatus is the terminal state of a single checked example.
type ExampleStatus string

const (
	StatusPassed  ExampleStatus = "passed"
	StatusFailed  ExampleStatus = "failed"
	StatusCached  ExampleStatus = "cached"
	StatusSkipped ExampleStatus = "skipped"
)

// ExampleReport records the outcome of one fenced example.
type ExampleReport struct {
	Index  int           `json:"index"`
	Line   int           `json:"line"`
	Status ExampleStatus `json:"status"`
	// CachedFailure marks a cached entry that replayed a failure.
	CachedFailure bool `json:"cached_failure,omitempty"`
}

// DocumentReport aggregates the outcome of one document.
type DocumentReport struct {
	Path     string          `json:"path"`
	Examples []ExampleReport `json:"examples"`
	Findings []Finding       `json:"findings,omitempty"`
}

// Failed reports whether the document produced any finding or failed example.
func (d *DocumentReport) Failed() bool {
	if len(d.Findings) > 0 {
		return true
	}
	for _, e := range d.Examples {
		if e.Status == StatusFailed || (e.Status == StatusCached && e.CachedFailure) {
			return true
		}
	}
	return false
}

// Totals summarizes a run for the one-line verdict.
type Totals struct {
	Documents int `json:"documents"`
	Examples  int `json:"examples"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Cached    int `json:"cached"`
	Skipped   int `json:"skipped"`
	Findings  int `json:"findings"`
}

// Run is the full record of one verification pass.
type Run struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"started_at"`
	EndedAt   time.Time        `json:"ended_at"`
	Documents []DocumentReport `json:"documents"`
	Totals    Totals           `json:"totals"`

	finalized bool
}

// NewRun starts a run record with a fresh ID.
func NewRun() *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// Add appends a document report. Safe to call in any order; Finalize sorts.
func (r *Run) Add(d DocumentReport) {
	r.Documents = append(r.Documents, d)
}

// Finalize sorts documents by path, computes totals, and stamps the end time.
// Calling it twice is a programming error.
func (r *Run) Finalize() error {
	if r.finalized {
		return fmt.Errorf("run %s already finalized", r.ID)
	}
	r.finalized = true

	sort.Slice(r.Documents, func(i, j int) bool {
		return r.Documents[i].Path < r.Documents[j].Path
	})

	var t Totals
	t.Documents = len(r.Documents)
	for _, d := range r.Documents {
		t.Findings += len(d.Findings)
		for _, e := range d.Examples {
			t.Examples++
			switch e.Status {
			case StatusPassed:
				t.Passed++
			case StatusFailed:
				t.Failed++
			case StatusCached:
				t.Cached++
				if e.CachedFailure {
					t.Failed++
				}
			case StatusSkipped:
				t.Skipped++
			}
		}
	}
	r.Totals = t
	r.EndedAt = time.Now().UTC()
	return nil
}

// Clean reports whether the finalized run found nothing wrong.
func (r *Run) Clean() bool {
	return r.Totals.Failed == 0 && r.Totals.Findings == 0
}
