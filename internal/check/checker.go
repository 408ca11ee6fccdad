// Package check verifies the examples of scanned documents.
//
// The flow per example mirrors a deterministic task runner: compute the
// snippet hash, consult the cache, evaluate on a miss, compare the normalized
// console output against the declared `// Output:` lines, store the verdict.
// Examples within a document run strictly in order on one shared runtime;
// documents run independently and may be checked in parallel.
package check

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mdvet/internal/cache"
	"mdvet/internal/doc"
	"mdvet/internal/eval"
	"mdvet/internal/report"
)

// CacheMode controls how the checker uses its cache.
type CacheMode string

const (
	// CacheReadWrite replays hits and stores new verdicts.
	CacheReadWrite CacheMode = "readwrite"

	// CacheRefresh re-evaluates everything but stores fresh verdicts,
	// overwriting whatever was cached before.
	CacheRefresh CacheMode = "refresh"

	// CacheOff neither reads nor writes.
	CacheOff CacheMode = "off"
)

// ParseCacheMode validates a cache mode string.
func ParseCacheMode(raw string) (CacheMode, error) {
	switch CacheMode(strings.ToLower(strings.TrimSpace(raw))) {
	case CacheReadWrite:
		return CacheReadWrite, nil
	case CacheRefresh:
		return CacheRefresh, nil
	case CacheOff:
		return CacheOff, nil
	default:
		return "", fmt.Errorf("invalid cache mode %q (expected readwrite|refresh|off)", raw)
	}
}

// Checker verifies documents.
type Checker struct {
	Cache       cache.Cache
	Mode        CacheMode
	Hasher      *SnippetHasher
	Normalizer  eval.OutputNormalizer
	Timeout     time.Duration
	MaxParallel int
	Logger      zerolog.Logger
}

// New creates a Checker with the default hasher and normalizer.
func New(c cache.Cache, mode CacheMode, timeout time.Duration, maxParallel int, logger zerolog.Logger) *Checker {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Checker{
		Cache:       c,
		Mode:        mode,
		Hasher:      NewSnippetHasher(),
		Normalizer:  eval.NewDefaultNormalizer(),
		Timeout:     timeout,
		MaxParallel: maxParallel,
		Logger:      logger,
	}
}

// CheckAll verifies documents with bounded parallelism and returns the
// finalized run record. The record is deterministic for a given set of
// documents regardless of scheduling.
func (c *Checker) CheckAll(ctx context.Context, docs []*doc.Document) (*report.Run, error) {
	run := report.NewRun()
	results := make([]report.DocumentReport, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.MaxParallel)
	for i, d := range docs {
		g.Go(func() error {
			dr, err := c.CheckDocument(gctx, d)
			if err != nil {
				return fmt.Errorf("checking %s: %w", d.Path, err)
			}
			results[i] = dr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, dr := range results {
		run.Add(dr)
	}
	if err := run.Finalize(); err != nil {
		return nil, err
	}
	return run, nil
}

// CheckDocument verifies one document.
//
// A failing example does not stop later examples: its error is its own
// finding, and the remaining examples still run against the shared runtime.
// Only infrastructure problems (a runtime that cannot be constructed,
// context cancellation) are returned as errors.
func (c *Checker) CheckDocument(ctx context.Context, d *doc.Document) (report.DocumentReport, error) {
	dr := report.DocumentReport{Path: d.Path}
	for _, issue := range d.Issues {
		dr.Findings = append(dr.Findings, report.Finding{
			Kind:         report.KindScanIssue,
			ExampleIndex: -1,
			Line:         issue.Line,
			Message:      issue.Message,
		})
	}

	st := NewDocumentState(len(d.Examples))

	var rt *eval.Runtime
	// primed counts how many runnable snippets the runtime has absorbed;
	// cache hits leave a gap that must be replayed before the next miss runs.
	primed := 0
	var priorSources []string

	for _, ex := range d.Examples {
		if err := ctx.Err(); err != nil {
			return dr, err
		}

		if !ex.Check {
			if err := Transition(st, ex.Index, StatePending, StateSkipped); err != nil {
				return dr, err
			}
			dr.Examples = append(dr.Examples, report.ExampleReport{
				Index: ex.Index, Line: ex.Line, Status: report.StatusSkipped,
			})
			continue
		}

		hash := c.Hasher.Compute(HashInput{
			DocPath:      d.Path,
			Index:        ex.Index,
			Source:       ex.Source,
			Expected:     ex.Expected,
			EngineTag:    eval.EngineTag,
			PriorSources: priorSources,
		})

		if c.Mode == CacheReadWrite {
			entry, err := c.Cache.Get(hash.String())
			if err != nil {
				return dr, err
			}
			if entry != nil {
				if err := Transition(st, ex.Index, StatePending, StateCached); err != nil {
					return dr, err
				}
				dr.Examples = append(dr.Examples, report.ExampleReport{
					Index: ex.Index, Line: ex.Line,
					Status:        report.StatusCached,
					CachedFailure: !entry.Passed,
				})
				for _, f := range entry.Findings {
					// Fence lines are not part of the snippet hash; prose
					// edits above the example shift them without
					// invalidating the entry.
					f.Line = ex.Line
					dr.Findings = append(dr.Findings, f)
				}
				priorSources = append(priorSources, ex.Source)
				continue
			}
		}

		if err := Transition(st, ex.Index, StatePending, StateRunning); err != nil {
			return dr, err
		}

		if rt == nil {
			var err error
			if rt, err = eval.New(); err != nil {
				return dr, err
			}
		}
		for ; primed < len(priorSources); primed++ {
			// Replaying a prior snippet only rebuilds runtime bindings; its
			// own verdict was already reported, so output and errors are
			// deliberately dropped here.
			_, _ = rt.Eval(ctx, priorSources[primed], c.Timeout)
		}

		out, evalErr := rt.Eval(ctx, ex.Source, c.Timeout)
		primed++
		priorSources = append(priorSources, ex.Source)

		findings := c.verdict(&ex, c.Normalizer.Normalize(out), evalErr)
		passed := len(findings) == 0

		to := StatePassed
		status := report.StatusPassed
		if !passed {
			to = StateFailed
			status = report.StatusFailed
		}
		if err := Transition(st, ex.Index, StateRunning, to); err != nil {
			return dr, err
		}
		dr.Examples = append(dr.Examples, report.ExampleReport{
			Index: ex.Index, Line: ex.Line, Status: status,
		})
		dr.Findings = append(dr.Findings, findings...)

		if c.Mode != CacheOff {
			entry := &cache.Entry{
				Hash:      hash.String(),
				Passed:    passed,
				Output:    c.Normalizer.Normalize(out),
				Findings:  findings,
				EngineTag: eval.EngineTag,
			}
			if err := c.Cache.Put(entry); err != nil {
				// A broken cache degrades performance, not correctness.
				c.Logger.Warn().Err(err).Str("doc", d.Path).Int("example", ex.Index).
					Msg("failed to store cache entry")
			}
		}
	}

	for _, ref := range doc.UnresolvedRefs(d) {
		dr.Findings = append(dr.Findings, report.Finding{
			Kind:         report.KindUnresolvedRef,
			ExampleIndex: -1,
			Line:         ref.Line,
			Message:      fmt.Sprintf("reference `%s` does not resolve to any example in this document", ref.Text),
		})
	}

	return dr, nil
}

// verdict turns an evaluation outcome into findings. Empty means passed.
func (c *Checker) verdict(ex *doc.Example, normalized []byte, evalErr error) []report.Finding {
	if evalErr != nil {
		return []report.Finding{{
			Kind:         report.KindEvalError,
			ExampleIndex: ex.Index,
			Line:         ex.Line,
			Message:      evalErr.Error(),
		}}
	}

	if ex.HasOutputMarker && len(ex.Expected) == 0 {
		return []report.Finding{{
			Kind:         report.KindMissingOutput,
			ExampleIndex: ex.Index,
			Line:         ex.Line,
			Message:      "`// Output:` marker declares no output lines",
		}}
	}

	if len(ex.Expected) == 0 {
		return nil
	}
	return compareOutput(ex, normalized)
}

// compareOutput diffs declared output lines against normalized actual output.
func compareOutput(ex *doc.Example, normalized []byte) []report.Finding {
	actual := splitLines(normalized)
	expected := ex.Expected

	n := len(expected)
	if len(actual) < n {
		n = len(actual)
	}
	for i := 0; i < n; i++ {
		if expected[i] != actual[i] {
			return []report.Finding{{
				Kind:         report.KindOutputMismatch,
				ExampleIndex: ex.Index,
				Line:         ex.Line,
				Message:      fmt.Sprintf("output line %d differs", i+1),
				Expected:     expected[i],
				Actual:       actual[i],
			}}
		}
	}

	if len(expected) != len(actual) {
		return []report.Finding{{
			Kind:         report.KindOutputMismatch,
			ExampleIndex: ex.Index,
			Line:         ex.Line,
			Message: fmt.Sprintf("declared %d output line(s), example printed %d",
				len(expected), len(actual)),
		}}
	}
	return nil
}

func splitLines(b []byte) []string {
	if len(b) == 0 {
		return nil
	}
	s := strings.TrimSuffix(string(b), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
