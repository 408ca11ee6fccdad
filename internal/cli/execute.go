package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"

	"mdvet/internal/cache"
	"mdvet/internal/check"
	"mdvet/internal/config"
	"mdvet/internal/doc"
	"mdvet/internal/genai"
	"mdvet/internal/log"
	"mdvet/internal/report"
	"mdvet/internal/watch"
)

// Result is the outcome of executing an invocation.
type Result struct {
	ExitCode int
	Run      *report.Run
}

// Execute maps a canonical Invocation to the requested operation.
//
// Responsibilities:
//   - Load and validate configuration, then apply flag overrides.
//   - Wire cache, checker and report for the run.
//   - Translate outcomes to semantic exit codes.
//
// The report is rendered to stdout unless the invocation redirects it.
func Execute(ctx context.Context, inv Invocation, stdout io.Writer) (Result, error) {
	res := Result{ExitCode: ExitInternalError}

	cfg, err := config.Load(inv.WorkDir, inv.ConfigPath)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}
	applyOverrides(cfg, inv)

	log.Configure(log.Config{Level: cfg.Log.Level})

	switch inv.Command {
	case CommandCheck:
		return runCheck(ctx, inv, cfg, stdout)
	case CommandWatch:
		return runWatch(ctx, inv, cfg, stdout)
	case CommandGenerate:
		return runGenerate(ctx, inv, cfg)
	default:
		return res, fmt.Errorf("unknown command %q", inv.Command)
	}
}

// applyOverrides folds flag-level overrides into the loaded config. Flag
// values were validated during invocation parsing.
func applyOverrides(cfg *config.Config, inv Invocation) {
	if inv.CacheMode != "" {
		cfg.Cache.Mode = inv.CacheMode
	}
	if inv.CacheDir != "" {
		cfg.Cache.Dir = inv.CacheDir
	}
	if inv.ReportFormat != "" {
		cfg.Report.Format = inv.ReportFormat
	}
}

func runCheck(ctx context.Context, inv Invocation, cfg *config.Config, stdout io.Writer) (Result, error) {
	res := Result{ExitCode: ExitInternalError}

	paths, err := discoverDocs(inv, cfg)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}

	checker, err := newChecker(inv, cfg)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}

	run, err := checkPaths(ctx, checker, inv.WorkDir, paths)
	if err != nil {
		if isDocReadError(err) {
			res.ExitCode = ExitConfigError
		}
		return res, err
	}
	res.Run = run

	format := report.Format(cfg.Report.Format)
	if inv.ReportPath != "" {
		err = report.WriteFile(inv.ReportPath, run, format)
	} else {
		err = report.Render(stdout, run, format)
	}
	if err != nil {
		return res, err
	}

	if run.Clean() {
		res.ExitCode = ExitSuccess
	} else {
		res.ExitCode = ExitFindings
	}
	return res, nil
}

func runWatch(ctx context.Context, inv Invocation, cfg *config.Config, stdout io.Writer) (Result, error) {
	res := Result{ExitCode: ExitInternalError}

	paths, err := discoverDocs(inv, cfg)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}
	checker, err := newChecker(inv, cfg)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}

	format := report.Format(cfg.Report.Format)

	// Full pass first, so the watcher starts from a known verdict.
	run, err := checkPaths(ctx, checker, inv.WorkDir, paths)
	if err != nil {
		return res, err
	}
	if err := report.Render(stdout, run, format); err != nil {
		return res, err
	}
	res.Run = run

	w := &watch.Watcher{
		Dirs:   watchDirs(inv.WorkDir, paths),
		Match:  docMatcher(inv, cfg),
		Logger: log.WithComponent("watch"),
		// Re-check only the changed documents per batch.
		OnChange: func(ctx context.Context, changed []string) error {
			// A rename or delete delivers an event for the old name; a
			// vanished document is dropped from the batch, not a fatal error.
			live := changed[:0]
			for _, p := range changed {
				if _, statErr := os.Stat(p); statErr == nil {
					live = append(live, p)
				}
			}
			if len(live) == 0 {
				return nil
			}
			run, err := checkPaths(ctx, checker, inv.WorkDir, live)
			if err != nil {
				return err
			}
			res.Run = run
			return report.Render(stdout, run, format)
		},
	}

	err = w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		// Stopping the watch is the intended way out, not a failure.
		if res.Run != nil && res.Run.Clean() {
			res.ExitCode = ExitSuccess
		} else {
			res.ExitCode = ExitFindings
		}
		return res, nil
	}
	return res, err
}

func runGenerate(ctx context.Context, inv Invocation, cfg *config.Config) (Result, error) {
	res := Result{ExitCode: ExitInternalError}

	prompt := inv.Prompt
	if inv.PromptFile != "" {
		b, err := os.ReadFile(inv.PromptFile)
		if err != nil {
			res.ExitCode = ExitConfigError
			return res, fmt.Errorf("reading prompt file: %w", err)
		}
		prompt = string(b)
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		res.ExitCode = ExitConfigError
		return res, errors.New("GEMINI_API_KEY is not set")
	}

	client := &genai.Client{
		Endpoint: cfg.Generate.Endpoint,
		Model:    cfg.Generate.Model,
		APIKey:   apiKey,
		Retry:    genai.RetryConfig{MaxAttempts: cfg.Generate.MaxAttempts},
		Logger:   log.WithComponent("genai"),
	}

	text, err := client.Generate(ctx, prompt)
	if err != nil {
		res.ExitCode = ExitFindings
		return res, err
	}

	if err := renameio.WriteFile(inv.OutPath, []byte(text), 0o644); err != nil {
		return res, fmt.Errorf("writing document: %w", err)
	}
	res.ExitCode = ExitSuccess
	return res, nil
}

func newChecker(inv Invocation, cfg *config.Config) (*check.Checker, error) {
	mode, err := check.ParseCacheMode(cfg.Cache.Mode)
	if err != nil {
		return nil, err
	}

	var c cache.Cache = cache.NullCache{}
	if mode != check.CacheOff {
		dir := cfg.Cache.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(inv.WorkDir, dir)
		}
		c = cache.NewFileCache(dir)
	}

	return check.New(c, mode, cfg.Timeout, cfg.MaxParallel, log.WithComponent("check")), nil
}

// discoverDocs resolves the document set: explicit paths win, otherwise the
// configured include globs are expanded under the work dir.
func discoverDocs(inv Invocation, cfg *config.Config) ([]string, error) {
	if len(inv.Docs) > 0 {
		return inv.Docs, nil
	}

	seen := make(map[string]struct{})
	var paths []string
	for _, glob := range cfg.Include {
		matches, err := filepath.Glob(filepath.Join(inv.WorkDir, glob))
		if err != nil {
			return nil, fmt.Errorf("bad include glob %q: %w", glob, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents matched include globs %v under %s", cfg.Include, inv.WorkDir)
	}
	return paths, nil
}

// watchDirs lists the directories to watch: the work dir plus the parent of
// every discovered document, so include globs like docs/*.md get events too.
func watchDirs(workDir string, paths []string) []string {
	seen := map[string]struct{}{workDir: {}}
	dirs := []string{workDir}
	for _, p := range paths {
		d := filepath.Dir(p)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// docMatcher builds the watch filter: explicit docs match by identity,
// otherwise a path matches when any include glob accepts its workdir-relative
// form.
func docMatcher(inv Invocation, cfg *config.Config) func(string) bool {
	if len(inv.Docs) > 0 {
		set := make(map[string]struct{}, len(inv.Docs))
		for _, d := range inv.Docs {
			set[d] = struct{}{}
		}
		return func(path string) bool {
			_, ok := set[path]
			return ok
		}
	}

	return func(path string) bool {
		rel, err := filepath.Rel(inv.WorkDir, path)
		if err != nil {
			return false
		}
		for _, glob := range cfg.Include {
			if ok, err := filepath.Match(glob, rel); err == nil && ok {
				return true
			}
		}
		return false
	}
}

// checkPaths scans the given documents relative to workDir and checks them.
// Paths are reported workdir-relative so reports are machine-independent.
func checkPaths(ctx context.Context, checker *check.Checker, workDir string, paths []string) (*report.Run, error) {
	scanner := doc.NewScanner()
	docs := make([]*doc.Document, 0, len(paths))
	for _, p := range paths {
		d, err := scanner.ScanFile(p)
		if err != nil {
			return nil, &docReadError{err: err}
		}
		if rel, rerr := filepath.Rel(workDir, p); rerr == nil {
			d.Path = rel
		}
		docs = append(docs, d)
	}
	return checker.CheckAll(ctx, docs)
}

type docReadError struct{ err error }

func (e *docReadError) Error() string { return e.err.Error() }
func (e *docReadError) Unwrap() error { return e.err }

func isDocReadError(err error) bool {
	var dre *docReadError
	return errors.As(err, &dre)
}
