package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Semantic exit codes. Findings (failed examples, mismatched output,
// unresolved references) are a verdict, not a tool failure, and get their own
// code so CI can tell the two apart.
const (
	ExitSuccess           = 0
	ExitFindings          = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// Command is the requested operation.
type Command string

const (
	CommandCheck    Command = "check"
	CommandWatch    Command = "watch"
	CommandGenerate Command = "generate"
)

// Invocation is the fully canonicalized, deterministic description of a run.
//
// All paths are normalized and all relative paths are resolved relative to
// WorkDir. WorkDir is required and must be absolute; this prevents any
// dependency on the process current working directory. Parsing never reads
// environment variables or the filesystem.
type Invocation struct {
	Command Command
	WorkDir string

	// ConfigPath is an explicit config file; empty means the default
	// {WorkDir}/.mdvet.yaml lookup.
	ConfigPath string

	// Docs are explicit document paths (check/watch); empty means the
	// configured include globs.
	Docs []string

	// CacheDir and CacheMode override the configured cache when non-empty.
	CacheDir  string
	CacheMode string

	// ReportPath redirects the report from stdout when non-empty.
	ReportPath string

	// ReportFormat overrides the configured format when non-empty.
	ReportFormat string

	// Generate inputs. Exactly one of Prompt / PromptFile is set.
	Prompt     string
	PromptFile string
	OutPath    string
}

// InvocationError carries the semantic exit code for a rejected invocation.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses CLI arguments into a canonical Invocation.
//
// Usage:
//
//	mdvet [check|watch|generate] [flags] [docs...]
//
// The command defaults to check when the first argument is a flag.
func ParseInvocation(args []string) (Invocation, error) {
	command := CommandCheck
	rest := args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch Command(args[0]) {
		case CommandCheck, CommandWatch, CommandGenerate:
			command = Command(args[0])
			rest = args[1:]
		default:
			return Invocation{}, invalidInvocationf("unknown command %q (expected check|watch|generate)", args[0])
		}
	}

	fs := flag.NewFlagSet("mdvet "+string(command), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var workDir, configPath string
	fs.StringVar(&workDir, "workdir", "", "Absolute working directory. Required.")
	fs.StringVar(&configPath, "config", "", "Config file path (optional).")

	var cacheDir, cacheMode, reportPath, format string
	var prompt, promptFile, outPath string
	switch command {
	case CommandCheck, CommandWatch:
		fs.StringVar(&cacheDir, "cache-dir", "", "Cache directory override (optional).")
		fs.StringVar(&cacheMode, "cache-mode", "", "Cache mode override: readwrite|refresh|off (optional).")
		fs.StringVar(&format, "format", "", "Report format override: text|json (optional).")
		if command == CommandCheck {
			fs.StringVar(&reportPath, "report", "", "Report output path; default stdout.")
		}
	case CommandGenerate:
		fs.StringVar(&prompt, "prompt", "", "Generation prompt text.")
		fs.StringVar(&promptFile, "prompt-file", "", "File containing the generation prompt.")
		fs.StringVar(&outPath, "out", "", "Output Markdown path. Required.")
	}

	if err := fs.Parse(rest); err != nil {
		return Invocation{}, invalidInvocationf("%v", err)
	}

	workDir = filepath.Clean(workDir)
	if workDir == "" || workDir == "." {
		return Invocation{}, invalidInvocationf("--workdir is required")
	}
	if !filepath.IsAbs(workDir) {
		return Invocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", workDir)
	}

	inv := Invocation{
		Command: command,
		WorkDir: workDir,
	}

	var err error
	if configPath != "" {
		if inv.ConfigPath, err = resolveUnderWorkDir(workDir, configPath); err != nil {
			return Invocation{}, err
		}
	}

	switch command {
	case CommandCheck, CommandWatch:
		if cacheMode != "" && !validCacheMode(cacheMode) {
			return Invocation{}, invalidInvocationf("invalid --cache-mode %q (expected readwrite|refresh|off)", cacheMode)
		}
		if format != "" && format != "text" && format != "json" {
			return Invocation{}, invalidInvocationf("invalid --format %q (expected text|json)", format)
		}
		inv.CacheMode = cacheMode
		inv.ReportFormat = format
		if cacheDir != "" {
			if inv.CacheDir, err = resolveUnderWorkDir(workDir, cacheDir); err != nil {
				return Invocation{}, err
			}
		}
		if reportPath != "" {
			if inv.ReportPath, err = resolveUnderWorkDir(workDir, reportPath); err != nil {
				return Invocation{}, err
			}
		}
		for _, d := range fs.Args() {
			resolved, rerr := resolveUnderWorkDir(workDir, d)
			if rerr != nil {
				return Invocation{}, rerr
			}
			inv.Docs = append(inv.Docs, resolved)
		}

	case CommandGenerate:
		if fs.NArg() != 0 {
			return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
		}
		if (prompt == "") == (promptFile == "") {
			return Invocation{}, invalidInvocationf("exactly one of --prompt or --prompt-file is required")
		}
		if outPath == "" {
			return Invocation{}, invalidInvocationf("--out is required")
		}
		inv.Prompt = prompt
		if promptFile != "" {
			if inv.PromptFile, err = resolveUnderWorkDir(workDir, promptFile); err != nil {
				return Invocation{}, err
			}
		}
		if inv.OutPath, err = resolveUnderWorkDir(workDir, outPath); err != nil {
			return Invocation{}, err
		}
	}

	return inv, nil
}

func validCacheMode(mode string) bool {
	switch mode {
	case "readwrite", "refresh", "off":
		return true
	default:
		return false
	}
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}

	// Absolute paths are accepted as-is; relative paths resolve under the
	// (absolute) WorkDir, so Join never consults the process CWD.
	if filepath.IsAbs(clean) {
		return clean, nil
	}
	return filepath.Clean(filepath.Join(workDir, clean)), nil
}

// ExitCodeFor extracts a semantic exit code from a ParseInvocation error.
func ExitCodeFor(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
