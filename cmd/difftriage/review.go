package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/difftriage/internal/diff"
	"github.com/dshills/difftriage/internal/gitdiff"
	"github.com/dshills/difftriage/internal/llm"
	"github.com/dshills/difftriage/internal/logging"
	"github.com/dshills/difftriage/internal/patch"
	"github.com/dshills/difftriage/internal/redact"
	"github.com/dshills/difftriage/internal/render"
	"github.com/dshills/difftriage/internal/triage"
)

type reviewFlags struct {
	diffPath      string
	dir           string
	staged        bool
	base          string
	lenses        []string
	profileName   string
	minSeverity   string
	format        string
	out           string
	patchOut      string
	model         string
	maxTokens     int
	temperature   float64
	seed          int
	hasSeed       bool
	maxIssues     int
	redactEnabled bool
	failOn        string
	verbose       bool
	logLevel      string

	// provider overrides model resolution; tests inject a mock here.
	provider llm.Provider
}

func newReviewCmd() *cobra.Command {
	f := &reviewFlags{}

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Analyze a diff and produce a ranked issue list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.hasSeed = cmd.Flags().Changed("seed")
			return runReview(f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.diffPath, "diff", "", "Read the diff from a file, or - for stdin (default: git)")
	flags.StringVar(&f.dir, "dir", ".", "Repository directory")
	flags.BoolVar(&f.staged, "staged", false, "Review only staged changes")
	flags.StringVar(&f.base, "base", "", "Review changes against this base branch")
	flags.StringSliceVar(&f.lenses, "lens", nil, "Lens IDs (may be repeated)")
	flags.StringVar(&f.profileName, "profile", "", "Profile name (ignored when --lens is set)")
	flags.StringVar(&f.minSeverity, "min-severity", "", "Drop issues below this severity")
	flags.StringVar(&f.format, "format", "json", "Output format: json or md")
	flags.StringVar(&f.out, "out", "", "Output file path (default: stdout)")
	flags.StringVar(&f.patchOut, "patch-out", "", "Write suggested patches as unified diff")
	flags.StringVar(&f.model, "model", "", "Model ID (e.g., claude-sonnet-4-20250514, gpt-4o)")
	flags.IntVar(&f.maxTokens, "max-tokens", 4096, "Max response tokens")
	flags.Float64Var(&f.temperature, "temperature", 0.2, "Model temperature")
	flags.IntVar(&f.seed, "seed", 0, "Random seed (if supported)")
	flags.IntVar(&f.maxIssues, "max-issues", 0, "Max issues per lens (0 = default)")
	flags.BoolVar(&f.redactEnabled, "redact", true, "Redact secrets before sending to model")
	flags.StringVar(&f.failOn, "fail-on", "", "Exit non-zero if any issue meets this severity")
	flags.BoolVar(&f.verbose, "verbose", false, "Print run progress to stderr")
	flags.StringVar(&f.logLevel, "log-level", "warn", "Log level: trace, debug, info, warn, error")

	return cmd
}

func runReview(f *reviewFlags) error {
	logger, closeLog, err := logging.New(f.logLevel, "")
	if err != nil {
		return exitError(3, "bad log level: %v", err)
	}
	defer closeLog()

	stderr := log.New(os.Stderr, "", 0)
	verbose := func(msg string, args ...any) {
		if f.verbose {
			stderr.Printf(msg, args...)
		}
	}

	text, err := loadDiff(f, verbose)
	if err != nil {
		return err
	}

	if f.redactEnabled {
		var fired []string
		text, fired = redact.Apply(text)
		if len(fired) > 0 {
			verbose("Redacted secrets: %v", fired)
		}
	}

	parsed := diff.Parse(text)
	verbose("Parsed %d changed files (+%d/-%d)",
		len(parsed.Files), parsed.TotalStats.Additions, parsed.TotalStats.Deletions)

	provider := f.provider
	if provider == nil {
		provider, err = llm.ResolveProvider(f.model)
		if err != nil {
			return exitError(4, "model provider error: %v", err)
		}
	}
	verbose("Using provider: %s", provider.Name())

	if f.minSeverity != "" && !triage.Severity(f.minSeverity).Valid() {
		return exitError(3, "unknown severity: %s", f.minSeverity)
	}

	settings := llm.Settings{Model: f.model, Temperature: f.temperature, MaxTokens: f.maxTokens}
	if f.hasSeed {
		settings.Seed = &f.seed
	}

	engine := triage.NewEngine(provider, logging.Component(logger, "triage"))
	result, err := engine.Run(context.Background(), parsed, triage.Options{
		Lenses:           f.lenses,
		Profile:          f.profileName,
		MinSeverity:      triage.Severity(f.minSeverity),
		Settings:         settings,
		MaxIssuesPerLens: f.maxIssues,
	}, progressEmit(f.verbose, stderr))
	if err != nil {
		var re *triage.RunError
		if errors.As(err, &re) && re.Code == triage.CodeNoDiff {
			return exitError(3, "no changes to review")
		}
		return exitError(4, "review failed: %v", err)
	}

	var output string
	switch f.format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		output = string(data) + "\n"
	case "md":
		output = render.Markdown(result)
	default:
		return exitError(3, "unknown format: %s", f.format)
	}

	if f.out != "" {
		verbose("Writing output to %s", f.out)
		if err := os.WriteFile(f.out, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		fmt.Print(output)
	}

	if f.patchOut != "" {
		verbose("Writing patches to %s", f.patchOut)
		if err := patch.WriteFile(result.Issues, f.patchOut); err != nil {
			return fmt.Errorf("failed to write patches: %w", err)
		}
	}

	if f.failOn != "" {
		threshold := triage.Severity(f.failOn)
		if !threshold.Valid() {
			return exitError(3, "unknown severity: %s", f.failOn)
		}
		for _, iss := range result.Issues {
			if iss.Severity.Rank() <= threshold.Rank() {
				return exitError(2, "issue %q meets fail threshold %s", iss.Title, f.failOn)
			}
		}
	}

	return nil
}

// loadDiff reads the diff from --diff, stdin, or the git CLI.
func loadDiff(f *reviewFlags, verbose func(string, ...any)) (string, error) {
	switch f.diffPath {
	case "-":
		verbose("Reading diff from stdin")
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", exitError(3, "failed to read stdin: %v", err)
		}
		return string(data), nil
	case "":
		opts := gitdiff.Options{Mode: gitdiff.ModeUncommitted}
		if f.staged {
			opts.Mode = gitdiff.ModeStaged
		}
		if f.base != "" {
			opts = gitdiff.Options{Mode: gitdiff.ModeBranch, BaseBranch: f.base}
		}
		verbose("Retrieving %s from %s", opts.Describe(), f.dir)
		text, err := gitdiff.NewExecutor("").Diff(context.Background(), f.dir, opts)
		if err != nil {
			return "", exitError(3, "failed to get diff: %v", err)
		}
		return text, nil
	default:
		verbose("Reading diff from %s", f.diffPath)
		data, err := os.ReadFile(f.diffPath)
		if err != nil {
			return "", exitError(3, "failed to read diff: %v", err)
		}
		return string(data), nil
	}
}

// progressEmit renders run events as terse stderr lines when verbose is on.
func progressEmit(verbose bool, out *log.Logger) triage.EmitFunc {
	if !verbose {
		return nil
	}
	return func(ev triage.Event) {
		switch e := ev.(type) {
		case triage.OrchestratorStart:
			out.Printf("Running %d lenses: %v", e.Concurrency, e.Agents)
		case triage.AgentStart:
			out.Printf("[%s] started", e.Agent)
		case triage.IssueFound:
			out.Printf("[%s] %s: %s", e.Agent, e.Issue.Severity, e.Issue.Title)
		case triage.AgentComplete:
			out.Printf("[%s] done, %d issues", e.Agent, e.IssueCount)
		case triage.AgentError:
			out.Printf("[%s] failed: %s", e.Agent, e.Error)
		case triage.OrchestratorComplete:
			out.Printf("Done: %d issues across %d files", e.TotalIssues, e.FilesAnalyzed)
		}
	}
}
