package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dshills/difftriage/internal/diff"
	"github.com/dshills/difftriage/internal/lens"
	"github.com/dshills/difftriage/internal/llm"
	"github.com/dshills/difftriage/internal/prompt"
	"github.com/dshills/difftriage/internal/schema"
)

// CodeNoDiff marks a run rejected because nothing changed.
const CodeNoDiff = "NO_DIFF"

// RunError is a coded engine failure.
type RunError struct {
	Code    string
	Message string
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RunError) Unwrap() error { return e.Err }

// Options selects the lenses and filters for one run.
type Options struct {
	Lenses           []string
	Profile          string
	MinSeverity      Severity
	Settings         llm.Settings
	MaxIssuesPerLens int
}

// Engine fans a parsed diff out to lenses and merges their findings.
type Engine struct {
	provider llm.Provider
	log      zerolog.Logger
}

// NewEngine creates a triage engine over the given provider.
func NewEngine(provider llm.Provider, log zerolog.Logger) *Engine {
	return &Engine{provider: provider, log: log}
}

// lensOutcome is the tagged result of one lens task. Tasks never panic the
// join: failures travel in err so aggregation stays uniform.
type lensOutcome struct {
	lensID  string
	name    string
	summary string
	issues  []Issue
	err     error
}

// Run analyzes the diff with every configured lens concurrently. A single
// lens failure does not fail the run unless no lens produced any issue.
func (e *Engine) Run(ctx context.Context, parsed *diff.ParsedDiff, opts Options, emit EmitFunc) (*Result, error) {
	if len(parsed.Files) == 0 {
		return nil, &RunError{Code: CodeNoDiff, Message: "no files changed"}
	}

	lenses, minSeverity, err := resolveLenses(opts)
	if err != nil {
		return nil, err
	}

	// Events can arrive from any lens goroutine; serialize delivery so the
	// session buffer sees a consistent append order.
	var emitMu sync.Mutex
	safeEmit := func(ev Event) {
		if emit == nil {
			return
		}
		emitMu.Lock()
		defer emitMu.Unlock()
		emit(ev)
	}

	ids := make([]string, len(lenses))
	for i, l := range lenses {
		ids[i] = l.ID
	}
	safeEmit(OrchestratorStart{Agents: ids, Concurrency: len(lenses)})

	outcomes := make([]lensOutcome, len(lenses))
	var wg sync.WaitGroup
	for i, l := range lenses {
		wg.Add(1)
		go func(i int, l *lens.Lens) {
			defer wg.Done()
			outcomes[i] = e.runLens(ctx, l, parsed, opts, safeEmit)
		}(i, l)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Abort is a controlled exit, never an error event.
		return nil, ctx.Err()
	}

	var all []Issue
	var summaries []string
	var lastErr error
	stats := make([]LensStat, 0, len(outcomes))
	for _, out := range outcomes {
		if out.err != nil {
			e.log.Warn().Str("lens", out.lensID).Err(out.err).Msg("lens failed")
			lastErr = out.err
			stats = append(stats, LensStat{LensID: out.lensID, IssueCount: 0, Status: LensFailed})
			continue
		}
		all = append(all, out.issues...)
		summaries = append(summaries, fmt.Sprintf("[%s] %s", out.name, out.summary))
		stats = append(stats, LensStat{LensID: out.lensID, IssueCount: len(out.issues), Status: LensSuccess})
	}

	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}

	// Pipeline order is fixed: dedupe, filter, drop incomplete, sort.
	issues := Deduplicate(all)
	issues = FilterMinSeverity(issues, minSeverity)
	issues = dropIncomplete(issues)
	issues = SortBySeverity(issues)

	result := &Result{
		Summary: strings.Join(summaries, "\n"),
		Issues:  issues,
	}

	safeEmit(OrchestratorComplete{
		Summary:       result.Summary,
		TotalIssues:   len(issues),
		LensStats:     stats,
		FilesAnalyzed: len(parsed.Files),
	})

	return result, nil
}

func resolveLenses(opts Options) ([]*lens.Lens, Severity, error) {
	ids := opts.Lenses
	minSeverity := opts.MinSeverity

	if len(ids) == 0 && opts.Profile != "" {
		p, err := lens.LoadProfile(opts.Profile)
		if err != nil {
			return nil, "", err
		}
		ids = p.Lenses
		if minSeverity == "" {
			minSeverity = Severity(p.MinSeverity)
		}
	}
	if len(ids) == 0 {
		ids = []string{lens.DefaultLens}
	}

	lenses, err := lens.LoadAll(ids)
	if err != nil {
		return nil, "", err
	}
	return lenses, minSeverity, nil
}

func (e *Engine) runLens(ctx context.Context, l *lens.Lens, parsed *diff.ParsedDiff, opts Options, emit EmitFunc) lensOutcome {
	out := lensOutcome{lensID: l.ID, name: l.Name}

	emit(AgentStart{Agent: l.ID})
	emit(AgentThinking{
		Agent:   l.ID,
		Thought: fmt.Sprintf("Analyzing %d changed files through the %s lens", len(parsed.Files), l.Name),
	})

	// Informational only; file reads are part of the prompt, not retried.
	for _, f := range parsed.Files {
		emit(ToolCall{Agent: l.ID, Tool: "read_diff", Input: f.FilePath})
		emit(ToolResult{
			Agent:   l.ID,
			Tool:    "read_diff",
			Summary: fmt.Sprintf("%s: +%d/-%d", f.FilePath, f.Stats.Additions, f.Stats.Deletions),
		})
	}

	resp, err := e.generate(ctx, l, parsed, opts)
	if err != nil {
		emit(AgentError{Agent: l.ID, Error: err.Error()})
		out.err = err
		return out
	}

	maxIssues := opts.MaxIssuesPerLens
	if maxIssues <= 0 {
		maxIssues = prompt.DefaultMaxIssues
	}
	if len(resp.Issues) > maxIssues {
		resp.Issues = resp.Issues[:maxIssues]
	}

	for i := range resp.Issues {
		resp.Issues[i] = *EnsureEvidence(&resp.Issues[i], parsed)
		emit(IssueFound{Agent: l.ID, Issue: resp.Issues[i]})
	}
	emit(AgentComplete{Agent: l.ID, IssueCount: len(resp.Issues)})

	out.summary = resp.Summary
	out.issues = resp.Issues
	return out
}

// generate calls the provider and validates the reply, allowing exactly one
// repair round-trip for malformed output.
func (e *Engine) generate(ctx context.Context, l *lens.Lens, parsed *diff.ParsedDiff, opts Options) (*schema.Response, error) {
	promptText := prompt.Build(prompt.BuildOpts{
		Lens:      l,
		Diff:      parsed,
		MaxIssues: opts.MaxIssuesPerLens,
	})

	raw, err := e.provider.Generate(ctx, promptText, opts.Settings)
	if err != nil {
		return nil, err
	}

	resp, verrs := parseResponse(raw)
	if len(verrs) == 0 {
		return resp, nil
	}

	e.log.Debug().Str("lens", l.ID).Int("errors", len(verrs)).Msg("lens response invalid, attempting repair")
	repaired, err := e.provider.Generate(ctx, prompt.BuildRepair(raw, verrs), opts.Settings)
	if err != nil {
		return nil, err
	}

	resp, verrs = parseResponse(repaired)
	if len(verrs) > 0 {
		return nil, &llm.Error{
			Code:     llm.CodeModelError,
			Provider: e.provider.Name(),
			Message:  fmt.Sprintf("lens %s output failed validation after repair: %v", l.ID, verrs[0]),
		}
	}
	return resp, nil
}

func parseResponse(raw string) (*schema.Response, []schema.ValidationError) {
	var resp schema.Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, []schema.ValidationError{{Path: "$", Message: fmt.Sprintf("not valid JSON: %v", err)}}
	}
	verrs := schema.Validate(&resp)
	if len(verrs) > 0 {
		return nil, verrs
	}
	return &resp, nil
}

func dropIncomplete(issues []Issue) []Issue {
	out := make([]Issue, 0, len(issues))
	for i := range issues {
		if IsComplete(&issues[i]) {
			out = append(out, issues[i])
		}
	}
	return out
}
