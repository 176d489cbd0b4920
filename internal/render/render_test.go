package render

import (
	"strings"
	"testing"

	"github.com/dshills/difftriage/internal/triage"
)

func sampleResult() *triage.Result {
	return &triage.Result{
		Summary: "[Correctness] off-by-one in pager. [Security] token logged.",
		Issues: []triage.Issue{
			{
				ID: "COR-1", Severity: triage.SeverityBlocker, Category: "logic",
				Title: "Off-by-one in pagination", File: "internal/api/list.go",
				LineStart: 42, LineEnd: 44, Confidence: 0.9,
				Rationale:      "Loop stops one short of the final page.",
				Recommendation: "Use <= when comparing against pageCount.",
				Symptom:        "Last page never returned.",
				WhyItMatters:   "Clients silently lose data.",
				Evidence: []triage.Evidence{
					{Type: triage.EvidenceCode, Title: "loop bound", SourceID: "internal/api/list.go",
						File: "internal/api/list.go", Range: &triage.LineRange{Start: 42, End: 44},
						Excerpt: "for i := 0; i < pageCount-1; i++ {"},
				},
			},
			{
				ID: "SEC-1", Severity: triage.SeverityMedium, Category: "secrets",
				Title: "Token written to log", File: "internal/auth/auth.go",
				Confidence:     0.7,
				Rationale:      "The bearer token is logged at debug level.",
				Recommendation: "Log a fingerprint instead.",
				Symptom:        "Credentials in log files.",
				WhyItMatters:   "Log access becomes credential access.",
				SuggestedPatch: "--- a/internal/auth/auth.go\n+++ b/internal/auth/auth.go\n@@ -10 +10 @@\n-log.Debug(token)\n+log.Debug(fingerprint(token))",
				Evidence: []triage.Evidence{
					{Type: triage.EvidenceDoc, Title: "rationale", SourceID: "SEC-1",
						Excerpt: "The bearer token is logged at debug level."},
				},
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleResult())

	checks := []string{
		"# Diff Triage",
		"[Correctness] off-by-one in pager.",
		"**Issues:** 1 blocker, 1 medium",
		"## Blockers",
		"Off-by-one in pagination",
		"`internal/api/list.go` L42-44",
		"> for i := 0; i < pageCount-1; i++ {",
		"## Medium",
		"Token written to log",
		"**Why it matters:** Log access becomes credential access.",
		"```diff",
		"+log.Debug(fingerprint(token))",
	}
	for _, want := range checks {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	// Unanchored issue shows no line span.
	if strings.Contains(md, "`internal/auth/auth.go` L") {
		t.Error("unanchored issue must not render a line span")
	}
}

func TestMarkdownEmpty(t *testing.T) {
	md := Markdown(&triage.Result{Summary: "[Correctness] looks fine"})
	if !strings.Contains(md, "No issues found") {
		t.Error("expected 'No issues found' for empty result")
	}
	if !strings.Contains(md, "**Issues:** none") {
		t.Error("expected empty count line")
	}
}
