// Package render produces Markdown output from a triage result.
package render

import (
	"fmt"
	"strings"

	"github.com/dshills/difftriage/internal/triage"
)

var sections = []struct {
	severity triage.Severity
	heading  string
}{
	{triage.SeverityBlocker, "Blockers"},
	{triage.SeverityHigh, "High"},
	{triage.SeverityMedium, "Medium"},
	{triage.SeverityLow, "Low"},
	{triage.SeverityNit, "Nits"},
}

// Markdown renders a triage result as a Markdown report, grouped by severity.
func Markdown(r *triage.Result) string {
	var b strings.Builder

	b.WriteString("# Diff Triage\n\n")
	fmt.Fprintf(&b, "%s\n\n", r.Summary)
	fmt.Fprintf(&b, "**Issues:** %s\n\n", countLine(r.Issues))

	if len(r.Issues) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	for _, sec := range sections {
		group := filterIssues(r.Issues, sec.severity)
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sec.heading)
		for _, iss := range group {
			renderIssue(&b, iss)
		}
	}

	return b.String()
}

func countLine(issues []triage.Issue) string {
	counts := map[triage.Severity]int{}
	for _, iss := range issues {
		counts[iss.Severity]++
	}
	parts := make([]string, 0, len(sections))
	for _, sec := range sections {
		if n := counts[sec.severity]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, sec.severity))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func filterIssues(issues []triage.Issue, sev triage.Severity) []triage.Issue {
	var result []triage.Issue
	for _, iss := range issues {
		if iss.Severity == sev {
			result = append(result, iss)
		}
	}
	return result
}

func renderIssue(b *strings.Builder, iss triage.Issue) {
	fmt.Fprintf(b, "### %s [%s]\n\n", iss.Title, iss.Category)
	fmt.Fprintf(b, "`%s`", iss.File)
	if iss.LineStart > 0 {
		fmt.Fprintf(b, " L%d", iss.LineStart)
		if iss.LineEnd > iss.LineStart {
			fmt.Fprintf(b, "-%d", iss.LineEnd)
		}
	}
	fmt.Fprintf(b, " (confidence %.2f)\n\n", iss.Confidence)

	fmt.Fprintf(b, "%s\n\n", iss.Rationale)
	for _, ev := range iss.Evidence {
		for _, line := range strings.Split(strings.TrimRight(ev.Excerpt, "\n"), "\n") {
			fmt.Fprintf(b, "> %s\n", line)
		}
		if ev.Range != nil {
			fmt.Fprintf(b, "> (L%d-%d)\n", ev.Range.Start, ev.Range.End)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(b, "**Symptom:** %s\n\n", iss.Symptom)
	fmt.Fprintf(b, "**Why it matters:** %s\n\n", iss.WhyItMatters)
	fmt.Fprintf(b, "**Recommendation:** %s\n\n", iss.Recommendation)

	if iss.SuggestedPatch != "" {
		b.WriteString("```diff\n")
		b.WriteString(strings.TrimRight(iss.SuggestedPatch, "\n"))
		b.WriteString("\n```\n\n")
	}
}
