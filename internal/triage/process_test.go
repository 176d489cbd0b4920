package triage

import (
	"reflect"
	"testing"

	"github.com/dshills/difftriage/internal/diff"
)

func TestDeduplicateKeepsMostSevere(t *testing.T) {
	issues := []Issue{
		{File: "a.ts", LineStart: 10, Title: "Null ref", Severity: SeverityLow},
		{File: "a.ts", LineStart: 10, Title: "Null ref", Severity: SeverityHigh},
	}
	out := Deduplicate(issues)
	if len(out) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(out))
	}
	if out[0].Severity != SeverityHigh {
		t.Errorf("severity = %s, want high", out[0].Severity)
	}
}

func TestDeduplicateTieKeepsFirst(t *testing.T) {
	issues := []Issue{
		{ID: "first", File: "a.go", LineStart: 3, Title: "Leak", Severity: SeverityMedium},
		{ID: "second", File: "a.go", LineStart: 3, Title: "Leak", Severity: SeverityMedium},
	}
	out := Deduplicate(issues)
	if len(out) != 1 || out[0].ID != "first" {
		t.Errorf("expected the first-seen issue to survive, got %+v", out)
	}
}

func TestDeduplicateKeyComponents(t *testing.T) {
	issues := []Issue{
		{File: "a.go", LineStart: 1, Title: "Bug"},
		{File: "b.go", LineStart: 1, Title: "Bug"},
		{File: "a.go", LineStart: 2, Title: "Bug"},
		{File: "a.go", LineStart: 1, Title: "BUG"}, // case-insensitive title match
	}
	out := Deduplicate(issues)
	if len(out) != 3 {
		t.Errorf("expected 3 distinct issues, got %d", len(out))
	}
}

func TestDeduplicateTitlePrefix(t *testing.T) {
	long := "This title is certainly much longer than fifty characters in total"
	issues := []Issue{
		{File: "a.go", LineStart: 1, Title: long + " variant one"},
		{File: "a.go", LineStart: 1, Title: long + " variant two"},
	}
	if out := Deduplicate(issues); len(out) != 1 {
		t.Errorf("titles sharing a 50-char prefix should collapse, got %d", len(out))
	}
}

func TestSortBySeverity(t *testing.T) {
	issues := []Issue{
		{ID: "1", Severity: SeverityNit, Confidence: 0.9},
		{ID: "2", Severity: SeverityBlocker, Confidence: 0.5},
		{ID: "3", Severity: SeverityHigh, Confidence: 0.5, File: "b.go"},
		{ID: "4", Severity: SeverityHigh, Confidence: 0.9},
		{ID: "5", Severity: SeverityHigh, Confidence: 0.5, File: "a.go"},
	}
	out := SortBySeverity(issues)

	want := []string{"2", "4", "5", "3", "1"}
	for i, id := range want {
		if out[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, out[i].ID, id)
		}
	}
	// Input untouched.
	if issues[0].ID != "1" {
		t.Error("SortBySeverity mutated its input")
	}
}

func TestSortBySeverityIdempotent(t *testing.T) {
	issues := []Issue{
		{ID: "a", Severity: SeverityLow, Confidence: 0.2},
		{ID: "b", Severity: SeverityBlocker, Confidence: 0.8},
		{ID: "c", Severity: SeverityLow, Confidence: 0.2},
	}
	once := SortBySeverity(issues)
	twice := SortBySeverity(once)
	if !reflect.DeepEqual(once, twice) {
		t.Error("sort is not idempotent")
	}
}

func TestFilterMinSeverity(t *testing.T) {
	issues := []Issue{
		{ID: "b", Severity: SeverityBlocker},
		{ID: "m", Severity: SeverityMedium},
		{ID: "n", Severity: SeverityNit},
	}

	if out := FilterMinSeverity(issues, ""); len(out) != 3 {
		t.Errorf("no filter should be identity, got %d", len(out))
	}
	if out := FilterMinSeverity(issues, SeverityBlocker); len(out) != 1 || out[0].ID != "b" {
		t.Errorf("blocker filter: got %+v", out)
	}
	if out := FilterMinSeverity(issues, SeverityNit); len(out) != 3 {
		t.Errorf("nit filter keeps everything, got %d", len(out))
	}
	if out := FilterMinSeverity(issues, SeverityMedium); len(out) != 2 {
		t.Errorf("medium filter: got %d", len(out))
	}
}

const evidenceDiff = `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 line1
+added
 line2
 line3
`

func TestEnsureEvidenceNoOp(t *testing.T) {
	parsed := diff.Parse(evidenceDiff)
	iss := &Issue{
		File:     "main.go",
		Evidence: []Evidence{{Type: EvidenceCode, Excerpt: "existing"}},
	}
	if got := EnsureEvidence(iss, parsed); got != iss {
		t.Error("issues with evidence must return the same reference")
	}
}

func TestEnsureEvidenceFromHunk(t *testing.T) {
	parsed := diff.Parse(evidenceDiff)
	iss := &Issue{File: "main.go", LineStart: 2, LineEnd: 2, Rationale: "why"}
	got := EnsureEvidence(iss, parsed)
	if len(got.Evidence) != 1 {
		t.Fatalf("expected 1 evidence entry, got %d", len(got.Evidence))
	}
	ev := got.Evidence[0]
	if ev.Type != EvidenceCode {
		t.Errorf("type = %s, want code", ev.Type)
	}
	if ev.Excerpt != "+added" {
		t.Errorf("excerpt = %q, want %q", ev.Excerpt, "+added")
	}
	if ev.Range == nil || ev.Range.Start != 2 {
		t.Errorf("range = %+v, want start 2", ev.Range)
	}
}

func TestEnsureEvidenceFallbacks(t *testing.T) {
	parsed := diff.Parse(evidenceDiff)
	tests := []struct {
		name string
		iss  Issue
	}{
		{"missing file", Issue{File: "other.go", LineStart: 2, Rationale: "r"}},
		{"no line anchor", Issue{File: "main.go", Rationale: "r"}},
		{"line outside hunks", Issue{File: "main.go", LineStart: 999, Rationale: "r"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnsureEvidence(&tt.iss, parsed)
			if len(got.Evidence) == 0 {
				t.Fatal("EnsureEvidence must never leave evidence empty")
			}
			if got.Evidence[0].Excerpt != "r" {
				t.Errorf("fallback excerpt should be the rationale, got %q", got.Evidence[0].Excerpt)
			}
		})
	}
}

func TestIsComplete(t *testing.T) {
	full := Issue{
		ID: "ISSUE-0001", Severity: SeverityHigh, Category: "nil-deref",
		Title: "t", File: "f.go", Rationale: "r", Recommendation: "rec",
		Symptom: "s", WhyItMatters: "w",
		Evidence: []Evidence{{Type: EvidenceCode, Excerpt: "e"}},
	}
	if !IsComplete(&full) {
		t.Error("fully populated issue should be complete")
	}

	missing := full
	missing.Symptom = ""
	if IsComplete(&missing) {
		t.Error("issue without symptom should be incomplete")
	}

	noEvidence := full
	noEvidence.Evidence = nil
	if IsComplete(&noEvidence) {
		t.Error("issue without evidence should be incomplete")
	}
}
