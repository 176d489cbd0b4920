package schema

import (
	"strings"
	"testing"

	"github.com/dshills/difftriage/internal/triage/types"
)

func validIssue() types.Issue {
	return types.Issue{
		ID:             "ISSUE-0001",
		Severity:       types.SeverityHigh,
		Category:       "nil-deref",
		Title:          "Possible nil dereference",
		File:           "main.go",
		LineStart:      4,
		LineEnd:        4,
		Rationale:      "the pointer may be nil",
		Recommendation: "check before use",
		Symptom:        "panic at runtime",
		WhyItMatters:   "crashes the process",
		Confidence:     0.9,
	}
}

func TestValidateOK(t *testing.T) {
	r := &Response{Summary: "fine", Issues: []types.Issue{validIssue()}}
	if errs := Validate(r); len(errs) != 0 {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidateEmptyIssuesOK(t *testing.T) {
	r := &Response{Summary: "clean change"}
	if errs := Validate(r); len(errs) != 0 {
		t.Errorf("a clean review is valid, got %v", errs)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Issue)
		path   string
	}{
		{"missing id", func(i *types.Issue) { i.ID = "" }, ".id"},
		{"bad severity", func(i *types.Issue) { i.Severity = "CRITICAL" }, ".severity"},
		{"missing category", func(i *types.Issue) { i.Category = "" }, ".category"},
		{"missing title", func(i *types.Issue) { i.Title = "" }, ".title"},
		{"missing file", func(i *types.Issue) { i.File = "" }, ".file"},
		{"missing rationale", func(i *types.Issue) { i.Rationale = "" }, ".rationale"},
		{"missing recommendation", func(i *types.Issue) { i.Recommendation = "" }, ".recommendation"},
		{"missing symptom", func(i *types.Issue) { i.Symptom = "" }, ".symptom"},
		{"missing why", func(i *types.Issue) { i.WhyItMatters = "" }, ".why_it_matters"},
		{"confidence too high", func(i *types.Issue) { i.Confidence = 1.5 }, ".confidence"},
		{"line_end before line_start", func(i *types.Issue) { i.LineEnd = i.LineStart - 2 }, ".line_end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iss := validIssue()
			tt.mutate(&iss)
			errs := Validate(&Response{Summary: "s", Issues: []types.Issue{iss}})
			if len(errs) == 0 {
				t.Fatal("expected a validation error")
			}
			found := false
			for _, e := range errs {
				if strings.HasSuffix(e.Path, tt.path) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error at %s, got %v", tt.path, errs)
			}
		})
	}
}

func TestValidateDuplicateIDs(t *testing.T) {
	a, b := validIssue(), validIssue()
	errs := Validate(&Response{Summary: "s", Issues: []types.Issue{a, b}})
	if len(errs) == 0 {
		t.Fatal("expected duplicate ID error")
	}
}

func TestValidateEvidence(t *testing.T) {
	iss := validIssue()
	iss.Evidence = []types.Evidence{{Type: "hearsay", Excerpt: ""}}
	errs := Validate(&Response{Summary: "s", Issues: []types.Issue{iss}})
	if len(errs) != 2 {
		t.Errorf("expected type and excerpt errors, got %v", errs)
	}
}

func TestValidateMissingSummary(t *testing.T) {
	errs := Validate(&Response{})
	if len(errs) != 1 || errs[0].Path != "summary" {
		t.Errorf("expected summary error, got %v", errs)
	}
}
