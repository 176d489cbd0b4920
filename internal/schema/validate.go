// Package schema validates lens responses against the triage output schema.
package schema

import (
	"fmt"

	"github.com/dshills/difftriage/internal/triage/types"
)

// Response is the JSON shape a lens must return.
type Response struct {
	Summary string         `json:"summary"`
	Issues  []types.Issue `json:"issues"`
}

// ValidationError describes a single schema violation.
type ValidationError struct {
	Path    string
	Message string
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a lens response for structural validity. Evidence may be
// empty here; the triage pipeline backfills it from the diff.
func Validate(r *Response) []ValidationError {
	var errs []ValidationError

	if r.Summary == "" {
		errs = append(errs, ValidationError{"summary", "required"})
	}

	issueIDs := make(map[string]bool)
	for i, iss := range r.Issues {
		prefix := fmt.Sprintf("issues[%d]", i)
		if iss.ID == "" {
			errs = append(errs, ValidationError{prefix + ".id", "required"})
		} else if issueIDs[iss.ID] {
			errs = append(errs, ValidationError{prefix + ".id", fmt.Sprintf("duplicate ID: %q", iss.ID)})
		} else {
			issueIDs[iss.ID] = true
		}
		if !iss.Severity.Valid() {
			errs = append(errs, ValidationError{prefix + ".severity", fmt.Sprintf("invalid: %q", iss.Severity)})
		}
		if iss.Category == "" {
			errs = append(errs, ValidationError{prefix + ".category", "required"})
		}
		if iss.Title == "" {
			errs = append(errs, ValidationError{prefix + ".title", "required"})
		}
		if iss.File == "" {
			errs = append(errs, ValidationError{prefix + ".file", "required"})
		}
		if iss.LineStart < 0 {
			errs = append(errs, ValidationError{prefix + ".line_start", "must be >= 0"})
		}
		if iss.LineEnd < iss.LineStart {
			errs = append(errs, ValidationError{prefix + ".line_end", "must be >= line_start"})
		}
		if iss.Rationale == "" {
			errs = append(errs, ValidationError{prefix + ".rationale", "required"})
		}
		if iss.Recommendation == "" {
			errs = append(errs, ValidationError{prefix + ".recommendation", "required"})
		}
		if iss.Symptom == "" {
			errs = append(errs, ValidationError{prefix + ".symptom", "required"})
		}
		if iss.WhyItMatters == "" {
			errs = append(errs, ValidationError{prefix + ".why_it_matters", "required"})
		}
		if iss.Confidence < 0 || iss.Confidence > 1 {
			errs = append(errs, ValidationError{prefix + ".confidence", fmt.Sprintf("must be in [0,1], got %v", iss.Confidence)})
		}
		for j, ev := range iss.Evidence {
			errs = append(errs, validateEvidence(fmt.Sprintf("%s.evidence[%d]", prefix, j), ev)...)
		}
	}

	return errs
}

func validateEvidence(prefix string, ev types.Evidence) []ValidationError {
	var errs []ValidationError
	if !ev.Type.Valid() {
		errs = append(errs, ValidationError{prefix + ".type", fmt.Sprintf("invalid: %q", ev.Type)})
	}
	if ev.Excerpt == "" {
		errs = append(errs, ValidationError{prefix + ".excerpt", "required"})
	}
	if ev.Range != nil && ev.Range.End < ev.Range.Start {
		errs = append(errs, ValidationError{prefix + ".range", "end must be >= start"})
	}
	return errs
}
