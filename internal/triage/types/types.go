// Package types holds the issue data types shared between the triage
// engine and the schema validator, keeping the two free of import cycles.
package types

// Severity ranks an issue from blocker (worst) to nit.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityHigh    Severity = "high"
	SeverityMedium  Severity = "medium"
	SeverityLow     Severity = "low"
	SeverityNit     Severity = "nit"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityBlocker, SeverityHigh, SeverityMedium, SeverityLow, SeverityNit:
		return true
	}
	return false
}

// Rank returns a sort key, lower is more severe. Unknown severities sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityBlocker:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityNit:
		return 4
	default:
		return 5
	}
}

// EvidenceType classifies where an evidence excerpt came from.
type EvidenceType string

const (
	EvidenceCode     EvidenceType = "code"
	EvidenceDoc      EvidenceType = "doc"
	EvidenceTrace    EvidenceType = "trace"
	EvidenceExternal EvidenceType = "external"
)

func (e EvidenceType) Valid() bool {
	switch e {
	case EvidenceCode, EvidenceDoc, EvidenceTrace, EvidenceExternal:
		return true
	}
	return false
}

// LineRange is an inclusive line span in the new version of a file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Evidence is a concrete excerpt substantiating an issue.
type Evidence struct {
	Type     EvidenceType `json:"type"`
	Title    string       `json:"title"`
	SourceID string       `json:"source_id"`
	File     string       `json:"file,omitempty"`
	Range    *LineRange   `json:"range,omitempty"`
	Excerpt  string       `json:"excerpt"`
}

// Issue is one finding reported by a lens. LineStart/LineEnd are zero when
// the issue is not anchored to a specific line.
type Issue struct {
	ID             string     `json:"id"`
	Severity       Severity   `json:"severity"`
	Category       string     `json:"category"`
	Title          string     `json:"title"`
	File           string     `json:"file"`
	LineStart      int        `json:"line_start"`
	LineEnd        int        `json:"line_end"`
	Rationale      string     `json:"rationale"`
	Recommendation string     `json:"recommendation"`
	SuggestedPatch string     `json:"suggested_patch,omitempty"`
	Confidence     float64    `json:"confidence"`
	Symptom        string     `json:"symptom"`
	WhyItMatters   string     `json:"why_it_matters"`
	Evidence       []Evidence `json:"evidence"`
}
