// Package triage runs analysis lenses over a parsed diff and merges their
// findings into one ranked issue list.
package triage

import "github.com/dshills/difftriage/internal/triage/types"

// The issue data types live in the leaf package types so that schema can
// validate them without importing this package; aliases keep the triage API
// unchanged.

// Severity ranks an issue from blocker (worst) to nit.
type Severity = types.Severity

const (
	SeverityBlocker = types.SeverityBlocker
	SeverityHigh    = types.SeverityHigh
	SeverityMedium  = types.SeverityMedium
	SeverityLow     = types.SeverityLow
	SeverityNit     = types.SeverityNit
)

// EvidenceType classifies where an evidence excerpt came from.
type EvidenceType = types.EvidenceType

const (
	EvidenceCode     = types.EvidenceCode
	EvidenceDoc      = types.EvidenceDoc
	EvidenceTrace    = types.EvidenceTrace
	EvidenceExternal = types.EvidenceExternal
)

// LineRange is an inclusive line span in the new version of a file.
type LineRange = types.LineRange

// Evidence is a concrete excerpt substantiating an issue.
type Evidence = types.Evidence

// Issue is one finding reported by a lens. LineStart/LineEnd are zero when
// the issue is not anchored to a specific line.
type Issue = types.Issue

// LensStatus reports how one lens run ended.
type LensStatus string

const (
	LensSuccess LensStatus = "success"
	LensFailed  LensStatus = "failed"
)

// LensStat is the per-lens outcome included in the terminal event.
type LensStat struct {
	LensID     string     `json:"lens_id"`
	IssueCount int        `json:"issue_count"`
	Status     LensStatus `json:"status"`
}

// Result is the terminal payload of one triage run.
type Result struct {
	Summary string  `json:"summary"`
	Issues  []Issue `json:"issues"`
}
