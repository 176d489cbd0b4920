package triage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/difftriage/internal/diff"
)

// dedupeKey groups issues that describe the same finding. Unanchored issues
// (LineStart == 0) collapse onto line 0.
func dedupeKey(iss *Issue) string {
	title := strings.ToLower(iss.Title)
	if len(title) > 50 {
		title = title[:50]
	}
	return fmt.Sprintf("%s:%d:%s", iss.File, iss.LineStart, title)
}

// Deduplicate removes issues sharing a (file, line, title-prefix) key. The
// survivor of each group is the most severe entry; ties keep the first seen.
func Deduplicate(issues []Issue) []Issue {
	index := make(map[string]int, len(issues))
	var out []Issue
	for _, iss := range issues {
		key := dedupeKey(&iss)
		if at, ok := index[key]; ok {
			if iss.Severity.Rank() < out[at].Severity.Rank() {
				out[at] = iss
			}
			continue
		}
		index[key] = len(out)
		out = append(out, iss)
	}
	return out
}

// SortBySeverity returns a new slice sorted by severity rank ascending, then
// confidence descending, then file name ascending. The sort is stable and
// the input is never mutated.
func SortBySeverity(issues []Issue) []Issue {
	out := make([]Issue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Severity.Rank(), out[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].File < out[j].File
	})
	return out
}

// FilterMinSeverity keeps issues at or above the given severity. An empty
// or invalid filter returns the input unchanged.
func FilterMinSeverity(issues []Issue, min Severity) []Issue {
	if min == "" || !min.Valid() {
		return issues
	}
	maxRank := min.Rank()
	out := make([]Issue, 0, len(issues))
	for _, iss := range issues {
		if iss.Severity.Rank() <= maxRank {
			out = append(out, iss)
		}
	}
	return out
}

// EnsureEvidence guarantees the issue carries at least one evidence entry.
// Issues that already have evidence are returned as the same pointer so
// callers can cheaply detect the no-op. Otherwise an excerpt is sliced from
// the hunk containing the issue's line, falling back to the rationale when
// no hunk matches.
func EnsureEvidence(iss *Issue, parsed *diff.ParsedDiff) *Issue {
	if len(iss.Evidence) > 0 {
		return iss
	}

	out := *iss
	fd := parsed.FindFile(iss.File)
	if fd == nil || iss.LineStart == 0 {
		out.Evidence = []Evidence{fallbackEvidence(&out)}
		return &out
	}

	for _, h := range fd.Hunks {
		if iss.LineStart < h.NewStart || iss.LineStart > h.NewStart+h.NewCount-1 {
			continue
		}
		lines := strings.Split(h.Content, "\n")
		// Skip the @@ header when indexing into the body.
		body := lines
		if len(body) > 0 && strings.HasPrefix(body[0], "@@") {
			body = body[1:]
		}
		start := iss.LineStart - h.NewStart
		end := iss.LineEnd - h.NewStart
		if end < start {
			end = start
		}
		if start < 0 {
			start = 0
		}
		if end >= len(body) {
			end = len(body) - 1
		}
		if start > end || start >= len(body) {
			break
		}
		out.Evidence = []Evidence{{
			Type:     EvidenceCode,
			Title:    fmt.Sprintf("%s:%d", iss.File, iss.LineStart),
			SourceID: iss.File,
			File:     iss.File,
			Range:    &LineRange{Start: iss.LineStart, End: iss.LineStart + (end - start)},
			Excerpt:  strings.Join(body[start:end+1], "\n"),
		}}
		return &out
	}

	out.Evidence = []Evidence{fallbackEvidence(&out)}
	return &out
}

func fallbackEvidence(iss *Issue) Evidence {
	return Evidence{
		Type:     EvidenceDoc,
		Title:    iss.Title,
		SourceID: iss.File,
		File:     iss.File,
		Excerpt:  iss.Rationale,
	}
}

// IsComplete reports whether an issue carries every field the pipeline
// requires before it may be surfaced.
func IsComplete(iss *Issue) bool {
	return iss.ID != "" &&
		iss.Severity != "" &&
		iss.Category != "" &&
		iss.Title != "" &&
		iss.File != "" &&
		iss.Rationale != "" &&
		iss.Recommendation != "" &&
		iss.Symptom != "" &&
		iss.WhyItMatters != "" &&
		len(iss.Evidence) > 0
}
