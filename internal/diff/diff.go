// Package diff parses raw unified diff text into a structured model.
package diff

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Operation classifies what a file diff does to its file.
type Operation string

const (
	OpAdd    Operation = "add"
	OpDelete Operation = "delete"
	OpModify Operation = "modify"
	OpRename Operation = "rename"
)

// Stats accumulates line and byte counts.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	SizeBytes int `json:"size_bytes"`
}

// TotalStats summarizes a whole parsed diff.
type TotalStats struct {
	FilesChanged   int `json:"files_changed"`
	Additions      int `json:"additions"`
	Deletions      int `json:"deletions"`
	TotalSizeBytes int `json:"total_size_bytes"`
}

// Hunk is one @@-delimited change region. Content retains the header line
// plus body so evidence excerpts can be sliced from it later.
type Hunk struct {
	OldStart int    `json:"old_start"`
	OldCount int    `json:"old_count"`
	NewStart int    `json:"new_start"`
	NewCount int    `json:"new_count"`
	Content  string `json:"content"`
}

// FileDiff is the parsed diff for a single file.
type FileDiff struct {
	FilePath     string    `json:"file_path"`
	PreviousPath string    `json:"previous_path,omitempty"`
	Operation    Operation `json:"operation"`
	Hunks        []Hunk    `json:"hunks"`
	RawDiff      string    `json:"raw_diff"`
	Stats        Stats     `json:"stats"`
}

// ParsedDiff is the structured form of one raw diff. Immutable once produced.
type ParsedDiff struct {
	Files      []FileDiff `json:"files"`
	TotalStats TotalStats `json:"total_stats"`
}

var (
	headerPattern = regexp.MustCompile(`^diff --git a/(.+?) b/(.+)$`)
	hunkPattern   = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

// Parse turns raw unified diff text into a ParsedDiff. It never fails:
// unparsable input yields an empty file list.
func Parse(text string) *ParsedDiff {
	parsed := &ParsedDiff{}
	if strings.TrimSpace(text) == "" {
		return parsed
	}

	for _, segment := range splitSegments(text) {
		fd := parseFile(segment)
		if fd == nil {
			continue
		}
		parsed.Files = append(parsed.Files, *fd)
		parsed.TotalStats.Additions += fd.Stats.Additions
		parsed.TotalStats.Deletions += fd.Stats.Deletions
		parsed.TotalStats.TotalSizeBytes += fd.Stats.SizeBytes
	}
	parsed.TotalStats.FilesChanged = len(parsed.Files)
	return parsed
}

// splitSegments cuts the raw text into per-file segments at "diff --git"
// boundaries. Leading text before the first boundary is discarded.
func splitSegments(text string) []string {
	lines := strings.Split(text, "\n")
	var segments []string
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") {
			if start >= 0 {
				segments = append(segments, strings.Join(lines[start:i], "\n"))
			}
			start = i
		}
	}
	if start >= 0 {
		segments = append(segments, strings.Join(lines[start:], "\n"))
	}
	return segments
}

func parseFile(segment string) *FileDiff {
	lines := strings.Split(segment, "\n")
	m := headerPattern.FindStringSubmatch(lines[0])
	if m == nil {
		return nil
	}

	fd := &FileDiff{
		FilePath:  m[2],
		Operation: OpModify,
		RawDiff:   segment,
	}
	fd.Stats.SizeBytes = len(segment)

	var renameFrom, renameTo string
	for _, line := range lines[1:] {
		// Metadata only appears before the first hunk header.
		if hunkPattern.MatchString(line) {
			break
		}
		switch {
		case strings.HasPrefix(line, "rename from "):
			renameFrom = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			renameTo = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "--- "):
			if strings.TrimPrefix(line, "--- ") == "/dev/null" {
				fd.Operation = OpAdd
			}
		case strings.HasPrefix(line, "+++ "):
			if strings.TrimPrefix(line, "+++ ") == "/dev/null" {
				fd.Operation = OpDelete
			}
		}
	}
	if renameFrom != "" && renameTo != "" {
		fd.Operation = OpRename
		fd.PreviousPath = renameFrom
		fd.FilePath = renameTo
	}

	fd.Hunks = parseHunks(lines, &fd.Stats)
	return fd
}

func parseHunks(lines []string, stats *Stats) []Hunk {
	var hunks []Hunk
	var current *Hunk
	var body []string

	flush := func() {
		if current != nil {
			current.Content = strings.Join(body, "\n")
			hunks = append(hunks, *current)
			current = nil
		}
	}

	for _, line := range lines {
		if m := hunkPattern.FindStringSubmatch(line); m != nil {
			flush()
			current = &Hunk{
				OldStart: atoi(m[1]),
				OldCount: atoiDefault(m[2], 1),
				NewStart: atoi(m[3]),
				NewCount: atoiDefault(m[4], 1),
			}
			body = []string{line}
			continue
		}
		if current == nil {
			continue
		}
		body = append(body, line)
		// Classify by first character; "\ No newline at end of file" is ignored.
		if strings.HasPrefix(line, "+") {
			stats.Additions++
		} else if strings.HasPrefix(line, "-") {
			stats.Deletions++
		}
	}
	flush()
	return hunks
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return atoi(s)
}

// Hash computes the SHA-256 identity of raw diff text, used as part of the
// session key so a changed working tree never matches a stale session.
func Hash(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("sha256:%x", h)
}

// FindFile returns the FileDiff whose path matches, or nil.
func (p *ParsedDiff) FindFile(path string) *FileDiff {
	for i := range p.Files {
		if p.Files[i].FilePath == path {
			return &p.Files[i]
		}
	}
	return nil
}
