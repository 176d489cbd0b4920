// Package patch collects suggested patches from issues into one diff file.
package patch

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/difftriage/internal/triage"
)

// WriteFile writes every suggested patch among issues to outPath, in issue
// order. If no issue carries a patch, no file is created.
func WriteFile(issues []triage.Issue, outPath string) error {
	var b strings.Builder
	for _, iss := range issues {
		if iss.SuggestedPatch == "" {
			continue
		}
		b.WriteString(iss.SuggestedPatch)
		if !strings.HasSuffix(iss.SuggestedPatch, "\n") {
			b.WriteString("\n")
		}
	}
	if b.Len() == 0 {
		return nil
	}

	if err := os.WriteFile(outPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("patch.WriteFile: %w", err)
	}
	return nil
}
