// Package gitdiff retrieves diffs and repository identity from the git CLI.
package gitdiff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"
)

// Mode selects which changes a diff covers.
type Mode string

const (
	// ModeUncommitted covers working tree plus staged changes.
	ModeUncommitted Mode = "uncommitted"
	// ModeStaged covers only staged changes.
	ModeStaged Mode = "staged"
	// ModeBranch covers changes between a base branch and HEAD.
	ModeBranch Mode = "branch"
)

// Options specifies which diff to retrieve.
type Options struct {
	Mode       Mode
	BaseBranch string // required for ModeBranch
}

// Describe returns a human-readable description of the diff selection.
func (o Options) Describe() string {
	switch o.Mode {
	case ModeUncommitted:
		return "uncommitted changes"
	case ModeStaged:
		return "staged changes"
	case ModeBranch:
		return fmt.Sprintf("changes vs %s", o.BaseBranch)
	default:
		return "unknown"
	}
}

// Executor runs git commands in a repository directory.
type Executor struct {
	gitPath string
}

// NewExecutor creates an executor using the given git binary path. An empty
// path falls back to "git" on PATH.
func NewExecutor(gitPath string) *Executor {
	if gitPath == "" {
		gitPath = "git"
	}
	return &Executor{gitPath: gitPath}
}

func (e *Executor) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, e.gitPath, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("git %s: %s", args[0], strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return string(out), nil
}

// Diff retrieves a unified diff for the selected mode.
func (e *Executor) Diff(ctx context.Context, dir string, opts Options) (string, error) {
	var args []string
	switch opts.Mode {
	case ModeUncommitted:
		args = []string{"diff", "HEAD"}
	case ModeStaged:
		args = []string{"diff", "--staged"}
	case ModeBranch:
		if opts.BaseBranch == "" {
			return "", fmt.Errorf("base branch required for branch mode")
		}
		// Three-dot notation compares against the merge base.
		args = []string{"diff", opts.BaseBranch + "...HEAD"}
	default:
		return "", fmt.Errorf("unknown diff mode %q", opts.Mode)
	}
	return e.run(ctx, dir, args...)
}

// Head returns the full commit SHA of HEAD.
func (e *Executor) Head(ctx context.Context, dir string) (string, error) {
	out, err := e.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StatusHash returns a digest of the working tree state. Two invocations in
// the same repository agree exactly when no tracked file changed.
func (e *Executor) StatusHash(ctx context.Context, dir string) (string, error) {
	out, err := e.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(out))
	return hex.EncodeToString(sum[:]), nil
}

// Root resolves the repository top-level directory for dir.
func (e *Executor) Root(ctx context.Context, dir string) (string, error) {
	out, err := e.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
