// Package service drives one full review: diff retrieval, redaction,
// parsing, session lifecycle, the engine run, and persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/difftriage/internal/diff"
	"github.com/dshills/difftriage/internal/gitdiff"
	"github.com/dshills/difftriage/internal/llm"
	"github.com/dshills/difftriage/internal/redact"
	"github.com/dshills/difftriage/internal/session"
	"github.com/dshills/difftriage/internal/store"
	"github.com/dshills/difftriage/internal/triage"
)

// DefaultMaxStored bounds how many reviews the store retains.
const DefaultMaxStored = 100

// Service ties the session manager, the triage engine, and the review store
// together behind a start-or-attach API.
type Service struct {
	mgr       *session.Manager
	engine    *triage.Engine
	git       *gitdiff.Executor
	reviews   *store.Store
	log       zerolog.Logger
	maxStored int
}

// New creates a service. reviews may be nil to disable persistence.
func New(mgr *session.Manager, engine *triage.Engine, git *gitdiff.Executor, reviews *store.Store, log zerolog.Logger) *Service {
	return &Service{
		mgr:       mgr,
		engine:    engine,
		git:       git,
		reviews:   reviews,
		log:       log,
		maxStored: DefaultMaxStored,
	}
}

// StartRequest selects what to review and how.
type StartRequest struct {
	ProjectPath string
	Mode        gitdiff.Mode
	BaseBranch  string
	// DiffText bypasses git retrieval when non-empty. The session key then
	// derives from the text itself rather than repository state.
	DiffText string
	Options  triage.Options
}

// Start begins a review or attaches to the one already running for the same
// repository state. It returns the session and whether this call created it.
// The engine runs in the background; consumers follow it through the session.
func (s *Service) Start(ctx context.Context, req StartRequest) (*session.Session, bool, error) {
	text := req.DiffText
	key := session.Key{ProjectPath: req.ProjectPath, Mode: string(req.Mode)}

	if text == "" {
		var err error
		text, err = s.git.Diff(ctx, req.ProjectPath, gitdiff.Options{Mode: req.Mode, BaseBranch: req.BaseBranch})
		if err != nil {
			return nil, false, err
		}
		if key.HeadCommit, err = s.git.Head(ctx, req.ProjectPath); err != nil {
			return nil, false, err
		}
		if key.StatusHash, err = s.git.StatusHash(ctx, req.ProjectPath); err != nil {
			return nil, false, err
		}
	} else {
		key.StatusHash = diff.Hash(text)
	}

	clean, fired := redact.Apply(text)
	if len(fired) > 0 {
		s.log.Info().Strs("rules", fired).Msg("redacted secrets from diff")
	}

	parsed := diff.Parse(clean)
	if len(parsed.Files) == 0 {
		return nil, false, &triage.RunError{Code: triage.CodeNoDiff, Message: "no files changed"}
	}

	sess, created := s.mgr.Ensure(key)
	if !created {
		return sess, false, nil
	}

	if err := sess.MarkReady(); err != nil {
		return nil, false, err
	}
	go s.run(sess, parsed, req.Options)
	return sess, true, nil
}

// run executes the engine against a live session. It is the only writer of
// the session's events and terminal state.
func (s *Service) run(sess *session.Session, parsed *diff.ParsedDiff, opts triage.Options) {
	ctx := sess.Context()
	emit := func(ev triage.Event) { _ = sess.AddEvent(ev) }

	emit(triage.StepStart{Step: "analyze"})
	emit(triage.ReviewStarted{ReviewID: sess.ID, FilesTotal: len(parsed.Files)})

	result, err := s.engine.Run(ctx, parsed, opts, emit)
	switch {
	case errors.Is(err, context.Canceled):
		// Aborted runs end silently; there is nobody left to notify.
		_ = sess.MarkComplete()
		return
	case err != nil:
		s.log.Error().Str("session", sess.ID).Err(err).Msg("review failed")
		emit(triage.ErrorEvent{Error: errorInfo(err)})
		_ = sess.MarkComplete()
		return
	}

	emit(triage.StepComplete{Step: "analyze"})
	emit(triage.Complete{
		Result:     result,
		ReviewID:   sess.ID,
		DurationMs: time.Since(sess.StartedAt).Milliseconds(),
	})
	_ = sess.MarkComplete()

	s.persist(sess, opts, result)
}

func (s *Service) persist(sess *session.Session, opts triage.Options, result *triage.Result) {
	if s.reviews == nil {
		return
	}
	rec := store.Review{
		ID:          sess.ID,
		ProjectPath: sess.Key.ProjectPath,
		HeadCommit:  sess.Key.HeadCommit,
		StatusHash:  sess.Key.StatusHash,
		Mode:        sess.Key.Mode,
		Lenses:      opts.Lenses,
		StartedAt:   sess.StartedAt,
		Duration:    time.Since(sess.StartedAt),
		Result:      *result,
	}
	if err := s.reviews.Save(rec, s.maxStored); err != nil {
		s.log.Error().Str("session", sess.ID).Err(err).Msg("persist review")
	}
}

// errorInfo maps an engine failure onto the wire error payload.
func errorInfo(err error) triage.ErrorInfo {
	var re *triage.RunError
	if errors.As(err, &re) {
		return triage.ErrorInfo{Code: re.Code, Message: re.Message}
	}
	var pe *llm.Error
	if errors.As(err, &pe) {
		return triage.ErrorInfo{Code: string(pe.Code), Message: pe.Message}
	}
	return triage.ErrorInfo{Code: string(llm.CodeModelError), Message: fmt.Sprintf("%v", err)}
}
