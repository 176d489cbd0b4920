// Package stream translates session events into the wire protocol consumed
// by a client connection.
package stream

import (
	"context"
	"fmt"

	"github.com/dshills/difftriage/internal/session"
	"github.com/dshills/difftriage/internal/triage"
)

// CodeSessionStale is sent to a consumer that lost the race against session
// completion or eviction. It means "re-query", not "the review failed".
const CodeSessionStale = "SESSION_STALE"

// Sink is one client connection. Each call delivers a single
// {event, data} frame; implementations own framing and flushing.
type Sink interface {
	Send(event string, data any) error
}

// Serve streams a session to one sink. A complete session is replayed once;
// a live session is replayed then tailed until it finishes or ctx ends. A
// session that completes or vanishes between the existence check and the
// subscribe gets exactly one SESSION_STALE error frame.
func Serve(ctx context.Context, mgr *session.Manager, id string, sink Sink) error {
	s, ok := mgr.Get(id)
	if !ok {
		return sendStale(sink, id)
	}
	return serveSession(ctx, s, sink, s.IsComplete())
}

// serveSession runs the replay or live path based on what the caller saw at
// check time. The live path re-checks through Attach, which closes the race
// where the session finishes between the two calls.
func serveSession(ctx context.Context, s *session.Session, sink Sink, completeAtCheck bool) error {
	if completeAtCheck {
		for _, ev := range s.History() {
			if err := send(sink, ev); err != nil {
				return err
			}
		}
		return nil
	}

	history, live, detach, ok := s.Attach()
	if !ok {
		// Completed in the window between the caller's check and Attach.
		return sendStale(sink, s.ID)
	}
	defer detach()

	for _, ev := range history {
		if err := send(sink, ev); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, open := <-live:
			if !open {
				return nil
			}
			if err := send(sink, ev); err != nil {
				return err
			}
		}
	}
}

func sendStale(sink Sink, id string) error {
	return sink.Send("error", triage.ErrorEvent{Error: triage.ErrorInfo{
		Code:    CodeSessionStale,
		Message: fmt.Sprintf("session %s is no longer attachable", id),
	}})
}

// send maps an event onto its wire frame. The switch is deliberately
// exhaustive over the event union; an unknown variant is a programming
// error surfaced immediately.
func send(sink Sink, ev triage.Event) error {
	switch e := ev.(type) {
	case triage.StepStart,
		triage.StepComplete,
		triage.ReviewStarted,
		triage.AgentStart,
		triage.AgentThinking,
		triage.AgentProgress,
		triage.ToolCall,
		triage.ToolResult,
		triage.IssueFound,
		triage.AgentComplete,
		triage.AgentError,
		triage.OrchestratorStart,
		triage.OrchestratorComplete,
		triage.Complete,
		triage.ErrorEvent:
		return sink.Send(ev.Kind(), e)
	default:
		return fmt.Errorf("stream: unknown event variant %T", ev)
	}
}
