// Package session turns one triage run into a durable, multi-subscriber,
// cancellable live stream with replay.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/difftriage/internal/triage"
)

// Key identifies the review a session belongs to. At most one active
// session exists per key at a time.
type Key struct {
	ProjectPath string
	HeadCommit  string
	StatusHash  string
	Mode        string
}

// State is the session lifecycle position.
type State int

const (
	StatePending State = iota // created, engine not yet producing events
	StateReady                // engine started, events may arrive
	StateComplete             // terminal event recorded
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

var (
	ErrNotPending = errors.New("session: not in pending state")
	ErrNotReady   = errors.New("session: not in ready state")
)

// subscriberBuf bounds a live subscriber's channel. A subscriber that falls
// this far behind is detached rather than allowed to stall appends.
const subscriberBuf = 256

// Session owns the event buffer and subscriber set of one triage run. It is
// mutated only through its methods; the buffer is append-only for the
// session's lifetime.
type Session struct {
	ID        string
	Key       Key
	StartedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       State
	events      []triage.Event
	subs        map[int]chan triage.Event
	nextSub     int
	completedAt time.Time
}

func newSession(key Key) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:        uuid.NewString(),
		Key:       key,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[int]chan triage.Event),
	}
}

// Context is cancelled when the session is aborted. The engine run for this
// session must be driven off it.
func (s *Session) Context() context.Context { return s.ctx }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsComplete reports whether the terminal event has been recorded.
func (s *Session) IsComplete() bool { return s.State() == StateComplete }

// MarkReady transitions pending -> ready.
func (s *Session) MarkReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePending {
		return ErrNotPending
	}
	s.state = StateReady
	return nil
}

// AddEvent appends to the buffer and fans out to current subscribers. Valid
// only in the ready state. A subscriber whose channel is full is detached so
// one slow consumer cannot stall the run.
func (s *Session) AddEvent(ev triage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotReady
	}
	s.events = append(s.events, ev)
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			delete(s.subs, id)
			close(ch)
		}
	}
	return nil
}

// MarkComplete transitions ready -> complete and closes all live channels.
// Subscribers see their channel close after the final buffered event.
func (s *Session) MarkComplete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotReady
	}
	s.state = StateComplete
	s.completedAt = time.Now()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.cancel()
	return nil
}

// Abort cancels the in-flight run. It is a controlled exit: the run
// finishes without an error event.
func (s *Session) Abort() { s.cancel() }

// History returns a snapshot of the buffered events.
func (s *Session) History() []triage.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]triage.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Attach atomically snapshots the buffer and registers a live channel, so a
// subscriber neither misses nor duplicates an event across the replay/live
// boundary. It reports ok=false once the session is complete; the caller
// must treat that as a stale session.
func (s *Session) Attach() (history []triage.Event, live <-chan triage.Event, detach func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateComplete {
		return nil, nil, nil, false
	}

	history = make([]triage.Event, len(s.events))
	copy(history, s.events)

	ch := make(chan triage.Event, subscriberBuf)
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	detach = func() {
		s.mu.Lock()
		if existing, found := s.subs[id]; found {
			delete(s.subs, id)
			close(existing)
		}
		last := len(s.subs) == 0 && s.state != StateComplete
		s.mu.Unlock()
		// Dropping the last subscriber cancels the in-flight run.
		if last {
			s.cancel()
		}
	}
	return history, ch, detach, true
}

// SubscriberCount returns the number of live subscribers.
func (s *Session) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}
