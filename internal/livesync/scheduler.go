// Package livesync turns a stream of editor cursor movements into a single
// "show slide N" request once the cursor has been quiet for a while.
package livesync

import (
	"sync"
	"time"

	"go-live-remark/internal/deck"
)

// DefaultDelay is the quiescence window used when none is configured.
const DefaultDelay = 400 * time.Millisecond

// Adapter is the preview side of a live session.
type Adapter interface {
	// Navigate asks the preview to show the 1-based slide.
	Navigate(slide int)
	// Reload asks the preview to reload the published artifact.
	Reload()
	// SessionActive reports whether a preview is attached.
	SessionActive() bool
}

// Timer is the part of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer that calls f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is the per-session sync state.
type State struct {
	// LastSynced is the cursor offset of the last fired sync, -1 before the
	// first one.
	LastSynced int

	pending    Timer
	generation uint64
	doc        deck.Document
	cursor     int
}

// Armed reports whether a sync is pending.
func (s *State) Armed() bool {
	return s.pending != nil
}

// Scheduler debounces cursor movements of one live session.
type Scheduler struct {
	mu        sync.Mutex
	adapter   Adapter
	delay     time.Duration
	afterFunc AfterFunc
	state     State
}

type Option func(*Scheduler)

// WithDelay sets the quiescence window.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.delay = d
		}
	}
}

// WithAfterFunc replaces the timer factory.
func WithAfterFunc(fn AfterFunc) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.afterFunc = fn
		}
	}
}

func NewScheduler(adapter Adapter, opts ...Option) *Scheduler {
	s := &Scheduler{
		adapter:   adapter,
		delay:     DefaultDelay,
		afterFunc: realAfterFunc,
		state:     State{LastSynced: -1},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Arm records the latest cursor snapshot and restarts the quiescence window.
// A pending sync is cancelled and replaced, never queued.
func (s *Scheduler) Arm(doc deck.Document, cursor int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.pending != nil {
		s.state.pending.Stop()
	}
	s.state.generation++
	s.state.doc = doc
	s.state.cursor = cursor

	gen := s.state.generation
	s.state.pending = s.afterFunc(s.delay, func() { s.fire(gen) })
}

// fire runs under the lock so a concurrent Arm only takes effect after it.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A replaced timer that could not be stopped in time.
	if gen != s.state.generation || s.state.pending == nil {
		return
	}
	s.state.pending = nil

	if s.state.cursor != s.state.LastSynced {
		s.adapter.Navigate(deck.SlideAt(s.state.doc, s.state.cursor))
	}
	s.state.LastSynced = s.state.cursor
}

// Stop cancels a pending sync and resets the state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.pending != nil {
		s.state.pending.Stop()
	}
	s.state = State{LastSynced: -1, generation: s.state.generation + 1}
}

// Armed reports whether a sync is pending.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Armed()
}

// LastSynced returns the cursor offset of the last fired sync.
func (s *Scheduler) LastSynced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LastSynced
}
