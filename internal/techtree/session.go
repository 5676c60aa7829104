package techtree

import (
	"fmt"
	"sync"
)

// Hooks observes transitions applied through a Session.
// Consumers can implement this for logging, metrics or pushing updates.
type Hooks interface {
	// OnLoad is called after a LoadScenario or Reset produced a fresh state.
	OnLoad(state *State)
	// OnUnlock is called after a technology was unlocked.
	OnUnlock(state *State, tech *Technology)
	// OnSample is called after a tick appended a history sample.
	OnSample(state *State, sample RateSample)
}

// NoOpHooks is a default implementation that does nothing.
type NoOpHooks struct{}

func (NoOpHooks) OnLoad(state *State)                      {}
func (NoOpHooks) OnUnlock(state *State, tech *Technology)  {}
func (NoOpHooks) OnSample(state *State, sample RateSample) {}

// Session owns the current state of one game. Every transition goes through
// Dispatch, which serializes calls to Reduce; the states it hands out are
// immutable and may be read without holding any lock.
type Session struct {
	mu    sync.Mutex
	state *State
	hooks Hooks
}

// NewSession creates a session with no scenario loaded.
func NewSession(hooks Hooks) *Session {
	if hooks == nil {
		hooks = NoOpHooks{}
	}
	return &Session{hooks: hooks}
}

// Dispatch applies an action and returns the resulting state.
// Hooks run after the new state is published, outside the session lock.
func (s *Session) Dispatch(a Action) *State {
	prev, next := s.apply(a)
	if next != prev {
		s.notify(prev, next, a)
	}
	return next
}

func (s *Session) apply(a Action) (prev, next *State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = s.state
	next = Reduce(prev, a)
	s.state = next
	return prev, next
}

func (s *Session) notify(prev, next *State, a Action) {
	switch act := a.(type) {
	case LoadScenario, Reset:
		s.hooks.OnLoad(next)
	case UnlockTech:
		if tech := next.graph.Lookup(act.ID); tech != nil {
			s.hooks.OnUnlock(next, tech)
		}
	case Tick:
		if n := len(next.rateHistory); n > len(prev.rateHistory) {
			s.hooks.OnSample(next, next.rateHistory[n-1])
		}
	}
}

// Loaded reports whether a scenario has been loaded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != nil
}

// State returns the current state. It panics with ErrNoScenario if no
// scenario has been loaded yet.
func (s *Session) State() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		panic(fmt.Errorf("%w: session state read before load", ErrNoScenario))
	}
	return s.state
}
