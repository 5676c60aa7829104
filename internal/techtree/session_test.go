package techtree

import (
	"errors"
	"sync"
	"testing"
)

type recordingHooks struct {
	mu      sync.Mutex
	loads   int
	unlocks []TechID
	samples []RateSample
}

func (h *recordingHooks) OnLoad(state *State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loads++
}

func (h *recordingHooks) OnUnlock(state *State, tech *Technology) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unlocks = append(h.unlocks, tech.ID)
}

func (h *recordingHooks) OnSample(state *State, sample RateSample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, sample)
}

// TestSessionHooks tests that hooks fire only on effective transitions
func TestSessionHooks(t *testing.T) {
	hooks := &recordingHooks{}
	sess := NewSession(hooks)
	if sess.Loaded() {
		t.Fatal("New session should have no scenario")
	}

	sess.Dispatch(LoadScenario{Scenario: singleTechScenario()})
	sess.Dispatch(UnlockTech{ID: "a"}) // unaffordable
	sess.Dispatch(Tick{DeltaMs: 600})
	sess.Dispatch(Tick{DeltaMs: 600})
	sess.Dispatch(Tick{DeltaMs: 5000})
	sess.Dispatch(UnlockTech{ID: "a"})
	sess.Dispatch(UnlockTech{ID: "a"}) // already unlocked
	sess.Dispatch(Reset{})

	if hooks.loads != 2 {
		t.Errorf("Expected 2 loads (load + reset), got %d", hooks.loads)
	}
	if len(hooks.unlocks) != 1 || hooks.unlocks[0] != "a" {
		t.Errorf("Expected one unlock of a, got %v", hooks.unlocks)
	}
	if len(hooks.samples) != 2 {
		t.Errorf("Expected 2 samples, got %d", len(hooks.samples))
	}
	if got := sess.State().ResearchPoints(); got != 0 {
		t.Errorf("Expected reset points 0, got %f", got)
	}
}

// TestSessionStatePanicsBeforeLoad tests misuse of an empty session
func TestSessionStatePanicsBeforeLoad(t *testing.T) {
	sess := NewSession(nil)
	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, ErrNoScenario) {
			t.Errorf("Expected ErrNoScenario panic, got %v", err)
		}
	}()
	sess.State()
}

// TestSessionConcurrentDispatch tests that concurrent ticks lose no accrual
func TestSessionConcurrentDispatch(t *testing.T) {
	sess := NewSession(nil)
	sess.Dispatch(LoadScenario{Scenario: singleTechScenario()})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Dispatch(Tick{DeltaMs: 100})
		}()
	}
	wg.Wait()

	if got := sess.State().ElapsedTime(); !approx(got, 5) {
		t.Errorf("Expected 5s elapsed, got %f", got)
	}
	if got := sess.State().ResearchPoints(); !approx(got, 5) {
		t.Errorf("Expected 5 RP, got %f", got)
	}
}
