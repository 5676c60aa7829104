package techtree

import (
	"fmt"
	"math"
	"slices"
)

// Action is a transition request for Reduce.
type Action interface {
	isAction()
}

// Tick advances the simulation by the measured wall-clock delta.
type Tick struct {
	DeltaMs float64
}

// UnlockTech spends research points to unlock a technology.
type UnlockTech struct {
	ID TechID
}

// LoadScenario discards all progress and starts the given scenario, which
// must already have passed Validate.
type LoadScenario struct {
	Scenario *Scenario
}

// Reset discards all progress and restarts the current scenario.
type Reset struct{}

func (Tick) isAction()         {}
func (UnlockTech) isAction()   {}
func (LoadScenario) isAction() {}
func (Reset) isAction()        {}

// sampleInterval is the minimum elapsed time between history samples.
const sampleInterval = 1.0

// Reduce returns the state that follows s after applying a. It never
// modifies s. Actions that cannot apply (unknown or decorative technology,
// insufficient points, unmet prerequisites, already unlocked, unknown action
// kinds) return s itself.
//
// Reduce panics with ErrNoScenario if s is nil and a is not a LoadScenario.
func Reduce(s *State, a Action) *State {
	if load, ok := a.(LoadScenario); ok && load.Scenario != nil {
		return NewState(load.Scenario)
	}
	if s == nil {
		panic(fmt.Errorf("%w: cannot apply %T", ErrNoScenario, a))
	}

	switch act := a.(type) {
	case Tick:
		return s.tick(act.DeltaMs)
	case UnlockTech:
		return s.unlock(act.ID)
	case Reset:
		return newState(s.graph)
	default:
		return s
	}
}

// tick accrues points for deltaMs. The caller's delta is trusted as-is, so
// irregular or delayed ticks lose no accrual. A history sample is appended
// once at least sampleInterval has passed since the last one, and the sample
// clock moves to the exact elapsed time rather than a whole-second boundary.
func (s *State) tick(deltaMs float64) *State {
	if deltaMs <= 0 || math.IsNaN(deltaMs) || math.IsInf(deltaMs, 0) {
		return s
	}
	dt := deltaMs / 1000

	next := *s
	next.researchPoints = s.researchPoints + s.researchRate*dt
	next.elapsedTime = s.elapsedTime + dt
	if next.elapsedTime-s.lastSampleTime >= sampleInterval {
		// Clip forces a copy so a sibling state derived from s cannot
		// overwrite this sample through a shared backing array.
		next.rateHistory = append(slices.Clip(s.rateHistory), RateSample{
			ElapsedSeconds: next.elapsedTime,
			ResearchRate:   s.researchRate,
		})
		next.lastSampleTime = next.elapsedTime
	}
	return &next
}

func (s *State) unlock(id TechID) *State {
	h, ok := s.graph.Handle(id)
	if !ok || s.unlocked.has(h) {
		return s
	}
	tech := s.graph.Tech(h)
	if tech.Decorative || s.researchPoints < tech.BaseCost || !s.prerequisitesMet(h) {
		return s
	}

	next := *s
	next.researchPoints = s.researchPoints - tech.BaseCost
	next.unlocked = s.unlocked.with(h)
	// Full recomputation: technology counts are small.
	next.researchRate = s.graph.rate(next.unlocked)
	return &next
}
