package techtree

import "slices"

// RateSample is one entry of the research-rate history.
type RateSample struct {
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	ResearchRate   float64 `json:"researchRate"`
}

// State is a snapshot of one game session. A *State is never modified after
// it is produced; every transition returns a new value that shares unchanged
// parts with its predecessor, so older snapshots stay valid indefinitely.
type State struct {
	graph          *Graph
	researchPoints float64
	researchRate   float64
	unlocked       bitset
	elapsedTime    float64
	lastSampleTime float64
	rateHistory    []RateSample
}

// NewState creates a fresh state for a validated scenario: starting
// resources, nothing unlocked, zero elapsed time and an empty history.
func NewState(s *Scenario) *State {
	return newState(Compile(s))
}

func newState(g *Graph) *State {
	return &State{
		graph:          g,
		researchPoints: g.Scenario.StartingResearchPoints,
		researchRate:   g.Scenario.StartingResearchRate,
		unlocked:       newBitset(g.Len()),
	}
}

// Scenario returns the scenario this state belongs to.
func (s *State) Scenario() *Scenario { return s.graph.Scenario }

// Graph returns the compiled scenario.
func (s *State) Graph() *Graph { return s.graph }

// ResearchPoints returns the accumulated research points.
func (s *State) ResearchPoints() float64 { return s.researchPoints }

// ResearchRate returns research points gained per second.
func (s *State) ResearchRate() float64 { return s.researchRate }

// ElapsedTime returns the simulated seconds since the state was created.
func (s *State) ElapsedTime() float64 { return s.elapsedTime }

// LastSampleTime returns the elapsed time of the most recent history sample.
func (s *State) LastSampleTime() float64 { return s.lastSampleTime }

// RateHistory returns a copy of the sampled rate history.
func (s *State) RateHistory() []RateSample { return slices.Clone(s.rateHistory) }

// HistoryLen returns the number of history samples without copying them.
func (s *State) HistoryLen() int { return len(s.rateHistory) }

// IsUnlocked reports whether a technology has been unlocked.
func (s *State) IsUnlocked(id TechID) bool {
	h, ok := s.graph.Handle(id)
	return ok && s.unlocked.has(h)
}

// UnlockedCount returns the number of unlocked technologies.
func (s *State) UnlockedCount() int { return s.unlocked.count() }

// UnlockedIDs returns unlocked technology ids in declaration order.
func (s *State) UnlockedIDs() []TechID {
	ids := make([]TechID, 0, s.unlocked.count())
	for h := 0; h < s.graph.Len(); h++ {
		if s.unlocked.has(h) {
			ids = append(ids, s.graph.Tech(h).ID)
		}
	}
	return ids
}

func (s *State) prerequisitesMet(h int) bool {
	for _, req := range s.graph.requires[h] {
		if !s.unlocked.has(req) {
			return false
		}
	}
	return true
}
