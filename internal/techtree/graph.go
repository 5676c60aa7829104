// Package techtree implements a minimal deterministic engine for technology
// unlock progression: scenario validation, research-rate composition, and a
// pure state reducer.
//
// All transitions are pure with respect to (state, action). Scenarios are
// validated before a session runs them; a validated scenario is compiled once
// into dense integer handles that the reducer and selectors share.
package techtree

import "errors"

// TechID uniquely identifies a technology within a scenario.
type TechID string

// Category groups technologies for presentation. It is a closed set.
type Category string

const (
	CategoryAlgorithms        Category = "algorithms"
	CategoryNeural            Category = "neural"
	CategoryAGI               Category = "agi"
	CategorySuperintelligence Category = "superintelligence"
	CategorySingularity       Category = "singularity"
	CategoryAutomation        Category = "automation"
	CategoryProduction        Category = "production"
	CategoryTheoretical       Category = "theoretical"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryAlgorithms,
	CategoryNeural,
	CategoryAGI,
	CategorySuperintelligence,
	CategorySingularity,
	CategoryAutomation,
	CategoryProduction,
	CategoryTheoretical,
}

// EffectType describes what an unlocked technology does.
type EffectType string

const (
	EffectAddResearchRate      EffectType = "add_research_rate"
	EffectMultiplyResearchRate EffectType = "multiply_research_rate"
	// EffectAddProductionRate and EffectUnlockCategory are accepted by the
	// validator but do not influence the simulation yet.
	EffectAddProductionRate EffectType = "add_production_rate"
	EffectUnlockCategory    EffectType = "unlock_category"
)

// EffectTypes lists every valid effect type.
var EffectTypes = []EffectType{
	EffectAddResearchRate,
	EffectMultiplyResearchRate,
	EffectAddProductionRate,
	EffectUnlockCategory,
}

// ResourceType is the resource an effect targets.
type ResourceType string

const (
	ResourceResearch   ResourceType = "research"
	ResourceProduction ResourceType = "production"
	ResourceEnergy     ResourceType = "energy"
)

// ResourceTypes lists every valid resource type.
var ResourceTypes = []ResourceType{ResourceResearch, ResourceProduction, ResourceEnergy}

// TechEffect is a single effect applied while a technology is unlocked.
type TechEffect struct {
	Type   EffectType   `json:"type" yaml:"type"`
	Target ResourceType `json:"target" yaml:"target"`
	Value  float64      `json:"value" yaml:"value"`
}

// Technology is a node in the unlock graph.
type Technology struct {
	ID            TechID       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	Description   string       `json:"description" yaml:"description"`
	Category      Category     `json:"category" yaml:"category"`
	Tier          int          `json:"tier" yaml:"tier"` // ordering hint only
	BaseCost      float64      `json:"baseCost" yaml:"baseCost"`
	Prerequisites []TechID     `json:"prerequisites" yaml:"prerequisites"`
	Effects       []TechEffect `json:"effects" yaml:"effects"`
	Decorative    bool         `json:"decorative,omitempty" yaml:"decorative,omitempty"` // never unlockable
}

// Scenario is a complete dataset for one playthrough.
//
// Values returned by Validate must be treated as read-only: states produced
// by the reducer keep a reference to them for their whole lifetime.
type Scenario struct {
	ID                     string       `json:"id" yaml:"id"`
	Name                   string       `json:"name" yaml:"name"`
	Description            string       `json:"description" yaml:"description"`
	Technologies           []Technology `json:"technologies" yaml:"technologies"`
	StartingResearchRate   float64      `json:"startingResearchRate" yaml:"startingResearchRate"`
	StartingResearchPoints float64      `json:"startingResearchPoints" yaml:"startingResearchPoints"`
}

// ErrNoScenario is raised (as a panic value) when game state is used before
// any scenario has been loaded. It signals programmer misuse.
var ErrNoScenario = errors.New("techtree: no scenario loaded")

// Graph is a scenario compiled to dense integer handles. The handle of a
// technology is its declaration index.
type Graph struct {
	Scenario   *Scenario
	index      map[TechID]int
	requires   [][]int // prerequisite handles; -1 marks an unresolved id
	requiredBy [][]int // reverse index: which technologies require this one
}

// Compile resolves every technology id and prerequisite to a handle.
// If ids are duplicated the first declaration wins.
func Compile(s *Scenario) *Graph {
	n := len(s.Technologies)
	g := &Graph{
		Scenario:   s,
		index:      make(map[TechID]int, n),
		requires:   make([][]int, n),
		requiredBy: make([][]int, n),
	}
	for i := range s.Technologies {
		if _, dup := g.index[s.Technologies[i].ID]; !dup {
			g.index[s.Technologies[i].ID] = i
		}
	}
	for i := range s.Technologies {
		prereqs := s.Technologies[i].Prerequisites
		if len(prereqs) == 0 {
			continue
		}
		g.requires[i] = make([]int, len(prereqs))
		for j, reqID := range prereqs {
			h, ok := g.index[reqID]
			if !ok {
				g.requires[i][j] = -1
				continue
			}
			g.requires[i][j] = h
			g.requiredBy[h] = append(g.requiredBy[h], i)
		}
	}
	return g
}

// Len returns the number of technologies.
func (g *Graph) Len() int {
	return len(g.Scenario.Technologies)
}

// Handle resolves a technology id.
func (g *Graph) Handle(id TechID) (int, bool) {
	h, ok := g.index[id]
	return h, ok
}

// Tech returns the technology for a handle.
func (g *Graph) Tech(h int) *Technology {
	return &g.Scenario.Technologies[h]
}

// Lookup returns a technology by id, or nil if not found.
func (g *Graph) Lookup(id TechID) *Technology {
	h, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.Tech(h)
}
