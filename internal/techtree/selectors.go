package techtree

// TechStatus is the derived status of a technology for presentation.
type TechStatus string

const (
	// StatusLocked means the technology cannot be unlocked yet (or ever).
	StatusLocked TechStatus = "locked"
	// StatusAvailable means every prerequisite is unlocked.
	StatusAvailable TechStatus = "available"
	// StatusUnlocked means the technology has been unlocked.
	StatusUnlocked TechStatus = "unlocked"
)

// Status derives the status of a technology. Unknown and decorative
// technologies are always locked. Affordability is not considered: an
// available technology may still cost more than the current points.
func Status(s *State, id TechID) TechStatus {
	h, ok := s.graph.Handle(id)
	if !ok {
		return StatusLocked
	}
	return s.statusOf(h)
}

func (s *State) statusOf(h int) TechStatus {
	if s.unlocked.has(h) {
		return StatusUnlocked
	}
	if s.graph.Tech(h).Decorative || !s.prerequisitesMet(h) {
		return StatusLocked
	}
	return StatusAvailable
}

// AvailableTechs returns the available technologies in declaration order.
func AvailableTechs(s *State) []*Technology {
	var out []*Technology
	for h := 0; h < s.graph.Len(); h++ {
		if s.graph.index[s.graph.Tech(h).ID] != h {
			continue // shadowed duplicate id
		}
		if s.statusOf(h) == StatusAvailable {
			out = append(out, s.graph.Tech(h))
		}
	}
	return out
}

// Dependents returns the technologies that list id as a prerequisite.
func Dependents(s *State, id TechID) []*Technology {
	h, ok := s.graph.Handle(id)
	if !ok {
		return nil
	}
	out := make([]*Technology, 0, len(s.graph.requiredBy[h]))
	for _, dep := range s.graph.requiredBy[h] {
		out = append(out, s.graph.Tech(dep))
	}
	return out
}
