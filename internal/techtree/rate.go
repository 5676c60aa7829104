package techtree

// ComputeRate returns the aggregate research rate for a scenario given the
// ids of unlocked technologies.
//
// Composition is fixed: the starting rate plus every additive research
// effect, then multiplied by every multiplicative research effect, with
// technologies visited in declaration order. Decorative technologies and
// effects on other resources never contribute.
func ComputeRate(s *Scenario, unlocked []TechID) float64 {
	set := make(map[TechID]struct{}, len(unlocked))
	for _, id := range unlocked {
		set[id] = struct{}{}
	}
	return composeRate(s, func(h int) bool {
		_, ok := set[s.Technologies[h].ID]
		return ok
	})
}

// rate is ComputeRate over a compiled graph and an unlocked bitset.
func (g *Graph) rate(unlocked bitset) float64 {
	return composeRate(g.Scenario, unlocked.has)
}

func composeRate(s *Scenario, unlocked func(h int) bool) float64 {
	rate := s.StartingResearchRate

	for h := range s.Technologies {
		tech := &s.Technologies[h]
		if tech.Decorative || !unlocked(h) {
			continue
		}
		for _, effect := range tech.Effects {
			if effect.Type == EffectAddResearchRate && effect.Target == ResourceResearch {
				rate += effect.Value
			}
		}
	}

	for h := range s.Technologies {
		tech := &s.Technologies[h]
		if tech.Decorative || !unlocked(h) {
			continue
		}
		for _, effect := range tech.Effects {
			if effect.Type == EffectMultiplyResearchRate && effect.Target == ResourceResearch {
				rate *= effect.Value
			}
		}
	}

	return rate
}
