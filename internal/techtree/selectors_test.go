package techtree

import "testing"

func techIDs(techs []*Technology) []TechID {
	ids := make([]TechID, len(techs))
	for i, t := range techs {
		ids[i] = t.ID
	}
	return ids
}

func equalIDs(a, b []TechID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestStatus tests status derivation as techs unlock
func TestStatus(t *testing.T) {
	s := NewState(chainScenario())

	expect := map[TechID]TechStatus{
		"root": StatusAvailable,
		"mid":  StatusLocked,
		"leaf": StatusLocked,
		"lore": StatusLocked,
		"nope": StatusLocked,
	}
	for id, want := range expect {
		if got := Status(s, id); got != want {
			t.Errorf("Expected %s to be %s, got %s", id, want, got)
		}
	}

	s = Reduce(s, UnlockTech{ID: "root"})
	if got := Status(s, "root"); got != StatusUnlocked {
		t.Errorf("Expected root unlocked, got %s", got)
	}
	if got := Status(s, "mid"); got != StatusAvailable {
		t.Errorf("Expected mid available, got %s", got)
	}
	if got := Status(s, "leaf"); got != StatusLocked {
		t.Errorf("Expected leaf still locked (needs mid), got %s", got)
	}
}

// TestStatusIgnoresAffordability tests that available techs may be unaffordable
func TestStatusIgnoresAffordability(t *testing.T) {
	s := NewState(&Scenario{Technologies: []Technology{{ID: "x", BaseCost: 1e9}}})
	if got := Status(s, "x"); got != StatusAvailable {
		t.Errorf("Expected available regardless of cost, got %s", got)
	}
}

// TestAvailableTechs tests declaration order and membership
func TestAvailableTechs(t *testing.T) {
	scenario := &Scenario{
		StartingResearchPoints: 100,
		Technologies: []Technology{
			{ID: "c", BaseCost: 1, Prerequisites: []TechID{"a"}},
			{ID: "a", BaseCost: 1},
			{ID: "b", BaseCost: 1},
			{ID: "d", BaseCost: 1, Decorative: true},
		},
	}
	s := NewState(scenario)
	if got := techIDs(AvailableTechs(s)); !equalIDs(got, []TechID{"a", "b"}) {
		t.Errorf("Expected [a b], got %v", got)
	}

	s = Reduce(s, UnlockTech{ID: "a"})
	if got := techIDs(AvailableTechs(s)); !equalIDs(got, []TechID{"c", "b"}) {
		t.Errorf("Expected [c b], got %v", got)
	}
}

// TestDependents tests the reverse prerequisite index
func TestDependents(t *testing.T) {
	s := NewState(chainScenario())
	if got := techIDs(Dependents(s, "root")); !equalIDs(got, []TechID{"mid", "leaf"}) {
		t.Errorf("Expected [mid leaf], got %v", got)
	}
	if got := Dependents(s, "leaf"); len(got) != 0 {
		t.Errorf("Expected no dependents for leaf, got %v", techIDs(got))
	}
	if got := Dependents(s, "ghost"); got != nil {
		t.Errorf("Expected nil for unknown id, got %v", got)
	}
}
