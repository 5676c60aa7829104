package techtree

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
)

func rawTech(id string, cost float64, prereqs ...string) map[string]any {
	reqs := make([]any, len(prereqs))
	for i, p := range prereqs {
		reqs[i] = p
	}
	return map[string]any{
		"id":            id,
		"name":          strings.ToUpper(id),
		"description":   "tech " + id,
		"category":      "algorithms",
		"tier":          0,
		"baseCost":      cost,
		"prerequisites": reqs,
		"effects":       []any{},
	}
}

func rawScenario(techs ...map[string]any) map[string]any {
	list := make([]any, len(techs))
	for i, t := range techs {
		list[i] = t
	}
	return map[string]any{
		"id":                     "test",
		"name":                   "Test",
		"description":            "test scenario",
		"startingResearchRate":   1.0,
		"startingResearchPoints": 0.0,
		"technologies":           list,
	}
}

func hasMessage(r Result, substr string) bool {
	for _, msg := range r.Errors() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// TestValidateAcceptsDAG tests that a diamond-shaped graph with roots is accepted
func TestValidateAcceptsDAG(t *testing.T) {
	raw := rawScenario(
		rawTech("root", 1),
		rawTech("left", 2, "root"),
		rawTech("right", 2, "root"),
		rawTech("top", 5, "left", "right"),
		rawTech("loner", 3),
	)

	result := Validate(raw)
	if !result.Valid {
		t.Fatalf("Expected valid scenario, got errors: %v", result.Errors())
	}
	s := result.Scenario
	if s.ID != "test" || len(s.Technologies) != 5 {
		t.Fatalf("Unexpected scenario: id=%s techs=%d", s.ID, len(s.Technologies))
	}
	top := s.Technologies[3]
	if top.ID != "top" || len(top.Prerequisites) != 2 || top.Prerequisites[1] != "right" {
		t.Errorf("Expected top to require [left right], got %v", top.Prerequisites)
	}
	if top.BaseCost != 5 {
		t.Errorf("Expected baseCost 5, got %f", top.BaseCost)
	}
}

// TestValidateForwardReference tests that prerequisites may be declared later
func TestValidateForwardReference(t *testing.T) {
	raw := rawScenario(
		rawTech("child", 2, "parent"),
		rawTech("parent", 1),
	)
	if result := Validate(raw); !result.Valid {
		t.Fatalf("Forward reference should be valid, got %v", result.Errors())
	}
}

// TestValidateTypedFields tests that effects and flags are carried over
func TestValidateTypedFields(t *testing.T) {
	tech := rawTech("a", 10)
	tech["category"] = "neural"
	tech["tier"] = 3
	tech["decorative"] = true
	tech["effects"] = []any{
		map[string]any{"type": "add_research_rate", "target": "research", "value": 2},
		map[string]any{"type": "unlock_category", "target": "energy", "value": 0.5},
	}
	result := Validate(rawScenario(tech))
	if !result.Valid {
		t.Fatalf("Expected valid, got %v", result.Errors())
	}
	got := result.Scenario.Technologies[0]
	if got.Category != CategoryNeural || got.Tier != 3 || !got.Decorative {
		t.Errorf("Fields not carried over: %+v", got)
	}
	if len(got.Effects) != 2 || got.Effects[0].Value != 2 || got.Effects[1].Target != ResourceEnergy {
		t.Errorf("Effects not carried over: %+v", got.Effects)
	}
}

// TestValidateRejectsNonObject tests the non-object precondition
func TestValidateRejectsNonObject(t *testing.T) {
	for _, raw := range []any{nil, "scenario", 42, []any{}} {
		result := Validate(raw)
		if result.Valid {
			t.Errorf("Expected %v to be rejected", raw)
		}
		if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != CodeNotObject {
			t.Errorf("Expected a single not_object diagnostic, got %+v", result.Diagnostics)
		}
	}
}

// TestValidateMissingTechnologiesIsFatal tests that nothing else is checked
func TestValidateMissingTechnologiesIsFatal(t *testing.T) {
	raw := rawScenario()
	delete(raw, "technologies")
	result := Validate(raw)
	if result.Valid {
		t.Fatal("Expected rejection")
	}
	last := result.Diagnostics[len(result.Diagnostics)-1]
	if last.Code != CodeMissingTechnologies {
		t.Errorf("Expected missing_technologies, got %s", last.Code)
	}

	raw["technologies"] = "nope"
	if result := Validate(raw); !hasMessage(result, `array "technologies"`) {
		t.Errorf("Expected array message for non-array technologies, got %v", result.Errors())
	}
}

// TestValidateEmptyTechnologiesIsFatal tests the empty list precondition
func TestValidateEmptyTechnologiesIsFatal(t *testing.T) {
	result := Validate(rawScenario())
	if result.Valid {
		t.Fatal("Expected rejection")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != CodeEmptyTechnologies {
		t.Errorf("Expected a single empty_technologies diagnostic, got %+v", result.Diagnostics)
	}
}

// TestValidateTopLevelFields tests scalar checks on the scenario itself
func TestValidateTopLevelFields(t *testing.T) {
	raw := rawScenario(rawTech("a", 1))
	raw["id"] = ""
	raw["name"] = 7
	delete(raw, "description")
	raw["startingResearchRate"] = "fast"
	raw["startingResearchPoints"] = nil

	result := Validate(raw)
	if result.Valid {
		t.Fatal("Expected rejection")
	}
	if len(result.Diagnostics) != 5 {
		t.Fatalf("Expected 5 diagnostics, got %d: %v", len(result.Diagnostics), result.Errors())
	}
	paths := []string{"id", "name", "description", "startingResearchRate", "startingResearchPoints"}
	for i, p := range paths {
		if result.Diagnostics[i].Path != p {
			t.Errorf("Diagnostic %d: expected path %s, got %s", i, p, result.Diagnostics[i].Path)
		}
	}
}

// TestValidateCollectsAllErrors tests collect-then-report across technologies
func TestValidateCollectsAllErrors(t *testing.T) {
	bad1 := rawTech("a", 0)
	bad1["category"] = "magic"
	bad2 := rawTech("b", 1, "ghost")
	bad2["tier"] = -1
	bad2["effects"] = []any{
		map[string]any{"type": "teleport", "target": "mana", "value": "x"},
		"not an object",
	}
	raw := rawScenario(bad1, bad2, rawTech("c", 1), map[string]any{"id": 5})
	raw["technologies"] = append(raw["technologies"].([]any), "junk")

	result := Validate(raw)
	if result.Valid {
		t.Fatal("Expected rejection")
	}
	expected := []string{
		`Tech "a".category "magic" is not a valid TechCategory`,
		`Tech "a".baseCost must be a positive number`,
		`Tech "b".tier must be a non-negative integer`,
		`Tech "b".prerequisites[0] references unknown tech "ghost"`,
		`Tech "b" effect[0].type "teleport" is not a valid EffectType`,
		`Tech "b" effect[0].target "mana" is not a valid ResourceType`,
		`Tech "b" effect[0].value must be a number`,
		`Tech "b" effect[1] must be an object`,
		`technologies[3].id must be a non-empty string`,
		`Tech "<index 3>" is missing field "name"`,
		`technologies[4] must be an object`,
	}
	for _, want := range expected {
		if !hasMessage(result, want) {
			t.Errorf("Missing diagnostic %q in %v", want, result.Errors())
		}
	}
	for _, d := range result.Diagnostics {
		if d.Code == CodeCycle {
			t.Error("Cycle detection must not run when structure is invalid")
		}
	}
}

// TestValidatePrerequisiteTypes tests non-string prerequisite entries
func TestValidatePrerequisiteTypes(t *testing.T) {
	tech := rawTech("a", 1)
	tech["prerequisites"] = []any{42}
	result := Validate(rawScenario(tech))
	if !hasMessage(result, `Tech "a".prerequisites[0] must be a string`) {
		t.Errorf("Expected string prerequisite error, got %v", result.Errors())
	}
	if result.Diagnostics[0].Path != "technologies[0].prerequisites[0]" {
		t.Errorf("Unexpected path %s", result.Diagnostics[0].Path)
	}
}

// TestValidateDuplicateIDs tests that ids must be unique
func TestValidateDuplicateIDs(t *testing.T) {
	result := Validate(rawScenario(rawTech("a", 1), rawTech("a", 2), rawTech("a", 3)))
	if result.Valid {
		t.Fatal("Expected duplicate ids to be rejected")
	}
	count := 0
	for _, d := range result.Diagnostics {
		if d.Code == CodeDuplicateID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected one duplicate diagnostic, got %d", count)
	}
}

// TestValidateDecorativeType tests the optional decorative flag
func TestValidateDecorativeType(t *testing.T) {
	tech := rawTech("a", 1)
	tech["decorative"] = "yes"
	if result := Validate(rawScenario(tech)); !hasMessage(result, "decorative must be a boolean") {
		t.Errorf("Expected decorative type error, got %v", result.Errors())
	}
}

// TestValidateSelfLoop tests a technology requiring itself
func TestValidateSelfLoop(t *testing.T) {
	result := Validate(rawScenario(rawTech("a", 1, "a")))
	if result.Valid {
		t.Fatal("Expected self-loop to be rejected")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Code != CodeCycle {
		t.Fatalf("Expected a single cycle diagnostic, got %+v", result.Diagnostics)
	}
	if msg := result.Diagnostics[0].Message; msg != "Cycle detected: a → a" {
		t.Errorf("Unexpected cycle message %q", msg)
	}
}

// TestValidateCycleTrace tests the reported path of a longer cycle
func TestValidateCycleTrace(t *testing.T) {
	result := Validate(rawScenario(
		rawTech("root", 1),
		rawTech("a", 1, "root", "b"),
		rawTech("b", 1, "c"),
		rawTech("c", 1, "a"),
	))
	if result.Valid {
		t.Fatal("Expected cycle to be rejected")
	}
	if msg := result.Errors()[0]; msg != "Cycle detected: a → b → c → a" {
		t.Errorf("Unexpected cycle message %q", msg)
	}
}

// TestValidateReportsFirstCycleOnly tests short-circuiting on independent cycles
func TestValidateReportsFirstCycleOnly(t *testing.T) {
	result := Validate(rawScenario(
		rawTech("a", 1, "b"),
		rawTech("b", 1, "a"),
		rawTech("x", 1, "y"),
		rawTech("y", 1, "x"),
	))
	if len(result.Diagnostics) != 1 {
		t.Fatalf("Expected exactly one diagnostic, got %v", result.Errors())
	}
	if result.Errors()[0] != "Cycle detected: a → b → a" {
		t.Errorf("Expected first cycle in declaration order, got %q", result.Errors()[0])
	}
}

// TestValidateDeepChain tests that long chains neither overflow nor false-positive
func TestValidateDeepChain(t *testing.T) {
	const depth = 5000
	techs := make([]map[string]any, depth)
	for i := 0; i < depth; i++ {
		id := fmt.Sprintf("t%d", i)
		if i == depth-1 {
			techs[i] = rawTech(id, 1)
		} else {
			techs[i] = rawTech(id, 1, fmt.Sprintf("t%d", i+1))
		}
	}
	if result := Validate(rawScenario(techs...)); !result.Valid {
		t.Fatalf("Deep acyclic chain should be valid, got %v", result.Errors()[:1])
	}

	// Close the chain into a cycle of full length.
	techs[depth-1] = rawTech(fmt.Sprintf("t%d", depth-1), 1, "t0")
	result := Validate(rawScenario(techs...))
	if result.Valid {
		t.Fatal("Deep cycle should be rejected")
	}
	msg := result.Errors()[0]
	if !strings.HasPrefix(msg, "Cycle detected: t0 → t1 → ") || !strings.HasSuffix(msg, "t4999 → t0") {
		t.Errorf("Unexpected deep cycle message prefix/suffix: %.60q", msg)
	}
}

// TestValidateJSONNumbers tests payloads decoded with UseNumber
func TestValidateJSONNumbers(t *testing.T) {
	payload := `{"id":"j","name":"J","description":"","startingResearchRate":1.5,"startingResearchPoints":0,
		"technologies":[{"id":"a","name":"A","description":"","category":"agi","tier":2,"baseCost":10,
		"prerequisites":[],"effects":[{"type":"multiply_research_rate","target":"research","value":1.25}]}]}`
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	result := Validate(raw)
	if !result.Valid {
		t.Fatalf("Expected valid, got %v", result.Errors())
	}
	if result.Scenario.StartingResearchRate != 1.5 || result.Scenario.Technologies[0].Tier != 2 {
		t.Errorf("Numbers not converted: %+v", result.Scenario)
	}
}

// TestValidateRejectsFractionalTierAndNaN tests number edge cases
func TestValidateRejectsFractionalTierAndNaN(t *testing.T) {
	tech := rawTech("a", 1)
	tech["tier"] = 1.5
	raw := rawScenario(tech)
	raw["startingResearchRate"] = math.NaN()
	result := Validate(raw)
	if !hasMessage(result, "tier must be a non-negative integer") {
		t.Errorf("Expected fractional tier error, got %v", result.Errors())
	}
	if !hasMessage(result, `number "startingResearchRate"`) {
		t.Errorf("Expected NaN rate error, got %v", result.Errors())
	}

	huge := rawTech("a", 1)
	huge["tier"] = 1e20
	result = Validate(rawScenario(huge))
	if result.Valid {
		t.Fatalf("Expected out-of-range tier to be rejected, got tier %d", result.Scenario.Technologies[0].Tier)
	}
	if !hasMessage(result, "tier must be a non-negative integer") {
		t.Errorf("Expected out-of-range tier error, got %v", result.Errors())
	}
}
