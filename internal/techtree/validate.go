package techtree

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// DiagnosticCode classifies a validation failure.
type DiagnosticCode string

const (
	CodeNotObject           DiagnosticCode = "not_object"
	CodeMissingTechnologies DiagnosticCode = "missing_technologies"
	CodeEmptyTechnologies   DiagnosticCode = "empty_technologies"
	CodeInvalidField        DiagnosticCode = "invalid_field"
	CodeInvalidEnum         DiagnosticCode = "invalid_enum"
	CodeUnknownPrerequisite DiagnosticCode = "unknown_prerequisite"
	CodeDuplicateID         DiagnosticCode = "duplicate_id"
	CodeCycle               DiagnosticCode = "cycle"
)

// Diagnostic is one human-readable validation failure.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Path    string         `json:"path"`
	Message string         `json:"message"`
}

// Result is the outcome of Validate: either a typed scenario or the list of
// diagnostics that prevented it.
type Result struct {
	Valid       bool
	Scenario    *Scenario
	Diagnostics []Diagnostic
}

// Errors returns the diagnostic messages in the order they were found.
func (r Result) Errors() []string {
	msgs := make([]string, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		msgs[i] = d.Message
	}
	return msgs
}

func invalid(diags ...Diagnostic) Result {
	return Result{Diagnostics: diags}
}

// Validate verifies an untyped scenario payload, as produced by decoding JSON
// or YAML into an any. Structural defects across the whole technology list
// are collected before returning; a missing or empty technology list aborts
// immediately. Cycle detection runs only once the structure is sound and
// reports the first cycle found.
func Validate(raw any) Result {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return invalid(Diagnostic{CodeNotObject, "", "Input must be a non-null object"})
	}

	var diags []Diagnostic
	add := func(code DiagnosticCode, path, format string, args ...any) {
		diags = append(diags, Diagnostic{Code: code, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	s := &Scenario{}
	if id, ok := obj["id"].(string); ok && id != "" {
		s.ID = id
	} else {
		add(CodeInvalidField, "id", `Scenario must have a non-empty string "id"`)
	}
	if name, ok := obj["name"].(string); ok {
		s.Name = name
	} else {
		add(CodeInvalidField, "name", `Scenario must have a string "name"`)
	}
	if desc, ok := obj["description"].(string); ok {
		s.Description = desc
	} else {
		add(CodeInvalidField, "description", `Scenario must have a string "description"`)
	}
	if rate, ok := asNumber(obj["startingResearchRate"]); ok {
		s.StartingResearchRate = rate
	} else {
		add(CodeInvalidField, "startingResearchRate", `Scenario must have a number "startingResearchRate"`)
	}
	if points, ok := asNumber(obj["startingResearchPoints"]); ok {
		s.StartingResearchPoints = points
	} else {
		add(CodeInvalidField, "startingResearchPoints", `Scenario must have a number "startingResearchPoints"`)
	}

	rawTechs, ok := obj["technologies"].([]any)
	if !ok {
		add(CodeMissingTechnologies, "technologies", `Scenario must have an array "technologies"`)
		return invalid(diags...)
	}
	if len(rawTechs) == 0 {
		add(CodeEmptyTechnologies, "technologies", `"technologies" must be a non-empty array`)
		return invalid(diags...)
	}

	// First pass: every declared id, so forward references resolve.
	declared := make(map[string]int, len(rawTechs))
	for _, rt := range rawTechs {
		if t, ok := rt.(map[string]any); ok {
			if id, ok := t["id"].(string); ok && id != "" {
				declared[id]++
			}
		}
	}

	s.Technologies = make([]Technology, 0, len(rawTechs))
	reportedDup := make(map[string]bool)
	for i, rt := range rawTechs {
		tech, techDiags := validateTechnology(rt, i, declared)
		diags = append(diags, techDiags...)
		if id := string(tech.ID); declared[id] > 1 && !reportedDup[id] {
			reportedDup[id] = true
			add(CodeDuplicateID, fmt.Sprintf("technologies[%d].id", i), "Tech %q is declared %d times", id, declared[id])
		}
		s.Technologies = append(s.Technologies, tech)
	}
	if len(diags) > 0 {
		return invalid(diags...)
	}

	g := Compile(s)
	if path := g.findCycle(); path != nil {
		return invalid(Diagnostic{
			Code:    CodeCycle,
			Path:    fmt.Sprintf("technologies[%d].prerequisites", path[0]),
			Message: "Cycle detected: " + g.formatPath(path),
		})
	}

	return Result{Valid: true, Scenario: s}
}

func validateTechnology(raw any, index int, declared map[string]int) (Technology, []Diagnostic) {
	var tech Technology
	var diags []Diagnostic
	base := fmt.Sprintf("technologies[%d]", index)
	add := func(code DiagnosticCode, field, format string, args ...any) {
		diags = append(diags, Diagnostic{Code: code, Path: base + field, Message: fmt.Sprintf(format, args...)})
	}

	t, ok := raw.(map[string]any)
	if !ok || t == nil {
		add(CodeInvalidField, "", "%s must be an object", base)
		return tech, diags
	}

	label := fmt.Sprintf("<index %d>", index)
	if id, ok := t["id"].(string); ok {
		label = id
	}
	if id, ok := t["id"].(string); ok && id != "" {
		tech.ID = TechID(id)
	} else {
		add(CodeInvalidField, ".id", "%s.id must be a non-empty string", base)
	}
	if name, ok := t["name"].(string); ok {
		tech.Name = name
	} else {
		add(CodeInvalidField, ".name", `Tech %q is missing field "name"`, label)
	}
	if desc, ok := t["description"].(string); ok {
		tech.Description = desc
	} else {
		add(CodeInvalidField, ".description", `Tech %q is missing field "description"`, label)
	}
	if cat, ok := asEnum(t["category"], Categories); ok {
		tech.Category = cat
	} else {
		add(CodeInvalidEnum, ".category", "Tech %q.category %q is not a valid TechCategory", label, describe(t["category"]))
	}
	if tier, ok := asNumber(t["tier"]); ok && tier >= 0 && tier <= math.MaxInt32 && tier == math.Trunc(tier) {
		tech.Tier = int(tier)
	} else {
		add(CodeInvalidField, ".tier", "Tech %q.tier must be a non-negative integer", label)
	}
	if cost, ok := asNumber(t["baseCost"]); ok && cost > 0 {
		tech.BaseCost = cost
	} else {
		add(CodeInvalidField, ".baseCost", "Tech %q.baseCost must be a positive number", label)
	}
	if v, present := t["decorative"]; present && v != nil {
		if b, ok := v.(bool); ok {
			tech.Decorative = b
		} else {
			add(CodeInvalidField, ".decorative", "Tech %q.decorative must be a boolean", label)
		}
	}

	if prereqs, ok := t["prerequisites"].([]any); ok {
		tech.Prerequisites = make([]TechID, 0, len(prereqs))
		for j, p := range prereqs {
			id, ok := p.(string)
			switch {
			case !ok:
				add(CodeInvalidField, fmt.Sprintf(".prerequisites[%d]", j), "Tech %q.prerequisites[%d] must be a string", label, j)
			case declared[id] == 0:
				add(CodeUnknownPrerequisite, fmt.Sprintf(".prerequisites[%d]", j), "Tech %q.prerequisites[%d] references unknown tech %q", label, j, id)
			default:
				tech.Prerequisites = append(tech.Prerequisites, TechID(id))
			}
		}
	} else {
		add(CodeInvalidField, ".prerequisites", "Tech %q.prerequisites must be an array", label)
	}

	if effects, ok := t["effects"].([]any); ok {
		tech.Effects = make([]TechEffect, 0, len(effects))
		for j, e := range effects {
			effect, effectDiags := validateEffect(e, label, base, j)
			diags = append(diags, effectDiags...)
			tech.Effects = append(tech.Effects, effect)
		}
	} else {
		add(CodeInvalidField, ".effects", "Tech %q.effects must be an array", label)
	}

	return tech, diags
}

func validateEffect(raw any, label, base string, index int) (TechEffect, []Diagnostic) {
	var effect TechEffect
	var diags []Diagnostic
	path := fmt.Sprintf("%s.effects[%d]", base, index)

	e, ok := raw.(map[string]any)
	if !ok || e == nil {
		diags = append(diags, Diagnostic{CodeInvalidField, path, fmt.Sprintf("Tech %q effect[%d] must be an object", label, index)})
		return effect, diags
	}
	if typ, ok := asEnum(e["type"], EffectTypes); ok {
		effect.Type = typ
	} else {
		diags = append(diags, Diagnostic{CodeInvalidEnum, path + ".type",
			fmt.Sprintf("Tech %q effect[%d].type %q is not a valid EffectType", label, index, describe(e["type"]))})
	}
	if target, ok := asEnum(e["target"], ResourceTypes); ok {
		effect.Target = target
	} else {
		diags = append(diags, Diagnostic{CodeInvalidEnum, path + ".target",
			fmt.Sprintf("Tech %q effect[%d].target %q is not a valid ResourceType", label, index, describe(e["target"]))})
	}
	if v, ok := asNumber(e["value"]); ok {
		effect.Value = v
	} else {
		diags = append(diags, Diagnostic{CodeInvalidField, path + ".value",
			fmt.Sprintf("Tech %q effect[%d].value must be a number", label, index)})
	}
	return effect, diags
}

// asNumber accepts any Go numeric kind a decoder may produce. NaN and the
// infinities are not numbers for scenario purposes.
func asNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func asEnum[T ~string](v any, valid []T) (T, bool) {
	s, ok := v.(string)
	if !ok || !slices.Contains(valid, T(s)) {
		return "", false
	}
	return T(s), true
}

func describe(v any) string {
	if v == nil {
		return "undefined"
	}
	return fmt.Sprint(v)
}
