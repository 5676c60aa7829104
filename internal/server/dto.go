package server

import (
	"encoding/json"

	"SingularityDashboard/internal/format"
	"SingularityDashboard/internal/techtree"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type unlockPayload struct {
	ID string `json:"id"`
}

type loadScenarioPayload struct {
	ID string `json:"id"`
}

// loadCustomPayload carries a scenario document. Scenario holds either the
// scenario object itself or, with Format set, a string in that format.
type loadCustomPayload struct {
	Format   string          `json:"format,omitempty"`
	Scenario json.RawMessage `json:"scenario"`
}

type stateMsg struct {
	Type           string          `json:"type"`
	SessionID      string          `json:"session_id"`
	Scenario       scenarioMetaDTO `json:"scenario"`
	ResearchPoints float64         `json:"research_points"`
	ResearchRate   float64         `json:"research_rate"`
	ElapsedTime    float64         `json:"elapsed_time"`
	LastSampleTime float64         `json:"last_sample_time"`
	UnlockedCount  int             `json:"unlocked_count"`
	Techs          []techDTO       `json:"techs"`
	History        []rateSampleDTO `json:"history"`
	HistoryLen     int             `json:"history_len"`
	Display        displayDTO      `json:"display"`
}

type scenarioMetaDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type techDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Tier          int      `json:"tier"`
	BaseCost      float64  `json:"base_cost"`
	Prerequisites []string `json:"prerequisites"`
	Dependents    []string `json:"dependents,omitempty"`
	Status        string   `json:"status"`
	Affordable    bool     `json:"affordable"`
	Decorative    bool     `json:"decorative,omitempty"`
}

type rateSampleDTO struct {
	T    float64 `json:"t"`
	Rate float64 `json:"rate"`
}

type displayDTO struct {
	ResearchPoints string `json:"research_points"`
	ResearchRate   string `json:"research_rate"`
	Elapsed        string `json:"elapsed"`
}

type errorMsg struct {
	Type        string                `json:"type"`
	Code        string                `json:"code"`
	Message     string                `json:"message"`
	Diagnostics []techtree.Diagnostic `json:"diagnostics,omitempty"`
}

type validateResponse struct {
	Valid       bool                  `json:"valid"`
	ScenarioID  string                `json:"scenario_id,omitempty"`
	TechCount   int                   `json:"tech_count,omitempty"`
	Errors      []string              `json:"errors,omitempty"`
	Diagnostics []techtree.Diagnostic `json:"diagnostics,omitempty"`
}

func newErrorMsg(code, message string) errorMsg {
	return errorMsg{Type: "error", Code: code, Message: message}
}

// buildStateMsg snapshots an immutable state; it needs no locking.
func buildStateMsg(sessionID string, s *techtree.State, historyWindow int) stateMsg {
	sc := s.Scenario()
	msg := stateMsg{
		Type:      "state",
		SessionID: sessionID,
		Scenario: scenarioMetaDTO{
			ID:          sc.ID,
			Name:        sc.Name,
			Description: sc.Description,
		},
		ResearchPoints: s.ResearchPoints(),
		ResearchRate:   s.ResearchRate(),
		ElapsedTime:    s.ElapsedTime(),
		LastSampleTime: s.LastSampleTime(),
		UnlockedCount:  s.UnlockedCount(),
		HistoryLen:     s.HistoryLen(),
		Display: displayDTO{
			ResearchPoints: format.RP(s.ResearchPoints()),
			ResearchRate:   format.Rate(s.ResearchRate()),
			Elapsed:        format.Elapsed(s.ElapsedTime()),
		},
	}

	msg.Techs = make([]techDTO, 0, len(sc.Technologies))
	for i := range sc.Technologies {
		tech := &sc.Technologies[i]
		dto := techDTO{
			ID:            string(tech.ID),
			Name:          tech.Name,
			Description:   tech.Description,
			Category:      string(tech.Category),
			Tier:          tech.Tier,
			BaseCost:      tech.BaseCost,
			Prerequisites: idStrings(tech.Prerequisites),
			Status:        string(techtree.Status(s, tech.ID)),
			Decorative:    tech.Decorative,
		}
		dto.Affordable = dto.Status == string(techtree.StatusAvailable) && s.ResearchPoints() >= tech.BaseCost
		for _, dep := range techtree.Dependents(s, tech.ID) {
			dto.Dependents = append(dto.Dependents, string(dep.ID))
		}
		msg.Techs = append(msg.Techs, dto)
	}

	history := s.RateHistory()
	if historyWindow >= 0 && len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	msg.History = make([]rateSampleDTO, len(history))
	for i, h := range history {
		msg.History[i] = rateSampleDTO{T: h.ElapsedSeconds, Rate: h.ResearchRate}
	}
	return msg
}

func idStrings(ids []techtree.TechID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
