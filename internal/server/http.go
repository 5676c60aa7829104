package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"gopkg.in/yaml.v3"

	"SingularityDashboard/internal/scenario"
)

const maxValidateBody = 1 << 20

func (a *App) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.handleHealth)
	mux.HandleFunc("GET /api/scenarios", a.handleListScenarios)
	mux.HandleFunc("GET /api/scenarios/{id}", a.handleGetScenario)
	mux.HandleFunc("POST /api/validate", a.handleValidate)
	mux.HandleFunc("GET /api/metrics", a.handleMetrics)
	mux.HandleFunc("GET /ws", a.serveWS)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"scenarios": len(a.catalog.IDs()),
		"sessions":  a.hub.Count(),
	})
}

func (a *App) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.catalog.List())
}

func (a *App) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := a.catalog.Get(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, newErrorMsg(errorCode(err), err.Error()))
		return
	}
	if r.URL.Query().Get("format") == "yaml" {
		data, err := yaml.Marshal(sc)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, newErrorMsg("error", err.Error()))
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// requestFormat picks the payload format from ?format= or the Content-Type.
func requestFormat(r *http.Request) (scenario.Format, error) {
	if name := r.URL.Query().Get("format"); name != "" {
		return scenario.ParseFormat(name)
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return scenario.FormatAuto, nil
	}
	switch mediaType {
	case "application/json":
		return scenario.FormatJSON, nil
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return scenario.FormatYAML, nil
	case "application/x-protobuf", "application/protobuf":
		return scenario.FormatProto, nil
	default:
		return scenario.FormatAuto, nil
	}
}

func (a *App) handleValidate(w http.ResponseWriter, r *http.Request) {
	f, err := requestFormat(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, newErrorMsg(errorCode(err), err.Error()))
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValidateBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, newErrorMsg("too_large", err.Error()))
			return
		}
		writeJSON(w, http.StatusBadRequest, newErrorMsg("error", err.Error()))
		return
	}

	res, err := a.validator.Validate(body, f)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, newErrorMsg(errorCode(err), err.Error()))
		return
	}
	if !res.Valid {
		a.logger.Debug("Validation failed", "errors", len(res.Diagnostics))
		writeJSON(w, http.StatusUnprocessableEntity, validateResponse{
			Errors:      res.Errors(),
			Diagnostics: res.Diagnostics,
		})
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:      true,
		ScenarioID: res.Scenario.ID,
		TechCount:  len(res.Scenario.Technologies),
	})
}

func (a *App) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.metrics.Snapshot(a.validator))
}
