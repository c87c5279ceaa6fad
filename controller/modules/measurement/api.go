package measurement

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// LoadAPI registers the status, configuration and control endpoints.
func (m *Controller) LoadAPI(r *mux.Router) {
	r.HandleFunc("/api/status", m.getStatus).Methods("GET")
	r.HandleFunc("/api/config", m.getConfig).Methods("GET")
	r.HandleFunc("/api/config", m.postConfig).Methods("POST")
	r.HandleFunc("/api/measure", m.postMeasure).Methods("POST")
	r.HandleFunc("/api/control", m.postControl).Methods("POST")
	r.HandleFunc("/api/datetime", m.postDateTime).Methods("POST")
}

func respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]string{"error": msg})
}

func (m *Controller) getStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, m.Status())
}

func (m *Controller) getConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, m.Config())
}

func (m *Controller) postConfig(w http.ResponseWriter, r *http.Request) {
	err := m.UpdateConfig(func(cfg *Config) error {
		// Decoding into the current document gives merge semantics:
		// absent fields keep their values.
		return json.NewDecoder(r.Body).Decode(cfg)
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (m *Controller) postMeasure(w http.ResponseWriter, r *http.Request) {
	if err := m.StartRun("manual, web interface"); err != nil {
		if errors.Is(err, ErrBusy) {
			respondError(w, http.StatusConflict, "measurement_in_progress")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "measurement_started"})
}

func (m *Controller) postControl(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Action string `json:"action"`
		State  bool   `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	switch payload.Action {
	case "fill_solenoid":
		_ = m.fill.Write(payload.State)
		m.c.Diag().Logf("Fill solenoid %s via web interface", onOff(payload.State))
	case "empty_solenoid":
		_ = m.empty.Write(payload.State)
		m.c.Diag().Logf("Empty solenoid %s via web interface", onOff(payload.State))
	case "measuring_relay":
		_ = m.indicator.Write(payload.State)
		m.c.Diag().Logf("Measuring relay %s via web interface", onOff(payload.State))
	case "manual_mode":
		m.SetManualMode(payload.State)
	default:
		respondError(w, http.StatusBadRequest, "unknown action")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (m *Controller) postDateTime(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Year   int `json:"year"`
		Month  int `json:"month"`
		Day    int `json:"day"`
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
		Second int `json:"second"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Year < 2000 || payload.Month < 1 || payload.Month > 12 || payload.Day < 1 || payload.Day > 31 {
		respondError(w, http.StatusBadRequest, "invalid date")
		return
	}
	t := time.Date(payload.Year, time.Month(payload.Month), payload.Day,
		payload.Hour, payload.Minute, payload.Second, 0, time.Local)
	// time.Date normalizes impossible dates (Feb 30 becomes Mar 2); a
	// shifted result means the request named a day the month does not have
	if t.Year() != payload.Year || int(t.Month()) != payload.Month || t.Day() != payload.Day {
		respondError(w, http.StatusBadRequest, "invalid date")
		return
	}
	if err := m.c.Clock().Set(t); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	m.c.Diag().Logf("Clock set to %s", t.Format("2006-01-02 15:04:05"))
	// The schedule is date-sensitive; re-derive it under the new clock
	m.RecomputeSchedule()
	respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func onOff(state bool) string {
	if state {
		return "activated"
	}
	return "deactivated"
}
