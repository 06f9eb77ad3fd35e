package overlay

import (
	"encoding/json"
	"net/http"
)

// Status is the control surface's read-only view of the orchestrator
// (C6). It is a plain value type so this package never has to import
// the orchestrator package back (the orchestrator already imports
// overlay for the Sink interface; importing it here would cycle).
type Status struct {
	Phase          string `json:"phase"`
	ActiveAdvisor  string `json:"active_advisor"`
	SchedulerState string `json:"scheduler_state"`
}

// Controller is the subset of the orchestrator's API the control
// handlers need. The orchestrator implements this directly.
type Controller interface {
	OverlayStatus() Status
	ReloadCredential(region, secret string)
}

type reloadKeyRequest struct {
	Region string `json:"region"`
	Secret string `json:"secret"`
}

func statusHandler(c Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.OverlayStatus())
	}
}

func reloadKeyHandler(c Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reloadKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Secret == "" {
			http.Error(w, "missing secret", http.StatusBadRequest)
			return
		}
		c.ReloadCredential(req.Region, req.Secret)
		w.WriteHeader(http.StatusNoContent)
	}
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
