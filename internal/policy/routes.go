package policy

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the policy API routes.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/policies", func(r chi.Router) {
		r.Get("/presets", handlePresets)
		r.Get("/{appID}", handleGetPolicy(store))
		r.Put("/{appID}", handlePutPolicy(store))
	})
}

func handlePresets(w http.ResponseWriter, r *http.Request) {
	presets := map[StrategyMode]ThresholdPolicy{
		StrategySafePriority:      Preset(StrategySafePriority),
		StrategyRealtimeKnowledge: Preset(StrategyRealtimeKnowledge),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(presets)
}

func handleGetPolicy(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, err := strconv.ParseInt(chi.URLParam(r, "appID"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
			return
		}

		p, err := store.Load(r.Context(), appID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrInvalidPolicy) {
				status = http.StatusConflict
			}
			http.Error(w, `{"error":"`+err.Error()+`"}`, status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}

type putPolicyRequest struct {
	StrategyMode StrategyMode `json:"strategy_mode"`
	Overrides    Overrides    `json:"overrides"`
}

func handlePutPolicy(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, err := strconv.ParseInt(chi.URLParam(r, "appID"), 10, 64)
		if err != nil {
			http.Error(w, `{"error":"invalid application id"}`, http.StatusBadRequest)
			return
		}

		var req putPolicyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		if err := store.Save(r.Context(), appID, req.StrategyMode, req.Overrides); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrInvalidPolicy) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, `{"error":"`+err.Error()+`"}`, status)
			return
		}

		p, err := store.Load(r.Context(), appID)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	}
}
