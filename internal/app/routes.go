package app

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the application admin API.
func RegisterRoutes(r chi.Router, store *Store, logs *LogStore) {
	r.Route("/api/apps", func(r chi.Router) {
		r.Get("/", listApps(store))
		r.Post("/", createApp(store))
		r.Get("/{appID}", getApp(store))
		r.Put("/{appID}", updateApp(store))
		r.Delete("/{appID}", deleteApp(store))
		r.Get("/{appID}/logs", listLogs(logs))
	})
}

type createAppRequest struct {
	Name         string `json:"name"`
	EndpointPath string `json:"endpoint_path,omitempty"`
	LLMModel     string `json:"llm_model,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

func createApp(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAppRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		a := &Application{
			Name:         req.Name,
			EndpointPath: req.EndpointPath,
			LLMModel:     req.LLMModel,
			SystemPrompt: req.SystemPrompt,
		}
		if err := store.Create(r.Context(), a); err != nil {
			log.Printf("[app] create failed: %v", err)
			http.Error(w, "failed to create application", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func listApps(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		apps, err := store.List(r.Context())
		if err != nil {
			log.Printf("[app] list failed: %v", err)
			http.Error(w, "failed to list applications", http.StatusInternalServerError)
			return
		}
		if apps == nil {
			apps = []Application{}
		}
		writeJSON(w, http.StatusOK, apps)
	}
}

func getApp(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appID(w, r)
		if !ok {
			return
		}
		a, err := store.Get(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "application not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("[app] get failed: %v", err)
			http.Error(w, "failed to load application", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

type updateAppRequest struct {
	Name         string `json:"name"`
	IsActive     *bool  `json:"is_active,omitempty"`
	LLMModel     string `json:"llm_model"`
	SystemPrompt string `json:"system_prompt"`
}

func updateApp(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appID(w, r)
		if !ok {
			return
		}
		a, err := store.Get(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "application not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load application", http.StatusInternalServerError)
			return
		}

		var req updateAppRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name != "" {
			a.Name = req.Name
		}
		if req.IsActive != nil {
			a.IsActive = *req.IsActive
		}
		a.LLMModel = req.LLMModel
		a.SystemPrompt = req.SystemPrompt

		if err := store.Update(r.Context(), a); err != nil {
			log.Printf("[app] update failed: %v", err)
			http.Error(w, "failed to update application", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func deleteApp(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appID(w, r)
		if !ok {
			return
		}
		err := store.Delete(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "application not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("[app] delete failed: %v", err)
			http.Error(w, "failed to delete application", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listLogs(logs *LogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := appID(w, r)
		if !ok {
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		entries, err := logs.ListByApp(r.Context(), id, limit)
		if err != nil {
			log.Printf("[app] list logs failed: %v", err)
			http.Error(w, "failed to list logs", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []RetrievalLog{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func appID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "appID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid application id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[app] encode response: %v", err)
	}
}
