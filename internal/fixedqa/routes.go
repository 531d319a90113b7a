package fixedqa

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the QA pair admin API under an application.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/api/apps/{appID}/qa", func(r chi.Router) {
		r.Get("/", listPairs(store))
		r.Post("/", createPair(store))
		r.Put("/{qaID}", updatePair(store))
		r.Delete("/{qaID}", deletePair(store))
	})
}

type pairRequest struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Category string   `json:"category,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
	Priority int      `json:"priority,omitempty"`
	IsActive *bool    `json:"is_active,omitempty"`
}

func listPairs(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, ok := pathID(w, r, "appID")
		if !ok {
			return
		}
		pairs, err := store.List(r.Context(), appID)
		if err != nil {
			log.Printf("[fixedqa] list failed: %v", err)
			http.Error(w, "failed to list QA pairs", http.StatusInternalServerError)
			return
		}
		if pairs == nil {
			pairs = []*Pair{}
		}
		writeJSON(w, http.StatusOK, pairs)
	}
}

func createPair(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, ok := pathID(w, r, "appID")
		if !ok {
			return
		}
		var req pairRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Question == "" || req.Answer == "" {
			http.Error(w, "question and answer are required", http.StatusBadRequest)
			return
		}

		active := true
		if req.IsActive != nil {
			active = *req.IsActive
		}
		p := &Pair{
			ApplicationID: appID,
			Question:      req.Question,
			Answer:        req.Answer,
			Category:      req.Category,
			Keywords:      req.Keywords,
			Priority:      req.Priority,
			IsActive:      active,
		}
		if err := store.Create(r.Context(), p); err != nil {
			log.Printf("[fixedqa] create failed: %v", err)
			http.Error(w, "failed to create QA pair", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func updatePair(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, ok := pathID(w, r, "appID")
		if !ok {
			return
		}
		qaID, ok := pathID(w, r, "qaID")
		if !ok {
			return
		}

		p, err := store.Get(r.Context(), appID, qaID)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "QA pair not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load QA pair", http.StatusInternalServerError)
			return
		}

		var req pairRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Question != "" {
			p.Question = req.Question
		}
		if req.Answer != "" {
			p.Answer = req.Answer
		}
		p.Category = req.Category
		p.Keywords = req.Keywords
		p.Priority = req.Priority
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}

		if err := store.Update(r.Context(), p); err != nil {
			log.Printf("[fixedqa] update failed: %v", err)
			http.Error(w, "failed to update QA pair", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func deletePair(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, ok := pathID(w, r, "appID")
		if !ok {
			return
		}
		qaID, ok := pathID(w, r, "qaID")
		if !ok {
			return
		}
		err := store.Delete(r.Context(), appID, qaID)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "QA pair not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Printf("[fixedqa] delete failed: %v", err)
			http.Error(w, "failed to delete QA pair", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[fixedqa] encode response: %v", err)
	}
}
