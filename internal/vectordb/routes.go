package vectordb

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the knowledge-base admin API under an
// application.
func RegisterRoutes(r chi.Router, registry *Registry, store VectorStore) {
	r.Route("/api/apps/{appID}/kbs", func(r chi.Router) {
		r.Get("/", listKBs(registry, store))
		r.Post("/", createKB(registry))
		r.Delete("/{kbID}", deleteKB(registry, store))
	})
}

type kbRequest struct {
	Name        string  `json:"name"`
	Priority    int     `json:"priority,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	BoostFactor float64 `json:"boost_factor,omitempty"`
}

type kbResponse struct {
	KnowledgeBase
	DocumentCount int `json:"document_count"`
}

func listKBs(registry *Registry, store VectorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, ok := kbPathID(w, r, "appID")
		if !ok {
			return
		}
		kbs, err := registry.ListByApp(r.Context(), appID)
		if err != nil {
			log.Printf("[vectordb] list failed: %v", err)
			http.Error(w, "failed to list knowledge bases", http.StatusInternalServerError)
			return
		}

		out := make([]kbResponse, 0, len(kbs))
		for _, kb := range kbs {
			out = append(out, kbResponse{KnowledgeBase: kb, DocumentCount: store.Count(kb.Collection)})
		}
		kbWriteJSON(w, http.StatusOK, out)
	}
}

func createKB(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, ok := kbPathID(w, r, "appID")
		if !ok {
			return
		}
		var req kbRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		kb := &KnowledgeBase{
			ApplicationID: appID,
			Name:          req.Name,
			Collection:    CollectionName(appID, req.Name),
			Priority:      req.Priority,
			Weight:        req.Weight,
			BoostFactor:   req.BoostFactor,
		}
		if err := registry.Create(r.Context(), kb); err != nil {
			log.Printf("[vectordb] create failed: %v", err)
			http.Error(w, "failed to create knowledge base", http.StatusInternalServerError)
			return
		}
		kbWriteJSON(w, http.StatusCreated, kb)
	}
}

func deleteKB(registry *Registry, store VectorStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appID, ok := kbPathID(w, r, "appID")
		if !ok {
			return
		}
		kbID, ok := kbPathID(w, r, "kbID")
		if !ok {
			return
		}

		kb, err := registry.Get(r.Context(), kbID)
		if errors.Is(err, ErrKBNotFound) || (err == nil && kb.ApplicationID != appID) {
			http.Error(w, "knowledge base not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "failed to load knowledge base", http.StatusInternalServerError)
			return
		}

		if err := registry.Delete(r.Context(), kbID); err != nil {
			log.Printf("[vectordb] delete failed: %v", err)
			http.Error(w, "failed to delete knowledge base", http.StatusInternalServerError)
			return
		}
		if err := store.DeleteCollection(kb.Collection); err != nil {
			log.Printf("[vectordb] drop collection %q: %v", kb.Collection, err)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CollectionName derives the chromem collection name for an
// application's knowledge base.
func CollectionName(appID int64, name string) string {
	return "app" + strconv.FormatInt(appID, 10) + "-" + name
}

func kbPathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func kbWriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[vectordb] encode response: %v", err)
	}
}
