package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cbitforge/forge/internal/app"
	"github.com/cbitforge/forge/internal/compose"
	"github.com/cbitforge/forge/internal/confirm"
	"github.com/cbitforge/forge/internal/fusion"
	"github.com/cbitforge/forge/internal/llm"
	"github.com/cbitforge/forge/internal/retrieval"
)

type errorResponse struct {
	Error string `json:"error"`
}

// authApp resolves and authenticates the application for a public chat
// request. A missing app and a bad key are indistinguishable to the
// caller.
func (s *Server) authApp(r *http.Request) (*app.Application, error) {
	endpoint := chi.URLParam(r, "endpoint")
	a, err := s.apps.GetByEndpoint(r.Context(), endpoint)
	if err != nil {
		return nil, errors.New("unknown application or invalid API key")
	}

	auth := r.Header.Get("Authorization")
	key, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || key != a.APIKey {
		return nil, errors.New("unknown application or invalid API key")
	}
	return a, nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	a, err := s.authApp(r)
	if err != nil {
		writeJSONStatus(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
		return
	}

	var req compose.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	resp, status, err := s.answer(r, a, &req)
	if err != nil {
		writeJSONStatus(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSONStatus(w, http.StatusOK, resp)
}

// answer runs one request through policy load, fusion, and composition,
// then records the outcome.
func (s *Server) answer(r *http.Request, a *app.Application, req *compose.ChatRequest) (*compose.ChatResponse, int, error) {
	ctx := r.Context()

	question := req.Question()
	if question == "" && req.SelectedQAID == nil {
		return nil, http.StatusBadRequest, errors.New("no user message in request")
	}

	pol, err := s.policies.Load(ctx, a.ID)
	if err != nil {
		log.Printf("[server] policy load for app %d: %v", a.ID, err)
		return nil, http.StatusInternalServerError, errors.New("policy configuration error")
	}

	decision, err := s.engine.Decide(ctx, fusion.Request{
		AppID:             a.ID,
		Question:          question,
		SkipFixedQA:       req.SkipFixedQA,
		SelectedQAID:      req.SelectedQAID,
		ConfirmationToken: req.ConfirmationToken,
		ForceWebSearch:    req.ForceWebSearch,
	}, &pol)
	if errors.Is(err, confirm.ErrSessionExpired) {
		return nil, http.StatusGone, err
	}
	if errors.Is(err, fusion.ErrAllSourcesFailed) {
		return nil, http.StatusServiceUnavailable, err
	}
	if err != nil {
		log.Printf("[server] fusion failed for app %d: %v", a.ID, err)
		return nil, http.StatusInternalServerError, errors.New("failed to answer")
	}

	model := a.LLMModel
	if model == "" {
		model = s.model
	}
	gen := llm.NewGenerator(s.provider, model, a.SystemPrompt)

	resp, err := compose.Compose(ctx, decision, gen, question, model)
	if err != nil {
		log.Printf("[server] compose failed for app %d: %v", a.ID, err)
		return nil, http.StatusBadGateway, errors.New("answer generation failed")
	}

	s.record(r, a, question, decision, resp)
	return resp, http.StatusOK, nil
}

// record updates counters and the retrieval log. Failures here never
// fail the request.
func (s *Server) record(r *http.Request, a *app.Application, question string, d *fusion.Decision, resp *compose.ChatResponse) {
	ctx := r.Context()

	if err := s.apps.IncrementRequests(ctx, a.ID); err != nil {
		log.Printf("[server] increment requests: %v", err)
	}
	if d.Action == fusion.ActionDirectAnswer && d.Primary != nil && d.Primary.Source == retrieval.SourceFixedQA {
		if err := s.qaStore.RecordHit(ctx, a.ID, d.Primary.ID); err != nil {
			log.Printf("[server] record hit: %v", err)
		}
	}

	err := s.logs.Insert(ctx, &app.RetrievalLog{
		ApplicationID: a.ID,
		Query:         question,
		Action:        string(d.Action),
		Tier:          string(d.Tier),
		MatchedSource: d.Source,
		Confidence:    d.Confidence,
		RetrievalMS:   d.RetrievalMS,
		GenerationMS:  resp.Choices[0].Message.Metadata.Timing.GenerationMS,
	})
	if err != nil {
		log.Printf("[server] insert retrieval log: %v", err)
	}
}

// handleTestRetrieval runs fusion without generation so admins can
// inspect what a question would match.
func (s *Server) handleTestRetrieval(w http.ResponseWriter, r *http.Request) {
	appID, err := strconv.ParseInt(chi.URLParam(r, "appID"), 10, 64)
	if err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid application id"})
		return
	}
	if _, err := s.apps.Get(r.Context(), appID); err != nil {
		writeJSONStatus(w, http.StatusNotFound, errorResponse{Error: "application not found"})
		return
	}

	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "question is required"})
		return
	}

	pol, err := s.policies.Load(r.Context(), appID)
	if err != nil {
		writeJSONStatus(w, http.StatusInternalServerError, errorResponse{Error: "policy configuration error"})
		return
	}

	d, err := s.engine.Decide(r.Context(), fusion.Request{AppID: appID, Question: req.Question}, &pol)
	if err != nil {
		writeJSONStatus(w, http.StatusOK, map[string]any{"error": err.Error()})
		return
	}

	writeJSONStatus(w, http.StatusOK, map[string]any{
		"action":      d.Action,
		"tier":        d.Tier,
		"confidence":  d.Confidence,
		"source":      d.Source,
		"explanation": d.Explanation,
		"context":     d.Context,
		"suggestions": d.Suggestions,
	})
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] encode response: %v", err)
	}
}
