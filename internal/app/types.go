// Package app manages client applications: the tenants that own fixed
// QA pairs, knowledge bases, and a threshold policy, and that call the
// chat endpoint with their own API key.
package app

import (
	"errors"
	"time"
)

// ErrNotFound is returned when an application does not exist.
var ErrNotFound = errors.New("application not found")

// Application is one registered tenant.
type Application struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	EndpointPath  string    `json:"endpoint_path"`
	APIKey        string    `json:"api_key"`
	IsActive      bool      `json:"is_active"`
	LLMModel      string    `json:"llm_model,omitempty"`
	SystemPrompt  string    `json:"system_prompt,omitempty"`
	TotalRequests int64     `json:"total_requests"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RetrievalLog records one answered request for later inspection.
type RetrievalLog struct {
	ID            string    `json:"id"`
	ApplicationID int64     `json:"application_id"`
	Query         string    `json:"query"`
	Action        string    `json:"action"`
	Tier          string    `json:"tier"`
	MatchedSource string    `json:"matched_source"`
	Confidence    float64   `json:"confidence"`
	RetrievalMS   int64     `json:"retrieval_ms"`
	GenerationMS  int64     `json:"generation_ms"`
	CreatedAt     time.Time `json:"created_at"`
}
