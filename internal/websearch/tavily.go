// Package websearch augments answers with live web results via the
// Tavily search API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cbitforge/forge/internal/config"
	"github.com/cbitforge/forge/internal/retrieval"
)

const defaultBaseURL = "https://api.tavily.com"

// Client calls the Tavily search API. The API key is read from the
// TAVILY_API_KEY environment variable, never from config files.
type Client struct {
	baseURL        string
	apiKey         string
	maxResults     int
	includeDomains []string
	excludeDomains []string
	httpClient     *http.Client
}

func NewClient(cfg config.WebSearchConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Client{
		baseURL:        baseURL,
		apiKey:         os.Getenv("TAVILY_API_KEY"),
		maxResults:     maxResults,
		includeDomains: cfg.IncludeDomains,
		excludeDomains: cfg.ExcludeDomains,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

type searchRequest struct {
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	IncludeAnswer  bool     `json:"include_answer"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type searchResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

// Search implements retrieval.WebSearcher. Tavily's synthesized answer,
// when present, becomes an extra candidate scored at the level of the
// best raw result.
func (c *Client) Search(ctx context.Context, question string) ([]retrieval.Candidate, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("TAVILY_API_KEY is not set")
	}

	body, err := json.Marshal(searchRequest{
		Query:          question,
		MaxResults:     c.maxResults,
		IncludeAnswer:  true,
		IncludeDomains: c.includeDomains,
		ExcludeDomains: c.excludeDomains,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tavily returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tavily response: %w", err)
	}

	cands := make([]retrieval.Candidate, 0, len(result.Results)+1)
	best := 0.0
	for i, r := range result.Results {
		if r.Score > best {
			best = r.Score
		}
		cands = append(cands, retrieval.Candidate{
			Source: retrieval.SourceWeb,
			ID:     int64(i + 1),
			Text:   r.Content,
			Score:  clamp01(r.Score),
			Payload: retrieval.Payload{
				Title: r.Title,
				URL:   r.URL,
				Date:  r.PublishedDate,
			},
		})
	}

	if result.Answer != "" {
		score := best
		if score == 0 {
			score = 0.5
		}
		cands = append(cands, retrieval.Candidate{
			Source: retrieval.SourceWeb,
			ID:     0,
			Text:   result.Answer,
			Score:  clamp01(score),
			Payload: retrieval.Payload{
				Title: "Search summary",
			},
		})
	}

	retrieval.SortCandidates(cands)
	return cands, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
