// Package fixedqa manages curated question/answer pairs and matches
// incoming questions against them by embedding similarity.
package fixedqa

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a QA pair does not exist or is inactive.
var ErrNotFound = errors.New("fixed QA pair not found")

// Pair is one curated question with its canonical answer.
type Pair struct {
	ID            int64      `json:"id"`
	ApplicationID int64      `json:"application_id"`
	Question      string     `json:"question"`
	Answer        string     `json:"answer"`
	Category      string     `json:"category,omitempty"`
	Keywords      []string   `json:"keywords,omitempty"`
	Priority      int        `json:"priority"`
	IsActive      bool       `json:"is_active"`
	HitCount      int64      `json:"hit_count"`
	LastHitAt     *time.Time `json:"last_hit_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	embedding []float32
}
