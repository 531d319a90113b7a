package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cbitforge/forge/internal/db"
)

// LogStore persists per-request retrieval logs.
type LogStore struct {
	db *db.DB
}

func NewLogStore(database *db.DB) *LogStore {
	return &LogStore{db: database}
}

// Insert records one answered request. The id is minted here.
func (s *LogStore) Insert(ctx context.Context, l *RetrievalLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO retrieval_logs (id, application_id, query, action, tier, matched_source, confidence, retrieval_ms, generation_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ApplicationID, l.Query, l.Action, l.Tier, l.MatchedSource, l.Confidence, l.RetrievalMS, l.GenerationMS)
	if err != nil {
		return fmt.Errorf("insert retrieval log: %w", err)
	}
	return nil
}

// ListByApp returns the most recent logs for an application.
func (s *LogStore) ListByApp(ctx context.Context, appID int64, limit int) ([]RetrievalLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, application_id, query, action, tier, matched_source, confidence, retrieval_ms, generation_ms, created_at
		 FROM retrieval_logs WHERE application_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, appID, limit)
	if err != nil {
		return nil, fmt.Errorf("list retrieval logs: %w", err)
	}
	defer rows.Close()

	var logs []RetrievalLog
	for rows.Next() {
		var l RetrievalLog
		if err := rows.Scan(&l.ID, &l.ApplicationID, &l.Query, &l.Action, &l.Tier,
			&l.MatchedSource, &l.Confidence, &l.RetrievalMS, &l.GenerationMS, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
