package fixedqa

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cbitforge/forge/internal/db"
	"github.com/cbitforge/forge/internal/embeddings"
)

// Store persists QA pairs in sqlite. Question embeddings are computed
// on insert and kept alongside the row so matching never re-embeds the
// corpus.
type Store struct {
	db       *db.DB
	embedder embeddings.Embedder
}

func NewStore(database *db.DB, embedder embeddings.Embedder) *Store {
	return &Store{db: database, embedder: embedder}
}

// Create embeds the question and inserts the pair.
func (s *Store) Create(ctx context.Context, p *Pair) error {
	vecs, err := s.embedder.Embed(ctx, []string{p.Question})
	if err != nil {
		return fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return fmt.Errorf("embedder returned %d vectors for 1 text", len(vecs))
	}
	p.embedding = vecs[0]

	embJSON, err := json.Marshal(p.embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	kwJSON, err := json.Marshal(keywordsOrEmpty(p.Keywords))
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO fixed_qa_pairs (application_id, question, answer, category, keywords, priority, is_active, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ApplicationID, p.Question, p.Answer, p.Category, string(kwJSON), p.Priority, boolToInt(p.IsActive), string(embJSON))
	if err != nil {
		return fmt.Errorf("insert QA pair: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// Update replaces the mutable fields of a pair, re-embedding when the
// question changed.
func (s *Store) Update(ctx context.Context, p *Pair) error {
	existing, err := s.Get(ctx, p.ApplicationID, p.ID)
	if err != nil {
		return err
	}

	embJSON := ""
	if existing.Question != p.Question {
		vecs, err := s.embedder.Embed(ctx, []string{p.Question})
		if err != nil {
			return fmt.Errorf("embed question: %w", err)
		}
		raw, err := json.Marshal(vecs[0])
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
		embJSON = string(raw)
	}

	kwJSON, err := json.Marshal(keywordsOrEmpty(p.Keywords))
	if err != nil {
		return fmt.Errorf("marshal keywords: %w", err)
	}

	if embJSON != "" {
		_, err = s.db.ExecContext(ctx,
			`UPDATE fixed_qa_pairs SET question=?, answer=?, category=?, keywords=?, priority=?, is_active=?, embedding=?
			 WHERE id=? AND application_id=?`,
			p.Question, p.Answer, p.Category, string(kwJSON), p.Priority, boolToInt(p.IsActive), embJSON, p.ID, p.ApplicationID)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE fixed_qa_pairs SET question=?, answer=?, category=?, keywords=?, priority=?, is_active=?
			 WHERE id=? AND application_id=?`,
			p.Question, p.Answer, p.Category, string(kwJSON), p.Priority, boolToInt(p.IsActive), p.ID, p.ApplicationID)
	}
	if err != nil {
		return fmt.Errorf("update QA pair: %w", err)
	}
	return nil
}

// Get returns one pair regardless of active state.
func (s *Store) Get(ctx context.Context, appID, id int64) (*Pair, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, application_id, question, answer, category, keywords, priority, is_active, embedding, hit_count, last_hit_at, created_at
		 FROM fixed_qa_pairs WHERE id = ? AND application_id = ?`, id, appID)
	p, err := scanPair(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// ListActive returns an application's active pairs with embeddings loaded.
func (s *Store) ListActive(ctx context.Context, appID int64) ([]*Pair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, application_id, question, answer, category, keywords, priority, is_active, embedding, hit_count, last_hit_at, created_at
		 FROM fixed_qa_pairs WHERE application_id = ? AND is_active = 1 ORDER BY id ASC`, appID)
	if err != nil {
		return nil, fmt.Errorf("list QA pairs: %w", err)
	}
	defer rows.Close()

	var pairs []*Pair
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// List returns all pairs of an application, active or not.
func (s *Store) List(ctx context.Context, appID int64) ([]*Pair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, application_id, question, answer, category, keywords, priority, is_active, embedding, hit_count, last_hit_at, created_at
		 FROM fixed_qa_pairs WHERE application_id = ? ORDER BY id ASC`, appID)
	if err != nil {
		return nil, fmt.Errorf("list QA pairs: %w", err)
	}
	defer rows.Close()

	var pairs []*Pair
	for rows.Next() {
		p, err := scanPair(rows)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// Delete removes a pair.
func (s *Store) Delete(ctx context.Context, appID, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM fixed_qa_pairs WHERE id = ? AND application_id = ?`, id, appID)
	if err != nil {
		return fmt.Errorf("delete QA pair: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordHit bumps the hit counter when a pair's answer is served.
func (s *Store) RecordHit(ctx context.Context, appID, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE fixed_qa_pairs SET hit_count = hit_count + 1, last_hit_at = datetime('now')
		 WHERE id = ? AND application_id = ?`, id, appID)
	if err != nil {
		return fmt.Errorf("record hit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPair(row rowScanner) (*Pair, error) {
	var p Pair
	var kwJSON, embJSON string
	var isActive int
	var lastHit sql.NullTime
	err := row.Scan(&p.ID, &p.ApplicationID, &p.Question, &p.Answer, &p.Category,
		&kwJSON, &p.Priority, &isActive, &embJSON, &p.HitCount, &lastHit, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.IsActive = isActive != 0
	if lastHit.Valid {
		t := lastHit.Time
		p.LastHitAt = &t
	}
	if err := json.Unmarshal([]byte(kwJSON), &p.Keywords); err != nil {
		return nil, fmt.Errorf("unmarshal keywords: %w", err)
	}
	if err := json.Unmarshal([]byte(embJSON), &p.embedding); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}
	return &p, nil
}

func keywordsOrEmpty(kw []string) []string {
	if kw == nil {
		return []string{}
	}
	return kw
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
