package vectordb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cbitforge/forge/internal/db"
)

// ErrKBNotFound is returned when a knowledge base does not exist.
var ErrKBNotFound = errors.New("knowledge base not found")

// KnowledgeBase is a named, weighted slice of an application's corpus.
// Priority orders bases when adjusted scores tie (lower wins); Weight and
// BoostFactor scale raw similarity scores before fusion.
type KnowledgeBase struct {
	ID            int64   `json:"id"`
	ApplicationID int64   `json:"application_id"`
	Name          string  `json:"name"`
	Collection    string  `json:"collection"`
	Priority      int     `json:"priority"`
	Weight        float64 `json:"weight"`
	BoostFactor   float64 `json:"boost_factor"`
}

// Registry persists knowledge-base definitions in sqlite.
type Registry struct {
	db *db.DB
}

func NewRegistry(database *db.DB) *Registry {
	return &Registry{db: database}
}

func (r *Registry) Create(ctx context.Context, kb *KnowledgeBase) error {
	if kb.Weight <= 0 {
		kb.Weight = 1.0
	}
	if kb.BoostFactor <= 0 {
		kb.BoostFactor = 1.0
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO knowledge_bases (application_id, name, collection, priority, weight, boost_factor)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		kb.ApplicationID, kb.Name, kb.Collection, kb.Priority, kb.Weight, kb.BoostFactor)
	if err != nil {
		return fmt.Errorf("insert knowledge base: %w", err)
	}
	kb.ID, err = res.LastInsertId()
	return err
}

func (r *Registry) Get(ctx context.Context, id int64) (*KnowledgeBase, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, application_id, name, collection, priority, weight, boost_factor
		 FROM knowledge_bases WHERE id = ?`, id)
	kb, err := scanKB(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKBNotFound
	}
	return kb, err
}

// ListByApp returns an application's knowledge bases ordered by priority.
func (r *Registry) ListByApp(ctx context.Context, appID int64) ([]KnowledgeBase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, application_id, name, collection, priority, weight, boost_factor
		 FROM knowledge_bases WHERE application_id = ? ORDER BY priority ASC, id ASC`, appID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge bases: %w", err)
	}
	defer rows.Close()

	var kbs []KnowledgeBase
	for rows.Next() {
		kb, err := scanKB(rows)
		if err != nil {
			return nil, err
		}
		kbs = append(kbs, *kb)
	}
	return kbs, rows.Err()
}

func (r *Registry) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM knowledge_bases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete knowledge base: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrKBNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKB(row rowScanner) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	err := row.Scan(&kb.ID, &kb.ApplicationID, &kb.Name, &kb.Collection,
		&kb.Priority, &kb.Weight, &kb.BoostFactor)
	if err != nil {
		return nil, err
	}
	return &kb, nil
}
