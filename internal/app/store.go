package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cbitforge/forge/internal/db"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9-]+`)

// Store persists applications in sqlite.
type Store struct {
	db *db.DB
}

func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create registers an application. A missing endpoint path is derived
// from the name; the API key is always server-minted.
func (s *Store) Create(ctx context.Context, a *Application) error {
	if a.EndpointPath == "" {
		a.EndpointPath = Slugify(a.Name)
	}
	if a.EndpointPath == "" {
		return fmt.Errorf("application needs a name or endpoint path")
	}
	a.APIKey = "forge-" + uuid.NewString()
	a.IsActive = true

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (name, endpoint_path, api_key, is_active, llm_model, system_prompt)
		 VALUES (?, ?, ?, 1, ?, ?)`,
		a.Name, a.EndpointPath, a.APIKey, a.LLMModel, a.SystemPrompt)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (s *Store) Get(ctx context.Context, id int64) (*Application, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	return scanApp(row)
}

// GetByEndpoint resolves the application serving an endpoint path.
// Inactive applications are invisible here so deactivation cuts access
// immediately.
func (s *Store) GetByEndpoint(ctx context.Context, endpoint string) (*Application, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE endpoint_path = ? AND is_active = 1`, endpoint)
	return scanApp(row)
}

func (s *Store) List(ctx context.Context) ([]Application, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

// Update changes the mutable fields; key and endpoint are fixed at
// creation.
func (s *Store) Update(ctx context.Context, a *Application) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications SET name=?, is_active=?, llm_model=?, system_prompt=?, updated_at=datetime('now')
		 WHERE id=?`,
		a.Name, boolToInt(a.IsActive), a.LLMModel, a.SystemPrompt, a.ID)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM applications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementRequests bumps the served-request counter.
func (s *Store) IncrementRequests(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE applications SET total_requests = total_requests + 1 WHERE id = ?`, id)
	return err
}

// Slugify turns a display name into an endpoint path segment.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugPattern.ReplaceAllString(s, "")
	return strings.Trim(s, "-")
}

const selectColumns = `SELECT id, name, endpoint_path, api_key, is_active, llm_model, system_prompt, total_requests, created_at, updated_at FROM applications`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApp(row rowScanner) (*Application, error) {
	var a Application
	var isActive int
	err := row.Scan(&a.ID, &a.Name, &a.EndpointPath, &a.APIKey, &isActive,
		&a.LLMModel, &a.SystemPrompt, &a.TotalRequests, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.IsActive = isActive != 0
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
