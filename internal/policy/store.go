package policy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cbitforge/forge/internal/db"
)

// Store persists per-application threshold policies. A row holds the
// strategy mode and a JSON blob of overrides applied on top of the
// preset, so preset upgrades flow through to unmodified fields.
type Store struct {
	db *db.DB
}

// NewStore creates a policy store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Load resolves the effective policy for an application: preset, then
// stored overrides, then validation. Applications with no stored row
// get the safe_priority preset. A row that fails validation is
// rejected here, at load, never clamped.
func (s *Store) Load(ctx context.Context, appID int64) (ThresholdPolicy, error) {
	var mode string
	var overridesJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT strategy_mode, overrides FROM threshold_policies WHERE application_id = ?`,
		appID,
	).Scan(&mode, &overridesJSON)
	if err == sql.ErrNoRows {
		return Preset(StrategySafePriority), nil
	}
	if err != nil {
		return ThresholdPolicy{}, fmt.Errorf("loading policy for app %d: %w", appID, err)
	}

	var overrides Overrides
	if err := json.Unmarshal([]byte(overridesJSON), &overrides); err != nil {
		return ThresholdPolicy{}, fmt.Errorf("%w: bad overrides for app %d: %v", ErrInvalidPolicy, appID, err)
	}

	p := Preset(StrategyMode(mode)).Apply(overrides)
	if err := p.Validate(); err != nil {
		return ThresholdPolicy{}, fmt.Errorf("app %d: %w", appID, err)
	}
	return p, nil
}

// Save validates and stores the policy for an application. The full
// effective policy is validated before anything is written.
func (s *Store) Save(ctx context.Context, appID int64, mode StrategyMode, overrides Overrides) error {
	p := Preset(mode).Apply(overrides)
	if err := p.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("marshalling overrides: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO threshold_policies (application_id, strategy_mode, overrides, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(application_id) DO UPDATE SET
		   strategy_mode = excluded.strategy_mode,
		   overrides = excluded.overrides,
		   updated_at = excluded.updated_at`,
		appID, string(mode), string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving policy for app %d: %w", appID, err)
	}
	return nil
}
