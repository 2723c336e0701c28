package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Store persists one running spend counter per provider in PostgreSQL,
// for deployments that want the ledger to survive restarts.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Load returns the persisted cumulative spend per provider id.
func (s *Store) Load(ctx context.Context) (map[string]float64, error) {
	query := `
		SELECT provider_id, total_spend
		FROM provider_spend
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query provider spend: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]float64)
	for rows.Next() {
		var providerID string
		var spend float64
		if err := rows.Scan(&providerID, &spend); err != nil {
			return nil, fmt.Errorf("failed to scan provider spend: %w", err)
		}
		totals[providerID] = spend
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return totals, nil
}

// Add increments a provider's running total using upsert.
func (s *Store) Add(ctx context.Context, providerID string, cost float64) error {
	query := `
		INSERT INTO provider_spend (provider_id, total_spend, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_id)
		DO UPDATE SET
			total_spend = provider_spend.total_spend + EXCLUDED.total_spend,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, providerID, cost, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert provider spend: %w", err)
	}

	return nil
}
