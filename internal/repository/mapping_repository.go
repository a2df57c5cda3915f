package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// PostgresMappingStore implements MappingStore using PostgreSQL.
type PostgresMappingStore struct {
	pool *pgxpool.Pool
}

// NewPostgresMappingStore creates a new PostgresMappingStore.
func NewPostgresMappingStore(pool *pgxpool.Pool) *PostgresMappingStore {
	return &PostgresMappingStore{pool: pool}
}

// ListValues returns the canonical picklist values for one category.
func (r *PostgresMappingStore) ListValues(ctx context.Context, orgID uuid.UUID, category string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT value FROM picklist_values
		WHERE organization_id = $1 AND category = $2
		ORDER BY value
	`, orgID, category)
	if err != nil {
		return nil, fmt.Errorf("query picklist values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan picklist value: %w", err)
		}
		values = append(values, v)
	}

	return values, rows.Err()
}

// CreateValue adds a canonical picklist value. Inserting a value that
// already exists is not an error; auto-create must stay idempotent.
func (r *PostgresMappingStore) CreateValue(ctx context.Context, orgID uuid.UUID, category, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO picklist_values (id, organization_id, category, value, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (organization_id, category, value) DO NOTHING
	`, uuid.New(), orgID, category, value)

	if err != nil {
		return classifyError("insert picklist value", err)
	}
	return nil
}

// GetConfig retrieves the named mapping config for a source system.
// Returns (nil, nil) when none is stored.
func (r *PostgresMappingStore) GetConfig(ctx context.Context, orgID uuid.UUID, sourceSystem string) (*domain.MappingConfig, error) {
	var raw []byte

	err := r.pool.QueryRow(ctx, `
		SELECT config FROM import_type_mappings
		WHERE organization_id = $1 AND source_system = $2
	`, orgID, sourceSystem).Scan(&raw)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping config: %w", err)
	}

	var config domain.MappingConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("unmarshal mapping config: %w", err)
	}

	return &config, nil
}

// SaveConfig stores (or replaces) the mapping config for a source
// system.
func (r *PostgresMappingStore) SaveConfig(ctx context.Context, orgID uuid.UUID, config *domain.MappingConfig) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal mapping config: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO import_type_mappings (id, organization_id, source_system, name, config, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (organization_id, source_system)
		DO UPDATE SET name = EXCLUDED.name, config = EXCLUDED.config, updated_at = NOW()
	`, uuid.New(), orgID, config.SourceSystem, config.Name, raw)

	if err != nil {
		return classifyError("save mapping config", err)
	}
	return nil
}
