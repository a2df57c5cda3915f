package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// PostgresUserDirectory implements UserDirectory against the users
// table. The engine only reads it; user provisioning belongs to the
// surrounding application.
type PostgresUserDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresUserDirectory creates a new PostgresUserDirectory.
func NewPostgresUserDirectory(pool *pgxpool.Pool) *PostgresUserDirectory {
	return &PostgresUserDirectory{pool: pool}
}

// EmailIndex loads the email→id table for one organization, normalized
// for case-insensitive lookup. It is read once per batch.
func (r *PostgresUserDirectory) EmailIndex(ctx context.Context, orgID uuid.UUID) (map[string]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT email, id FROM users WHERE organization_id = $1
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	index := make(map[string]uuid.UUID)
	for rows.Next() {
		var email string
		var id uuid.UUID
		if err := rows.Scan(&email, &id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		index[domain.NormalizeEmail(email)] = id
	}

	return index, rows.Err()
}
