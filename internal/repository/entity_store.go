package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
)

// budgetColumns are the case columns the budget pseudo-entity may touch.
var budgetColumns = []string{"budget_amount", "budget_hours"}

// PostgresEntityStore implements EntityStore using PostgreSQL. All
// table and column names come from the immutable entity catalog, never
// from request data.
type PostgresEntityStore struct {
	pool    *pgxpool.Pool
	catalog *domain.Catalog
}

// NewPostgresEntityStore creates a new PostgresEntityStore.
func NewPostgresEntityStore(pool *pgxpool.Pool, catalog *domain.Catalog) *PostgresEntityStore {
	return &PostgresEntityStore{pool: pool, catalog: catalog}
}

// Insert creates one business row. Columns outside the entity's catalog
// spec are rejected rather than silently dropped: by the time a record
// reaches the store, resolution has already restricted it.
func (s *PostgresEntityStore) Insert(ctx context.Context, entity domain.EntityType, orgID uuid.UUID, columns map[string]any) (uuid.UUID, error) {
	spec, ok := s.catalog.Spec(entity)
	if !ok {
		return uuid.Nil, &StoreError{
			Code:    domain.ErrCodeUnknown,
			Message: fmt.Sprintf("no catalog entry for entity type %q", entity),
		}
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		if !spec.AllowsColumn(name) {
			return uuid.Nil, &StoreError{
				Code:    domain.ErrCodeValidationFailed,
				Message: fmt.Sprintf("column %q is not part of the %s schema", name, entity),
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	id := uuid.New()
	cols := []string{"id", "organization_id"}
	args := []any{id, orgID}
	for _, name := range names {
		cols = append(cols, name)
		args = append(args, columns[name])
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s, created_at, updated_at) VALUES (%s, NOW(), NOW())",
		spec.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return uuid.Nil, classifyError(fmt.Sprintf("insert %s", entity), err)
	}

	return id, nil
}

// UpdateCaseBudget applies budget columns to an existing case row and
// returns the prior values so a failed batch can restore them.
func (s *PostgresEntityStore) UpdateCaseBudget(ctx context.Context, caseID uuid.UUID, columns map[string]any) (map[string]any, error) {
	var priorAmount, priorHours any
	err := s.pool.QueryRow(ctx,
		"SELECT budget_amount, budget_hours FROM cases WHERE id = $1",
		caseID,
	).Scan(&priorAmount, &priorHours)
	if err != nil {
		return nil, classifyError("read case budget", err)
	}

	prior := map[string]any{"budget_amount": priorAmount, "budget_hours": priorHours}

	sets := make([]string, 0, len(budgetColumns))
	args := []any{caseID}
	for _, name := range budgetColumns {
		if value, ok := columns[name]; ok {
			args = append(args, value)
			sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
		}
	}
	if len(sets) == 0 {
		return prior, nil
	}

	query := fmt.Sprintf("UPDATE cases SET %s, updated_at = NOW() WHERE id = $1", strings.Join(sets, ", "))
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return nil, classifyError("update case budget", err)
	}

	return prior, nil
}

// RestoreCaseBudget writes previously captured budget columns back.
func (s *PostgresEntityStore) RestoreCaseBudget(ctx context.Context, caseID uuid.UUID, prior map[string]any) error {
	_, err := s.pool.Exec(ctx,
		"UPDATE cases SET budget_amount = $2, budget_hours = $3, updated_at = NOW() WHERE id = $1",
		caseID, prior["budget_amount"], prior["budget_hours"],
	)
	if err != nil {
		return classifyError("restore case budget", err)
	}
	return nil
}

// Delete removes rows by id from one entity's table.
func (s *PostgresEntityStore) Delete(ctx context.Context, entity domain.EntityType, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	table := s.catalog.Table(entity)
	if table == "" {
		return &StoreError{
			Code:    domain.ErrCodeUnknown,
			Message: fmt.Sprintf("no catalog entry for entity type %q", entity),
		}
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", table)
	if _, err := s.pool.Exec(ctx, query, ids); err != nil {
		return classifyError(fmt.Sprintf("delete %s rows", entity), err)
	}
	return nil
}
