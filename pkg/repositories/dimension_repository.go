package repositories

import (
	"context"
	"fmt"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// DimensionRepository provides data access for dimension values.
type DimensionRepository interface {
	BulkUpsert(ctx context.Context, bizid string, values []models.DimensionValue) error
	Delete(ctx context.Context, bizid, tableID, fieldID string) (int64, error)
	DeleteByTable(ctx context.Context, bizid string, tableIDs []string) error
	List(ctx context.Context, bizid, tableID string) ([]models.DimensionValue, error)
	// FuzzySearch returns dimension values trigram-similar to any of the
	// given terms, scored by the best per-value similarity, descending.
	FuzzySearch(ctx context.Context, bizid string, terms []string, limit int) ([]models.DimensionMatch, error)
}

type dimensionRepository struct{}

// NewDimensionRepository creates a new DimensionRepository.
func NewDimensionRepository() DimensionRepository {
	return &dimensionRepository{}
}

var _ DimensionRepository = (*dimensionRepository)(nil)

func (r *dimensionRepository) BulkUpsert(ctx context.Context, bizid string, values []models.DimensionValue) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	for _, v := range values {
		_, err := scope.Conn.Exec(ctx, `
			INSERT INTO dimension_values (bizid, table_id, field_id, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (bizid, table_id, field_id, value) DO NOTHING`,
			bizid, v.TableID, v.FieldID, v.Value)
		if err != nil {
			return fmt.Errorf("failed to upsert dimension value: %w", err)
		}
	}
	return nil
}

func (r *dimensionRepository) Delete(ctx context.Context, bizid, tableID, fieldID string) (int64, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`DELETE FROM dimension_values WHERE bizid = $1 AND table_id = $2 AND field_id = $3`,
		bizid, tableID, fieldID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete dimension values: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *dimensionRepository) DeleteByTable(ctx context.Context, bizid string, tableIDs []string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	_, err := scope.Conn.Exec(ctx,
		`DELETE FROM dimension_values WHERE bizid = $1 AND table_id = ANY($2)`,
		bizid, tableIDs)
	if err != nil {
		return fmt.Errorf("failed to delete dimension values by table: %w", err)
	}
	return nil
}

func (r *dimensionRepository) List(ctx context.Context, bizid, tableID string) ([]models.DimensionValue, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT bizid, table_id, field_id, value
		FROM dimension_values
		WHERE bizid = $1 AND table_id = $2
		ORDER BY field_id, value`, bizid, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dimension values: %w", err)
	}
	defer rows.Close()

	values := make([]models.DimensionValue, 0)
	for rows.Next() {
		var v models.DimensionValue
		if err := rows.Scan(&v.Bizid, &v.TableID, &v.FieldID, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan dimension value: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dimension values: %w", err)
	}
	return values, nil
}

func (r *dimensionRepository) FuzzySearch(ctx context.Context, bizid string, terms []string, limit int) ([]models.DimensionMatch, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}
	if len(terms) == 0 {
		return []models.DimensionMatch{}, nil
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT bizid, table_id, field_id, value,
		       (SELECT max(similarity(value, t)) FROM unnest($2::text[]) AS t) AS score
		FROM dimension_values
		WHERE bizid = $1
		  AND EXISTS (SELECT 1 FROM unnest($2::text[]) AS t WHERE value % t)
		ORDER BY score DESC, table_id, field_id, value
		LIMIT $3`, bizid, terms, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search dimension values: %w", err)
	}
	defer rows.Close()

	matches := make([]models.DimensionMatch, 0)
	for rows.Next() {
		var m models.DimensionMatch
		if err := rows.Scan(&m.Bizid, &m.TableID, &m.FieldID, &m.Value, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan dimension match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dimension matches: %w", err)
	}
	return matches, nil
}
