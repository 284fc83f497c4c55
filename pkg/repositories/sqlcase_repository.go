package repositories

import (
	"context"
	"fmt"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// SQLCaseRepository provides data access for the fewshot case library.
type SQLCaseRepository interface {
	Upsert(ctx context.Context, c *models.SQLCase) error
	Delete(ctx context.Context, bizid string, caseIDs []string) (int64, error)
	List(ctx context.Context, bizid string) ([]models.SQLCase, error)
	// SearchByQuery returns cases whose stored question text is
	// trigram-similar to the query, best first.
	SearchByQuery(ctx context.Context, bizid, query string, limit int) ([]models.SQLCase, error)
}

type sqlCaseRepository struct{}

// NewSQLCaseRepository creates a new SQLCaseRepository.
func NewSQLCaseRepository() SQLCaseRepository {
	return &sqlCaseRepository{}
}

var _ SQLCaseRepository = (*sqlCaseRepository)(nil)

func (r *sqlCaseRepository) Upsert(ctx context.Context, c *models.SQLCase) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO sql_cases (bizid, case_id, querys, sql)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bizid, case_id) DO UPDATE SET
			querys = EXCLUDED.querys,
			sql = EXCLUDED.sql,
			updated_at = now()`,
		c.Bizid, c.CaseID, c.Querys, c.SQL)
	if err != nil {
		return fmt.Errorf("failed to upsert sql case: %w", err)
	}
	return nil
}

func (r *sqlCaseRepository) Delete(ctx context.Context, bizid string, caseIDs []string) (int64, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`DELETE FROM sql_cases WHERE bizid = $1 AND case_id = ANY($2)`,
		bizid, caseIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sql cases: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *sqlCaseRepository) List(ctx context.Context, bizid string) ([]models.SQLCase, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT bizid, case_id, querys, sql FROM sql_cases WHERE bizid = $1 ORDER BY case_id`, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to list sql cases: %w", err)
	}
	defer rows.Close()

	cases := make([]models.SQLCase, 0)
	for rows.Next() {
		var c models.SQLCase
		if err := rows.Scan(&c.Bizid, &c.CaseID, &c.Querys, &c.SQL); err != nil {
			return nil, fmt.Errorf("failed to scan sql case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sql cases: %w", err)
	}
	return cases, nil
}

func (r *sqlCaseRepository) SearchByQuery(ctx context.Context, bizid, query string, limit int) ([]models.SQLCase, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT bizid, case_id, querys, sql
		FROM sql_cases
		WHERE bizid = $1 AND querys % $2
		ORDER BY similarity(querys, $2) DESC, case_id
		LIMIT $3`, bizid, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search sql cases: %w", err)
	}
	defer rows.Close()

	cases := make([]models.SQLCase, 0)
	for rows.Next() {
		var c models.SQLCase
		if err := rows.Scan(&c.Bizid, &c.CaseID, &c.Querys, &c.SQL); err != nil {
			return nil, fmt.Errorf("failed to scan sql case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sql cases: %w", err)
	}
	return cases, nil
}
