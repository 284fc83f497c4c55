package repositories

import (
	"context"
	"fmt"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// SynonymRepository provides data access for tenant synonym mappings.
type SynonymRepository interface {
	Upsert(ctx context.Context, synonym *models.Synonym) error
	Delete(ctx context.Context, bizid, primaryTerm string) error
	List(ctx context.Context, bizid string) ([]models.Synonym, error)
}

type synonymRepository struct{}

// NewSynonymRepository creates a new SynonymRepository.
func NewSynonymRepository() SynonymRepository {
	return &synonymRepository{}
}

var _ SynonymRepository = (*synonymRepository)(nil)

func (r *synonymRepository) Upsert(ctx context.Context, synonym *models.Synonym) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO synonyms (bizid, primary_term, secondary_terms)
		VALUES ($1, $2, $3)
		ON CONFLICT (bizid, primary_term) DO UPDATE SET
			secondary_terms = EXCLUDED.secondary_terms,
			updated_at = now()`,
		synonym.Bizid, synonym.PrimaryTerm, synonym.SecondaryTerms)
	if err != nil {
		return fmt.Errorf("failed to upsert synonym: %w", err)
	}
	return nil
}

func (r *synonymRepository) Delete(ctx context.Context, bizid, primaryTerm string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`DELETE FROM synonyms WHERE bizid = $1 AND primary_term = $2`,
		bizid, primaryTerm)
	if err != nil {
		return fmt.Errorf("failed to delete synonym: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *synonymRepository) List(ctx context.Context, bizid string) ([]models.Synonym, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT bizid, primary_term, secondary_terms
		 FROM synonyms WHERE bizid = $1 ORDER BY primary_term`, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to list synonyms: %w", err)
	}
	defer rows.Close()

	synonyms := make([]models.Synonym, 0)
	for rows.Next() {
		var s models.Synonym
		if err := rows.Scan(&s.Bizid, &s.PrimaryTerm, &s.SecondaryTerms); err != nil {
			return nil, fmt.Errorf("failed to scan synonym: %w", err)
		}
		synonyms = append(synonyms, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating synonyms: %w", err)
	}
	return synonyms, nil
}
