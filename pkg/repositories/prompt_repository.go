package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
)

// PromptRepository provides data access for tenant prompt overrides.
type PromptRepository interface {
	Get(ctx context.Context, bizid, name string) (string, error)
	GetAll(ctx context.Context, bizid string) (map[string]string, error)
	Upsert(ctx context.Context, bizid, name, template string) error
	SeedDefaults(ctx context.Context, bizid string, defaults map[string]string) error
}

type promptRepository struct{}

// NewPromptRepository creates a new PromptRepository.
func NewPromptRepository() PromptRepository {
	return &promptRepository{}
}

var _ PromptRepository = (*promptRepository)(nil)

func (r *promptRepository) Get(ctx context.Context, bizid, name string) (string, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return "", fmt.Errorf("no tenant scope in context")
	}

	var template string
	err := scope.Conn.QueryRow(ctx,
		`SELECT template FROM tenant_prompts WHERE bizid = $1 AND name = $2`,
		bizid, name).Scan(&template)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get prompt: %w", err)
	}
	return template, nil
}

func (r *promptRepository) GetAll(ctx context.Context, bizid string) (map[string]string, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT name, template FROM tenant_prompts WHERE bizid = $1`, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	prompts := make(map[string]string)
	for rows.Next() {
		var name, template string
		if err := rows.Scan(&name, &template); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts[name] = template
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}
	return prompts, nil
}

func (r *promptRepository) Upsert(ctx context.Context, bizid, name, template string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO tenant_prompts (bizid, name, template)
		VALUES ($1, $2, $3)
		ON CONFLICT (bizid, name) DO UPDATE SET
			template = EXCLUDED.template,
			updated_at = now()`,
		bizid, name, template)
	if err != nil {
		return fmt.Errorf("failed to upsert prompt: %w", err)
	}
	return nil
}

func (r *promptRepository) SeedDefaults(ctx context.Context, bizid string, defaults map[string]string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	for name, template := range defaults {
		_, err := scope.Conn.Exec(ctx, `
			INSERT INTO tenant_prompts (bizid, name, template)
			VALUES ($1, $2, $3)
			ON CONFLICT (bizid, name) DO NOTHING`,
			bizid, name, template)
		if err != nil {
			return fmt.Errorf("failed to seed prompt %s: %w", name, err)
		}
	}
	return nil
}
