package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// SettingsRepository provides data access for per-tenant retrieval settings.
type SettingsRepository interface {
	Get(ctx context.Context, bizid string) (*models.Settings, error)
	Upsert(ctx context.Context, settings *models.Settings) error
}

type settingsRepository struct{}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository() SettingsRepository {
	return &settingsRepository{}
}

var _ SettingsRepository = (*settingsRepository)(nil)

func (r *settingsRepository) Get(ctx context.Context, bizid string) (*models.Settings, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	var s models.Settings
	err := scope.Conn.QueryRow(ctx, `
		SELECT bizid, table_retrieve_threshold, enable_table_auth, deep_semantic_search
		FROM tenant_settings
		WHERE bizid = $1`, bizid).
		Scan(&s.Bizid, &s.TableRetrieveThreshold, &s.EnableTableAuth, &s.DeepSemanticSearch)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return &s, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *models.Settings) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO tenant_settings (bizid, table_retrieve_threshold, enable_table_auth, deep_semantic_search)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bizid) DO UPDATE SET
			table_retrieve_threshold = EXCLUDED.table_retrieve_threshold,
			enable_table_auth = EXCLUDED.enable_table_auth,
			deep_semantic_search = EXCLUDED.deep_semantic_search,
			updated_at = now()`,
		settings.Bizid, settings.TableRetrieveThreshold, settings.EnableTableAuth, settings.DeepSemanticSearch)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}
