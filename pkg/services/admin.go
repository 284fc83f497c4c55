package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/config"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/prompts"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
)

const settingsCacheTTL = 5 * time.Minute

// AdminService manages tenants and their retrieval configuration:
// settings, prompt overrides, synonyms, and the fewshot case library.
type AdminService interface {
	CreateTenant(ctx context.Context, bizid string) error
	DeleteTenant(ctx context.Context, bizid string) error
	ListTenants(ctx context.Context) ([]models.Tenant, error)

	GetSettings(ctx context.Context, bizid string) (*models.Settings, error)
	UpdateSettings(ctx context.Context, settings *models.Settings) error

	// GetPrompts returns the effective templates for a tenant, overrides
	// merged over defaults.
	GetPrompts(ctx context.Context, bizid string) (map[string]string, error)
	UpdatePrompt(ctx context.Context, bizid, name, template string) error

	UpsertSynonym(ctx context.Context, synonym *models.Synonym) error
	DeleteSynonym(ctx context.Context, bizid, primaryTerm string) error
	ListSynonyms(ctx context.Context, bizid string) ([]models.Synonym, error)

	UpsertSQLCase(ctx context.Context, c *models.SQLCase) error
	DeleteSQLCases(ctx context.Context, bizid string, caseIDs []string) (int64, error)
	ListSQLCases(ctx context.Context, bizid string) ([]models.SQLCase, error)
}

type adminService struct {
	scopes       *database.TenantScopeProvider
	tenantRepo   repositories.TenantRepository
	settingsRepo repositories.SettingsRepository
	promptRepo   repositories.PromptRepository
	synonymRepo  repositories.SynonymRepository
	sqlCaseRepo  repositories.SQLCaseRepository
	cache        *redis.Client
	cfg          *config.RetrievalConfig
	logger       *zap.Logger
}

// NewAdminService creates a new AdminService. cache may be nil when
// Redis is not configured.
func NewAdminService(
	scopes *database.TenantScopeProvider,
	tenantRepo repositories.TenantRepository,
	settingsRepo repositories.SettingsRepository,
	promptRepo repositories.PromptRepository,
	synonymRepo repositories.SynonymRepository,
	sqlCaseRepo repositories.SQLCaseRepository,
	cache *redis.Client,
	cfg *config.RetrievalConfig,
	logger *zap.Logger,
) AdminService {
	return &adminService{
		scopes:       scopes,
		tenantRepo:   tenantRepo,
		settingsRepo: settingsRepo,
		promptRepo:   promptRepo,
		synonymRepo:  synonymRepo,
		sqlCaseRepo:  sqlCaseRepo,
		cache:        cache,
		cfg:          cfg,
		logger:       logger.Named("admin"),
	}
}

var _ AdminService = (*adminService)(nil)

func (s *adminService) CreateTenant(ctx context.Context, bizid string) error {
	if bizid == "" {
		return fmt.Errorf("%w: bizid is required", apperrors.ErrInvalidInput)
	}

	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	if err := s.tenantRepo.Create(tctx, bizid); err != nil {
		return err
	}

	if err := s.settingsRepo.Upsert(tctx, &models.Settings{
		Bizid:                  bizid,
		TableRetrieveThreshold: s.cfg.TableRetrieveThreshold,
	}); err != nil {
		return err
	}

	if err := s.promptRepo.SeedDefaults(tctx, bizid, prompts.Defaults()); err != nil {
		return err
	}

	s.logger.Info("Tenant created", zap.String("bizid", bizid))
	return nil
}

func (s *adminService) DeleteTenant(ctx context.Context, bizid string) error {
	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	if err := s.tenantRepo.Delete(tctx, bizid); err != nil {
		return err
	}
	s.invalidateSettings(ctx, bizid)

	s.logger.Info("Tenant deleted", zap.String("bizid", bizid))
	return nil
}

func (s *adminService) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	tctx, cleanup, err := s.scopes.WithoutTenantScope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scope: %w", err)
	}
	defer cleanup()

	return s.tenantRepo.List(tctx)
}

func (s *adminService) GetSettings(ctx context.Context, bizid string) (*models.Settings, error) {
	if cached := s.cachedSettings(ctx, bizid); cached != nil {
		return cached, nil
	}

	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	settings, err := s.settingsRepo.Get(tctx, bizid)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &models.Settings{
			Bizid:                  bizid,
			TableRetrieveThreshold: s.cfg.TableRetrieveThreshold,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	s.storeSettings(ctx, settings)
	return settings, nil
}

func (s *adminService) UpdateSettings(ctx context.Context, settings *models.Settings) error {
	if settings.TableRetrieveThreshold < 0 || settings.TableRetrieveThreshold > 1 {
		return fmt.Errorf("%w: table_retrieve_threshold must be in [0,1]", apperrors.ErrInvalidInput)
	}

	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, settings.Bizid)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	if err := s.settingsRepo.Upsert(tctx, settings); err != nil {
		return err
	}
	s.invalidateSettings(ctx, settings.Bizid)
	return nil
}

func (s *adminService) GetPrompts(ctx context.Context, bizid string) (map[string]string, error) {
	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	return resolveTemplates(tctx, s.promptRepo, bizid)
}

func (s *adminService) UpdatePrompt(ctx context.Context, bizid, name, template string) error {
	if _, ok := prompts.Defaults()[name]; !ok {
		return fmt.Errorf("%w: unknown prompt name %q", apperrors.ErrInvalidInput, name)
	}
	if template == "" {
		return fmt.Errorf("%w: template is required", apperrors.ErrInvalidInput)
	}

	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	return s.promptRepo.Upsert(tctx, bizid, name, template)
}

func (s *adminService) UpsertSynonym(ctx context.Context, synonym *models.Synonym) error {
	if synonym.PrimaryTerm == "" || len(synonym.SecondaryTerms) == 0 {
		return fmt.Errorf("%w: primary term and secondary terms are required", apperrors.ErrInvalidInput)
	}

	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, synonym.Bizid)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	return s.synonymRepo.Upsert(tctx, synonym)
}

func (s *adminService) DeleteSynonym(ctx context.Context, bizid, primaryTerm string) error {
	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	return s.synonymRepo.Delete(tctx, bizid, primaryTerm)
}

func (s *adminService) ListSynonyms(ctx context.Context, bizid string) ([]models.Synonym, error) {
	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	return s.synonymRepo.List(tctx, bizid)
}

func (s *adminService) UpsertSQLCase(ctx context.Context, c *models.SQLCase) error {
	if c.Querys == "" || c.SQL == "" {
		return fmt.Errorf("%w: querys and sql are required", apperrors.ErrInvalidInput)
	}
	if c.CaseID == "" {
		c.CaseID = uuid.NewString()
	}

	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, c.Bizid)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	return s.sqlCaseRepo.Upsert(tctx, c)
}

func (s *adminService) DeleteSQLCases(ctx context.Context, bizid string, caseIDs []string) (int64, error) {
	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	return s.sqlCaseRepo.Delete(tctx, bizid, caseIDs)
}

func (s *adminService) ListSQLCases(ctx context.Context, bizid string) ([]models.SQLCase, error) {
	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire tenant scope: %w", err)
	}
	defer cleanup()

	return s.sqlCaseRepo.List(tctx, bizid)
}

func settingsCacheKey(bizid string) string {
	return "sqlpilot:settings:" + bizid
}

func (s *adminService) cachedSettings(ctx context.Context, bizid string) *models.Settings {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, settingsCacheKey(bizid)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("Settings cache read failed",
				zap.String("bizid", bizid),
				zap.Error(err))
		}
		return nil
	}

	var settings models.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil
	}
	return &settings
}

func (s *adminService) storeSettings(ctx context.Context, settings *models.Settings) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, settingsCacheKey(settings.Bizid), raw, settingsCacheTTL).Err(); err != nil {
		s.logger.Warn("Settings cache write failed",
			zap.String("bizid", settings.Bizid),
			zap.Error(err))
	}
}

func (s *adminService) invalidateSettings(ctx context.Context, bizid string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, settingsCacheKey(bizid)).Err(); err != nil {
		s.logger.Warn("Settings cache invalidation failed",
			zap.String("bizid", bizid),
			zap.Error(err))
	}
}
