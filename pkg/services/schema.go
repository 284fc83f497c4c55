package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/llm"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
)

// SchemaService manages the retrievable metadata of a tenant: tables
// with their embedding projections, the field inverted index, business
// knowledge, and dimension values.
type SchemaService interface {
	// UpsertTable stores table metadata with all four embedding
	// projections and merges its fields into the inverted index.
	UpsertTable(ctx context.Context, info *models.TableInfo) error
	GetTable(ctx context.Context, bizid, tableID string) (*models.TableInfo, error)
	ListTables(ctx context.Context, bizid string) ([]models.TableInfo, error)
	// DeleteTables removes tables together with their knowledge,
	// dimension values, and inverted index membership.
	DeleteTables(ctx context.Context, bizid string, tableIDs []string) (int64, error)
	// UpdateFieldValues replaces the sample values recorded on one field.
	UpdateFieldValues(ctx context.Context, bizid, tableID, fieldID, values string) error

	UpsertKnowledge(ctx context.Context, k *models.Knowledge) error
	DeleteKnowledge(ctx context.Context, bizid string, knowledgeIDs []string) (int64, error)
	ListKnowledge(ctx context.Context, bizid string) ([]models.Knowledge, error)

	UpsertDimensionValues(ctx context.Context, bizid string, values []models.DimensionValue) error
	DeleteDimensionValues(ctx context.Context, bizid, tableID, fieldID string) (int64, error)
	ListDimensionValues(ctx context.Context, bizid, tableID string) ([]models.DimensionValue, error)
	SearchDimensionValues(ctx context.Context, bizid string, terms []string) ([]models.DimensionMatch, error)
}

type schemaService struct {
	scopes        *database.TenantScopeProvider
	tenantRepo    repositories.TenantRepository
	tableRepo     repositories.TableRepository
	fieldRepo     repositories.FieldEntryRepository
	knowledgeRepo repositories.KnowledgeRepository
	dimRepo       repositories.DimensionRepository
	embedder      llm.Embedder
	logger        *zap.Logger
}

// NewSchemaService creates a new SchemaService.
func NewSchemaService(
	scopes *database.TenantScopeProvider,
	tenantRepo repositories.TenantRepository,
	tableRepo repositories.TableRepository,
	fieldRepo repositories.FieldEntryRepository,
	knowledgeRepo repositories.KnowledgeRepository,
	dimRepo repositories.DimensionRepository,
	embedder llm.Embedder,
	logger *zap.Logger,
) SchemaService {
	return &schemaService{
		scopes:        scopes,
		tenantRepo:    tenantRepo,
		tableRepo:     tableRepo,
		fieldRepo:     fieldRepo,
		knowledgeRepo: knowledgeRepo,
		dimRepo:       dimRepo,
		embedder:      embedder,
		logger:        logger.Named("schema"),
	}
}

var _ SchemaService = (*schemaService)(nil)

func (s *schemaService) UpsertTable(ctx context.Context, info *models.TableInfo) error {
	if info.TableID == "" || info.TableName == "" {
		return fmt.Errorf("%w: table_id and table_name are required", apperrors.ErrInvalidInput)
	}
	if len(info.Fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", apperrors.ErrInvalidInput)
	}

	tctx, cleanup, err := s.requireTenant(ctx, info.Bizid)
	if err != nil {
		return err
	}
	defer cleanup()

	semanticText, fieldsText := tableSemanticText(info)

	// A table without all four projections is invisible to part of the
	// recall pipeline, so any embedding failure fails the whole upsert.
	vectors := &repositories.TableVectors{}
	g, gctx := errgroup.WithContext(tctx)
	g.Go(func() (err error) { vectors.Semantic, err = s.embedder.CreateEmbedding(gctx, semanticText); return })
	g.Go(func() (err error) { vectors.Name, err = s.embedder.CreateEmbedding(gctx, info.TableName); return })
	g.Go(func() (err error) { vectors.Comment, err = s.embedder.CreateEmbedding(gctx, info.TableComment); return })
	g.Go(func() (err error) { vectors.Fields, err = s.embedder.CreateEmbedding(gctx, fieldsText); return })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
	}

	if err := s.tableRepo.Upsert(tctx, info, vectors); err != nil {
		return err
	}

	if err := s.indexFields(tctx, info); err != nil {
		return err
	}

	s.logger.Info("Table upserted",
		zap.String("bizid", info.Bizid),
		zap.String("table_id", info.TableID),
		zap.Int("fields", len(info.Fields)))
	return nil
}

// indexFields merges the table's fields into the inverted index. Names
// that already have entries keep their stored vectors and only gain the
// table membership.
func (s *schemaService) indexFields(ctx context.Context, info *models.TableInfo) error {
	type fieldInfo struct {
		comment string
	}
	byName := make(map[string]fieldInfo, len(info.Fields))
	names := make([]string, 0, len(info.Fields))
	for _, f := range info.Fields {
		name := strings.ToLower(f.Name)
		if name == "" {
			continue
		}
		if _, ok := byName[name]; !ok {
			byName[name] = fieldInfo{comment: f.Comment}
			names = append(names, name)
		}
	}
	sort.Strings(names)

	existing, err := s.fieldRepo.ExistingNames(ctx, info.Bizid, names)
	if err != nil {
		return err
	}

	for _, name := range names {
		entry := &models.FieldEntry{
			Bizid:        info.Bizid,
			FieldName:    name,
			FieldComment: byName[name].comment,
			TableIDs:     []string{info.TableID},
		}

		var nameVec, commentVec []float32
		if !existing[name] {
			nameVec, err = s.embedder.CreateEmbedding(ctx, name)
			if err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
			}
			if entry.FieldComment != "" {
				commentVec, err = s.embedder.CreateEmbedding(ctx, entry.FieldComment)
				if err != nil {
					return fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
				}
			}
		}

		if err := s.fieldRepo.UpsertMerge(ctx, entry, nameVec, commentVec); err != nil {
			return err
		}
	}
	return nil
}

func (s *schemaService) GetTable(ctx context.Context, bizid, tableID string) (*models.TableInfo, error) {
	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return s.tableRepo.Get(tctx, bizid, tableID)
}

func (s *schemaService) ListTables(ctx context.Context, bizid string) ([]models.TableInfo, error) {
	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return s.tableRepo.List(tctx, bizid)
}

func (s *schemaService) DeleteTables(ctx context.Context, bizid string, tableIDs []string) (int64, error) {
	if len(tableIDs) == 0 {
		return 0, fmt.Errorf("%w: at least one table_id is required", apperrors.ErrInvalidInput)
	}

	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	deleted, err := s.tableRepo.Delete(tctx, bizid, tableIDs)
	if err != nil {
		return 0, err
	}

	if err := s.knowledgeRepo.DeleteByTable(tctx, bizid, tableIDs); err != nil {
		return deleted, err
	}
	if err := s.dimRepo.DeleteByTable(tctx, bizid, tableIDs); err != nil {
		return deleted, err
	}
	if err := s.fieldRepo.RemoveTableIDs(tctx, bizid, tableIDs); err != nil {
		return deleted, err
	}

	s.logger.Info("Tables deleted",
		zap.String("bizid", bizid),
		zap.Strings("table_ids", tableIDs),
		zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *schemaService) UpdateFieldValues(ctx context.Context, bizid, tableID, fieldID, values string) error {
	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return err
	}
	defer cleanup()

	return s.tableRepo.UpdateFieldValues(tctx, bizid, tableID, fieldID, values)
}

func (s *schemaService) UpsertKnowledge(ctx context.Context, k *models.Knowledge) error {
	if k.KnowledgeID == "" {
		k.KnowledgeID = uuid.NewString()
	}
	if k.KeyAlpha == "" && len(k.KeyBeta) == 0 {
		return fmt.Errorf("%w: key_alpha or key_beta is required", apperrors.ErrInvalidInput)
	}

	tctx, cleanup, err := s.requireTenant(ctx, k.Bizid)
	if err != nil {
		return err
	}
	defer cleanup()

	var alphaVec []float32
	if k.KeyAlpha != "" {
		alphaVec, err = s.embedder.CreateEmbedding(tctx, k.KeyAlpha)
		if err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
		}
	}

	return s.knowledgeRepo.Upsert(tctx, k, alphaVec)
}

func (s *schemaService) DeleteKnowledge(ctx context.Context, bizid string, knowledgeIDs []string) (int64, error) {
	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	return s.knowledgeRepo.Delete(tctx, bizid, knowledgeIDs)
}

func (s *schemaService) ListKnowledge(ctx context.Context, bizid string) ([]models.Knowledge, error) {
	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return s.knowledgeRepo.List(tctx, bizid)
}

func (s *schemaService) UpsertDimensionValues(ctx context.Context, bizid string, values []models.DimensionValue) error {
	for _, v := range values {
		if v.TableID == "" || v.FieldID == "" || v.Value == "" {
			return fmt.Errorf("%w: table_id, field_id, and value are required", apperrors.ErrInvalidInput)
		}
	}

	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return err
	}
	defer cleanup()

	return s.dimRepo.BulkUpsert(tctx, bizid, values)
}

func (s *schemaService) DeleteDimensionValues(ctx context.Context, bizid, tableID, fieldID string) (int64, error) {
	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	return s.dimRepo.Delete(tctx, bizid, tableID, fieldID)
}

func (s *schemaService) ListDimensionValues(ctx context.Context, bizid, tableID string) ([]models.DimensionValue, error) {
	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return s.dimRepo.List(tctx, bizid, tableID)
}

func (s *schemaService) SearchDimensionValues(ctx context.Context, bizid string, terms []string) ([]models.DimensionMatch, error) {
	tctx, cleanup, err := s.requireTenant(ctx, bizid)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return s.dimRepo.FuzzySearch(tctx, bizid, terms, dimSearchLimit)
}

// requireTenant acquires a tenant scope and verifies the tenant exists.
func (s *schemaService) requireTenant(ctx context.Context, bizid string) (context.Context, func(), error) {
	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire tenant scope: %w", err)
	}

	exists, err := s.tenantRepo.Exists(tctx, bizid)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to check tenant: %w", err)
	}
	if !exists {
		cleanup()
		return nil, nil, apperrors.ErrTenantNotFound
	}
	return tctx, cleanup, nil
}

// tableSemanticText builds the embedding texts for a table: the whole
// table description and the concatenated field descriptions.
func tableSemanticText(info *models.TableInfo) (string, string) {
	fieldTexts := make([]string, 0, len(info.Fields))
	for _, f := range info.Fields {
		fieldTexts = append(fieldTexts, fmt.Sprintf("Field %s: %s", f.Name, f.Comment))
	}
	fieldsText := strings.Join(fieldTexts, " ")

	semantic := fmt.Sprintf("Table %s: %s. %s", info.TableName, info.TableComment, fieldsText)
	return semantic, fieldsText
}
