package services

import (
	"context"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
)

// Function-field mocks for the repository interfaces. Unset functions
// return zero values.

type mockTenantRepo struct {
	CreateFunc func(ctx context.Context, bizid string) error
	DeleteFunc func(ctx context.Context, bizid string) error
	ExistsFunc func(ctx context.Context, bizid string) (bool, error)
	ListFunc   func(ctx context.Context) ([]models.Tenant, error)
}

func (m *mockTenantRepo) Create(ctx context.Context, bizid string) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, bizid)
	}
	return nil
}

func (m *mockTenantRepo) Delete(ctx context.Context, bizid string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, bizid)
	}
	return nil
}

func (m *mockTenantRepo) Exists(ctx context.Context, bizid string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(ctx, bizid)
	}
	return true, nil
}

func (m *mockTenantRepo) List(ctx context.Context) ([]models.Tenant, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

var _ repositories.TenantRepository = (*mockTenantRepo)(nil)

type mockSettingsRepo struct {
	GetFunc    func(ctx context.Context, bizid string) (*models.Settings, error)
	UpsertFunc func(ctx context.Context, settings *models.Settings) error
}

func (m *mockSettingsRepo) Get(ctx context.Context, bizid string) (*models.Settings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, bizid)
	}
	return &models.Settings{Bizid: bizid, TableRetrieveThreshold: 0.7}, nil
}

func (m *mockSettingsRepo) Upsert(ctx context.Context, settings *models.Settings) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, settings)
	}
	return nil
}

var _ repositories.SettingsRepository = (*mockSettingsRepo)(nil)

type mockPromptRepo struct {
	GetFunc          func(ctx context.Context, bizid, name string) (string, error)
	GetAllFunc       func(ctx context.Context, bizid string) (map[string]string, error)
	UpsertFunc       func(ctx context.Context, bizid, name, template string) error
	SeedDefaultsFunc func(ctx context.Context, bizid string, defaults map[string]string) error
}

func (m *mockPromptRepo) Get(ctx context.Context, bizid, name string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, bizid, name)
	}
	return "", nil
}

func (m *mockPromptRepo) GetAll(ctx context.Context, bizid string) (map[string]string, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx, bizid)
	}
	return map[string]string{}, nil
}

func (m *mockPromptRepo) Upsert(ctx context.Context, bizid, name, template string) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, bizid, name, template)
	}
	return nil
}

func (m *mockPromptRepo) SeedDefaults(ctx context.Context, bizid string, defaults map[string]string) error {
	if m.SeedDefaultsFunc != nil {
		return m.SeedDefaultsFunc(ctx, bizid, defaults)
	}
	return nil
}

var _ repositories.PromptRepository = (*mockPromptRepo)(nil)

type mockSynonymRepo struct {
	UpsertFunc func(ctx context.Context, synonym *models.Synonym) error
	DeleteFunc func(ctx context.Context, bizid, primaryTerm string) error
	ListFunc   func(ctx context.Context, bizid string) ([]models.Synonym, error)
}

func (m *mockSynonymRepo) Upsert(ctx context.Context, synonym *models.Synonym) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, synonym)
	}
	return nil
}

func (m *mockSynonymRepo) Delete(ctx context.Context, bizid, primaryTerm string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, bizid, primaryTerm)
	}
	return nil
}

func (m *mockSynonymRepo) List(ctx context.Context, bizid string) ([]models.Synonym, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, bizid)
	}
	return nil, nil
}

var _ repositories.SynonymRepository = (*mockSynonymRepo)(nil)

type mockTableRepo struct {
	UpsertFunc            func(ctx context.Context, info *models.TableInfo, vectors *repositories.TableVectors) error
	GetFunc               func(ctx context.Context, bizid, tableID string) (*models.TableInfo, error)
	ListFunc              func(ctx context.Context, bizid string) ([]models.TableInfo, error)
	DeleteFunc            func(ctx context.Context, bizid string, tableIDs []string) (int64, error)
	SearchByVectorFunc    func(ctx context.Context, bizid string, projection repositories.VectorProjection, query []float32, topK int) ([]models.TableMatch, error)
	UpdateFieldValuesFunc func(ctx context.Context, bizid, tableID, fieldID, values string) error
}

func (m *mockTableRepo) Upsert(ctx context.Context, info *models.TableInfo, vectors *repositories.TableVectors) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, info, vectors)
	}
	return nil
}

func (m *mockTableRepo) Get(ctx context.Context, bizid, tableID string) (*models.TableInfo, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, bizid, tableID)
	}
	return &models.TableInfo{Bizid: bizid, TableID: tableID}, nil
}

func (m *mockTableRepo) List(ctx context.Context, bizid string) ([]models.TableInfo, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, bizid)
	}
	return nil, nil
}

func (m *mockTableRepo) Delete(ctx context.Context, bizid string, tableIDs []string) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, bizid, tableIDs)
	}
	return 0, nil
}

func (m *mockTableRepo) SearchByVector(ctx context.Context, bizid string, projection repositories.VectorProjection, query []float32, topK int) ([]models.TableMatch, error) {
	if m.SearchByVectorFunc != nil {
		return m.SearchByVectorFunc(ctx, bizid, projection, query, topK)
	}
	return nil, nil
}

func (m *mockTableRepo) UpdateFieldValues(ctx context.Context, bizid, tableID, fieldID, values string) error {
	if m.UpdateFieldValuesFunc != nil {
		return m.UpdateFieldValuesFunc(ctx, bizid, tableID, fieldID, values)
	}
	return nil
}

var _ repositories.TableRepository = (*mockTableRepo)(nil)

type mockKnowledgeRepo struct {
	UpsertFunc             func(ctx context.Context, k *models.Knowledge, alphaVector []float32) error
	DeleteFunc             func(ctx context.Context, bizid string, knowledgeIDs []string) (int64, error)
	DeleteByTableFunc      func(ctx context.Context, bizid string, tableIDs []string) error
	ListFunc               func(ctx context.Context, bizid string) ([]models.Knowledge, error)
	SearchAlphaFunc        func(ctx context.Context, bizid string, query []float32, topK int) ([]models.KnowledgeMatch, error)
	ListBetaCandidatesFunc func(ctx context.Context, bizid string, limit int) ([]models.Knowledge, error)
}

func (m *mockKnowledgeRepo) Upsert(ctx context.Context, k *models.Knowledge, alphaVector []float32) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, k, alphaVector)
	}
	return nil
}

func (m *mockKnowledgeRepo) Delete(ctx context.Context, bizid string, knowledgeIDs []string) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, bizid, knowledgeIDs)
	}
	return 0, nil
}

func (m *mockKnowledgeRepo) DeleteByTable(ctx context.Context, bizid string, tableIDs []string) error {
	if m.DeleteByTableFunc != nil {
		return m.DeleteByTableFunc(ctx, bizid, tableIDs)
	}
	return nil
}

func (m *mockKnowledgeRepo) List(ctx context.Context, bizid string) ([]models.Knowledge, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, bizid)
	}
	return nil, nil
}

func (m *mockKnowledgeRepo) SearchAlpha(ctx context.Context, bizid string, query []float32, topK int) ([]models.KnowledgeMatch, error) {
	if m.SearchAlphaFunc != nil {
		return m.SearchAlphaFunc(ctx, bizid, query, topK)
	}
	return nil, nil
}

func (m *mockKnowledgeRepo) ListBetaCandidates(ctx context.Context, bizid string, limit int) ([]models.Knowledge, error) {
	if m.ListBetaCandidatesFunc != nil {
		return m.ListBetaCandidatesFunc(ctx, bizid, limit)
	}
	return nil, nil
}

var _ repositories.KnowledgeRepository = (*mockKnowledgeRepo)(nil)

type mockDimensionRepo struct {
	BulkUpsertFunc    func(ctx context.Context, bizid string, values []models.DimensionValue) error
	DeleteFunc        func(ctx context.Context, bizid, tableID, fieldID string) (int64, error)
	DeleteByTableFunc func(ctx context.Context, bizid string, tableIDs []string) error
	ListFunc          func(ctx context.Context, bizid, tableID string) ([]models.DimensionValue, error)
	FuzzySearchFunc   func(ctx context.Context, bizid string, terms []string, limit int) ([]models.DimensionMatch, error)
}

func (m *mockDimensionRepo) BulkUpsert(ctx context.Context, bizid string, values []models.DimensionValue) error {
	if m.BulkUpsertFunc != nil {
		return m.BulkUpsertFunc(ctx, bizid, values)
	}
	return nil
}

func (m *mockDimensionRepo) Delete(ctx context.Context, bizid, tableID, fieldID string) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, bizid, tableID, fieldID)
	}
	return 0, nil
}

func (m *mockDimensionRepo) DeleteByTable(ctx context.Context, bizid string, tableIDs []string) error {
	if m.DeleteByTableFunc != nil {
		return m.DeleteByTableFunc(ctx, bizid, tableIDs)
	}
	return nil
}

func (m *mockDimensionRepo) List(ctx context.Context, bizid, tableID string) ([]models.DimensionValue, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, bizid, tableID)
	}
	return nil, nil
}

func (m *mockDimensionRepo) FuzzySearch(ctx context.Context, bizid string, terms []string, limit int) ([]models.DimensionMatch, error) {
	if m.FuzzySearchFunc != nil {
		return m.FuzzySearchFunc(ctx, bizid, terms, limit)
	}
	return nil, nil
}

var _ repositories.DimensionRepository = (*mockDimensionRepo)(nil)

type mockFieldEntryRepo struct {
	ExistingNamesFunc  func(ctx context.Context, bizid string, names []string) (map[string]bool, error)
	UpsertMergeFunc    func(ctx context.Context, entry *models.FieldEntry, nameVector, commentVector []float32) error
	SearchByVectorFunc func(ctx context.Context, bizid string, column repositories.FieldVectorColumn, query []float32, topK int) ([]models.FieldMatch, error)
	RemoveTableIDsFunc func(ctx context.Context, bizid string, tableIDs []string) error
}

func (m *mockFieldEntryRepo) ExistingNames(ctx context.Context, bizid string, names []string) (map[string]bool, error) {
	if m.ExistingNamesFunc != nil {
		return m.ExistingNamesFunc(ctx, bizid, names)
	}
	return map[string]bool{}, nil
}

func (m *mockFieldEntryRepo) UpsertMerge(ctx context.Context, entry *models.FieldEntry, nameVector, commentVector []float32) error {
	if m.UpsertMergeFunc != nil {
		return m.UpsertMergeFunc(ctx, entry, nameVector, commentVector)
	}
	return nil
}

func (m *mockFieldEntryRepo) SearchByVector(ctx context.Context, bizid string, column repositories.FieldVectorColumn, query []float32, topK int) ([]models.FieldMatch, error) {
	if m.SearchByVectorFunc != nil {
		return m.SearchByVectorFunc(ctx, bizid, column, query, topK)
	}
	return nil, nil
}

func (m *mockFieldEntryRepo) RemoveTableIDs(ctx context.Context, bizid string, tableIDs []string) error {
	if m.RemoveTableIDsFunc != nil {
		return m.RemoveTableIDsFunc(ctx, bizid, tableIDs)
	}
	return nil
}

var _ repositories.FieldEntryRepository = (*mockFieldEntryRepo)(nil)

type mockSQLCaseRepo struct {
	UpsertFunc        func(ctx context.Context, c *models.SQLCase) error
	DeleteFunc        func(ctx context.Context, bizid string, caseIDs []string) (int64, error)
	ListFunc          func(ctx context.Context, bizid string) ([]models.SQLCase, error)
	SearchByQueryFunc func(ctx context.Context, bizid, query string, limit int) ([]models.SQLCase, error)
}

func (m *mockSQLCaseRepo) Upsert(ctx context.Context, c *models.SQLCase) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, c)
	}
	return nil
}

func (m *mockSQLCaseRepo) Delete(ctx context.Context, bizid string, caseIDs []string) (int64, error) {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, bizid, caseIDs)
	}
	return 0, nil
}

func (m *mockSQLCaseRepo) List(ctx context.Context, bizid string) ([]models.SQLCase, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, bizid)
	}
	return nil, nil
}

func (m *mockSQLCaseRepo) SearchByQuery(ctx context.Context, bizid, query string, limit int) ([]models.SQLCase, error) {
	if m.SearchByQueryFunc != nil {
		return m.SearchByQueryFunc(ctx, bizid, query, limit)
	}
	return nil, nil
}

var _ repositories.SQLCaseRepository = (*mockSQLCaseRepo)(nil)
