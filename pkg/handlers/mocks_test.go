package handlers

import (
	"context"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/services"
)

// Function-field mocks for the service interfaces. Unset functions
// return zero values.

type mockAdminService struct {
	CreateTenantFunc   func(ctx context.Context, bizid string) error
	DeleteTenantFunc   func(ctx context.Context, bizid string) error
	ListTenantsFunc    func(ctx context.Context) ([]models.Tenant, error)
	GetSettingsFunc    func(ctx context.Context, bizid string) (*models.Settings, error)
	UpdateSettingsFunc func(ctx context.Context, settings *models.Settings) error
	GetPromptsFunc     func(ctx context.Context, bizid string) (map[string]string, error)
	UpdatePromptFunc   func(ctx context.Context, bizid, name, template string) error
	UpsertSynonymFunc  func(ctx context.Context, synonym *models.Synonym) error
	DeleteSynonymFunc  func(ctx context.Context, bizid, primaryTerm string) error
	ListSynonymsFunc   func(ctx context.Context, bizid string) ([]models.Synonym, error)
	UpsertSQLCaseFunc  func(ctx context.Context, c *models.SQLCase) error
	DeleteSQLCasesFunc func(ctx context.Context, bizid string, caseIDs []string) (int64, error)
	ListSQLCasesFunc   func(ctx context.Context, bizid string) ([]models.SQLCase, error)
}

func (m *mockAdminService) CreateTenant(ctx context.Context, bizid string) error {
	if m.CreateTenantFunc != nil {
		return m.CreateTenantFunc(ctx, bizid)
	}
	return nil
}

func (m *mockAdminService) DeleteTenant(ctx context.Context, bizid string) error {
	if m.DeleteTenantFunc != nil {
		return m.DeleteTenantFunc(ctx, bizid)
	}
	return nil
}

func (m *mockAdminService) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	if m.ListTenantsFunc != nil {
		return m.ListTenantsFunc(ctx)
	}
	return nil, nil
}

func (m *mockAdminService) GetSettings(ctx context.Context, bizid string) (*models.Settings, error) {
	if m.GetSettingsFunc != nil {
		return m.GetSettingsFunc(ctx, bizid)
	}
	return &models.Settings{Bizid: bizid, TableRetrieveThreshold: 0.7}, nil
}

func (m *mockAdminService) UpdateSettings(ctx context.Context, settings *models.Settings) error {
	if m.UpdateSettingsFunc != nil {
		return m.UpdateSettingsFunc(ctx, settings)
	}
	return nil
}

func (m *mockAdminService) GetPrompts(ctx context.Context, bizid string) (map[string]string, error) {
	if m.GetPromptsFunc != nil {
		return m.GetPromptsFunc(ctx, bizid)
	}
	return map[string]string{}, nil
}

func (m *mockAdminService) UpdatePrompt(ctx context.Context, bizid, name, template string) error {
	if m.UpdatePromptFunc != nil {
		return m.UpdatePromptFunc(ctx, bizid, name, template)
	}
	return nil
}

func (m *mockAdminService) UpsertSynonym(ctx context.Context, synonym *models.Synonym) error {
	if m.UpsertSynonymFunc != nil {
		return m.UpsertSynonymFunc(ctx, synonym)
	}
	return nil
}

func (m *mockAdminService) DeleteSynonym(ctx context.Context, bizid, primaryTerm string) error {
	if m.DeleteSynonymFunc != nil {
		return m.DeleteSynonymFunc(ctx, bizid, primaryTerm)
	}
	return nil
}

func (m *mockAdminService) ListSynonyms(ctx context.Context, bizid string) ([]models.Synonym, error) {
	if m.ListSynonymsFunc != nil {
		return m.ListSynonymsFunc(ctx, bizid)
	}
	return nil, nil
}

func (m *mockAdminService) UpsertSQLCase(ctx context.Context, c *models.SQLCase) error {
	if m.UpsertSQLCaseFunc != nil {
		return m.UpsertSQLCaseFunc(ctx, c)
	}
	return nil
}

func (m *mockAdminService) DeleteSQLCases(ctx context.Context, bizid string, caseIDs []string) (int64, error) {
	if m.DeleteSQLCasesFunc != nil {
		return m.DeleteSQLCasesFunc(ctx, bizid, caseIDs)
	}
	return 0, nil
}

func (m *mockAdminService) ListSQLCases(ctx context.Context, bizid string) ([]models.SQLCase, error) {
	if m.ListSQLCasesFunc != nil {
		return m.ListSQLCasesFunc(ctx, bizid)
	}
	return nil, nil
}

var _ services.AdminService = (*mockAdminService)(nil)

type mockSchemaService struct {
	UpsertTableFunc           func(ctx context.Context, info *models.TableInfo) error
	GetTableFunc              func(ctx context.Context, bizid, tableID string) (*models.TableInfo, error)
	ListTablesFunc            func(ctx context.Context, bizid string) ([]models.TableInfo, error)
	DeleteTablesFunc          func(ctx context.Context, bizid string, tableIDs []string) (int64, error)
	UpdateFieldValuesFunc     func(ctx context.Context, bizid, tableID, fieldID, values string) error
	UpsertKnowledgeFunc       func(ctx context.Context, k *models.Knowledge) error
	DeleteKnowledgeFunc       func(ctx context.Context, bizid string, knowledgeIDs []string) (int64, error)
	ListKnowledgeFunc         func(ctx context.Context, bizid string) ([]models.Knowledge, error)
	UpsertDimensionValuesFunc func(ctx context.Context, bizid string, values []models.DimensionValue) error
	DeleteDimensionValuesFunc func(ctx context.Context, bizid, tableID, fieldID string) (int64, error)
	ListDimensionValuesFunc   func(ctx context.Context, bizid, tableID string) ([]models.DimensionValue, error)
	SearchDimensionValuesFunc func(ctx context.Context, bizid string, terms []string) ([]models.DimensionMatch, error)
}

func (m *mockSchemaService) UpsertTable(ctx context.Context, info *models.TableInfo) error {
	if m.UpsertTableFunc != nil {
		return m.UpsertTableFunc(ctx, info)
	}
	return nil
}

func (m *mockSchemaService) GetTable(ctx context.Context, bizid, tableID string) (*models.TableInfo, error) {
	if m.GetTableFunc != nil {
		return m.GetTableFunc(ctx, bizid, tableID)
	}
	return &models.TableInfo{Bizid: bizid, TableID: tableID}, nil
}

func (m *mockSchemaService) ListTables(ctx context.Context, bizid string) ([]models.TableInfo, error) {
	if m.ListTablesFunc != nil {
		return m.ListTablesFunc(ctx, bizid)
	}
	return nil, nil
}

func (m *mockSchemaService) DeleteTables(ctx context.Context, bizid string, tableIDs []string) (int64, error) {
	if m.DeleteTablesFunc != nil {
		return m.DeleteTablesFunc(ctx, bizid, tableIDs)
	}
	return 0, nil
}

func (m *mockSchemaService) UpdateFieldValues(ctx context.Context, bizid, tableID, fieldID, values string) error {
	if m.UpdateFieldValuesFunc != nil {
		return m.UpdateFieldValuesFunc(ctx, bizid, tableID, fieldID, values)
	}
	return nil
}

func (m *mockSchemaService) UpsertKnowledge(ctx context.Context, k *models.Knowledge) error {
	if m.UpsertKnowledgeFunc != nil {
		return m.UpsertKnowledgeFunc(ctx, k)
	}
	return nil
}

func (m *mockSchemaService) DeleteKnowledge(ctx context.Context, bizid string, knowledgeIDs []string) (int64, error) {
	if m.DeleteKnowledgeFunc != nil {
		return m.DeleteKnowledgeFunc(ctx, bizid, knowledgeIDs)
	}
	return 0, nil
}

func (m *mockSchemaService) ListKnowledge(ctx context.Context, bizid string) ([]models.Knowledge, error) {
	if m.ListKnowledgeFunc != nil {
		return m.ListKnowledgeFunc(ctx, bizid)
	}
	return nil, nil
}

func (m *mockSchemaService) UpsertDimensionValues(ctx context.Context, bizid string, values []models.DimensionValue) error {
	if m.UpsertDimensionValuesFunc != nil {
		return m.UpsertDimensionValuesFunc(ctx, bizid, values)
	}
	return nil
}

func (m *mockSchemaService) DeleteDimensionValues(ctx context.Context, bizid, tableID, fieldID string) (int64, error) {
	if m.DeleteDimensionValuesFunc != nil {
		return m.DeleteDimensionValuesFunc(ctx, bizid, tableID, fieldID)
	}
	return 0, nil
}

func (m *mockSchemaService) ListDimensionValues(ctx context.Context, bizid, tableID string) ([]models.DimensionValue, error) {
	if m.ListDimensionValuesFunc != nil {
		return m.ListDimensionValuesFunc(ctx, bizid, tableID)
	}
	return nil, nil
}

func (m *mockSchemaService) SearchDimensionValues(ctx context.Context, bizid string, terms []string) ([]models.DimensionMatch, error) {
	if m.SearchDimensionValuesFunc != nil {
		return m.SearchDimensionValuesFunc(ctx, bizid, terms)
	}
	return nil, nil
}

var _ services.SchemaService = (*mockSchemaService)(nil)

type mockSQLService struct {
	GenerateFunc      func(ctx context.Context, req *services.GenerateRequest) (*services.GenerateResult, error)
	StreamFunc        func(ctx context.Context, req *services.GenerateRequest, out chan<- string) error
	QueryMetadataFunc func(ctx context.Context, req *services.GenerateRequest) (*services.QueryMetadata, error)
	ExplainFunc       func(ctx context.Context, bizid, sql, tableInfo string) (string, error)
	CommentFunc       func(ctx context.Context, bizid, sql string) (string, error)
	CorrectFunc       func(ctx context.Context, bizid, sql string) (string, error)
}

func (m *mockSQLService) Generate(ctx context.Context, req *services.GenerateRequest) (*services.GenerateResult, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &services.GenerateResult{Query: req.Query, SQL: "select 1"}, nil
}

func (m *mockSQLService) Stream(ctx context.Context, req *services.GenerateRequest, out chan<- string) error {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req, out)
	}
	return nil
}

func (m *mockSQLService) QueryMetadata(ctx context.Context, req *services.GenerateRequest) (*services.QueryMetadata, error) {
	if m.QueryMetadataFunc != nil {
		return m.QueryMetadataFunc(ctx, req)
	}
	return &services.QueryMetadata{Query: req.Query}, nil
}

func (m *mockSQLService) Explain(ctx context.Context, bizid, sql, tableInfo string) (string, error) {
	if m.ExplainFunc != nil {
		return m.ExplainFunc(ctx, bizid, sql, tableInfo)
	}
	return "", nil
}

func (m *mockSQLService) Comment(ctx context.Context, bizid, sql string) (string, error) {
	if m.CommentFunc != nil {
		return m.CommentFunc(ctx, bizid, sql)
	}
	return "", nil
}

func (m *mockSQLService) Correct(ctx context.Context, bizid, sql string) (string, error) {
	if m.CorrectFunc != nil {
		return m.CorrectFunc(ctx, bizid, sql)
	}
	return "", nil
}

var _ services.SQLService = (*mockSQLService)(nil)
