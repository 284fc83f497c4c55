package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

func postJSON(t *testing.T, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ApiResponse {
	t.Helper()
	var resp ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestCreateTenant(t *testing.T) {
	var created string
	admin := &mockAdminService{
		CreateTenantFunc: func(_ context.Context, bizid string) error {
			created = bizid
			return nil
		},
	}
	h := NewAdminHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h.CreateTenant(rec, postJSON(t, BizidRequest{Bizid: "biz1"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "biz1", created)
	require.True(t, decodeEnvelope(t, rec).Success)
}

func TestCreateTenantConflict(t *testing.T) {
	admin := &mockAdminService{
		CreateTenantFunc: func(_ context.Context, _ string) error {
			return apperrors.ErrConflict
		},
	}
	h := NewAdminHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h.CreateTenant(rec, postJSON(t, BizidRequest{Bizid: "biz1"}))

	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.False(t, resp.Success)
	require.Equal(t, "conflict", resp.Error)
}

func TestCreateTenantInvalidBody(t *testing.T) {
	h := NewAdminHandler(&mockAdminService{}, zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	h.CreateTenant(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTenants(t *testing.T) {
	admin := &mockAdminService{
		ListTenantsFunc: func(_ context.Context) ([]models.Tenant, error) {
			return []models.Tenant{{Bizid: "biz1"}, {Bizid: "biz2"}}, nil
		},
	}
	h := NewAdminHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ListTenants(rec, postJSON(t, struct{}{}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 2, data["total"])
}

func TestGetSettingsUnknownTenant(t *testing.T) {
	admin := &mockAdminService{
		GetSettingsFunc: func(_ context.Context, _ string) (*models.Settings, error) {
			return nil, apperrors.ErrTenantNotFound
		},
	}
	h := NewAdminHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h.GetSettings(rec, postJSON(t, BizidRequest{Bizid: "nope"}))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "tenant_not_found", decodeEnvelope(t, rec).Error)
}

func TestUpdateSettingsValidationError(t *testing.T) {
	admin := &mockAdminService{
		UpdateSettingsFunc: func(_ context.Context, _ *models.Settings) error {
			return apperrors.ErrInvalidInput
		},
	}
	h := NewAdminHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, postJSON(t, models.Settings{Bizid: "biz1", TableRetrieveThreshold: 1.5}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", decodeEnvelope(t, rec).Error)
}

func TestUpdatePrompt(t *testing.T) {
	var gotName, gotTemplate string
	admin := &mockAdminService{
		UpdatePromptFunc: func(_ context.Context, _, name, template string) error {
			gotName, gotTemplate = name, template
			return nil
		},
	}
	h := NewAdminHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h.UpdatePrompt(rec, postJSON(t, UpdatePromptRequest{
		Bizid:    "biz1",
		Name:     "nl2sql_agent",
		Template: "custom ${query}",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "nl2sql_agent", gotName)
	require.Equal(t, "custom ${query}", gotTemplate)
}

func TestDeleteSQLCases(t *testing.T) {
	admin := &mockAdminService{
		DeleteSQLCasesFunc: func(_ context.Context, _ string, caseIDs []string) (int64, error) {
			return int64(len(caseIDs)), nil
		},
	}
	h := NewAdminHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h.DeleteSQLCases(rec, postJSON(t, DeleteSQLCasesRequest{
		Bizid:   "biz1",
		CaseIDs: []string{"c1", "c2"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 2, data["deleted"])
}

func TestUpsertSynonym(t *testing.T) {
	var got *models.Synonym
	admin := &mockAdminService{
		UpsertSynonymFunc: func(_ context.Context, synonym *models.Synonym) error {
			got = synonym
			return nil
		},
	}
	h := NewAdminHandler(admin, zap.NewNop())

	rec := httptest.NewRecorder()
	h.UpsertSynonym(rec, postJSON(t, models.Synonym{
		Bizid:          "biz1",
		PrimaryTerm:    "投诉工单",
		SecondaryTerms: []string{"投诉", "客诉"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	require.Equal(t, "投诉工单", got.PrimaryTerm)
	require.Equal(t, []string{"投诉", "客诉"}, got.SecondaryTerms)
}
