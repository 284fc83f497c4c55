package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

func TestUpsertTable(t *testing.T) {
	var got *models.TableInfo
	schema := &mockSchemaService{
		UpsertTableFunc: func(_ context.Context, info *models.TableInfo) error {
			got = info
			return nil
		},
	}
	h := NewSchemaHandler(schema, zap.NewNop())

	rec := httptest.NewRecorder()
	h.UpsertTable(rec, postJSON(t, models.TableInfo{
		Bizid:     "biz1",
		TableID:   "t1",
		TableName: "work_order",
		Fields: []models.Field{
			{FieldID: "region", Name: "region", Datatype: "TEXT", Comment: "区县"},
		},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	require.Equal(t, "t1", got.TableID)
	require.Len(t, got.Fields, 1)
}

func TestUpsertTableEmbeddingUnavailable(t *testing.T) {
	schema := &mockSchemaService{
		UpsertTableFunc: func(_ context.Context, _ *models.TableInfo) error {
			return apperrors.ErrEmbeddingUnavailable
		},
	}
	h := NewSchemaHandler(schema, zap.NewNop())

	rec := httptest.NewRecorder()
	h.UpsertTable(rec, postJSON(t, models.TableInfo{Bizid: "biz1", TableID: "t1"}))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "embedding_unavailable", decodeEnvelope(t, rec).Error)
}

func TestGetTableNotFound(t *testing.T) {
	schema := &mockSchemaService{
		GetTableFunc: func(_ context.Context, _, _ string) (*models.TableInfo, error) {
			return nil, apperrors.ErrNotFound
		},
	}
	h := NewSchemaHandler(schema, zap.NewNop())

	rec := httptest.NewRecorder()
	h.GetTable(rec, postJSON(t, GetTableRequest{Bizid: "biz1", TableID: "nope"}))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decodeEnvelope(t, rec).Error)
}

func TestDeleteTables(t *testing.T) {
	var gotIDs []string
	schema := &mockSchemaService{
		DeleteTablesFunc: func(_ context.Context, _ string, tableIDs []string) (int64, error) {
			gotIDs = tableIDs
			return int64(len(tableIDs)), nil
		},
	}
	h := NewSchemaHandler(schema, zap.NewNop())

	rec := httptest.NewRecorder()
	h.DeleteTables(rec, postJSON(t, DeleteTablesRequest{
		Bizid:    "biz1",
		TableIDs: []string{"t1", "t2"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"t1", "t2"}, gotIDs)

	data, ok := decodeEnvelope(t, rec).Data.(map[string]any)
	require.True(t, ok)
	require.EqualValues(t, 2, data["deleted"])
}

func TestUpsertKnowledgeValidationError(t *testing.T) {
	schema := &mockSchemaService{
		UpsertKnowledgeFunc: func(_ context.Context, _ *models.Knowledge) error {
			return apperrors.ErrInvalidInput
		},
	}
	h := NewSchemaHandler(schema, zap.NewNop())

	rec := httptest.NewRecorder()
	h.UpsertKnowledge(rec, postJSON(t, models.Knowledge{Bizid: "biz1", KnowledgeID: "k1"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchDimensionValues(t *testing.T) {
	schema := &mockSchemaService{
		SearchDimensionValuesFunc: func(_ context.Context, _ string, terms []string) ([]models.DimensionMatch, error) {
			require.Equal(t, []string{"南山"}, terms)
			return []models.DimensionMatch{
				{DimensionValue: models.DimensionValue{TableID: "t1", FieldID: "region", Value: "南山区"}, Score: 0.9},
			}, nil
		},
	}
	h := NewSchemaHandler(schema, zap.NewNop())

	rec := httptest.NewRecorder()
	h.SearchDimensionValues(rec, postJSON(t, SearchDimensionValuesRequest{
		Bizid: "biz1",
		Terms: []string{"南山"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
}
