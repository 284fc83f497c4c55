package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/services"
)

func TestGenerate(t *testing.T) {
	sql := &mockSQLService{
		GenerateFunc: func(_ context.Context, req *services.GenerateRequest) (*services.GenerateResult, error) {
			require.Equal(t, "biz1", req.Bizid)
			require.Equal(t, "t1", req.TableID)
			return &services.GenerateResult{
				Query: "南山区2026-08-31的工单量",
				SQL:   "select count(*) from work_order where region = '南山区'",
			}, nil
		},
	}
	h := NewQueryHandler(sql, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Generate(rec, postJSON(t, GenerateSQLRequest{
		Bizid:   "biz1",
		Query:   "南山区昨天的工单量",
		TableID: "t1",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "select count(*) from work_order where region = '南山区'", data["sql"])
}

func TestGenerateMissingQuery(t *testing.T) {
	h := NewQueryHandler(&mockSQLService{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Generate(rec, postJSON(t, GenerateSQLRequest{Bizid: "biz1"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "missing_query", decodeEnvelope(t, rec).Error)
}

func TestGenerateNoMatchReturnsNullSQL(t *testing.T) {
	sql := &mockSQLService{
		GenerateFunc: func(_ context.Context, _ *services.GenerateRequest) (*services.GenerateResult, error) {
			return nil, apperrors.ErrNoMatch
		},
	}
	h := NewQueryHandler(sql, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Generate(rec, postJSON(t, GenerateSQLRequest{Bizid: "biz1", Query: "无关的问题"}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	require.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Nil(t, data["sql"])
}

func TestGenerateInjectionRejected(t *testing.T) {
	sql := &mockSQLService{
		GenerateFunc: func(_ context.Context, _ *services.GenerateRequest) (*services.GenerateResult, error) {
			return nil, apperrors.ErrInvalidInput
		},
	}
	h := NewQueryHandler(sql, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Generate(rec, postJSON(t, GenerateSQLRequest{Bizid: "biz1", Query: "1' OR '1'='1"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", decodeEnvelope(t, rec).Error)
}

func TestGenerateStream(t *testing.T) {
	sql := &mockSQLService{
		StreamFunc: func(_ context.Context, _ *services.GenerateRequest, out chan<- string) error {
			out <- "select count(*) "
			out <- "from work_order"
			return nil
		},
	}
	h := NewQueryHandler(sql, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Generate(rec, postJSON(t, GenerateSQLRequest{
		Bizid:  "biz1",
		Query:  "南山区工单量",
		Stream: true,
	}))

	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	require.Contains(t, body, `"type":"chunk"`)
	require.Contains(t, body, "select count(*) ")
	require.Contains(t, body, `"type":"done"`)
	require.Equal(t, 3, strings.Count(body, "data: "))
}

func TestGenerateStreamError(t *testing.T) {
	sql := &mockSQLService{
		StreamFunc: func(_ context.Context, _ *services.GenerateRequest, _ chan<- string) error {
			return apperrors.ErrNoMatch
		},
	}
	h := NewQueryHandler(sql, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Generate(rec, postJSON(t, GenerateSQLRequest{
		Bizid:  "biz1",
		Query:  "无关的问题",
		Stream: true,
	}))

	body := rec.Body.String()
	require.Contains(t, body, `"type":"error"`)
	require.NotContains(t, body, `"type":"done"`)
}

func TestQueryMetadata(t *testing.T) {
	sql := &mockSQLService{
		QueryMetadataFunc: func(_ context.Context, req *services.GenerateRequest) (*services.QueryMetadata, error) {
			return &services.QueryMetadata{
				Query:     req.Query,
				Tables:    []models.TableInfo{{TableID: "t1", TableName: "工单表"}},
				AlphaKeys: []string{"投诉工单量"},
			}, nil
		},
	}
	h := NewQueryHandler(sql, zap.NewNop())

	rec := httptest.NewRecorder()
	h.QueryMetadata(rec, postJSON(t, GenerateSQLRequest{Bizid: "biz1", Query: "南山区投诉工单量"}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Len(t, data["table_info_list"], 1)
}

func TestExplain(t *testing.T) {
	sql := &mockSQLService{
		ExplainFunc: func(_ context.Context, bizid, sqlText, tableInfo string) (string, error) {
			require.Equal(t, "biz1", bizid)
			require.Equal(t, "select 1", sqlText)
			return "这条语句返回常量1", nil
		},
	}
	h := NewQueryHandler(sql, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Explain(rec, postJSON(t, SQLTextRequest{Bizid: "biz1", SQL: "select 1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeEnvelope(t, rec)
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "这条语句返回常量1", data["result"])
}

func TestCorrectMissingSQL(t *testing.T) {
	h := NewQueryHandler(&mockSQLService{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Correct(rec, postJSON(t, SQLTextRequest{Bizid: "biz1"}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "missing_sql", decodeEnvelope(t, rec).Error)
}
