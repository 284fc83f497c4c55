package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/llm"
)

func newAgentFixture(response string) (AgentService, *llm.MockGenerationClient) {
	gen := llm.NewMockGenerationClient()
	gen.GenerateResponseFunc = func(_ context.Context, _, _ string, _ float64) (string, error) {
		return response, nil
	}
	return NewAgentService(gen, zap.NewNop()), gen
}

func TestNormalizeTimeStripsOutputPrefix(t *testing.T) {
	svc, _ := newAgentFixture("output: 查询2026-08-31的工单量")

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	out, err := svc.NormalizeTime(context.Background(), "current_time: ${current_time}\nuser_input: ${user_input}", "查询昨天的工单量", now)
	require.NoError(t, err)
	require.Equal(t, "查询2026-08-31的工单量", out)
}

func TestNormalizeTimeEmptyResponseKeepsInput(t *testing.T) {
	svc, _ := newAgentFixture("output:")

	out, err := svc.NormalizeTime(context.Background(), "${user_input}", "查询成都工单量", time.Now())
	require.NoError(t, err)
	require.Equal(t, "查询成都工单量", out)
}

func TestNormalizeTimeRendersAnchors(t *testing.T) {
	gen := llm.NewMockGenerationClient()
	svc := NewAgentService(gen, zap.NewNop())

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	_, err := svc.NormalizeTime(context.Background(), "current_time: ${current_time}\nyesterday: ${yesterday}", "q", now)
	require.NoError(t, err)

	require.Len(t, gen.Prompts, 1)
	require.Contains(t, gen.Prompts[0], "current_time: 2026-09-01 10:00:00")
	require.Contains(t, gen.Prompts[0], "yesterday: 2026-08-31 10:00:00")
}

func TestExtractElementsStripsPrefixAndFences(t *testing.T) {
	svc, gen := newAgentFixture("Sql Clauses: ```json\n{\"where\":[\"南山区\"],\"group_by\":[\"部门\"],\"order_by\":[]}\n```")

	elements, err := svc.ExtractElements(context.Background(), "${user_input}", "南山区各部门工单量")
	require.NoError(t, err)
	require.Equal(t, []string{"南山区"}, elements.Where)
	require.Equal(t, []string{"部门"}, elements.GroupBy)
	require.Empty(t, elements.OrderBy)

	require.Len(t, gen.Prompts, 1)
	require.Equal(t, "南山区各部门工单量", gen.Prompts[0])
}

func TestExtractElementsMalformedResponse(t *testing.T) {
	svc, _ := newAgentFixture("抱歉，我无法解析这个问题")

	elements, err := svc.ExtractElements(context.Background(), "${user_input}", "南山区工单量")
	require.NoError(t, err)
	require.True(t, elements.IsEmpty())
}

func TestParseQueryReadsEntities(t *testing.T) {
	svc, _ := newAgentFixture("```json\n{\"table\":\"\",\"entity\":[{\"entity_text\":\"福田区\",\"entity_name\":\"区县\",\"entity_type\":\"location\"},{\"entity_text\":\"投诉的工单量\",\"entity_name\":\"\",\"entity_type\":\"field\"}]}\n```")

	parsed, err := svc.ParseQuery(context.Background(), "${query}", "福田区近三月投诉的工单量是多少？")
	require.NoError(t, err)
	require.Empty(t, parsed.Table)
	require.Equal(t, []string{"区县", "投诉的工单量"}, parsed.EntityNames())
}

func TestParseQueryMalformedResponse(t *testing.T) {
	svc, _ := newAgentFixture("not json")

	_, err := svc.ParseQuery(context.Background(), "${query}", "查询工单量")
	require.Error(t, err)
}

func TestCommentSQLStripsFences(t *testing.T) {
	svc, _ := newAgentFixture("```sql\ncreate table t (name TEXT comment '名称');\n```")

	out, err := svc.CommentSQL(context.Background(), "${sql}", "create table t (name TEXT);")
	require.NoError(t, err)
	require.Equal(t, "create table t (name TEXT comment '名称');", out)
}

func TestAgentTemperature(t *testing.T) {
	gen := llm.NewMockGenerationClient()
	var gotTemp float64
	gen.GenerateResponseFunc = func(_ context.Context, _, _ string, temperature float64) (string, error) {
		gotTemp = temperature
		return "output: ok", nil
	}
	svc := NewAgentService(gen, zap.NewNop())

	_, err := svc.NormalizeTime(context.Background(), "${user_input}", "q", time.Now())
	require.NoError(t, err)
	require.InDelta(t, 0.01, gotTemp, 1e-9)
}
