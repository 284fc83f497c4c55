package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

func TestRender(t *testing.T) {
	out := Render("hello ${name}, model ${missing}", map[string]string{"name": "world"})
	assert.Equal(t, "hello world, model ", out)
}

func TestTimeVars(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	vars := TimeVars(now, "查询昨天的工单量")

	assert.Equal(t, "2025-06-15 10:00:00", vars["current_time"])
	assert.Equal(t, "2025-06-14 10:00:00", vars["yesterday"])
	assert.Equal(t, "2025-03-17 10:00:00", vars["three_months_ago"])
	assert.Equal(t, "查询昨天的工单量", vars["user_input"])
}

func TestBuildSchemaDDL(t *testing.T) {
	tables := []models.TableInfo{
		{
			TableID:      "t1",
			TableName:    "order_detail_shenzhen",
			TableComment: "深圳工单明细表",
			Fields: []models.Field{
				{FieldID: "f1", Name: "order_id", Datatype: "VARCHAR(32)", Comment: "工单编号"},
				{FieldID: "f2", Name: "order_region", Datatype: "VARCHAR(16)", Comment: "区域"},
				{FieldID: "f3", Name: "cnt", Datatype: "INT"},
			},
		},
	}

	ddl := BuildSchemaDDL(tables)

	assert.Contains(t, ddl, "CREATE TABLE order_detail_shenzhen (")
	assert.Contains(t, ddl, "    order_id VARCHAR(32) COMMENT '工单编号'")
	assert.Contains(t, ddl, "    cnt INT\n)")
	assert.Contains(t, ddl, ") COMMENT '深圳工单明细表';")
	// cnt has no comment, so no COMMENT clause on its line
	assert.NotContains(t, ddl, "cnt INT COMMENT")
}

func TestBuildSynonymBlock(t *testing.T) {
	block := BuildSynonymBlock(map[string]string{"投诉工单": "投诉单"}, []string{"投诉工单"})
	assert.Contains(t, block, "投诉单 是指 投诉工单")

	assert.Equal(t, "", BuildSynonymBlock(nil, nil))
}

func TestBuildFieldValueBlock(t *testing.T) {
	tables := []models.TableInfo{
		{
			TableID:   "t1",
			TableName: "order_detail_shenzhen",
			Fields: []models.Field{
				{FieldID: "f2", Name: "order_region"},
			},
		},
	}
	dims := []models.DimensionMatch{
		{DimensionValue: models.DimensionValue{TableID: "t1", FieldID: "f2", Value: "南山区"}, Score: 0.9},
		{DimensionValue: models.DimensionValue{TableID: "t1", FieldID: "f2", Value: "福田区"}, Score: 0.5},
		{DimensionValue: models.DimensionValue{TableID: "t1", FieldID: "f2", Value: "罗湖区"}, Score: 0.4},
		{DimensionValue: models.DimensionValue{TableID: "t1", FieldID: "f2", Value: "盐田区"}, Score: 0.3},
	}

	block := BuildFieldValueBlock(dims, tables)

	require.Contains(t, block, "表order_detail_shenzhen中，")
	assert.Contains(t, block, "1. order_region的值例如：'南山区', '福田区', '罗湖区'；")
	// Only three sample values per field
	assert.NotContains(t, block, "盐田区")

	// Values for unknown tables are skipped entirely
	unknown := []models.DimensionMatch{
		{DimensionValue: models.DimensionValue{TableID: "t9", FieldID: "f2", Value: "南山区"}},
	}
	assert.Equal(t, "", BuildFieldValueBlock(unknown, tables))
}

func TestBuildFewshotBlock(t *testing.T) {
	cases := []models.SQLCase{
		{Querys: "南山区投诉工单量", SQL: "SELECT count(*) FROM order_detail_shenzhen WHERE order_region = '南山区'"},
	}
	block := BuildFewshotBlock(cases)
	assert.True(t, strings.HasPrefix(block, "以下是sql案例库中与问题相似的案例"))
	assert.Contains(t, block, "问题： 南山区投诉工单量")

	assert.Equal(t, "", BuildFewshotBlock(nil))
}

func TestDefaultsCoverEveryAgent(t *testing.T) {
	defs := Defaults()
	for _, name := range []string{
		TimeConvertAgent, ElementExtractAgent, NL2SQLAgent,
		SQLExplainAgent, SQLCommentAgent, SQLCorrectAgent, QueryParseAgent,
	} {
		assert.NotEmpty(t, defs[name], name)
	}
}
