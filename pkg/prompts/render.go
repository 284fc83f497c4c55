package prompts

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// Render substitutes ${var} placeholders in a template. Unknown
// placeholders render as empty strings.
func Render(template string, vars map[string]string) string {
	return os.Expand(template, func(key string) string {
		return vars[key]
	})
}

// TimeVars builds the variables for the time-convert template: the
// current time plus the relative anchors the fewshot examples reference.
func TimeVars(now time.Time, userInput string) map[string]string {
	const layout = "2006-01-02 15:04:05"
	return map[string]string{
		"current_time":     now.Format(layout),
		"yesterday":        now.AddDate(0, 0, -1).Format(layout),
		"three_months_ago": now.AddDate(0, 0, -90).Format(layout),
		"last_year":        now.AddDate(0, 0, -365).Format(layout),
		"user_input":       userInput,
	}
}

// BuildSchemaDDL renders table metadata as CREATE TABLE statements for
// the generation prompt.
func BuildSchemaDDL(tables []models.TableInfo) string {
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		var b strings.Builder
		fmt.Fprintf(&b, "CREATE TABLE %s (\n", t.TableName)

		fieldDefs := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			def := fmt.Sprintf("    %s %s", f.Name, f.Datatype)
			if f.Comment != "" {
				def += fmt.Sprintf(" COMMENT '%s'", f.Comment)
			}
			fieldDefs = append(fieldDefs, def)
		}
		b.WriteString(strings.Join(fieldDefs, ",\n"))
		b.WriteString("\n)")

		if t.TableComment != "" {
			fmt.Fprintf(&b, " COMMENT '%s'", t.TableComment)
		}
		b.WriteString(";")
		stmts = append(stmts, b.String())
	}
	return strings.Join(stmts, "\n\n")
}

// BuildSynonymBlock renders the applied synonym mapping (primary term to
// the secondary form found in the query).
func BuildSynonymBlock(synonyms map[string]string, order []string) string {
	if len(synonyms) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n在用户的问题中, \n")
	for _, prim := range order {
		sec, ok := synonyms[prim]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s 是指 %s\n", sec, prim)
	}
	return b.String()
}

// BuildFieldValueBlock renders matched dimension values grouped per table
// and field, showing up to three sample values each.
func BuildFieldValueBlock(dims []models.DimensionMatch, tables []models.TableInfo) string {
	if len(dims) == 0 {
		return ""
	}

	tableByID := make(map[string]*models.TableInfo, len(tables))
	for i := range tables {
		tableByID[tables[i].TableID] = &tables[i]
	}

	// Group values per table, then per field, preserving input order.
	type fieldGroup struct {
		fieldID string
		values  []string
	}
	type tableGroup struct {
		tableID string
		fields  []*fieldGroup
		index   map[string]*fieldGroup
	}
	var groups []*tableGroup
	groupByTable := make(map[string]*tableGroup)

	for _, d := range dims {
		tg, ok := groupByTable[d.TableID]
		if !ok {
			tg = &tableGroup{tableID: d.TableID, index: make(map[string]*fieldGroup)}
			groupByTable[d.TableID] = tg
			groups = append(groups, tg)
		}
		fg, ok := tg.index[d.FieldID]
		if !ok {
			fg = &fieldGroup{fieldID: d.FieldID}
			tg.index[d.FieldID] = fg
			tg.fields = append(tg.fields, fg)
		}
		fg.values = append(fg.values, d.Value)
	}

	var out []string
	for _, tg := range groups {
		table, ok := tableByID[tg.tableID]
		if !ok {
			continue
		}

		var fieldStrs []string
		for i, fg := range tg.fields {
			field := findField(table.Fields, fg.fieldID)
			if field == nil {
				continue
			}
			vals := fg.values
			if len(vals) > 3 {
				vals = vals[:3]
			}
			quoted := make([]string, len(vals))
			for j, v := range vals {
				quoted[j] = "'" + v + "'"
			}
			fieldStrs = append(fieldStrs, fmt.Sprintf("%d. %s的值例如：%s；", i+1, field.Name, strings.Join(quoted, ", ")))
		}

		if len(fieldStrs) > 0 {
			out = append(out, fmt.Sprintf("\n表%s中，\n%s", table.TableName, strings.Join(fieldStrs, "\n")))
		}
	}

	return strings.Join(out, "\n")
}

// BuildFewshotBlock renders curated SQL cases as fewshot examples.
func BuildFewshotBlock(cases []models.SQLCase) string {
	if len(cases) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("以下是sql案例库中与问题相似的案例: \n")
	for _, c := range cases {
		fmt.Fprintf(&b, "问题： %s\nSQL: %s\n", c.Querys, c.SQL)
	}
	return b.String()
}

func findField(fields []models.Field, fieldID string) *models.Field {
	for i := range fields {
		if fields[i].FieldID == fieldID {
			return &fields[i]
		}
	}
	return nil
}
