package models

// FieldEntry is an inverted-index entry mapping a field name to every
// table that carries a field with that name. Field names are stored
// lowercased.
type FieldEntry struct {
	Bizid        string   `json:"bizid"`
	FieldName    string   `json:"field_name"`
	FieldComment string   `json:"field_comment,omitempty"`
	TableIDs     []string `json:"table_ids"`
}

// FieldMatch is a field entry matched against one extracted entity.
type FieldMatch struct {
	FieldName    string   `json:"field_name"`
	FieldComment string   `json:"field_comment,omitempty"`
	TableIDs     []string `json:"table_ids"`
	Score        float64  `json:"score"`
}

// EntityMatches holds the high-confidence field matches for one entity.
// Matches may be empty when nothing cleared the confidence bar.
type EntityMatches struct {
	Entity  string       `json:"entity"`
	Matches []FieldMatch `json:"matches"`
}

// FieldTableScore is the per-table aggregation of field-level evidence
// across all entities of a query.
type FieldTableScore struct {
	TableID       string   `json:"table_id"`
	TableName     string   `json:"table_name,omitempty"`
	TableComment  string   `json:"table_comment,omitempty"`
	Fields        []Field  `json:"fields,omitempty"`
	Entities      []string `json:"entities"`
	EntityCount   int      `json:"entity_count"`
	TotalScore    float64  `json:"total_score"`
	MatchRatio    float64  `json:"match_ratio"`
	CompleteMatch bool     `json:"complete_match"`
}

// AverageScore is the mean field score across the entities that hit
// this table.
func (s *FieldTableScore) AverageScore() float64 {
	if s.EntityCount == 0 {
		return 0
	}
	return s.TotalScore / float64(s.EntityCount)
}
