package models

// DimensionValue is one known value of a dimension column, used for
// fuzzy lookup of literal filters in user queries.
type DimensionValue struct {
	Bizid   string `json:"bizid"`
	TableID string `json:"table_id"`
	FieldID string `json:"field_id"`
	Value   string `json:"value"`
}

// DimensionMatch is a dimension value with its fuzzy-match score.
type DimensionMatch struct {
	DimensionValue
	Score float64 `json:"score"`
}
