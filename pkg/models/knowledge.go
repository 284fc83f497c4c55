package models

// Knowledge is a curated business definition (metric, rule, or vocabulary
// entry) attached to a tenant and optionally to a table.
//
// KeyAlpha is matched by embedding similarity against the query; KeyBeta
// entries are matched by literal containment in the query text. At least
// one of the two must be present.
type Knowledge struct {
	Bizid       string   `json:"bizid"`
	KnowledgeID string   `json:"knowledge_id"`
	TableID     string   `json:"table_id,omitempty"`
	KeyAlpha    string   `json:"key_alpha,omitempty"`
	KeyBeta     []string `json:"key_beta,omitempty"`
	Value       string   `json:"value"`
}

// KnowledgeMatch is a knowledge entry with its similarity score.
type KnowledgeMatch struct {
	Knowledge
	Score float64 `json:"score"`
}

// Synonym maps a primary vocabulary term to the secondary forms users
// write instead of it.
type Synonym struct {
	Bizid          string   `json:"bizid"`
	PrimaryTerm    string   `json:"primary_term"`
	SecondaryTerms []string `json:"secondary_terms"`
}
