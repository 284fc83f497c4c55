package models

// QueryElements are the key phrases extracted from a user query by the
// element-extraction agent.
type QueryElements struct {
	Where   []string `json:"where"`
	GroupBy []string `json:"group_by"`
	OrderBy []string `json:"order_by"`
}

// IsEmpty reports whether no elements were extracted.
func (e QueryElements) IsEmpty() bool {
	return len(e.Where) == 0 && len(e.GroupBy) == 0 && len(e.OrderBy) == 0
}

// All returns every extracted phrase in where/group_by/order_by order.
func (e QueryElements) All() []string {
	out := make([]string, 0, len(e.Where)+len(e.GroupBy)+len(e.OrderBy))
	out = append(out, e.Where...)
	out = append(out, e.GroupBy...)
	out = append(out, e.OrderBy...)
	return out
}

// ParsedEntity is one business entity identified by the query-parse agent.
type ParsedEntity struct {
	EntityText string `json:"entity_text"`
	EntityName string `json:"entity_name"`
	EntityType string `json:"entity_type"`
}

// ParsedQuery is the structured reading of a user query: an optional
// explicit table name plus the business entities mentioned.
type ParsedQuery struct {
	Table    string         `json:"table"`
	Entities []ParsedEntity `json:"entity"`
}

// EntityNames returns the distinct non-empty entity names in input
// order. A field entity is referred to by its literal text (the agent
// leaves entity_name blank for fields), any other type by its
// classified name.
func (p *ParsedQuery) EntityNames() []string {
	seen := make(map[string]struct{}, len(p.Entities))
	names := make([]string, 0, len(p.Entities))
	for _, e := range p.Entities {
		name, alt := e.EntityName, e.EntityText
		if e.EntityType == "field" {
			name, alt = e.EntityText, e.EntityName
		}
		if name == "" {
			name = alt
		}
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// PreparedQuery is the full retrieval context assembled for a user query
// before SQL generation.
type PreparedQuery struct {
	Bizid           string            `json:"bizid"`
	Query           string            `json:"query"`
	NormalizedQuery string            `json:"normalized_query"`
	Synonyms        map[string]string `json:"synonyms,omitempty"`
	// SynonymOrder preserves the order synonyms were applied in, keyed
	// by primary term, so prompt rendering stays deterministic.
	SynonymOrder    []string          `json:"-"`
	Elements        QueryElements     `json:"elements"`
	Tables          []TableInfo       `json:"tables"`
	RecalledTables  []TableMatch      `json:"recalled_tables,omitempty"`
	AlphaKnowledge  []KnowledgeMatch  `json:"alpha_knowledge,omitempty"`
	BetaKnowledge   []Knowledge       `json:"beta_knowledge,omitempty"`
	DimensionValues []DimensionMatch  `json:"dimension_values,omitempty"`
	Fewshot         []SQLCase         `json:"fewshot,omitempty"`
}
