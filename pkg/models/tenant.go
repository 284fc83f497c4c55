package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Tenant is a registered business unit. All metadata and retrieval is
// scoped to a tenant's bizid.
type Tenant struct {
	Bizid     string    `json:"bizid"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings holds per-tenant retrieval behavior.
type Settings struct {
	Bizid                  string  `json:"bizid"`
	TableRetrieveThreshold float64 `json:"table_retrieve_threshold"`
	EnableTableAuth        bool    `json:"enable_table_auth"`
	DeepSemanticSearch     bool    `json:"deep_semantic_search"`
}

// UnmarshalJSON accepts table_retrieve_threshold as a JSON number or a
// string. Legacy clients sent the threshold as text ("0.7").
func (s *Settings) UnmarshalJSON(data []byte) error {
	type alias Settings
	aux := struct {
		TableRetrieveThreshold json.RawMessage `json:"table_retrieve_threshold"`
		*alias
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := strings.Trim(string(aux.TableRetrieveThreshold), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid table_retrieve_threshold %q: %w", raw, err)
	}
	s.TableRetrieveThreshold = v
	return nil
}

// Prompt is one named prompt template for a tenant. Unset templates
// fall back to the built-in defaults.
type Prompt struct {
	Bizid    string `json:"bizid"`
	Name     string `json:"name"`
	Template string `json:"template"`
}

// SQLCase is a curated question/SQL pair rendered into the generation
// prompt as a fewshot example.
type SQLCase struct {
	Bizid  string `json:"bizid"`
	CaseID string `json:"case_id"`
	Querys string `json:"querys"`
	SQL    string `json:"sql"`
}
