// Package models defines the domain types shared across repositories,
// services, and handlers.
package models

import "time"

// Field describes a single column of a registered table.
type Field struct {
	FieldID     string `json:"field_id"`
	Name        string `json:"name"`
	Datatype    string `json:"datatype"`
	Comment     string `json:"comment,omitempty"`
	FieldValues string `json:"field_values,omitempty"`
}

// TableInfo is the registered metadata for one table within a tenant.
type TableInfo struct {
	Bizid        string    `json:"bizid"`
	TableID      string    `json:"table_id"`
	TableName    string    `json:"table_name"`
	TableComment string    `json:"table_comment,omitempty"`
	Fields       []Field   `json:"fields"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// TableMatch is a table returned from a recall channel, annotated with
// match metadata where the channel produced it.
type TableMatch struct {
	TableID       string   `json:"table_id"`
	TableName     string   `json:"table_name"`
	TableComment  string   `json:"table_comment,omitempty"`
	Fields        []Field  `json:"fields,omitempty"`
	Score         float64  `json:"score"`
	MatchRatio    *float64 `json:"match_ratio,omitempty"`
	Entities      []string `json:"entities,omitempty"`
	CompleteMatch bool     `json:"complete_match"`
}
