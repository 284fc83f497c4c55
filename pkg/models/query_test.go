package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityNames(t *testing.T) {
	tests := []struct {
		name     string
		entities []ParsedEntity
		want     []string
	}{
		{
			name: "field uses literal text, location uses classified name",
			entities: []ParsedEntity{
				{EntityText: "福田区", EntityName: "区县", EntityType: "location"},
				{EntityText: "投诉的工单量", EntityName: "", EntityType: "field"},
			},
			want: []string{"区县", "投诉的工单量"},
		},
		{
			name: "field with both populated still uses text",
			entities: []ParsedEntity{
				{EntityText: "交通事故数", EntityName: "事故指标", EntityType: "field"},
			},
			want: []string{"交通事故数"},
		},
		{
			name: "missing preferred side falls back to the other",
			entities: []ParsedEntity{
				{EntityText: "四川", EntityName: "", EntityType: "location"},
				{EntityText: "", EntityName: "死亡人数", EntityType: "field"},
			},
			want: []string{"四川", "死亡人数"},
		},
		{
			name: "duplicates and empties dropped",
			entities: []ParsedEntity{
				{EntityText: "工单量", EntityType: "field"},
				{EntityText: "工单量", EntityType: "field"},
				{EntityType: "field"},
			},
			want: []string{"工单量"},
		},
		{
			name: "no entities",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &ParsedQuery{Entities: tt.entities}
			require.Equal(t, tt.want, p.EntityNames())
		})
	}
}
