package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func runFilter(chunks []string) string {
	f := NewFenceFilter()
	var out string
	for _, c := range chunks {
		out += f.Write(c)
	}
	return out + f.Flush()
}

func TestFenceFilter(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   string
	}{
		{
			name:   "single chunk with sql fence",
			chunks: []string{"```sql\nSELECT 1\n```"},
			want:   "SELECT 1",
		},
		{
			name:   "marker split across chunks",
			chunks: []string{"``", "`sq", "l\nSELECT", " 1", "\n``", "`"},
			want:   "SELECT 1",
		},
		{
			name:   "closing marker in its own chunk",
			chunks: []string{"```sql\nSELECT 1\n", "```"},
			want:   "SELECT 1",
		},
		{
			name:   "newlines inside the statement survive",
			chunks: []string{"```sql\nSELECT a\n", "FROM t\n", "```"},
			want:   "SELECT a\nFROM t",
		},
		{
			name:   "prose before fence is kept, markers removed",
			chunks: []string{"Here is the SQL:\n```sql\nSELECT 1\n```"},
			want:   "Here is the SQL:\nSELECT 1",
		},
		{
			name:   "no fence passes through",
			chunks: []string{"SELECT a, ", "b FROM t"},
			want:   "SELECT a, b FROM t",
		},
		{
			name:   "fence without language tag",
			chunks: []string{"```\nSELECT 1\n```\n"},
			want:   "SELECT 1",
		},
		{
			name:   "backticks inside statement survive",
			chunks: []string{"```sql\nSELECT `col` FROM t\n```"},
			want:   "SELECT `col` FROM t",
		},
		{
			name:   "unterminated opener discarded at flush",
			chunks: []string{"```sql"},
			want:   "",
		},
		{
			name:   "empty stream",
			chunks: []string{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runFilter(tt.chunks))
		})
	}
}

func TestFenceFilterEmitsEagerly(t *testing.T) {
	f := NewFenceFilter()
	f.Write("```sql\n")

	// Content inside the fence should not be held back waiting for the
	// closing marker.
	out := f.Write("SELECT count(*) FROM complaints")
	assert.Equal(t, "SELECT count(*) FROM complaints", out)

	assert.Equal(t, "", f.Write("\n```"))
	assert.Equal(t, "", f.Flush())
}
