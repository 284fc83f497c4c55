package repositories

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// FieldVectorColumn selects which field-entry embedding a search runs
// against. The values are column names and never come from user input.
type FieldVectorColumn string

const (
	// FieldNameVector embeds the field name.
	FieldNameVector FieldVectorColumn = "name_vector"
	// FieldCommentVector embeds the field comment.
	FieldCommentVector FieldVectorColumn = "comment_vector"
)

// FieldEntryRepository provides data access for the field inverted index.
type FieldEntryRepository interface {
	// ExistingNames reports which of the given lowercased field names
	// already have entries, so callers can skip re-embedding them.
	ExistingNames(ctx context.Context, bizid string, names []string) (map[string]bool, error)
	// UpsertMerge inserts an entry or merges table ids into an existing
	// one. Stored vectors are kept when the entry already exists.
	UpsertMerge(ctx context.Context, entry *models.FieldEntry, nameVector, commentVector []float32) error
	SearchByVector(ctx context.Context, bizid string, column FieldVectorColumn, query []float32, topK int) ([]models.FieldMatch, error)
	// RemoveTableIDs drops the given tables from every entry's membership
	// and deletes entries that end up with no tables.
	RemoveTableIDs(ctx context.Context, bizid string, tableIDs []string) error
}

type fieldEntryRepository struct{}

// NewFieldEntryRepository creates a new FieldEntryRepository.
func NewFieldEntryRepository() FieldEntryRepository {
	return &fieldEntryRepository{}
}

var _ FieldEntryRepository = (*fieldEntryRepository)(nil)

func (r *fieldEntryRepository) ExistingNames(ctx context.Context, bizid string, names []string) (map[string]bool, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx,
		`SELECT field_name FROM field_entries WHERE bizid = $1 AND field_name = ANY($2)`,
		bizid, names)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing field names: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool, len(names))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan field name: %w", err)
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field names: %w", err)
	}
	return existing, nil
}

func (r *fieldEntryRepository) UpsertMerge(ctx context.Context, entry *models.FieldEntry, nameVector, commentVector []float32) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	var nameVec, commentVec any
	if nameVector != nil {
		nameVec = pgvector.NewVector(nameVector)
	}
	if commentVector != nil {
		commentVec = pgvector.NewVector(commentVector)
	}

	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO field_entries (bizid, field_name, field_comment, table_ids, name_vector, comment_vector)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (bizid, field_name) DO UPDATE SET
			table_ids = (
				SELECT array_agg(DISTINCT t ORDER BY t)
				FROM unnest(field_entries.table_ids || EXCLUDED.table_ids) AS t
			),
			field_comment = COALESCE(NULLIF(EXCLUDED.field_comment, ''), field_entries.field_comment),
			name_vector = COALESCE(field_entries.name_vector, EXCLUDED.name_vector),
			comment_vector = COALESCE(field_entries.comment_vector, EXCLUDED.comment_vector),
			updated_at = now()`,
		entry.Bizid, entry.FieldName, entry.FieldComment, entry.TableIDs, nameVec, commentVec)
	if err != nil {
		return fmt.Errorf("failed to upsert field entry: %w", err)
	}
	return nil
}

func (r *fieldEntryRepository) SearchByVector(ctx context.Context, bizid string, column FieldVectorColumn, query []float32, topK int) ([]models.FieldMatch, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	// column is one of the package constants, never user input.
	sql := fmt.Sprintf(`
		SELECT field_name, field_comment, table_ids, 1 - (%s <=> $2) AS score
		FROM field_entries
		WHERE bizid = $1 AND %s IS NOT NULL
		ORDER BY %s <=> $2, field_name
		LIMIT $3`, column, column, column)

	rows, err := scope.Conn.Query(ctx, sql, bizid, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search field entries: %w", err)
	}
	defer rows.Close()

	matches := make([]models.FieldMatch, 0, topK)
	for rows.Next() {
		var m models.FieldMatch
		if err := rows.Scan(&m.FieldName, &m.FieldComment, &m.TableIDs, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan field match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field matches: %w", err)
	}
	return matches, nil
}

func (r *fieldEntryRepository) RemoveTableIDs(ctx context.Context, bizid string, tableIDs []string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	_, err := scope.Conn.Exec(ctx, `
		UPDATE field_entries
		SET table_ids = (
			SELECT COALESCE(array_agg(t ORDER BY t), '{}')
			FROM unnest(table_ids) AS t
			WHERE NOT (t = ANY($2))
		), updated_at = now()
		WHERE bizid = $1 AND table_ids && $2`,
		bizid, tableIDs)
	if err != nil {
		return fmt.Errorf("failed to remove table ids from field entries: %w", err)
	}

	_, err = scope.Conn.Exec(ctx,
		`DELETE FROM field_entries WHERE bizid = $1 AND cardinality(table_ids) = 0`,
		bizid)
	if err != nil {
		return fmt.Errorf("failed to delete empty field entries: %w", err)
	}
	return nil
}
