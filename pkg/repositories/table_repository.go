package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// VectorProjection selects which stored embedding a table search runs
// against. The values are column names and never come from user input.
type VectorProjection string

const (
	// ProjectionSemantic embeds the whole table (name, comment, fields).
	ProjectionSemantic VectorProjection = "semantic_vector"
	// ProjectionName embeds the table name alone.
	ProjectionName VectorProjection = "name_vector"
	// ProjectionComment embeds the table comment alone.
	ProjectionComment VectorProjection = "comment_vector"
	// ProjectionFields embeds the concatenated field descriptions.
	ProjectionFields VectorProjection = "fields_vector"
)

// TableVectors holds the four embedding projections stored per table.
type TableVectors struct {
	Semantic []float32
	Name     []float32
	Comment  []float32
	Fields   []float32
}

// TableRepository provides data access for table metadata and vector recall.
type TableRepository interface {
	Upsert(ctx context.Context, info *models.TableInfo, vectors *TableVectors) error
	Get(ctx context.Context, bizid, tableID string) (*models.TableInfo, error)
	List(ctx context.Context, bizid string) ([]models.TableInfo, error)
	Delete(ctx context.Context, bizid string, tableIDs []string) (int64, error)
	SearchByVector(ctx context.Context, bizid string, projection VectorProjection, query []float32, topK int) ([]models.TableMatch, error)
	UpdateFieldValues(ctx context.Context, bizid, tableID, fieldID, values string) error
}

type tableRepository struct{}

// NewTableRepository creates a new TableRepository.
func NewTableRepository() TableRepository {
	return &tableRepository{}
}

var _ TableRepository = (*tableRepository)(nil)

func (r *tableRepository) Upsert(ctx context.Context, info *models.TableInfo, vectors *TableVectors) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	fieldsJSON, err := json.Marshal(info.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	_, err = scope.Conn.Exec(ctx, `
		INSERT INTO table_infos (
			bizid, table_id, table_name, table_comment, fields,
			semantic_vector, name_vector, comment_vector, fields_vector
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (bizid, table_id) DO UPDATE SET
			table_name = EXCLUDED.table_name,
			table_comment = EXCLUDED.table_comment,
			fields = EXCLUDED.fields,
			semantic_vector = EXCLUDED.semantic_vector,
			name_vector = EXCLUDED.name_vector,
			comment_vector = EXCLUDED.comment_vector,
			fields_vector = EXCLUDED.fields_vector,
			updated_at = now()`,
		info.Bizid, info.TableID, info.TableName, info.TableComment, fieldsJSON,
		pgvector.NewVector(vectors.Semantic), pgvector.NewVector(vectors.Name),
		pgvector.NewVector(vectors.Comment), pgvector.NewVector(vectors.Fields))
	if err != nil {
		return fmt.Errorf("failed to upsert table info: %w", err)
	}
	return nil
}

func (r *tableRepository) Get(ctx context.Context, bizid, tableID string) (*models.TableInfo, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	var (
		info       models.TableInfo
		fieldsJSON []byte
	)
	err := scope.Conn.QueryRow(ctx, `
		SELECT bizid, table_id, table_name, table_comment, fields, updated_at
		FROM table_infos
		WHERE bizid = $1 AND table_id = $2`, bizid, tableID).
		Scan(&info.Bizid, &info.TableID, &info.TableName, &info.TableComment, &fieldsJSON, &info.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table info: %w", err)
	}

	if err := json.Unmarshal(fieldsJSON, &info.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
	}
	return &info, nil
}

func (r *tableRepository) List(ctx context.Context, bizid string) ([]models.TableInfo, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT bizid, table_id, table_name, table_comment, fields, updated_at
		FROM table_infos
		WHERE bizid = $1
		ORDER BY table_id`, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to list table infos: %w", err)
	}
	defer rows.Close()

	tables := make([]models.TableInfo, 0)
	for rows.Next() {
		var (
			info       models.TableInfo
			fieldsJSON []byte
		)
		if err := rows.Scan(&info.Bizid, &info.TableID, &info.TableName, &info.TableComment, &fieldsJSON, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan table info: %w", err)
		}
		if err := json.Unmarshal(fieldsJSON, &info.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
		}
		tables = append(tables, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table infos: %w", err)
	}
	return tables, nil
}

func (r *tableRepository) Delete(ctx context.Context, bizid string, tableIDs []string) (int64, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`DELETE FROM table_infos WHERE bizid = $1 AND table_id = ANY($2)`,
		bizid, tableIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete table infos: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *tableRepository) SearchByVector(ctx context.Context, bizid string, projection VectorProjection, query []float32, topK int) ([]models.TableMatch, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	// projection is one of the package constants, never user input.
	sql := fmt.Sprintf(`
		SELECT table_id, table_name, table_comment, fields, 1 - (%s <=> $2) AS score
		FROM table_infos
		WHERE bizid = $1 AND %s IS NOT NULL
		ORDER BY %s <=> $2, table_id
		LIMIT $3`, projection, projection, projection)

	rows, err := scope.Conn.Query(ctx, sql, bizid, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search tables: %w", err)
	}
	defer rows.Close()

	matches := make([]models.TableMatch, 0, topK)
	for rows.Next() {
		var (
			m          models.TableMatch
			fieldsJSON []byte
		)
		if err := rows.Scan(&m.TableID, &m.TableName, &m.TableComment, &fieldsJSON, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan table match: %w", err)
		}
		if err := json.Unmarshal(fieldsJSON, &m.Fields); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating table matches: %w", err)
	}
	return matches, nil
}

func (r *tableRepository) UpdateFieldValues(ctx context.Context, bizid, tableID, fieldID, values string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `
		UPDATE table_infos
		SET fields = (
			SELECT jsonb_agg(
				CASE WHEN f->>'field_id' = $3
				     THEN jsonb_set(f, '{field_values}', to_jsonb($4::text))
				     ELSE f
				END)
			FROM jsonb_array_elements(fields) AS f
		), updated_at = now()
		WHERE bizid = $1 AND table_id = $2`,
		bizid, tableID, fieldID, values)
	if err != nil {
		return fmt.Errorf("failed to update field values: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
