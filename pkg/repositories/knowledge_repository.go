package repositories

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
)

// KnowledgeRepository provides data access for business knowledge entries.
type KnowledgeRepository interface {
	// Upsert stores a knowledge entry. alphaVector must be present when
	// the entry carries a key_alpha; entries without an alpha key store a
	// NULL vector and are excluded from alpha recall.
	Upsert(ctx context.Context, k *models.Knowledge, alphaVector []float32) error
	Delete(ctx context.Context, bizid string, knowledgeIDs []string) (int64, error)
	DeleteByTable(ctx context.Context, bizid string, tableIDs []string) error
	List(ctx context.Context, bizid string) ([]models.Knowledge, error)
	SearchAlpha(ctx context.Context, bizid string, query []float32, topK int) ([]models.KnowledgeMatch, error)
	// ListBetaCandidates returns entries carrying beta keys; literal
	// containment against the query happens in the matcher.
	ListBetaCandidates(ctx context.Context, bizid string, limit int) ([]models.Knowledge, error)
}

type knowledgeRepository struct{}

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository() KnowledgeRepository {
	return &knowledgeRepository{}
}

var _ KnowledgeRepository = (*knowledgeRepository)(nil)

func (r *knowledgeRepository) Upsert(ctx context.Context, k *models.Knowledge, alphaVector []float32) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	var vec any
	if alphaVector != nil {
		vec = pgvector.NewVector(alphaVector)
	}

	_, err := scope.Conn.Exec(ctx, `
		INSERT INTO knowledge (bizid, knowledge_id, table_id, key_alpha, key_alpha_vector, key_beta, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (bizid, knowledge_id) DO UPDATE SET
			table_id = EXCLUDED.table_id,
			key_alpha = EXCLUDED.key_alpha,
			key_alpha_vector = EXCLUDED.key_alpha_vector,
			key_beta = EXCLUDED.key_beta,
			value = EXCLUDED.value,
			updated_at = now()`,
		k.Bizid, k.KnowledgeID, k.TableID, k.KeyAlpha, vec, k.KeyBeta, k.Value)
	if err != nil {
		return fmt.Errorf("failed to upsert knowledge: %w", err)
	}
	return nil
}

func (r *knowledgeRepository) Delete(ctx context.Context, bizid string, knowledgeIDs []string) (int64, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return 0, fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx,
		`DELETE FROM knowledge WHERE bizid = $1 AND knowledge_id = ANY($2)`,
		bizid, knowledgeIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete knowledge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *knowledgeRepository) DeleteByTable(ctx context.Context, bizid string, tableIDs []string) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	_, err := scope.Conn.Exec(ctx,
		`DELETE FROM knowledge WHERE bizid = $1 AND table_id = ANY($2)`,
		bizid, tableIDs)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge by table: %w", err)
	}
	return nil
}

func (r *knowledgeRepository) List(ctx context.Context, bizid string) ([]models.Knowledge, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT bizid, knowledge_id, table_id, key_alpha, key_beta, value
		FROM knowledge
		WHERE bizid = $1
		ORDER BY knowledge_id`, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	defer rows.Close()

	entries := make([]models.Knowledge, 0)
	for rows.Next() {
		var k models.Knowledge
		if err := rows.Scan(&k.Bizid, &k.KnowledgeID, &k.TableID, &k.KeyAlpha, &k.KeyBeta, &k.Value); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge: %w", err)
		}
		entries = append(entries, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge: %w", err)
	}
	return entries, nil
}

func (r *knowledgeRepository) SearchAlpha(ctx context.Context, bizid string, query []float32, topK int) ([]models.KnowledgeMatch, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT bizid, knowledge_id, table_id, key_alpha, key_beta, value,
		       1 - (key_alpha_vector <=> $2) AS score
		FROM knowledge
		WHERE bizid = $1 AND key_alpha_vector IS NOT NULL
		ORDER BY key_alpha_vector <=> $2, knowledge_id
		LIMIT $3`, bizid, pgvector.NewVector(query), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}
	defer rows.Close()

	matches := make([]models.KnowledgeMatch, 0, topK)
	for rows.Next() {
		var m models.KnowledgeMatch
		if err := rows.Scan(&m.Bizid, &m.KnowledgeID, &m.TableID, &m.KeyAlpha, &m.KeyBeta, &m.Value, &m.Score); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge matches: %w", err)
	}
	return matches, nil
}

func (r *knowledgeRepository) ListBetaCandidates(ctx context.Context, bizid string, limit int) ([]models.Knowledge, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `
		SELECT bizid, knowledge_id, table_id, key_alpha, key_beta, value
		FROM knowledge
		WHERE bizid = $1 AND cardinality(key_beta) > 0
		ORDER BY knowledge_id
		LIMIT $2`, bizid, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list beta candidates: %w", err)
	}
	defer rows.Close()

	entries := make([]models.Knowledge, 0)
	for rows.Next() {
		var k models.Knowledge
		if err := rows.Scan(&k.Bizid, &k.KnowledgeID, &k.TableID, &k.KeyAlpha, &k.KeyBeta, &k.Value); err != nil {
			return nil, fmt.Errorf("failed to scan beta candidate: %w", err)
		}
		entries = append(entries, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating beta candidates: %w", err)
	}
	return entries, nil
}
