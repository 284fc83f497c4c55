package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/llm"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
)

// Fusion weights for tables carried by both the semantic recall and the
// field evidence channels.
const (
	fuseRecallWeight       = 0.4
	fuseFieldWeight        = 0.6
	fuseCompleteBoost      = 1.25
	fusePartialWeight      = 0.5
	fieldOnlyCompleteScore = 0.75
)

// DeepSearchInput carries everything the deep semantic search needs.
type DeepSearchInput struct {
	Bizid string
	// Query is the original user query, before time normalization and
	// synonym expansion.
	Query string
	// ConcatVector is the embedding of the expanded query with the
	// dimension field ids appended.
	ConcatVector []float32
	// ParseTemplate is the resolved query-parse prompt template.
	ParseTemplate string
	TopK          int
	MinScore      float64
	// Seed is the aggregate recall result the deep search refines.
	Seed []models.TableMatch
}

// TableRecallService retrieves candidate tables for a query.
type TableRecallService interface {
	// AggregateRecall searches the whole-table embedding.
	AggregateRecall(ctx context.Context, bizid string, query []float32, topK int, minScore float64) ([]models.TableMatch, error)

	// DeepSemanticRecall searches the name and comment embeddings
	// separately, scores each table by the better channel, and merges
	// the result with seed keeping the higher score per table.
	DeepSemanticRecall(ctx context.Context, bizid string, query []float32, topK int, minScore float64, seed []models.TableMatch) ([]models.TableMatch, error)

	// DeepSearch runs the full deep pipeline: query parsing, per-channel
	// recall over both the expanded and the original query, and fusion
	// with field-level evidence. When the parse step fails the seed is
	// returned unchanged.
	DeepSearch(ctx context.Context, in *DeepSearchInput) ([]models.TableMatch, error)
}

type tableRecallService struct {
	tableRepo  repositories.TableRepository
	fieldMatch FieldMatchService
	agents     AgentService
	embedder   llm.Embedder
	logger     *zap.Logger
}

// NewTableRecallService creates a new TableRecallService.
func NewTableRecallService(
	tableRepo repositories.TableRepository,
	fieldMatch FieldMatchService,
	agents AgentService,
	embedder llm.Embedder,
	logger *zap.Logger,
) TableRecallService {
	return &tableRecallService{
		tableRepo:  tableRepo,
		fieldMatch: fieldMatch,
		agents:     agents,
		embedder:   embedder,
		logger:     logger.Named("table-recall"),
	}
}

var _ TableRecallService = (*tableRecallService)(nil)

func (s *tableRecallService) AggregateRecall(ctx context.Context, bizid string, query []float32, topK int, minScore float64) ([]models.TableMatch, error) {
	matches, err := s.tableRepo.SearchByVector(ctx, bizid, repositories.ProjectionSemantic, query, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to recall tables: %w", err)
	}

	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= minScore {
			kept = append(kept, m)
		}
	}
	return kept, nil
}

func (s *tableRecallService) DeepSemanticRecall(ctx context.Context, bizid string, query []float32, topK int, minScore float64, seed []models.TableMatch) ([]models.TableMatch, error) {
	merged := make(map[string]models.TableMatch)

	for _, projection := range []repositories.VectorProjection{
		repositories.ProjectionName,
		repositories.ProjectionComment,
	} {
		matches, err := s.tableRepo.SearchByVector(ctx, bizid, projection, query, topK)
		if err != nil {
			// A single degraded channel must not sink the whole recall.
			s.logger.Warn("Deep semantic channel failed",
				zap.String("bizid", bizid),
				zap.String("projection", string(projection)),
				zap.Error(err))
			continue
		}
		for _, m := range matches {
			if prev, ok := merged[m.TableID]; !ok || m.Score > prev.Score {
				merged[m.TableID] = m
			}
		}
	}

	results := make([]models.TableMatch, 0, len(merged)+len(seed))
	for _, m := range merged {
		if m.Score < minScore {
			continue
		}
		results = append(results, m)
	}

	results = mergeMaxPerTable(results, seed)
	sortByScore(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *tableRecallService) DeepSearch(ctx context.Context, in *DeepSearchInput) ([]models.TableMatch, error) {
	parsed, err := s.agents.ParseQuery(ctx, in.ParseTemplate, in.Query)
	if err != nil {
		// Degrade to the aggregate recall result rather than dropping
		// every candidate on a parse hiccup.
		s.logger.Warn("Query parse failed, keeping aggregate recall",
			zap.String("bizid", in.Bizid),
			zap.Error(err))
		return in.Seed, nil
	}

	// An explicit table name in the query trumps everything else.
	if parsed.Table != "" {
		nameVec, err := s.embedder.CreateEmbedding(ctx, parsed.Table)
		if err != nil {
			return nil, fmt.Errorf("failed to embed table name: %w", err)
		}
		return s.DeepSemanticRecall(ctx, in.Bizid, nameVec, in.TopK, in.MinScore, nil)
	}

	recalled, err := s.DeepSemanticRecall(ctx, in.Bizid, in.ConcatVector, in.TopK, in.MinScore, in.Seed)
	if err != nil {
		return nil, err
	}

	// Run the same recall over the untouched original query and keep
	// the better score per table.
	oriVec, err := s.embedder.CreateEmbedding(ctx, in.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed original query: %w", err)
	}
	oriSeed, err := s.AggregateRecall(ctx, in.Bizid, oriVec, in.TopK, in.MinScore)
	if err != nil {
		return nil, err
	}
	oriRecalled, err := s.DeepSemanticRecall(ctx, in.Bizid, oriVec, in.TopK, in.MinScore, oriSeed)
	if err != nil {
		return nil, err
	}

	merged := mergeMaxPerTable(recalled, oriRecalled)
	sortByScore(merged)

	entityMatches, err := s.fieldMatch.MatchEntities(ctx, in.Bizid, parsed.EntityNames())
	if err != nil {
		return nil, err
	}
	fieldTables, err := s.fieldMatch.RecommendTables(ctx, in.Bizid, entityMatches)
	if err != nil {
		return nil, err
	}

	fused := FuseWithFieldEvidence(merged, fieldTables, in.MinScore)

	s.logger.Debug("Deep search completed",
		zap.String("bizid", in.Bizid),
		zap.Int("semantic_tables", len(merged)),
		zap.Int("field_tables", len(fieldTables)),
		zap.Int("fused_tables", len(fused)))
	return fused, nil
}

// FuseWithFieldEvidence combines semantic recall scores with field-level
// evidence.
//
// Tables present in both channels get a weighted blend, boosted and
// capped at 1.0 when every entity hit the table. Tables carried only by
// field evidence enter with a fixed score on a complete match, or with
// the ratio-weighted average otherwise, and are dropped below minScore.
// Tables carried only by recall keep their score and no field annotation.
func FuseWithFieldEvidence(recalled []models.TableMatch, fieldTables []models.FieldTableScore, minScore float64) []models.TableMatch {
	scores := make(map[string]float64, len(recalled))
	for _, t := range recalled {
		scores[t.TableID] = t.Score
	}
	fieldByID := make(map[string]models.FieldTableScore, len(fieldTables))
	for _, ft := range fieldTables {
		fieldByID[ft.TableID] = ft
	}

	out := append([]models.TableMatch(nil), recalled...)

	for _, ft := range fieldTables {
		avg := ft.AverageScore()
		if base, ok := scores[ft.TableID]; ok {
			if ft.CompleteMatch {
				boosted := (base*fuseRecallWeight + avg*fuseFieldWeight) * fuseCompleteBoost
				scores[ft.TableID] = min(boosted, 1.0)
			} else {
				scores[ft.TableID] = base*fusePartialWeight + avg*fusePartialWeight
			}
			continue
		}

		score := fieldOnlyCompleteScore
		if !ft.CompleteMatch {
			score = avg * ft.MatchRatio
		}
		if score < minScore {
			continue
		}
		scores[ft.TableID] = score

		ratio := ft.MatchRatio
		out = append(out, models.TableMatch{
			TableID:       ft.TableID,
			TableName:     ft.TableName,
			TableComment:  ft.TableComment,
			Fields:        ft.Fields,
			Score:         score,
			MatchRatio:    &ratio,
			Entities:      ft.Entities,
			CompleteMatch: ft.CompleteMatch,
		})
	}

	for i := range out {
		out[i].Score = scores[out[i].TableID]
		if ft, ok := fieldByID[out[i].TableID]; ok {
			ratio := ft.MatchRatio
			out[i].MatchRatio = &ratio
			out[i].Entities = ft.Entities
			out[i].CompleteMatch = ft.CompleteMatch
		} else {
			out[i].MatchRatio = nil
			out[i].Entities = nil
			out[i].CompleteMatch = false
		}
	}

	sortByScore(out)
	return out
}

func mergeMaxPerTable(lists ...[]models.TableMatch) []models.TableMatch {
	merged := make(map[string]models.TableMatch)
	for _, list := range lists {
		for _, m := range list {
			if prev, ok := merged[m.TableID]; !ok || m.Score > prev.Score {
				merged[m.TableID] = m
			}
		}
	}

	out := make([]models.TableMatch, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	return out
}

func sortByScore(matches []models.TableMatch) {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].TableID < matches[j].TableID
	})
}
