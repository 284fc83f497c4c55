package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/llm"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
)

const (
	// Per-entity cap on field matches kept after merging both channels.
	fieldMatchTopK = 10

	// Only field matches above this clear the confidence bar for table
	// recommendation.
	fieldScoreThreshold = 0.70

	// Number of field-evidence tables recommended per query.
	fieldTableTopN = 3
)

// FieldMatchService resolves query entities against the field inverted
// index and aggregates the hits into per-table evidence.
type FieldMatchService interface {
	// MatchEntities searches the field index for every entity, merging
	// the name and comment channels by max score per field.
	MatchEntities(ctx context.Context, bizid string, entities []string) ([]models.EntityMatches, error)

	// RecommendTables aggregates high-confidence field matches into
	// ranked per-table scores and hydrates the winners with table metadata.
	RecommendTables(ctx context.Context, bizid string, entityMatches []models.EntityMatches) ([]models.FieldTableScore, error)
}

type fieldMatchService struct {
	fieldRepo repositories.FieldEntryRepository
	tableRepo repositories.TableRepository
	embedder  llm.Embedder
	logger    *zap.Logger
}

// NewFieldMatchService creates a new FieldMatchService.
func NewFieldMatchService(
	fieldRepo repositories.FieldEntryRepository,
	tableRepo repositories.TableRepository,
	embedder llm.Embedder,
	logger *zap.Logger,
) FieldMatchService {
	return &fieldMatchService{
		fieldRepo: fieldRepo,
		tableRepo: tableRepo,
		embedder:  embedder,
		logger:    logger.Named("field-match"),
	}
}

var _ FieldMatchService = (*fieldMatchService)(nil)

func (s *fieldMatchService) MatchEntities(ctx context.Context, bizid string, entities []string) ([]models.EntityMatches, error) {
	seen := make(map[string]struct{}, len(entities))
	results := make([]models.EntityMatches, 0, len(entities))

	for _, entity := range entities {
		if entity == "" {
			continue
		}
		if _, ok := seen[entity]; ok {
			continue
		}
		seen[entity] = struct{}{}

		vec, err := s.embedder.CreateEmbedding(ctx, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to embed entity %q: %w", entity, err)
		}

		merged := make(map[string]models.FieldMatch)
		for _, column := range []repositories.FieldVectorColumn{
			repositories.FieldNameVector,
			repositories.FieldCommentVector,
		} {
			matches, err := s.fieldRepo.SearchByVector(ctx, bizid, column, vec, fieldMatchTopK)
			if err != nil {
				s.logger.Warn("Field vector search failed",
					zap.String("bizid", bizid),
					zap.String("column", string(column)),
					zap.Error(err))
				continue
			}
			for _, m := range matches {
				if prev, ok := merged[m.FieldName]; !ok || m.Score > prev.Score {
					merged[m.FieldName] = m
				}
			}
		}

		matches := make([]models.FieldMatch, 0, len(merged))
		for _, m := range merged {
			matches = append(matches, m)
		}
		sort.Slice(matches, func(i, j int) bool {
			if matches[i].Score != matches[j].Score {
				return matches[i].Score > matches[j].Score
			}
			return matches[i].FieldName < matches[j].FieldName
		})
		if len(matches) > fieldMatchTopK {
			matches = matches[:fieldMatchTopK]
		}

		results = append(results, models.EntityMatches{Entity: entity, Matches: matches})
	}

	return results, nil
}

func (s *fieldMatchService) RecommendTables(ctx context.Context, bizid string, entityMatches []models.EntityMatches) ([]models.FieldTableScore, error) {
	totalEntities := len(entityMatches)
	if totalEntities == 0 {
		return []models.FieldTableScore{}, nil
	}

	type tableStats struct {
		entities   []string
		count      int
		totalScore float64
	}
	stats := make(map[string]*tableStats)

	for _, em := range entityMatches {
		// Per entity, keep only the best score for each table across
		// all of its matched fields.
		best := make(map[string]float64)
		for _, m := range em.Matches {
			if m.Score <= fieldScoreThreshold {
				continue
			}
			for _, tableID := range m.TableIDs {
				if m.Score > best[tableID] {
					best[tableID] = m.Score
				}
			}
		}

		for tableID, score := range best {
			st, ok := stats[tableID]
			if !ok {
				st = &tableStats{}
				stats[tableID] = st
			}
			st.entities = append(st.entities, em.Entity)
			st.count++
			st.totalScore += score
		}
	}

	scored := make([]models.FieldTableScore, 0, len(stats))
	for tableID, st := range stats {
		scored = append(scored, models.FieldTableScore{
			TableID:       tableID,
			Entities:      st.entities,
			EntityCount:   st.count,
			TotalScore:    st.totalScore,
			MatchRatio:    float64(st.count) / float64(totalEntities),
			CompleteMatch: st.count == totalEntities,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.CompleteMatch != b.CompleteMatch {
			return a.CompleteMatch
		}
		if a.MatchRatio != b.MatchRatio {
			return a.MatchRatio > b.MatchRatio
		}
		if a.TotalScore != b.TotalScore {
			return a.TotalScore > b.TotalScore
		}
		return a.TableID < b.TableID
	})
	if len(scored) > fieldTableTopN {
		scored = scored[:fieldTableTopN]
	}

	recommended := make([]models.FieldTableScore, 0, len(scored))
	for _, ts := range scored {
		info, err := s.tableRepo.Get(ctx, bizid, ts.TableID)
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to hydrate field table %s: %w", ts.TableID, err)
		}
		ts.TableName = info.TableName
		ts.TableComment = info.TableComment
		ts.Fields = info.Fields
		recommended = append(recommended, ts)
	}

	s.logger.Debug("Field evidence tables recommended",
		zap.String("bizid", bizid),
		zap.Int("tables", len(recommended)))
	return recommended, nil
}
