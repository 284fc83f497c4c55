package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
)

const (
	// Alpha entries trailing the best match by more than this are dropped.
	alphaResidual = 0.1

	// Upper bound on beta entries scanned for literal containment.
	betaCandidateLimit = 1000
)

// KnowledgeMatchService matches curated business knowledge against a query.
//
// Alpha keys match by embedding similarity; beta keys match by literal
// containment of the key in the query text.
type KnowledgeMatchService interface {
	MatchAlpha(ctx context.Context, bizid string, query []float32, topK int, minScore float64) ([]models.KnowledgeMatch, error)
	MatchBeta(ctx context.Context, bizid, query string) ([]models.Knowledge, error)
}

type knowledgeMatchService struct {
	repo   repositories.KnowledgeRepository
	logger *zap.Logger
}

// NewKnowledgeMatchService creates a new KnowledgeMatchService.
func NewKnowledgeMatchService(repo repositories.KnowledgeRepository, logger *zap.Logger) KnowledgeMatchService {
	return &knowledgeMatchService{
		repo:   repo,
		logger: logger.Named("knowledge-match"),
	}
}

var _ KnowledgeMatchService = (*knowledgeMatchService)(nil)

func (s *knowledgeMatchService) MatchAlpha(ctx context.Context, bizid string, query []float32, topK int, minScore float64) ([]models.KnowledgeMatch, error) {
	matches, err := s.repo.SearchAlpha(ctx, bizid, query, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to match alpha knowledge: %w", err)
	}

	kept := matches[:0]
	for _, m := range matches {
		if m.Score >= minScore {
			kept = append(kept, m)
		}
	}

	s.logger.Debug("Alpha knowledge matched",
		zap.String("bizid", bizid),
		zap.Int("matches", len(kept)))
	return kept, nil
}

func (s *knowledgeMatchService) MatchBeta(ctx context.Context, bizid, query string) ([]models.Knowledge, error) {
	candidates, err := s.repo.ListBetaCandidates(ctx, bizid, betaCandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to match beta knowledge: %w", err)
	}

	matched := make([]models.Knowledge, 0)
	for _, k := range candidates {
		for _, key := range k.KeyBeta {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if strings.Contains(query, key) {
				matched = append(matched, k)
				break
			}
		}
	}

	s.logger.Debug("Beta knowledge matched",
		zap.String("bizid", bizid),
		zap.Int("matches", len(matched)))
	return matched, nil
}

// PruneByResidual drops alpha matches whose score trails the best match
// by residual or more. The input must be sorted best-first.
func PruneByResidual(matches []models.KnowledgeMatch, residual float64) []models.KnowledgeMatch {
	if len(matches) == 0 {
		return matches
	}

	best := matches[0].Score
	kept := matches[:0]
	for _, m := range matches {
		if best-m.Score < residual {
			kept = append(kept, m)
		}
	}
	return kept
}
