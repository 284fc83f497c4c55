package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/config"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/llm"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/prompts"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
)

const (
	// Alpha knowledge entries retrieved per query.
	knowledgeTopK = 5

	// Dimension values retrieved per query.
	dimSearchLimit = 10

	// Fewshot cases rendered into the generation prompt.
	fewshotLimit = 3
)

// PipelineService assembles the full retrieval context for a query:
// time normalization, synonym expansion, element extraction, table
// recall, knowledge matching, and dimension value lookup.
//
// Callers must have a tenant scope on the context.
type PipelineService interface {
	// Prepare runs the retrieval pipeline. A non-empty tableID pins the
	// query to that table and skips recall and alpha matching.
	Prepare(ctx context.Context, bizid, query, tableID string) (*models.PreparedQuery, error)
}

type pipelineService struct {
	tenantRepo   repositories.TenantRepository
	settingsRepo repositories.SettingsRepository
	promptRepo   repositories.PromptRepository
	synonymRepo  repositories.SynonymRepository
	tableRepo    repositories.TableRepository
	dimRepo      repositories.DimensionRepository
	sqlCaseRepo  repositories.SQLCaseRepository
	knowledge    KnowledgeMatchService
	recall       TableRecallService
	agents       AgentService
	embedder     llm.Embedder
	cfg          *config.RetrievalConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewPipelineService creates a new PipelineService.
func NewPipelineService(
	tenantRepo repositories.TenantRepository,
	settingsRepo repositories.SettingsRepository,
	promptRepo repositories.PromptRepository,
	synonymRepo repositories.SynonymRepository,
	tableRepo repositories.TableRepository,
	dimRepo repositories.DimensionRepository,
	sqlCaseRepo repositories.SQLCaseRepository,
	knowledge KnowledgeMatchService,
	recall TableRecallService,
	agents AgentService,
	embedder llm.Embedder,
	cfg *config.RetrievalConfig,
	logger *zap.Logger,
) PipelineService {
	return &pipelineService{
		tenantRepo:   tenantRepo,
		settingsRepo: settingsRepo,
		promptRepo:   promptRepo,
		synonymRepo:  synonymRepo,
		tableRepo:    tableRepo,
		dimRepo:      dimRepo,
		sqlCaseRepo:  sqlCaseRepo,
		knowledge:    knowledge,
		recall:       recall,
		agents:       agents,
		embedder:     embedder,
		cfg:          cfg,
		logger:       logger.Named("pipeline"),
		now:          time.Now,
	}
}

var _ PipelineService = (*pipelineService)(nil)

func (s *pipelineService) Prepare(ctx context.Context, bizid, query, tableID string) (*models.PreparedQuery, error) {
	exists, err := s.tenantRepo.Exists(ctx, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to check tenant: %w", err)
	}
	if !exists {
		return nil, apperrors.ErrTenantNotFound
	}

	settings := s.loadSettings(ctx, bizid)
	minScore := settings.TableRetrieveThreshold
	if minScore <= 0 {
		minScore = s.cfg.TableRetrieveThreshold
	}

	templates, err := resolveTemplates(ctx, s.promptRepo, bizid)
	if err != nil {
		return nil, err
	}

	queryT, err := s.agents.NormalizeTime(ctx, templates[prompts.TimeConvertAgent], query, s.now())
	if err != nil {
		s.logger.Warn("Time normalization failed, keeping original query",
			zap.String("bizid", bizid),
			zap.Error(err))
		queryT = query
	}

	// Synonyms are detected on the time-normalized query, then the
	// primary terms are appended to the original query so both phrasings
	// feed retrieval.
	synonyms, order, err := s.findSynonyms(ctx, bizid, queryT)
	if err != nil {
		s.logger.Warn("Synonym lookup failed",
			zap.String("bizid", bizid),
			zap.Error(err))
		synonyms, order = nil, nil
	}
	queryS := query
	if len(order) > 0 {
		queryS = query + " " + strings.Join(order, " ")
	}

	elements, err := s.agents.ExtractElements(ctx, templates[prompts.ElementExtractAgent], queryS)
	if err != nil {
		s.logger.Warn("Element extraction failed",
			zap.String("bizid", bizid),
			zap.Error(err))
		elements = models.QueryElements{}
	}

	var dims []models.DimensionMatch
	if len(elements.Where) > 0 {
		dims, err = s.dimRepo.FuzzySearch(ctx, bizid, elements.Where, dimSearchLimit)
		if err != nil {
			s.logger.Warn("Dimension value search failed",
				zap.String("bizid", bizid),
				zap.Error(err))
			dims = nil
		}
	}

	var (
		finalTableIDs []string
		alpha         []models.KnowledgeMatch
		recalled      []models.TableMatch
	)
	if tableID != "" {
		finalTableIDs = []string{tableID}
	} else {
		finalTableIDs, alpha, recalled, err = s.retrieveTables(ctx, bizid, query, queryS, elements, dims, templates, settings, minScore)
		if err != nil {
			return nil, err
		}
		if len(finalTableIDs) == 0 {
			return nil, apperrors.ErrNoMatch
		}
	}

	beta, err := s.knowledge.MatchBeta(ctx, bizid, queryS)
	if err != nil {
		s.logger.Warn("Beta knowledge match failed",
			zap.String("bizid", bizid),
			zap.Error(err))
		beta = nil
	}

	// Rebind the evidence to the tables that actually made the cut.
	finalSet := make(map[string]struct{}, len(finalTableIDs))
	for _, id := range finalTableIDs {
		finalSet[id] = struct{}{}
	}
	dims = filterDims(dims, finalSet)
	beta = filterBeta(beta, finalSet)

	tables := make([]models.TableInfo, 0, len(finalTableIDs))
	for _, id := range finalTableIDs {
		info, err := s.tableRepo.Get(ctx, bizid, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.Warn("Selected table has no metadata",
				zap.String("bizid", bizid),
				zap.String("table_id", id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load table info: %w", err)
		}
		tables = append(tables, *info)
	}

	fewshot, err := s.sqlCaseRepo.SearchByQuery(ctx, bizid, query, fewshotLimit)
	if err != nil {
		s.logger.Warn("Fewshot case search failed",
			zap.String("bizid", bizid),
			zap.Error(err))
		fewshot = nil
	}

	s.logger.Info("Query prepared",
		zap.String("bizid", bizid),
		zap.String("query", query),
		zap.Strings("final_tables", finalTableIDs),
		zap.Int("alpha", len(alpha)),
		zap.Int("beta", len(beta)),
		zap.Int("dims", len(dims)))

	return &models.PreparedQuery{
		Bizid:           bizid,
		Query:           query,
		NormalizedQuery: queryT,
		Synonyms:        synonyms,
		SynonymOrder:    order,
		Elements:        elements,
		Tables:          tables,
		RecalledTables:  recalled,
		AlphaKnowledge:  alpha,
		BetaKnowledge:   beta,
		DimensionValues: dims,
		Fewshot:         fewshot,
	}, nil
}

// retrieveTables runs recall and alpha matching and arbitrates between
// them.
func (s *pipelineService) retrieveTables(
	ctx context.Context,
	bizid, query, queryS string,
	elements models.QueryElements,
	dims []models.DimensionMatch,
	templates map[string]string,
	settings *models.Settings,
	minScore float64,
) ([]string, []models.KnowledgeMatch, []models.TableMatch, error) {
	// The alpha channel embeds the query with the extracted phrases
	// removed, so the metric key dominates the vector.
	trimmed := queryS
	for _, phrase := range elements.All() {
		if phrase == "" {
			continue
		}
		trimmed = strings.ReplaceAll(trimmed, phrase, "")
	}

	// The recall channel embeds the expanded query with the matched
	// dimension field ids appended.
	concat := queryS
	if fieldIDs := distinctFieldIDs(dims); len(fieldIDs) > 0 {
		concat = queryS + "," + strings.Join(fieldIDs, ",")
	}

	var alphaVec, concatVec []float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := s.embedder.CreateEmbedding(gctx, trimmed)
		if err != nil {
			return err
		}
		alphaVec = vec
		return nil
	})
	g.Go(func() error {
		vec, err := s.embedder.CreateEmbedding(gctx, concat)
		if err != nil {
			return err
		}
		concatVec = vec
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", apperrors.ErrEmbeddingUnavailable, err)
	}

	recalled, err := s.recall.AggregateRecall(ctx, bizid, concatVec, s.cfg.RecallTopK, minScore)
	if err != nil {
		s.logger.Warn("Table recall failed",
			zap.String("bizid", bizid),
			zap.Error(err))
		recalled = nil
	}
	if settings.DeepSemanticSearch {
		deep, err := s.recall.DeepSearch(ctx, &DeepSearchInput{
			Bizid:         bizid,
			Query:         query,
			ConcatVector:  concatVec,
			ParseTemplate: templates[prompts.QueryParseAgent],
			TopK:          s.cfg.RecallTopK,
			MinScore:      minScore,
			Seed:          recalled,
		})
		if err != nil {
			s.logger.Warn("Deep semantic search failed, keeping aggregate recall",
				zap.String("bizid", bizid),
				zap.Error(err))
		} else {
			recalled = deep
		}
	}

	alpha, err := s.knowledge.MatchAlpha(ctx, bizid, alphaVec, knowledgeTopK, minScore)
	if err != nil {
		s.logger.Warn("Alpha knowledge match failed",
			zap.String("bizid", bizid),
			zap.Error(err))
		alpha = nil
	}
	alpha = PruneByResidual(alpha, alphaResidual)

	return selectFinalTables(alpha, recalled), alpha, recalled, nil
}

// selectFinalTables arbitrates between the alpha knowledge channel and
// table recall. Alpha wins when present: a single knowledge table is
// taken as-is, otherwise the first alpha table confirmed by recall, and
// failing that the best alpha table. Without alpha the recall result
// stands. Returns nil when neither channel produced anything.
func selectFinalTables(alpha []models.KnowledgeMatch, recalled []models.TableMatch) []string {
	recalledIDs := make([]string, 0, len(recalled))
	recalledSet := make(map[string]struct{}, len(recalled))
	for _, t := range recalled {
		recalledIDs = append(recalledIDs, t.TableID)
		recalledSet[t.TableID] = struct{}{}
	}

	if len(alpha) > 0 {
		distinct := make(map[string]struct{}, len(alpha))
		for _, k := range alpha {
			distinct[k.TableID] = struct{}{}
		}
		if len(distinct) == 1 {
			return []string{alpha[0].TableID}
		}
		for _, k := range alpha {
			if _, ok := recalledSet[k.TableID]; ok {
				return []string{k.TableID}
			}
		}
		return []string{alpha[0].TableID}
	}

	if len(recalledIDs) == 0 {
		return nil
	}
	return recalledIDs
}

func (s *pipelineService) loadSettings(ctx context.Context, bizid string) *models.Settings {
	settings, err := s.settingsRepo.Get(ctx, bizid)
	if errors.Is(err, apperrors.ErrNotFound) {
		return &models.Settings{
			Bizid:                  bizid,
			TableRetrieveThreshold: s.cfg.TableRetrieveThreshold,
		}
	}
	if err != nil {
		s.logger.Warn("Failed to load tenant settings, using defaults",
			zap.String("bizid", bizid),
			zap.Error(err))
		return &models.Settings{
			Bizid:                  bizid,
			TableRetrieveThreshold: s.cfg.TableRetrieveThreshold,
		}
	}
	return settings
}

// findSynonyms maps each primary term to the secondary form found in the
// query, preserving synonym list order.
func (s *pipelineService) findSynonyms(ctx context.Context, bizid, query string) (map[string]string, []string, error) {
	synonyms, err := s.synonymRepo.List(ctx, bizid)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list synonyms: %w", err)
	}

	found := make(map[string]string)
	order := make([]string, 0)
	for _, syn := range synonyms {
		for _, sec := range syn.SecondaryTerms {
			if sec == "" || !strings.Contains(query, sec) {
				continue
			}
			if _, ok := found[syn.PrimaryTerm]; !ok {
				order = append(order, syn.PrimaryTerm)
			}
			found[syn.PrimaryTerm] = sec
		}
	}
	return found, order, nil
}

func distinctFieldIDs(dims []models.DimensionMatch) []string {
	seen := make(map[string]struct{}, len(dims))
	ids := make([]string, 0, len(dims))
	for _, d := range dims {
		if _, ok := seen[d.FieldID]; ok {
			continue
		}
		seen[d.FieldID] = struct{}{}
		ids = append(ids, d.FieldID)
	}
	return ids
}

func filterDims(dims []models.DimensionMatch, tableIDs map[string]struct{}) []models.DimensionMatch {
	kept := make([]models.DimensionMatch, 0, len(dims))
	for _, d := range dims {
		if _, ok := tableIDs[d.TableID]; ok {
			kept = append(kept, d)
		}
	}
	return kept
}

func filterBeta(beta []models.Knowledge, tableIDs map[string]struct{}) []models.Knowledge {
	kept := make([]models.Knowledge, 0, len(beta))
	for _, k := range beta {
		if k.TableID == "" {
			// Tenant-wide knowledge applies regardless of table.
			kept = append(kept, k)
			continue
		}
		if _, ok := tableIDs[k.TableID]; ok {
			kept = append(kept, k)
		}
	}
	return kept
}
