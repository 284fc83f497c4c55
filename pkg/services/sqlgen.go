package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/apperrors"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/llm"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/prompts"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/sqlguard"
)

// GenerateRequest is a natural language to SQL request. TableID pins the
// query to one table and skips retrieval arbitration.
type GenerateRequest struct {
	Bizid   string `json:"bizid"`
	Query   string `json:"query"`
	TableID string `json:"table_id,omitempty"`
}

// GenerateResult carries the generated SQL together with the
// time-normalized form of the question that produced it.
type GenerateResult struct {
	Query string `json:"query"`
	SQL   string `json:"sql"`
}

// QueryMetadata reports what the retrieval pipeline matched for a query
// without generating SQL.
type QueryMetadata struct {
	Query     string             `json:"query"`
	Tables    []models.TableInfo `json:"table_info_list"`
	AlphaKeys []string           `json:"alpha_keys"`
}

// SQLService is the public entry point for SQL generation and the
// SQL helper agents. It owns tenant scope acquisition.
type SQLService interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// Stream generates SQL and sends fence-stripped chunks to out as
	// they arrive. The caller owns the channel and closes it after return.
	Stream(ctx context.Context, req *GenerateRequest, out chan<- string) error

	// QueryMetadata runs retrieval only and reports the matched tables
	// and alpha knowledge keys.
	QueryMetadata(ctx context.Context, req *GenerateRequest) (*QueryMetadata, error)

	Explain(ctx context.Context, bizid, sql, tableInfo string) (string, error)
	Comment(ctx context.Context, bizid, sql string) (string, error)
	Correct(ctx context.Context, bizid, sql string) (string, error)
}

type sqlService struct {
	scopes     *database.TenantScopeProvider
	pipeline   PipelineService
	agents     AgentService
	promptRepo repositories.PromptRepository
	logger     *zap.Logger
}

// NewSQLService creates a new SQLService.
func NewSQLService(
	scopes *database.TenantScopeProvider,
	pipeline PipelineService,
	agents AgentService,
	promptRepo repositories.PromptRepository,
	logger *zap.Logger,
) SQLService {
	return &sqlService{
		scopes:     scopes,
		pipeline:   pipeline,
		agents:     agents,
		promptRepo: promptRepo,
		logger:     logger.Named("sqlgen"),
	}
}

var _ SQLService = (*sqlService)(nil)

// prepare screens the input, acquires the tenant scope, and runs the
// retrieval pipeline. The returned context carries the scope and stays
// valid until cleanup is called.
func (s *sqlService) prepare(ctx context.Context, req *GenerateRequest) (context.Context, func(), *models.PreparedQuery, map[string]string, error) {
	if check := sqlguard.CheckUserInput(req.Query); check != nil {
		s.logger.Warn("Rejected query with injection pattern",
			zap.String("bizid", req.Bizid),
			zap.String("fingerprint", check.Fingerprint))
		return nil, nil, nil, nil, fmt.Errorf("%w: query contains a sql injection pattern", apperrors.ErrInvalidInput)
	}

	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, req.Bizid)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to acquire tenant scope: %w", err)
	}

	prep, err := s.pipeline.Prepare(tctx, req.Bizid, req.Query, req.TableID)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	templates, err := resolveTemplates(tctx, s.promptRepo, req.Bizid)
	if err != nil {
		cleanup()
		return nil, nil, nil, nil, err
	}

	return tctx, cleanup, prep, templates, nil
}

func (s *sqlService) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	tctx, cleanup, prep, templates, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if len(prep.Tables) == 0 {
		return nil, apperrors.ErrNoMatch
	}

	raw, err := s.agents.GenerateSQL(tctx, templates[prompts.NL2SQLAgent], buildGenerationVars(prep))
	if err != nil {
		return nil, err
	}

	result := sqlguard.ValidateAndNormalize(sqlguard.ExtractSQL(raw))
	if result.Error != nil {
		return nil, fmt.Errorf("generated sql failed validation: %w", result.Error)
	}
	if result.NormalizedSQL == "" {
		return nil, fmt.Errorf("generation produced no sql")
	}

	s.logger.Info("SQL generated",
		zap.String("bizid", req.Bizid),
		zap.String("query", req.Query),
		zap.String("sql", result.NormalizedSQL))

	return &GenerateResult{
		Query: prep.NormalizedQuery,
		SQL:   result.NormalizedSQL,
	}, nil
}

func (s *sqlService) Stream(ctx context.Context, req *GenerateRequest, out chan<- string) error {
	tctx, cleanup, prep, templates, err := s.prepare(ctx, req)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(prep.Tables) == 0 {
		return apperrors.ErrNoMatch
	}

	raw := make(chan string, 16)
	errCh := make(chan error, 1)
	go func() {
		defer close(raw)
		errCh <- s.agents.StreamSQL(tctx, templates[prompts.NL2SQLAgent], buildGenerationVars(prep), raw)
	}()

	filter := llm.NewFenceFilter()
	for chunk := range raw {
		piece := filter.Write(chunk)
		if piece == "" {
			continue
		}
		select {
		case out <- piece:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if tail := filter.Flush(); tail != "" {
		select {
		case out <- tail:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return <-errCh
}

func (s *sqlService) QueryMetadata(ctx context.Context, req *GenerateRequest) (*QueryMetadata, error) {
	_, cleanup, prep, _, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	alphaKeys := make([]string, 0, len(prep.AlphaKnowledge))
	for _, k := range prep.AlphaKnowledge {
		if k.KeyAlpha != "" {
			alphaKeys = append(alphaKeys, k.KeyAlpha)
		}
	}

	return &QueryMetadata{
		Query:     req.Query,
		Tables:    prep.Tables,
		AlphaKeys: alphaKeys,
	}, nil
}

func (s *sqlService) Explain(ctx context.Context, bizid, sql, tableInfo string) (string, error) {
	tctx, cleanup, templates, err := s.tenantTemplates(ctx, bizid)
	if err != nil {
		return "", err
	}
	defer cleanup()

	return s.agents.ExplainSQL(tctx, templates[prompts.SQLExplainAgent], sql, tableInfo)
}

func (s *sqlService) Comment(ctx context.Context, bizid, sql string) (string, error) {
	tctx, cleanup, templates, err := s.tenantTemplates(ctx, bizid)
	if err != nil {
		return "", err
	}
	defer cleanup()

	return s.agents.CommentSQL(tctx, templates[prompts.SQLCommentAgent], sql)
}

func (s *sqlService) Correct(ctx context.Context, bizid, sql string) (string, error) {
	tctx, cleanup, templates, err := s.tenantTemplates(ctx, bizid)
	if err != nil {
		return "", err
	}
	defer cleanup()

	return s.agents.CorrectSQL(tctx, templates[prompts.SQLCorrectAgent], sql)
}

func (s *sqlService) tenantTemplates(ctx context.Context, bizid string) (context.Context, func(), map[string]string, error) {
	tctx, cleanup, err := s.scopes.WithTenantScope(ctx, bizid)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to acquire tenant scope: %w", err)
	}

	templates, err := resolveTemplates(tctx, s.promptRepo, bizid)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return tctx, cleanup, templates, nil
}

// buildGenerationVars renders the retrieval context into the variables
// the generation template expects. Only the first matched table's DDL is
// sent to the model.
func buildGenerationVars(prep *models.PreparedQuery) map[string]string {
	var metric, businessKnowledge string
	if len(prep.AlphaKnowledge) > 0 {
		metric = prep.AlphaKnowledge[0].Value
	}
	if len(prep.BetaKnowledge) > 0 {
		businessKnowledge = prep.BetaKnowledge[0].Value
	}

	var schema string
	if len(prep.Tables) > 0 {
		schema = prompts.BuildSchemaDDL(prep.Tables[:1])
	}

	return map[string]string{
		"query":              prep.NormalizedQuery,
		"metric":             metric,
		"business_knowledge": businessKnowledge,
		"schema":             schema,
		"fewshot":            prompts.BuildFewshotBlock(prep.Fewshot),
		"synonym":            prompts.BuildSynonymBlock(prep.Synonyms, prep.SynonymOrder),
		"field_value_info":   prompts.BuildFieldValueBlock(prep.DimensionValues, prep.Tables),
	}
}

// resolveTemplates merges tenant prompt overrides over the built-in
// defaults.
func resolveTemplates(ctx context.Context, repo repositories.PromptRepository, bizid string) (map[string]string, error) {
	overrides, err := repo.GetAll(ctx, bizid)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	templates := prompts.Defaults()
	for name, template := range overrides {
		templates[name] = template
	}
	return templates, nil
}
