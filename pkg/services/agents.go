package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/llm"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/models"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/prompts"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/sqlguard"
)

// Agent calls run near-deterministic. Extraction and rewriting agents
// must not get creative.
const agentTemperature = 0.01

// AgentService runs the prompt-driven agents against the generation
// model. Callers pass the resolved template so tenant overrides apply.
type AgentService interface {
	// NormalizeTime rewrites relative time expressions in the user input
	// into absolute ones, anchored at now.
	NormalizeTime(ctx context.Context, template, userInput string, now time.Time) (string, error)

	// ExtractElements pulls where/group_by/order_by phrases out of the
	// user input. A malformed model response yields empty elements, not
	// an error.
	ExtractElements(ctx context.Context, template, userInput string) (models.QueryElements, error)

	// ParseQuery reads the structured entities (and optional explicit
	// table name) out of the user input.
	ParseQuery(ctx context.Context, template, query string) (*models.ParsedQuery, error)

	// GenerateSQL runs the SQL generation template and returns the raw
	// model response. Fence stripping and validation happen in the caller.
	GenerateSQL(ctx context.Context, template string, vars map[string]string) (string, error)

	// StreamSQL runs the SQL generation template in streaming mode,
	// sending raw chunks to out. The caller owns and closes the channel.
	StreamSQL(ctx context.Context, template string, vars map[string]string, out chan<- string) error

	// ExplainSQL produces a natural language explanation of a SQL statement.
	ExplainSQL(ctx context.Context, template, sql, tableInfo string) (string, error)

	// CommentSQL annotates a CREATE TABLE statement with column comments.
	CommentSQL(ctx context.Context, template, sql string) (string, error)

	// CorrectSQL checks a SQL statement for syntax errors and rewrites it.
	CorrectSQL(ctx context.Context, template, sql string) (string, error)
}

type agentService struct {
	client llm.GenerationClient
	logger *zap.Logger
}

// NewAgentService creates a new AgentService on the given generation client.
func NewAgentService(client llm.GenerationClient, logger *zap.Logger) AgentService {
	return &agentService{
		client: client,
		logger: logger.Named("agents"),
	}
}

var _ AgentService = (*agentService)(nil)

func (s *agentService) generate(ctx context.Context, template string, vars map[string]string) (string, error) {
	prompt := prompts.Render(template, vars)
	resp, err := s.client.GenerateResponse(ctx, prompt, prompts.DefaultSystemPrompt, agentTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to generate agent response: %w", err)
	}
	return resp, nil
}

func (s *agentService) NormalizeTime(ctx context.Context, template, userInput string, now time.Time) (string, error) {
	resp, err := s.generate(ctx, template, prompts.TimeVars(now, userInput))
	if err != nil {
		return "", err
	}

	out := strings.TrimSpace(resp)
	if rest, ok := strings.CutPrefix(out, "output:"); ok {
		out = strings.TrimSpace(rest)
	}
	if out == "" {
		out = userInput
	}
	return out, nil
}

func (s *agentService) ExtractElements(ctx context.Context, template, userInput string) (models.QueryElements, error) {
	var elements models.QueryElements

	resp, err := s.generate(ctx, template, map[string]string{"user_input": userInput})
	if err != nil {
		return elements, err
	}

	payload := strings.TrimSpace(resp)
	if rest, ok := strings.CutPrefix(payload, "Sql Clauses:"); ok {
		payload = strings.TrimSpace(rest)
	}
	payload = sqlguard.ExtractSQL(payload)

	if err := json.Unmarshal([]byte(payload), &elements); err != nil {
		s.logger.Warn("Unparseable element extraction response",
			zap.String("response", payload),
			zap.Error(err))
		return models.QueryElements{}, nil
	}
	return elements, nil
}

func (s *agentService) ParseQuery(ctx context.Context, template, query string) (*models.ParsedQuery, error) {
	resp, err := s.generate(ctx, template, map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	payload := sqlguard.ExtractSQL(strings.TrimSpace(resp))

	var parsed models.ParsedQuery
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse query parse response: %w", err)
	}
	return &parsed, nil
}

func (s *agentService) GenerateSQL(ctx context.Context, template string, vars map[string]string) (string, error) {
	return s.generate(ctx, template, vars)
}

func (s *agentService) StreamSQL(ctx context.Context, template string, vars map[string]string, out chan<- string) error {
	prompt := prompts.Render(template, vars)
	if err := s.client.StreamResponse(ctx, prompt, prompts.DefaultSystemPrompt, agentTemperature, out); err != nil {
		return fmt.Errorf("failed to stream sql generation: %w", err)
	}
	return nil
}

func (s *agentService) ExplainSQL(ctx context.Context, template, sql, tableInfo string) (string, error) {
	resp, err := s.generate(ctx, template, map[string]string{
		"sql":        sql,
		"table_info": tableInfo,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

func (s *agentService) CommentSQL(ctx context.Context, template, sql string) (string, error) {
	resp, err := s.generate(ctx, template, map[string]string{"sql": sql})
	if err != nil {
		return "", err
	}
	return sqlguard.ExtractSQL(resp), nil
}

func (s *agentService) CorrectSQL(ctx context.Context, template, sql string) (string, error) {
	resp, err := s.generate(ctx, template, map[string]string{"sql": sql})
	if err != nil {
		return "", err
	}
	return sqlguard.ExtractSQL(resp), nil
}
