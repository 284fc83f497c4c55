package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/config"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/database"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/handlers"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/llm"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/repositories"
	"github.com/sqlpilot-ai/sqlpilot-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("database", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("llm_model", cfg.AI.LLMModel),
		zap.String("embedding_model", cfg.AI.EmbeddingModel))

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.MigrateUp(cfg.Database.ConnectionString(), cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	cache, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if cache == nil {
		logger.Info("Redis not configured, settings cache disabled")
	}

	genClient, err := llm.NewGenerationClient(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create generation client", zap.Error(err))
	}
	embedder, err := llm.NewEmbedder(&cfg.AI, logger)
	if err != nil {
		logger.Fatal("Failed to create embedding client", zap.Error(err))
	}

	scopes := database.NewTenantScopeProvider(db)

	tenantRepo := repositories.NewTenantRepository()
	settingsRepo := repositories.NewSettingsRepository()
	promptRepo := repositories.NewPromptRepository()
	synonymRepo := repositories.NewSynonymRepository()
	tableRepo := repositories.NewTableRepository()
	fieldRepo := repositories.NewFieldEntryRepository()
	knowledgeRepo := repositories.NewKnowledgeRepository()
	dimRepo := repositories.NewDimensionRepository()
	sqlCaseRepo := repositories.NewSQLCaseRepository()

	agents := services.NewAgentService(genClient, logger)
	knowledgeMatch := services.NewKnowledgeMatchService(knowledgeRepo, logger)
	fieldMatch := services.NewFieldMatchService(fieldRepo, tableRepo, embedder, logger)
	recall := services.NewTableRecallService(tableRepo, fieldMatch, agents, embedder, logger)
	pipeline := services.NewPipelineService(
		tenantRepo, settingsRepo, promptRepo, synonymRepo, tableRepo, dimRepo, sqlCaseRepo,
		knowledgeMatch, recall, agents, embedder, &cfg.Retrieval, logger)
	sqlSvc := services.NewSQLService(scopes, pipeline, agents, promptRepo, logger)
	adminSvc := services.NewAdminService(
		scopes, tenantRepo, settingsRepo, promptRepo, synonymRepo, sqlCaseRepo,
		cache, &cfg.Retrieval, logger)
	schemaSvc := services.NewSchemaService(
		scopes, tenantRepo, tableRepo, fieldRepo, knowledgeRepo, dimRepo, embedder, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewAdminHandler(adminSvc, logger).RegisterRoutes(mux)
	handlers.NewSchemaHandler(schemaSvc, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(sqlSvc, logger).RegisterRoutes(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting sqlpilot-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
