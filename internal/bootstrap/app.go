package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"healthjournal-backend/internal/documents"
	"healthjournal-backend/internal/extract"
	"healthjournal-backend/internal/llm"
	openai "healthjournal-backend/internal/llm/openai"
	"healthjournal-backend/internal/shared/config"
	"healthjournal-backend/internal/shared/server"
	"healthjournal-backend/internal/shared/storage/db"
	"healthjournal-backend/internal/shared/storage/object"
	localstore "healthjournal-backend/internal/shared/storage/object/local"
)

// App holds the wired dependencies for one process.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	DocumentsHandler *documents.Handler
	LLM              llm.Client
}

// Build prepares all dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var repo documents.Repo
	if sqlDB != nil {
		repo = &documents.PGRepo{DB: sqlDB}
	} else {
		repo = documents.NewMemoryRepo()
	}

	store := localstore.New(cfg.LocalStoreDir)

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	extractor := extract.New(extract.Config{
		Tesseract: cfg.OCRTesseract,
		Pdftoppm:  cfg.OCRPdftoppm,
		Languages: cfg.OCRLanguages,
		DPI:       cfg.OCRDPI,
	})

	svc := &documents.Service{
		Repo:      repo,
		Store:     store,
		Extractor: extractor,
		Structured: &documents.AIExtractor{
			LLM:     llmClient,
			Prompts: llm.DefaultPrompts().WithOverrides(cfg.ExtractionPromptEN, cfg.ExtractionPromptHE),
			Retry:   documents.DefaultRetryPolicy(),
		},
		ProcessTimeout: cfg.ProcessTimeout,
	}

	handler := documents.NewHandler(svc)

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Store:            store,
		DocumentsRepo:    repo,
		DocumentsService: svc,
		DocumentsHandler: handler,
		LLM:              llmClient,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DocumentHandler: handler,
	})
	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repository")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repository: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

// buildLLM returns nil when no API key is configured; the pipeline then marks
// documents FAILED with an AI-unavailable reason instead of refusing to boot.
func buildLLM(cfg config.Config) (llm.Client, error) {
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		log.Printf("bootstrap: OPENAI_API_KEY empty; structured extraction disabled")
		return nil, nil
	}
	return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
