package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/mirrorhq/mirror/internal/adapter/ai"
	"github.com/mirrorhq/mirror/internal/adapter/source"
	"github.com/mirrorhq/mirror/internal/adapter/store"
	"github.com/mirrorhq/mirror/internal/chunker"
	"github.com/mirrorhq/mirror/internal/handler"
	"github.com/mirrorhq/mirror/internal/mcp"
	"github.com/mirrorhq/mirror/internal/middleware"
	"github.com/mirrorhq/mirror/internal/port"
	"github.com/mirrorhq/mirror/internal/service"
	"github.com/mirrorhq/mirror/pkg/config"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting Mirror",
		"port", cfg.Port,
		"ai_provider", cfg.AIProvider,
		"mcp_enabled", cfg.MCPEnabled,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	vectorStore := store.NewVectorStore(pgStore, cfg.EmbeddingDimension)

	// ── AI provider ──────────────────────────────────────────────────────
	var (
		embedder  port.Embedder
		reranker  port.Reranker
		generator port.Generator
	)
	switch cfg.AIProvider {
	case "ollama":
		ollamaAI := ai.NewOllamaProvider(
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaEmbedURL,
				Model:   cfg.OllamaEmbedModel,
				Token:   cfg.OllamaEmbedToken,
			},
			ai.OllamaEndpointConfig{
				BaseURL: cfg.OllamaChatURL,
				Model:   cfg.OllamaChatModel,
				Token:   cfg.OllamaChatToken,
			},
			cfg.EmbeddingDimension,
		)
		embedder = ollamaAI
		generator = ollamaAI
		// Ollama has no rerank endpoint; chat answers degrade to
		// ungrounded generation.
	default:
		voyage := ai.NewVoyageClient(ai.VoyageConfig{
			BaseURL:     cfg.VoyageBaseURL,
			APIKey:      cfg.VoyageAPIKey,
			EmbedModel:  cfg.VoyageEmbedModel,
			RerankModel: cfg.VoyageRerankModel,
			Dimension:   cfg.EmbeddingDimension,
		})
		embedder = voyage
		reranker = voyage
		generator = ai.NewAnthropicClient(ai.AnthropicConfig{
			BaseURL: cfg.AnthropicBaseURL,
			APIKey:  cfg.AnthropicAPIKey,
			Model:   cfg.AnthropicModel,
		})
	}

	// ── Content sources ──────────────────────────────────────────────────
	var fetchers []port.SourceFetcher
	var notionFetcher *source.NotionFetcher
	if cfg.NotionToken != "" {
		notionFetcher = source.NewNotionFetcher(cfg.NotionToken, cfg.NotionDatabaseID)
		fetchers = append(fetchers, notionFetcher)
	}
	if cfg.YouTubeAPIKey != "" {
		fetchers = append(fetchers, source.NewYouTubeFetcher(cfg.YouTubeAPIKey))
	}
	fetchers = append(fetchers, source.NewWebFetcher()) // generic fallback, must be last

	// ── Services ─────────────────────────────────────────────────────────
	contentService := service.NewContentService(fetchers...)
	ingestService := service.NewIngestService(
		vectorStore,
		embedder,
		chunker.New(chunker.WithMaxLength(cfg.ChunkMaxLength)),
		service.IngestConfig{EmbedConcurrency: cfg.EmbedConcurrency},
	)
	retriever := service.NewRetriever(reranker)
	chatService := service.NewChatService(vectorStore, embedder, retriever, generator, service.ChatConfig{
		TopK:            cfg.RetrievalTopK,
		MaxCandidates:   cfg.RetrievalMaxCandidates,
		MaxContextChars: cfg.MaxContextChars,
	})

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.FrontendURL},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
	}))

	// Audit middleware (logs all requests)
	app.Use(middleware.AuditMiddleware(pgStore))

	// ── Public Routes ────────────────────────────────────────────────────
	app.Get("/api/v1/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"app":     cfg.AppName,
			"version": "1.0.0",
		})
	})

	chatHandler := handler.NewChatHandler(chatService, pgStore)
	chatHandler.RegisterPublic(app.Group("/api/v1"))

	// ── Protected Routes ─────────────────────────────────────────────────
	jwtMiddleware := middleware.JWTMiddleware(middleware.JWTConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	})

	api := app.Group("/api/v1", jwtMiddleware)

	contentHandler := handler.NewContentHandler(contentService, ingestService, notionFetcher, pgStore)
	contentHandler.Register(api)

	chatHandler.Register(api)

	documentsHandler := handler.NewDocumentsHandler(vectorStore, embedder)
	documentsHandler.Register(api)

	auditHandler := handler.NewAuditHandler(pgStore)
	auditHandler.Register(api)

	// ── MCP Server (separate port) ───────────────────────────────────────
	if cfg.MCPEnabled {
		mcpServer := mcp.NewServer(contentService, ingestService, chatService, cfg.MCPPort)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server failed", "error", err)
			}
		}()
	}

	// ── Start ────────────────────────────────────────────────────────────
	slog.Info("🌐 Fiber listening", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
