package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/api"
	"github.com/order-chatbot/backend/internal/api/handlers"
	"github.com/order-chatbot/backend/internal/cache/redis"
	"github.com/order-chatbot/backend/internal/chat"
	"github.com/order-chatbot/backend/internal/knowledge"
	"github.com/order-chatbot/backend/internal/knowledge/backend"
	"github.com/order-chatbot/backend/internal/llm"
	"github.com/order-chatbot/backend/internal/metrics"
	"github.com/order-chatbot/backend/internal/middleware/admin"
	"github.com/order-chatbot/backend/internal/middleware/identity"
	"github.com/order-chatbot/backend/internal/middleware/ratelimit"
	"github.com/order-chatbot/backend/internal/middleware/security"
	"github.com/order-chatbot/backend/internal/storage/sqlite"
	"github.com/order-chatbot/backend/pkg/config"
	appLogger "github.com/order-chatbot/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Order Status Chatbot API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	checks := map[string]handlers.Check{
		"sqlite": func(context.Context) error { return sqliteClient.Ping() },
	}

	store, closeStore, err := backend.Open(ctx, cfg, sqliteClient)
	if err != nil {
		appLogger.Fatal("Failed to open knowledge store",
			zap.String("backend", cfg.Knowledge.Backend),
			zap.Error(err),
		)
	}
	defer closeStore()

	llmClient := llm.NewClient(llm.Options{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Timeout:        time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})

	var embedder knowledge.Embedder = llmClient
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, embeddings will not be cached", zap.Error(err))
		} else {
			defer redisClient.Close()
			embedder = knowledge.NewCachedEmbedder(
				llmClient,
				redisClient,
				cfg.LLM.EmbeddingModel,
				time.Duration(cfg.Redis.EmbeddingTTL)*time.Second,
			)
			checks["redis"] = redisClient.Ping
		}
	}

	indexer := knowledge.NewIndexer(embedder, store)
	if _, err := indexer.IndexDir(ctx, cfg.Knowledge.Dir); err != nil {
		appLogger.Error("Error initializing knowledge base", zap.Error(err))
	}

	if cfg.Knowledge.Watch {
		watcher, err := knowledge.NewWatcher(indexer, cfg.Knowledge.Dir)
		if err != nil {
			appLogger.Warn("Knowledge watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			go watcher.Run(ctx)
		}
	}

	retriever := knowledge.NewRetriever(embedder, store)
	resolver := chat.NewOrderContextResolver(sqliteClient, cfg.Chat.RecentDays)
	assembler := chat.NewContextAssembler(retriever, resolver, cfg.Chat.RetrievalK)
	recorder := chat.NewConversationRecorder(sqliteClient)
	service := chat.NewService(assembler, llmClient, recorder, chat.Options{
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
		RecordTimeout: time.Duration(cfg.Chat.RecordTimeoutSec) * time.Second,
	})

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerWindow: cfg.RateLimit.ChatPerMinute,
		Window:            time.Minute,
		Logger:            appLogger.Named("ratelimit"),
	})
	defer limiter.Stop()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + identity.Header + ", " + admin.Header,
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Development,
	}))

	api.Register(app, api.Handlers{
		Chat:      handlers.NewChatHandler(service, sqliteClient, 200),
		Orders:    handlers.NewOrderHandler(sqliteClient),
		Knowledge: handlers.NewKnowledgeHandler(retriever, indexer),
		WebSocket: handlers.NewWebSocketHandler(service, cfg.Chat.MaxMessageLength),
		Health:    handlers.NewHealthHandler(checks),
	}, api.RouterConfig{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		ChatLimiter:      limiter.Middleware(),
		AdminToken:       cfg.Knowledge.AdminToken,
		Logger:           appLogger.Named("http"),
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
	service.Drain()
	appLogger.Info("Server stopped")
}
