package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/order-chatbot/backend/internal/chat"
	"github.com/order-chatbot/backend/internal/evaluation"
	"github.com/order-chatbot/backend/internal/knowledge"
	"github.com/order-chatbot/backend/internal/knowledge/backend"
	"github.com/order-chatbot/backend/internal/llm"
	"github.com/order-chatbot/backend/internal/storage/sqlite"
	"github.com/order-chatbot/backend/pkg/config"
	appLogger "github.com/order-chatbot/backend/pkg/logger"
)

// evaluate replays cfg.Eval.DatasetPath through the chat pipeline against the
// configured stores and prints a report. Conversations are not recorded.
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataset, err := evaluation.LoadDataset(cfg.Eval.DatasetPath)
	if err != nil {
		appLogger.Fatal("Failed to load dataset", zap.String("path", cfg.Eval.DatasetPath), zap.Error(err))
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	store, closeStore, err := backend.Open(ctx, cfg, sqliteClient)
	if err != nil {
		appLogger.Fatal("Failed to open knowledge store", zap.Error(err))
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

	resolver := chat.NewOrderContextResolver(sqliteClient, cfg.Chat.RecentDays)
	assembler := chat.NewContextAssembler(knowledge.NewRetriever(llmClient, store), resolver, cfg.Chat.RetrievalK)
	service := chat.NewService(assembler, llmClient, nil, chat.Options{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	report, err := evaluation.NewEvaluator(service, llmClient).Run(ctx, dataset)
	if err != nil {
		appLogger.Fatal("Evaluation aborted", zap.Error(err))
	}

	fmt.Print(report.String())
}
