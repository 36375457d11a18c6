package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/analysis"
	"github.com/telefeed/backend/internal/datamap"
	"github.com/telefeed/backend/internal/enrich"
	"github.com/telefeed/backend/internal/geocode"
	"github.com/telefeed/backend/internal/llm"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/internal/telegram"
	"github.com/telefeed/backend/pkg/config"
	appLogger "github.com/telefeed/backend/pkg/logger"
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

	appLogger.Info("Starting batch enrichment", zap.String("datamap", cfg.Data.Datamap))
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dm, err := datamap.Load(cfg.Data.Root, cfg.Data.Datamap)
	if err != nil {
		appLogger.Fatal("Failed to load datamap", zap.Error(err))
	}

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		appLogger.Fatal("Failed to build analyzer", zap.Error(err))
	}

	hints := analysis.Hints{
		Region:    dm.Region,
		Languages: dm.Languages,
	}
	pipeline := enrich.NewPipeline(analyzer, hints)

	accounts, err := dm.Accounts()
	if err != nil {
		appLogger.Fatal("Failed to list accounts", zap.Error(err))
	}
	if len(accounts) == 0 {
		appLogger.Warn("Datamap has no accounts with exports", zap.String("datamap", dm.Name))
	}

	for _, account := range accounts {
		if err := enrichAccount(ctx, dm, pipeline, account); err != nil {
			if ctx.Err() != nil {
				appLogger.Warn("Enrichment interrupted; partial progress was flushed",
					zap.String("account", account))
				return
			}
			appLogger.Error("Account enrichment failed",
				zap.String("account", account),
				zap.Error(err))
		}
	}

	appLogger.Info("Batch enrichment complete")
}

// enrichAccount loads the account's batch file if a previous run left
// one, otherwise the raw export, then enriches whatever is not yet
// enriched.
func enrichAccount(ctx context.Context, dm *datamap.Map, pipeline *enrich.Pipeline, account string) error {
	outPath := dm.BatchPath(account)

	msgs, err := enrich.ReadBatch(outPath)
	if errors.Is(err, os.ErrNotExist) {
		msgs, err = loadExport(dm, account)
	}
	if err != nil {
		return err
	}

	appLogger.Info("Enriching account",
		zap.String("account", account),
		zap.Int("messages", len(msgs)))

	return pipeline.EnrichAll(ctx, msgs, outPath)
}

func loadExport(dm *datamap.Map, account string) ([]message.Enriched, error) {
	data, err := os.ReadFile(dm.ExportPath(account))
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	raws, err := telegram.ExtractMessages(data, account, dm.Location)
	if err != nil {
		return nil, err
	}

	msgs := make([]message.Enriched, len(raws))
	for i, raw := range raws {
		msgs[i] = message.FromRaw(raw)
	}
	return msgs, nil
}

// buildAnalyzer assembles the configured enrichment strategy: a single
// combined LLM call, or the decomposed translate / locate / score
// stages.
func buildAnalyzer(cfg *config.Config) (analysis.Analyzer, error) {
	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	switch cfg.LLM.TranslationStrategy {
	case "combined":
		return analysis.NewCombined(llmClient), nil
	case "decomposed":
		if cfg.LLM.SentimentEndpoint == "" {
			return nil, fmt.Errorf("decomposed strategy requires llm.sentimentEndpoint")
		}
		resolver := geocode.NewCachedResolver(geocode.NewClient(
			cfg.Geocode.BaseURL,
			cfg.Geocode.UserAgent,
			cfg.Geocode.RequestsPerSecond,
			time.Duration(cfg.Geocode.TimeoutSec)*time.Second,
		))
		return analysis.NewDecomposed(
			analysis.NewLLMTranslator(llmClient),
			analysis.NewHTTPScorer(cfg.LLM.SentimentEndpoint, time.Duration(cfg.LLM.TimeoutSec)*time.Second),
			geocode.NewExtractor(resolver),
		), nil
	default:
		return nil, fmt.Errorf("unknown translation strategy %q", cfg.LLM.TranslationStrategy)
	}
}
