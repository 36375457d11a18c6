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
	"github.com/telefeed/backend/internal/cache/redis"
	"github.com/telefeed/backend/internal/datamap"
	"github.com/telefeed/backend/internal/enrich"
	"github.com/telefeed/backend/internal/geocode"
	"github.com/telefeed/backend/internal/live"
	"github.com/telefeed/backend/internal/llm"
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

	appLogger.Info("Starting live pipeline", zap.String("datamap", cfg.Data.Datamap))
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dm, err := datamap.Load(cfg.Data.Root, cfg.Data.Datamap)
	if err != nil {
		appLogger.Fatal("Failed to load datamap", zap.Error(err))
	}
	if len(dm.Channels) == 0 {
		appLogger.Fatal("Datamap configures no channels", zap.String("datamap", dm.Name))
	}

	redisClient, err := redis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
	)
	if err != nil {
		appLogger.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	analyzer, err := buildAnalyzer(cfg)
	if err != nil {
		appLogger.Fatal("Failed to build analyzer", zap.Error(err))
	}

	hints := analysis.Hints{
		Region:    dm.Region,
		Languages: dm.Languages,
	}
	pipeline := enrich.NewPipeline(analyzer, hints)

	appender, err := enrich.NewAppender(dm.LivePath())
	if err != nil {
		appLogger.Fatal("Failed to open live output file", zap.Error(err))
	}
	defer appender.Close()

	scraper := telegram.NewScraper(30*time.Second, cfg.Live.ScrapeUserAgent, dm.Location)
	poller := live.NewPoller(scraper, redisClient, dm.Name, dm.Channels,
		time.Duration(cfg.Live.PollIntervalSec)*time.Second)
	consumer := live.NewConsumer(redisClient, pipeline, appender, dm.Name)

	errCh := make(chan error, 2)
	go func() { errCh <- consumer.Run(ctx) }()
	go func() { errCh <- poller.Run(ctx) }()

	err = <-errCh
	if err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Fatal("Live pipeline failed", zap.Error(err))
	}

	appLogger.Info("Live pipeline stopped")
}

// buildAnalyzer assembles the configured enrichment strategy. The live
// pipeline uses the same strategies as batch enrichment.
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
