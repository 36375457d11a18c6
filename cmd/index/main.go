package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/cache/redis"
	"github.com/telefeed/backend/internal/collection"
	"github.com/telefeed/backend/internal/datamap"
	"github.com/telefeed/backend/internal/llm"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/internal/rag"
	"github.com/telefeed/backend/internal/similarity"
	"github.com/telefeed/backend/internal/vector"
	"github.com/telefeed/backend/internal/vector/milvus"
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

	appLogger.Info("Starting index build", zap.String("datamap", cfg.Data.Datamap))
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dm, err := datamap.Load(cfg.Data.Root, cfg.Data.Datamap)
	if err != nil {
		appLogger.Fatal("Failed to load datamap", zap.Error(err))
	}

	coll, err := collection.Load(dm)
	if err != nil {
		appLogger.Fatal("Failed to load enriched collection", zap.Error(err))
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

	milvusClient, err := milvus.NewClient(ctx, cfg.Vector.Endpoint)
	if err != nil {
		appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
	}
	defer milvusClient.Close()

	llmClient := llm.NewClient(
		cfg.LLM.APIKey,
		cfg.LLM.BaseURL,
		cfg.LLM.Model,
		cfg.LLM.EmbeddingModel,
		cfg.LLM.Temperature,
		cfg.LLM.MaxTokens,
	)

	msgs := coll.All()

	ragDocs := make([]string, len(msgs))
	simDocs := make([]string, len(msgs))
	for i, msg := range msgs {
		ragDocs[i] = rag.Document(msg.Account, msg.Date, englishText(msg))
		simDocs[i] = similarity.Document(msg.Date, englishText(msg))
	}

	if err := buildIndex(ctx, milvusClient, redisClient, llmClient, cfg,
		cfg.Vector.RAGCollection, vector.ModeDocument, ragDocs); err != nil {
		appLogger.Fatal("Failed to build answer index", zap.Error(err))
	}

	if err := buildIndex(ctx, milvusClient, redisClient, llmClient, cfg,
		cfg.Vector.SimilarityCollection, vector.ModeSimilarity, simDocs); err != nil {
		appLogger.Fatal("Failed to build similarity index", zap.Error(err))
	}

	appLogger.Info("Index build complete", zap.Int("documents", len(msgs)))
}

// englishText prefers the translation; un-enriched records fall back to
// the source text so row ids keep lining up with collection positions.
func englishText(msg message.Enriched) string {
	if msg.Analysis != nil && msg.Analysis.TextEnglish != "" {
		return msg.Analysis.TextEnglish
	}
	return msg.Text
}

// buildIndex creates or resumes one collection and appends the
// documents not yet inserted. Documents must arrive in collection row
// order on every run; the store's ordinal ids rely on it.
func buildIndex(ctx context.Context, mc *milvus.Client, rc *redis.Client, lc *llm.Client, cfg *config.Config, name string, mode vector.Mode, docs []string) error {
	mcoll, err := mc.CreateCollection(ctx, name, cfg.LLM.EmbeddingDim)
	if errors.Is(err, vector.ErrAlreadyExists) {
		mcoll, err = mc.OpenCollection(ctx, name, cfg.LLM.EmbeddingDim)
	}
	if err != nil {
		return err
	}

	embedder := vector.NewCachedEmbedder(
		vector.NewModalEmbedder(lc, mode),
		rc, mode, 0,
	)

	store, err := vector.NewStore(ctx, name, mcoll, embedder, embedder, cfg.Vector.InsertBatchSize)
	if err != nil {
		return err
	}

	done := store.Len()
	if done > int64(len(docs)) {
		return fmt.Errorf("collection %q holds %d documents but only %d exist; rebuild from scratch", name, done, len(docs))
	}
	pending := docs[done:]

	appLogger.Info("Indexing documents",
		zap.String("collection", name),
		zap.Int64("already_indexed", done),
		zap.Int("pending", len(pending)))

	if len(pending) == 0 {
		return nil
	}

	return store.Add(ctx, pending)
}
