package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/api/handlers"
	"github.com/telefeed/backend/internal/cache/redis"
	"github.com/telefeed/backend/internal/collection"
	"github.com/telefeed/backend/internal/datamap"
	"github.com/telefeed/backend/internal/live"
	"github.com/telefeed/backend/internal/llm"
	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/internal/middleware/ratelimit"
	"github.com/telefeed/backend/internal/middleware/security"
	"github.com/telefeed/backend/internal/rag"
	"github.com/telefeed/backend/internal/similarity"
	"github.com/telefeed/backend/internal/storage/sqlite"
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

	appLogger.Info("Starting Telegram feed API server")
	metrics.Init()

	ctx := context.Background()

	dm, err := datamap.Load(cfg.Data.Root, cfg.Data.Datamap)
	if err != nil {
		appLogger.Fatal("Failed to load datamap", zap.Error(err))
	}

	coll, err := collection.Load(dm)
	if err != nil {
		appLogger.Fatal("Failed to load enriched collection", zap.Error(err))
	}

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
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

	ragStore, err := openStore(ctx, milvusClient, redisClient, llmClient, cfg, cfg.Vector.RAGCollection)
	if err != nil {
		appLogger.Fatal("Failed to open answer index; run the index command first", zap.Error(err))
	}

	simStore, err := openStore(ctx, milvusClient, redisClient, llmClient, cfg, cfg.Vector.SimilarityCollection)
	if err != nil {
		appLogger.Fatal("Failed to open similarity index; run the index command first", zap.Error(err))
	}

	ragService := rag.NewService(ragStore, llmClient, sqliteClient)
	simService := similarity.NewService(simStore)

	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	feed := live.NewFeed(redisClient, cfg.Data.Datamap)
	go func() {
		if err := feed.Run(feedCtx); err != nil && !errors.Is(err, context.Canceled) {
			appLogger.Error("Live feed stopped", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{})
	defer limiter.Stop()

	answerHandler := handlers.NewAnswerHandler(ragService)
	similarHandler := handlers.NewSimilarHandler(simService, coll)
	messagesHandler := handlers.NewMessagesHandler(coll, sqliteClient)
	liveHandler := handlers.NewLiveHandler(feed)

	app.Get("/metrics", metrics.MetricsHandler())

	api := app.Group("/api/v1")
	api.Use(limiter.Middleware())

	api.Post("/answer", answerHandler.HandleAnswer)
	api.Post("/similar", similarHandler.HandleSimilar)
	api.Get("/messages", messagesHandler.HandleList)
	api.Get("/messages/:row", messagesHandler.HandleGet)
	api.Get("/history", messagesHandler.HandleHistory)

	api.Get("/live", websocket.New(liveHandler.HandleConnection))

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"datamap":  dm.Name,
			"messages": coll.Len(),
			"time":     time.Now().Unix(),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	stopFeed()
	app.Shutdown()
	appLogger.Info("Server stopped")
}

// openStore attaches to an existing collection with cached document-
// and query-mode embedders.
func openStore(ctx context.Context, mc *milvus.Client, rc *redis.Client, lc *llm.Client, cfg *config.Config, name string) (*vector.Store, error) {
	coll, err := mc.OpenCollection(ctx, name, cfg.LLM.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	docEmbedder := vector.NewCachedEmbedder(
		vector.NewModalEmbedder(lc, vector.ModeDocument),
		rc, vector.ModeDocument, 0,
	)
	queryEmbedder := vector.NewCachedEmbedder(
		vector.NewModalEmbedder(lc, vector.ModeQuery),
		rc, vector.ModeQuery, 0,
	)
	if name == cfg.Vector.SimilarityCollection {
		// Symmetric task: both sides embed in similarity mode.
		docEmbedder = vector.NewCachedEmbedder(
			vector.NewModalEmbedder(lc, vector.ModeSimilarity),
			rc, vector.ModeSimilarity, 0,
		)
		queryEmbedder = docEmbedder
	}

	return vector.NewStore(ctx, name, coll, docEmbedder, queryEmbedder, cfg.Vector.InsertBatchSize)
}
