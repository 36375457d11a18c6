package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Vector  VectorConfig
	LLM     LLMConfig
	Geocode GeocodeConfig
	Redis   RedisConfig
	SQLite  SQLiteConfig
	Live    LiveConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

// DataConfig locates the datamap tree. Every enrichment run and every
// vector collection is scoped to exactly one datamap under Root.
type DataConfig struct {
	Root    string
	Datamap string
}

type VectorConfig struct {
	Endpoint             string
	SimilarityCollection string
	RAGCollection        string
	InsertBatchSize      int
}

type LLMConfig struct {
	APIKey              string
	BaseURL             string
	Model               string
	Temperature         float32
	MaxTokens           int
	TimeoutSec          int
	EmbeddingModel      string
	EmbeddingDim        int
	SentimentEndpoint   string
	TranslationStrategy string
}

type GeocodeConfig struct {
	BaseURL           string
	UserAgent         string
	RequestsPerSecond float64
	TimeoutSec        int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

// LiveConfig tunes the streaming pipeline.
type LiveConfig struct {
	PollIntervalSec int
	ScrapeUserAgent string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/telefeed")

	viper.SetEnvPrefix("TELEFEED")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("data.root", "./data/datamaps")
	viper.SetDefault("data.datamap", "live")

	viper.SetDefault("vector.endpoint", "localhost:19530")
	viper.SetDefault("vector.similarityCollection", "similarity_search")
	viper.SetDefault("vector.ragCollection", "rag")
	viper.SetDefault("vector.insertBatchSize", 100)

	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.maxTokens", 2048)
	viper.SetDefault("llm.timeoutSec", 60)
	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.embeddingDim", 1536)
	viper.SetDefault("llm.translationStrategy", "combined")

	viper.SetDefault("geocode.baseURL", "https://nominatim.openstreetmap.org")
	viper.SetDefault("geocode.userAgent", "telegram-feed-analyzer")
	viper.SetDefault("geocode.requestsPerSecond", 1.0)
	viper.SetDefault("geocode.timeoutSec", 10)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("sqlite.path", "./data/telefeed.db")

	viper.SetDefault("live.pollIntervalSec", 60)
	viper.SetDefault("live.scrapeUserAgent", "telegram-feed-analyzer")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
