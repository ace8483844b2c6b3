package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	SQLite    SQLiteConfig
	Knowledge KnowledgeConfig
	Milvus    MilvusConfig
	Neo4j     Neo4jConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Chat      ChatConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Eval      EvalConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    int
	WriteTimeout   int
	BodyLimit      int
	AllowedOrigins []string
	Development    bool
}

type SQLiteConfig struct {
	Path string
}

// KnowledgeConfig selects where knowledge documents are loaded from and which
// vector backend serves similarity search.
type KnowledgeConfig struct {
	Dir     string
	Backend string
	Watch   bool
	// AdminToken authorizes document uploads over HTTP. Empty disables them.
	AdminToken string
}

type MilvusConfig struct {
	Endpoint       string
	APIKey         string
	CollectionName string
	VectorDim      int
}

type Neo4jConfig struct {
	URI       string
	Username  string
	Password  string
	Database  string
	IndexName string
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	EmbeddingTTL int
}

type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float32
	MaxTokens      int
	TimeoutSec     int
	EmbeddingModel string
	EmbeddingDim   int
}

type ChatConfig struct {
	RetrievalK       int
	RecentDays       int
	RecordTimeoutSec int
	MaxMessageLength int
}

type RateLimitConfig struct {
	ChatPerMinute int
}

// EvalConfig drives cmd/evaluate.
type EvalConfig struct {
	DatasetPath string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

var validBackends = map[string]bool{"sqlite": true, "milvus": true, "neo4j": true}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/order-chatbot")

	return load(v)
}

// LoadFile reads configuration from an explicit path instead of the search paths.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("ORDER_CHATBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if !validBackends[c.Knowledge.Backend] {
		return fmt.Errorf("invalid knowledge backend %q", c.Knowledge.Backend)
	}
	if c.Chat.RetrievalK <= 0 {
		return fmt.Errorf("chat.retrievalK must be positive, got %d", c.Chat.RetrievalK)
	}
	if c.Chat.RecentDays <= 0 {
		return fmt.Errorf("chat.recentDays must be positive, got %d", c.Chat.RecentDays)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature out of range: %v", c.LLM.Temperature)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 1048576)
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.development", false)

	v.SetDefault("sqlite.path", "./data/chatbot.db")

	v.SetDefault("knowledge.dir", "./knowledge-base")
	v.SetDefault("knowledge.backend", "sqlite")
	v.SetDefault("knowledge.watch", false)
	v.SetDefault("knowledge.adminToken", "")

	v.SetDefault("milvus.endpoint", "localhost:19530")
	v.SetDefault("milvus.collectionName", "knowledge_base")
	v.SetDefault("milvus.vectorDim", 1536)

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "password")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.indexName", "knowledge_embeddings")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.embeddingTTL", 86400)

	v.SetDefault("llm.model", "gpt-3.5-turbo")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.maxTokens", 150)
	v.SetDefault("llm.timeoutSec", 30)
	v.SetDefault("llm.embeddingModel", "text-embedding-ada-002")
	v.SetDefault("llm.embeddingDim", 1536)

	v.SetDefault("chat.retrievalK", 3)
	v.SetDefault("chat.recentDays", 30)
	v.SetDefault("chat.recordTimeoutSec", 5)
	v.SetDefault("chat.maxMessageLength", 1000)

	v.SetDefault("rateLimit.chatPerMinute", 10)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")

	v.SetDefault("eval.datasetPath", "./evaluation/dataset.json")
}
