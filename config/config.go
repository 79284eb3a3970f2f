package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the docchat service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	LLM       LLMConfig       `mapstructure:"llm"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Janitor   JanitorConfig   `mapstructure:"janitor"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address       string `mapstructure:"address"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN assembles a connection string from the individual fields when url is not set.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings. Redis is optional: when host
// is empty the chat-history cache is disabled and reads go straight to Postgres.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TTL      time.Duration `mapstructure:"ttl"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Host) != ""
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // openai or local
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	CompletionModel string        `mapstructure:"completion_model"`
	EmbeddingModel  string        `mapstructure:"embedding_model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// RAGConfig controls chunking, indexing and retrieval behaviour
type RAGConfig struct {
	Collection       string `mapstructure:"collection"`
	ChunkSize        int    `mapstructure:"chunk_size"`
	ChunkOverlap     int    `mapstructure:"chunk_overlap"`
	EmbeddingDims    int    `mapstructure:"embedding_dimensions"`
	TopK             int    `mapstructure:"top_k"`
	ScopeToDocument  bool   `mapstructure:"scope_to_document"`
	MaxHistoryTurns  int    `mapstructure:"max_history_turns"`
	MaxContextChunks int    `mapstructure:"max_context_chunks"`
}

func (r RAGConfig) Validate() error {
	if r.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be > 0")
	}
	if r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, chunk_size)")
	}
	if r.EmbeddingDims <= 0 {
		return fmt.Errorf("rag.embedding_dimensions must be > 0")
	}
	return nil
}

// AssistantConfig defines the persona presented to users
type AssistantConfig struct {
	Name     string `mapstructure:"name"`
	Greeting string `mapstructure:"greeting"`
	Persona  string `mapstructure:"persona"`
}

// GreetingText returns the configured greeting, or a default built from the name.
func (a AssistantConfig) GreetingText() string {
	if strings.TrimSpace(a.Greeting) != "" {
		return a.Greeting
	}
	return fmt.Sprintf("Hi, I'm %s. I can answer questions about the documents you upload. How can I help you today?", a.Name)
}

// PersonaText returns the configured persona instructions, or a default built from the name.
func (a AssistantConfig) PersonaText() string {
	if strings.TrimSpace(a.Persona) != "" {
		return a.Persona
	}
	return fmt.Sprintf("You are %s, an AI assistant. Answer only using the information contained in the provided documents. If a question falls outside that context, say politely that you don't have that information. Always be professional and clear.", a.Name)
}

// JanitorConfig schedules purging of soft-deleted documents from the vector index
type JanitorConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Cron        string        `mapstructure:"cron"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// LoadConfig loads config from file, with DOCCHAT_* env overrides
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.max_upload_size", int64(32<<20))
	viper.SetDefault("storage.postgres.timeout", 10*time.Second)
	viper.SetDefault("storage.redis.timeout", 5*time.Second)
	viper.SetDefault("storage.redis.ttl", 10*time.Minute)
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.completion_model", "gpt-4o-mini")
	viper.SetDefault("llm.embedding_model", "text-embedding-3-small")
	viper.SetDefault("llm.temperature", 0.3)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.timeout", 30*time.Second)
	viper.SetDefault("rag.collection", "documents")
	viper.SetDefault("rag.chunk_size", 500)
	viper.SetDefault("rag.chunk_overlap", 100)
	viper.SetDefault("rag.embedding_dimensions", 1536)
	viper.SetDefault("rag.top_k", 5)
	viper.SetDefault("rag.scope_to_document", true)
	viper.SetDefault("rag.max_history_turns", 20)
	viper.SetDefault("rag.max_context_chunks", 5)
	viper.SetDefault("assistant.name", "Cliofer")
	viper.SetDefault("janitor.enabled", true)
	viper.SetDefault("janitor.cron", "0 3 * * *")
	viper.SetDefault("janitor.grace_period", 24*time.Hour)

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("DOCCHAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// missing config file is fine, defaults + env cover local runs
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Storage.Postgres.Validate(); err != nil {
		panic(err)
	}
	if err := config.RAG.Validate(); err != nil {
		panic(err)
	}
	return &config
}
