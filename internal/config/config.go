package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const (
	envDBPassword   = "SUPPORTRAG_DB_PASSWORD"
	envOpenAIKey    = "SUPPORTRAG_OPENAI_API_KEY"
	envGeminiKey    = "SUPPORTRAG_GEMINI_API_KEY"
	envS3SecretKey  = "SUPPORTRAG_S3_SECRET_KEY"
	defaultDotEnv   = ".env"
	defaultEmbedDim = 512
)

type Config struct {
	Port       int              `json:"port"`
	LogConfig  logger.LogConfig `json:"log_config"`
	Database   DatabaseConfig   `json:"database"`
	Ingest     IngestConfig     `json:"ingest"`
	Retrieval  RetrievalConfig  `json:"retrieval"`
	AI         AIConfig         `json:"ai"`
	EmbedCache EmbedCacheConfig `json:"embed_cache"`
	FileStore  FileStoreConfig  `json:"file_store"`
	Jobs       JobsConfig       `json:"jobs"`
	HTTP       HTTPConfig       `json:"http"`
}

type DatabaseConfig struct {
	DSN            string `json:"dsn"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"dbname"`
	SSLMode        string `json:"sslmode"`
	ConnectTimeout int    `json:"connect_timeout"`
	MaxOpenConns   int    `json:"max_open_conns"`
}

type IngestConfig struct {
	MaxChunkLength  int    `json:"max_chunk_length"`
	Overlap         *bool  `json:"overlap"`
	IncludeTables   bool   `json:"include_tables"`
	KeepLargeTables bool   `json:"keep_large_tables"`
	TargetLanguage  string `json:"target_language"`
	WorkerPoolSize  int    `json:"worker_pool_size"`
	DocumentWorkers int    `json:"document_workers"`
}

func (c IngestConfig) OverlapEnabled() bool {
	return c.Overlap == nil || *c.Overlap
}

type RetrievalConfig struct {
	Limit       int `json:"limit"`
	BranchLimit int `json:"branch_limit"`
	RRFK        int `json:"rrf_k"`
}

type ProviderConfig struct {
	Name     string      `json:"name"`
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Generators []ProviderConfig `json:"generators"`
	Embedders  []ProviderConfig `json:"embedders"`
	Dimensions int              `json:"dimensions"`
	Timeout    int              `json:"timeout"`
}

type EmbedCacheConfig struct {
	LRUSize       int    `json:"lru_size"`
	LRUTTLSeconds int    `json:"lru_ttl_seconds"`
	EnableDB      bool   `json:"enable_db"`
	BadgerDir     string `json:"badger_dir"`
	BadgerTTLDays int    `json:"badger_ttl_days"`
}

// FileStoreConfig selects where raw manuals are archived. An empty type
// disables archiving.
type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	EmbedCacheCleanupSpec string `json:"embed_cache_cleanup_spec"`
	EmbedCacheMaxAgeDays  int    `json:"embed_cache_max_age_days"`
}

type HTTPConfig struct {
	CORSAllowlist      []string `json:"cors_allowlist"`
	RateLimitMillis    int      `json:"rate_limit_millis"`
	MaxUploadSizeBytes int64    `json:"max_upload_size_bytes"`
}

// Load reads the json config at path. Secrets may come from the environment
// or a .env file next to the working directory.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv() error {
	if _, err := os.Stat(defaultDotEnv); err != nil {
		return nil
	}
	if err := godotenv.Load(defaultDotEnv); err != nil {
		return fmt.Errorf("load %s: %w", defaultDotEnv, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(envDBPassword)); v != "" {
		cfg.Database.Password = v
	}
	for _, items := range [][]ProviderConfig{cfg.AI.Generators, cfg.AI.Embedders} {
		for i := range items {
			key := ""
			switch strings.ToLower(items[i].Provider) {
			case "openai":
				key = os.Getenv(envOpenAIKey)
			case "gemini":
				key = os.Getenv(envGeminiKey)
			}
			if key == "" {
				continue
			}
			data, ok := items[i].Data.(map[string]interface{})
			if !ok || data == nil {
				data = map[string]interface{}{}
			}
			if _, exists := data["api_key"]; !exists {
				data["api_key"] = key
			}
			items[i].Data = data
		}
	}
	if v := os.Getenv(envS3SecretKey); v != "" && strings.EqualFold(cfg.FileStore.Type, "s3") {
		if data, ok := cfg.FileStore.Data.(map[string]interface{}); ok {
			data["secret_key"] = v
		}
	}
}

func (cfg *Config) normalize() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.ConnectTimeout == 0 {
		cfg.Database.ConnectTimeout = 10
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Ingest.MaxChunkLength <= 0 {
		cfg.Ingest.MaxChunkLength = 2500
	}
	if cfg.Ingest.TargetLanguage == "" {
		cfg.Ingest.TargetLanguage = "en"
	}
	if cfg.Ingest.WorkerPoolSize <= 0 {
		cfg.Ingest.WorkerPoolSize = 4
	}
	if cfg.Ingest.DocumentWorkers <= 0 {
		cfg.Ingest.DocumentWorkers = 2
	}
	if cfg.Retrieval.Limit <= 0 {
		cfg.Retrieval.Limit = 5
	}
	if cfg.Retrieval.BranchLimit <= 0 {
		cfg.Retrieval.BranchLimit = 40
	}
	if cfg.Retrieval.RRFK <= 0 {
		cfg.Retrieval.RRFK = 60
	}
	if cfg.AI.Dimensions == 0 {
		cfg.AI.Dimensions = defaultEmbedDim
	}
	if cfg.AI.Dimensions != defaultEmbedDim {
		return fmt.Errorf("ai.dimensions must be %d, got %d", defaultEmbedDim, cfg.AI.Dimensions)
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 60
	}
	if len(cfg.AI.Embedders) == 0 {
		return fmt.Errorf("ai.embedders is required")
	}
	if cfg.Jobs.EmbedCacheCleanupSpec == "" {
		cfg.Jobs.EmbedCacheCleanupSpec = "30 3 * * *"
	}
	if cfg.Jobs.EmbedCacheMaxAgeDays <= 0 {
		cfg.Jobs.EmbedCacheMaxAgeDays = 30
	}
	if cfg.HTTP.MaxUploadSizeBytes <= 0 {
		cfg.HTTP.MaxUploadSizeBytes = 64 << 20
	}
	switch strings.ToLower(cfg.FileStore.Type) {
	case "", "local", "s3":
	default:
		return fmt.Errorf("file_store.type must be local or s3")
	}
	return nil
}
