// Package config provides configuration loading and structs for the docqa server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Files      FilesConfig      `yaml:"files"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Tabular    TabularConfig    `yaml:"tabular"`
	Vector     VectorConfig     `yaml:"vector"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Vision     VisionConfig     `yaml:"vision"`
	Processing ProcessingConfig `yaml:"processing"`
	Answer     AnswerConfig     `yaml:"answer"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// StorageConfig selects the metadata database and where uploaded files live.
type StorageConfig struct {
	Driver       string `yaml:"driver"` // sqlite or postgres
	DatabasePath string `yaml:"database_path"`
	AssetsDir    string `yaml:"assets_dir"`
}

// FilesConfig holds upload validation settings.
type FilesConfig struct {
	AllowedExtensions []string `yaml:"allowed_extensions"`
	MaxSizeMB         int      `yaml:"max_size_mb"`
}

// MaxSizeBytes returns the upload size limit in bytes.
func (f FilesConfig) MaxSizeBytes() int64 {
	return int64(f.MaxSizeMB) << 20
}

// PostgresConfig is shared by every Postgres-backed component.
type PostgresConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxConns     int32         `yaml:"max_conns"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
}

// TabularConfig selects the relational store for materialized tables.
type TabularConfig struct {
	Backend    string `yaml:"backend"` // postgres or sqlite
	SQLitePath string `yaml:"sqlite_path"`
}

// VectorConfig selects the vector store.
type VectorConfig struct {
	Backend    string `yaml:"backend"` // memory, qdrant, or pgvector
	Distance   string `yaml:"distance"`
	QdrantURL  string `yaml:"qdrant_url"`
	MemoryPath string `yaml:"memory_path"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // openai, onnx, or mock
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	InputType      bool   `yaml:"input_type"`
	ModelPath      string `yaml:"model_path"`
	MaxTokens      int    `yaml:"max_tokens"`
	QueryPrefix    string `yaml:"query_prefix"`
	DocumentPrefix string `yaml:"document_prefix"`
	CacheSize      int    `yaml:"cache_size"`
}

// GenerationConfig holds text generation provider settings.
type GenerationConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	MaxTokens         int           `yaml:"max_tokens"`
	Temperature       float64       `yaml:"temperature"`
	InputMaxChars     int           `yaml:"input_max_chars"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// VisionConfig holds image captioning provider settings.
type VisionConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model"`
	MaxTokens   int    `yaml:"max_tokens"`
	Prompt      string `yaml:"prompt"`
	Concurrency int    `yaml:"concurrency"`
}

// ProcessingConfig holds chunking and indexing settings.
type ProcessingConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	OverlapSize   int `yaml:"overlap_size"`
	IndexPageSize int `yaml:"index_page_size"`
	SampleRows    int `yaml:"sample_rows"`
}

// AnswerConfig holds answer pipeline settings.
type AnswerConfig struct {
	Language     string `yaml:"language"`
	DefaultLimit int    `yaml:"default_limit"`
	MaxLimit     int    `yaml:"max_limit"`
}

// Inbox maps a watched directory to the project its files are uploaded into.
type Inbox struct {
	Project   int64  `yaml:"project"`
	Directory string `yaml:"directory"`
}

// WatchConfig holds inbox watch settings.
type WatchConfig struct {
	Inboxes []Inbox `yaml:"inboxes"`
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ApplyEnv(&cfg, os.Getenv)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.AssetsDir = expandPath(cfg.Storage.AssetsDir, configDir)
	cfg.Tabular.SQLitePath = expandPath(cfg.Tabular.SQLitePath, configDir)
	cfg.Vector.MemoryPath = expandPath(cfg.Vector.MemoryPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Inboxes {
		cfg.Watch.Inboxes[i].Directory = expandPath(cfg.Watch.Inboxes[i].Directory, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid config: storage.driver %q (want sqlite or postgres)", c.Storage.Driver)
	}
	switch c.Tabular.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid config: tabular.backend %q (want sqlite or postgres)", c.Tabular.Backend)
	}
	switch c.Vector.Backend {
	case "memory", "qdrant", "pgvector":
	default:
		return fmt.Errorf("invalid config: vector.backend %q (want memory, qdrant, or pgvector)", c.Vector.Backend)
	}
	switch c.Vector.Distance {
	case "cosine", "dot":
	default:
		return fmt.Errorf("invalid config: vector.distance %q (want cosine or dot)", c.Vector.Distance)
	}
	needsPostgres := c.Storage.Driver == "postgres" || c.Tabular.Backend == "postgres" || c.Vector.Backend == "pgvector"
	if needsPostgres && c.Postgres.DSN == "" {
		return fmt.Errorf("invalid config: postgres.dsn is required by the selected backends")
	}
	if c.Vector.Backend == "qdrant" && c.Vector.QdrantURL == "" {
		return fmt.Errorf("invalid config: vector.qdrant_url is required for the qdrant backend")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("invalid config: embedding.dimensions must be positive")
	}
	for _, in := range c.Watch.Inboxes {
		if in.Project <= 0 || in.Directory == "" {
			return fmt.Errorf("invalid config: watch inbox needs a positive project and a directory")
		}
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
