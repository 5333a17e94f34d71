package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/docqa/data/db/docqa.db"
	}
	if cfg.Storage.AssetsDir == "" {
		cfg.Storage.AssetsDir = "/usr/local/var/docqa/data/assets"
	}
	if cfg.Files.AllowedExtensions == nil {
		cfg.Files.AllowedExtensions = []string{".txt", ".md", ".pdf", ".csv", ".xlsx", ".png", ".jpg", ".jpeg"}
	}
	if cfg.Files.MaxSizeMB == 0 {
		cfg.Files.MaxSizeMB = 10
	}
	if cfg.Postgres.MaxConns == 0 {
		cfg.Postgres.MaxConns = 10
	}
	if cfg.Postgres.QueryTimeout == 0 {
		cfg.Postgres.QueryTimeout = 15 * time.Second
	}
	if cfg.Tabular.Backend == "" {
		cfg.Tabular.Backend = "sqlite"
	}
	if cfg.Tabular.SQLitePath == "" {
		cfg.Tabular.SQLitePath = "/usr/local/var/docqa/data/db/tables.db"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Vector.Distance == "" {
		cfg.Vector.Distance = "cosine"
	}
	if cfg.Vector.MemoryPath == "" {
		cfg.Vector.MemoryPath = "/usr/local/var/docqa/data/vectors"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 1000
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.1
	}
	if cfg.Generation.InputMaxChars == 0 {
		cfg.Generation.InputMaxChars = 20000
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}
	// MaxRetries of 0 is meaningful (no retries) and is kept.
	if cfg.Vision.BaseURL == "" {
		cfg.Vision.BaseURL = cfg.Generation.BaseURL
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = "gpt-4o-mini"
	}
	if cfg.Vision.MaxTokens == 0 {
		cfg.Vision.MaxTokens = 300
	}
	if cfg.Vision.Prompt == "" {
		cfg.Vision.Prompt = "Describe this image in detail. Transcribe any visible text, numbers, labels, and chart values."
	}
	if cfg.Vision.Concurrency == 0 {
		cfg.Vision.Concurrency = 2
	}
	if cfg.Processing.ChunkSize == 0 {
		cfg.Processing.ChunkSize = 512
	}
	if cfg.Processing.OverlapSize == 0 {
		cfg.Processing.OverlapSize = 50
	}
	if cfg.Processing.IndexPageSize == 0 {
		cfg.Processing.IndexPageSize = 50
	}
	if cfg.Processing.SampleRows == 0 {
		cfg.Processing.SampleRows = 3
	}
	if cfg.Answer.Language == "" {
		cfg.Answer.Language = "en"
	}
	if cfg.Answer.DefaultLimit == 0 {
		cfg.Answer.DefaultLimit = 10
	}
	if cfg.Answer.MaxLimit == 0 {
		cfg.Answer.MaxLimit = 50
	}
}
