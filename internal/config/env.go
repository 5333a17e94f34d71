package config

// ApplyEnv overrides secrets and endpoints from the environment. getenv is usually os.Getenv.
// Provider keys fall back to OPENAI_API_KEY when neither the file nor a specific variable sets them.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("DOCQA_POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := getenv("DOCQA_QDRANT_URL"); v != "" {
		cfg.Vector.QdrantURL = v
	}
	if v := getenv("DOCQA_GENERATION_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := getenv("DOCQA_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := getenv("DOCQA_VISION_API_KEY"); v != "" {
		cfg.Vision.APIKey = v
	}
	shared := getenv("OPENAI_API_KEY")
	if shared == "" {
		return
	}
	for _, key := range []*string{&cfg.Generation.APIKey, &cfg.Embedding.APIKey, &cfg.Vision.APIKey} {
		if *key == "" {
			*key = shared
		}
	}
}
