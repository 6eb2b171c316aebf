package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Structurer StructurerConfig `toml:"structurer"`
	Optimizer  OptimizerConfig  `toml:"optimizer"`
	Enricher   EnricherConfig   `toml:"enricher"`
	Mapper     MapperConfig     `toml:"mapper"`
	Export     ExportConfig     `toml:"export"`
	Database   DatabaseConfig   `toml:"database"`
	Observer   ObserverConfig   `toml:"observer"`
}

type StructurerConfig struct {
	ChunkSize       int  `toml:"chunk_size"`
	OverlapSize     int  `toml:"overlap_size"`
	EnableSummaries bool `toml:"enable_summaries"`
}

type OptimizerConfig struct {
	MaxChunkSize      int  `toml:"max_chunk_size"`
	MinChunkSize      int  `toml:"min_chunk_size"`
	OverlapSize       int  `toml:"overlap_size"`
	PreserveSentences bool `toml:"preserve_sentences"`
}

type EnricherConfig struct {
	DomainKeywords   bool `toml:"domain_keywords"`
	EmbeddingHints   bool `toml:"embedding_hints"`
	TemporalMetadata bool `toml:"temporal_metadata"`
}

type MapperConfig struct {
	Hierarchical        bool    `toml:"hierarchical"`
	Semantic            bool    `toml:"semantic"`
	Temporal            bool    `toml:"temporal"`
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

type ExportConfig struct {
	Format          string `toml:"format"`
	Profile         string `toml:"profile"`
	PrettyPrint     bool   `toml:"pretty_print"`
	IncludeMetadata bool   `toml:"include_metadata"`
	OutputDir       string `toml:"output_dir"`
}

type DatabaseConfig struct {
	Driver      string `toml:"driver"`
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Structurer: StructurerConfig{ChunkSize: 512, OverlapSize: 50, EnableSummaries: true},
		Optimizer:  OptimizerConfig{MaxChunkSize: 512, MinChunkSize: 50, OverlapSize: 25, PreserveSentences: true},
		Enricher:   EnricherConfig{DomainKeywords: true, EmbeddingHints: true, TemporalMetadata: true},
		Mapper:     MapperConfig{Hierarchical: true, Semantic: true, ConfidenceThreshold: 0.5},
		Export:     ExportConfig{Format: "json", PrettyPrint: true, IncludeMetadata: true, OutputDir: "exports"},
		Database:   DatabaseConfig{Driver: "sqlite", Path: "maitre.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "maitre.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("MAITRE_EXPORT_FORMAT"); v != "" {
		cfg.Export.Format = v
	}
	if v := os.Getenv("MAITRE_EXPORT_PROFILE"); v != "" {
		cfg.Export.Profile = v
	}
	if v := os.Getenv("MAITRE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("MAITRE_POSTGRES_URL"); v != "" {
		cfg.Database.PostgresURL = v
	}
	if os.Getenv("MAITRE_OBSERVER_ENABLED") == "true" || os.Getenv("MAITRE_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.PostgresURL != "" && os.Getenv("MAITRE_DB_DRIVER") == "" && cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Driver = "postgres"
	}
	if v := os.Getenv("MAITRE_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}

	return cfg
}
