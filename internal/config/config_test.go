package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Structurer.ChunkSize != 512 {
		t.Errorf("expected 512, got %d", cfg.Structurer.ChunkSize)
	}
	if cfg.Mapper.ConfidenceThreshold != 0.5 {
		t.Errorf("expected 0.5, got %f", cfg.Mapper.ConfidenceThreshold)
	}
	if cfg.Export.Format != "json" {
		t.Errorf("expected json, got %s", cfg.Export.Format)
	}
	if !cfg.Optimizer.PreserveSentences {
		t.Error("expected preserve_sentences on by default")
	}
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.toml")
	os.WriteFile(path, []byte(`
[structurer]
chunk_size = 256

[export]
format = "jsonl"
`), 0644)

	cfg := Load(path)
	if cfg.Structurer.ChunkSize != 256 {
		t.Errorf("expected 256, got %d", cfg.Structurer.ChunkSize)
	}
	if cfg.Export.Format != "jsonl" {
		t.Errorf("expected jsonl, got %s", cfg.Export.Format)
	}
	// Defaults preserved
	if cfg.Optimizer.MaxChunkSize != 512 {
		t.Errorf("default should be preserved, got %d", cfg.Optimizer.MaxChunkSize)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MAITRE_EXPORT_FORMAT", "parquet")
	t.Setenv("MAITRE_DB_PATH", "/tmp/override.db")

	cfg := Load("/nonexistent/path.toml")
	if cfg.Export.Format != "parquet" {
		t.Errorf("expected parquet, got %s", cfg.Export.Format)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("expected /tmp/override.db, got %s", cfg.Database.Path)
	}
}

func TestDriverOverride(t *testing.T) {
	t.Setenv("MAITRE_DB_DRIVER", "postgres")
	t.Setenv("MAITRE_POSTGRES_URL", "postgres://localhost/maitre")

	cfg := Load("/nonexistent/path.toml")
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.Database.Driver)
	}
	if cfg.Database.PostgresURL != "postgres://localhost/maitre" {
		t.Errorf("unexpected url %s", cfg.Database.PostgresURL)
	}
}
