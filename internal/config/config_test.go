package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songstorage.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Root != "Storage" {
		t.Errorf("Expected storage root Storage, got %s", cfg.Storage.Root)
	}
	if cfg.Index.Backend != "sqlite" {
		t.Errorf("Expected sqlite backend, got %s", cfg.Index.Backend)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected config file to be written: %v", err)
	}

	// Loading the written file must round-trip through Validate.
	if _, err := LoadConfig(path); err != nil {
		t.Fatalf("Reloading default config failed: %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "songstorage.toml")
	content := `
[storage]
root = "/srv/music"
archive_dir = "/srv/music/Archive"

[index]
backend = "bleve"
bleve_path = "/srv/music.bleve"
timeout_seconds = 5

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.Root != "/srv/music" {
		t.Errorf("Expected root /srv/music, got %s", cfg.Storage.Root)
	}
	if cfg.Index.Backend != "bleve" || cfg.Index.BlevePath != "/srv/music.bleve" {
		t.Errorf("Unexpected index config: %+v", cfg.Index)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected json format, got %s", cfg.Logging.Format)
	}
	// Unset sections keep their defaults.
	if cfg.Playback.Command != "ffplay" {
		t.Errorf("Expected default playback command, got %s", cfg.Playback.Command)
	}
}

func TestEnvOverridesMongoURI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "songstorage.toml")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(MongoURIEnv+"=mongodb://db.example:27017\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Setenv(MongoURIEnv, "")
	os.Unsetenv(MongoURIEnv)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Index.MongoURI != "mongodb://db.example:27017" {
		t.Errorf("Expected mongo uri from .env, got %s", cfg.Index.MongoURI)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty root", func(c *Config) { c.Storage.Root = "" }, true},
		{"empty archive dir", func(c *Config) { c.Storage.ArchiveDir = "" }, true},
		{"unknown backend", func(c *Config) { c.Index.Backend = "redis" }, true},
		{"mongo without collection", func(c *Config) {
			c.Index.Backend = "mongo"
			c.Index.MongoCollection = ""
		}, true},
		{"mongo ok", func(c *Config) { c.Index.Backend = "mongo" }, false},
		{"zero timeout", func(c *Config) { c.Index.TimeoutSeconds = 0 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"no formats", func(c *Config) { c.Metadata.SupportedFormats = nil }, true},
		{"no player", func(c *Config) { c.Playback.Command = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsFormatSupported(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.IsFormatSupported(".mp3") {
		t.Error("Expected .mp3 to be supported")
	}
	if cfg.IsFormatSupported(".txt") {
		t.Error("Expected .txt to be unsupported")
	}
}
