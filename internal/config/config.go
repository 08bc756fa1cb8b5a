package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// MongoURIEnv overrides Index.MongoURI when set (directly or through .env).
const MongoURIEnv = "SONGSTORAGE_MONGO_URI"

// Config represents the application configuration
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Index    IndexConfig    `toml:"index"`
	Metadata MetadataConfig `toml:"metadata"`
	Logging  LoggingConfig  `toml:"logging"`
	Playback PlaybackConfig `toml:"playback"`
}

// StorageConfig contains content store configuration
type StorageConfig struct {
	Root       string `toml:"root"`
	ArchiveDir string `toml:"archive_dir"`
}

// IndexConfig selects and configures the catalog index backend
type IndexConfig struct {
	Backend         string `toml:"backend"`
	SQLitePath      string `toml:"sqlite_path"`
	BlevePath       string `toml:"bleve_path"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// MetadataConfig contains metadata extraction configuration
type MetadataConfig struct {
	SupportedFormats []string `toml:"supported_formats"`
	ProbeDuration    bool     `toml:"probe_duration"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// PlaybackConfig names the external player used by the audio engine
type PlaybackConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Root:       "Storage",
			ArchiveDir: filepath.Join("Storage", "Archive"),
		},
		Index: IndexConfig{
			Backend:         "sqlite",
			SQLitePath:      "./songstorage.db",
			BlevePath:       "./songstorage.bleve",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "song_storage",
			MongoCollection: "songs",
			TimeoutSeconds:  10,
		},
		Metadata: MetadataConfig{
			SupportedFormats: []string{".mp3", ".flac", ".wav", ".m4a", ".ogg"},
			ProbeDuration:    true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Playback: PlaybackConfig{
			Command: "ffplay",
			Args:    []string{"-nodisp", "-autoexit", "-loglevel", "quiet"},
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with defaults
// when it does not exist. Environment overrides are applied last.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Created default configuration file at: %s\n", configPath)
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.applyEnv(filepath.Join(filepath.Dir(configPath), ".env")); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnv loads an optional .env file and applies environment overrides.
func (c *Config) applyEnv(envPath string) error {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}
	if uri := os.Getenv(MongoURIEnv); uri != "" {
		c.Index.MongoURI = uri
	}
	return nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# SongStorage Configuration
# Content store, catalog index backend, logging and playback settings.
# The index backend is one of: sqlite, mongo, bleve.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Storage.Root == "" {
		return fmt.Errorf("storage root cannot be empty")
	}
	if c.Storage.ArchiveDir == "" {
		return fmt.Errorf("storage archive directory cannot be empty")
	}

	switch c.Index.Backend {
	case "sqlite":
		if c.Index.SQLitePath == "" {
			return fmt.Errorf("sqlite index path cannot be empty")
		}
	case "bleve":
		if c.Index.BlevePath == "" {
			return fmt.Errorf("bleve index path cannot be empty")
		}
	case "mongo":
		if c.Index.MongoURI == "" {
			return fmt.Errorf("mongo uri cannot be empty")
		}
		if c.Index.MongoDatabase == "" || c.Index.MongoCollection == "" {
			return fmt.Errorf("mongo database and collection must be set")
		}
	default:
		return fmt.Errorf("invalid index backend: %s (must be sqlite, mongo, or bleve)", c.Index.Backend)
	}
	if c.Index.TimeoutSeconds < 1 {
		return fmt.Errorf("index timeout must be at least 1 second")
	}

	if len(c.Metadata.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	if c.Playback.Command == "" {
		return fmt.Errorf("playback command cannot be empty")
	}

	return nil
}

// IsFormatSupported checks if a file extension (with leading dot) is supported
func (c *Config) IsFormatSupported(ext string) bool {
	for _, supported := range c.Metadata.SupportedFormats {
		if supported == ext {
			return true
		}
	}
	return false
}
