package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"songstorage/internal/config"

	"github.com/sirupsen/logrus"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		wantLevel logrus.Level
	}{
		{"text info", config.LoggingConfig{Level: "info", Format: "text"}, logrus.InfoLevel},
		{"json debug", config.LoggingConfig{Level: "debug", Format: "json"}, logrus.DebugLevel},
		{"invalid level defaults to info", config.LoggingConfig{Level: "loud", Format: "text"}, logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer closer.Close()
			if logger.GetLevel() != tt.wantLevel {
				t.Errorf("Expected level %v, got %v", tt.wantLevel, logger.GetLevel())
			}
		})
	}
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songstorage.log")
	logger, closer, err := New(config.LoggingConfig{Level: "info", Format: "json", File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.WithField("file_name", "song.mp3").Info("Song added")
	closer.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"file_name":"song.mp3"`) {
		t.Errorf("Expected structured field in log file, got %s", data)
	}
}
