package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"songstorage/internal/catalog"
	"songstorage/internal/config"
	"songstorage/internal/index"
	"songstorage/internal/logging"
	"songstorage/internal/metadata"
	"songstorage/internal/store"

	"github.com/sirupsen/logrus"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := defaultConfigPath
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.LoadConfig(path)
	})
	return c.config, c.configErr
}

// library bundles the engine with the collaborators commands reach directly.
type library struct {
	cfg    *config.Config
	engine *catalog.Engine
	store  *store.Store
	logger *logrus.Logger
}

// withLibrary opens the index and store, runs fn and closes everything.
// Mutating commands hold the store lock for the duration of fn.
func (c *commandContext) withLibrary(ctx context.Context, mutating bool, fn func(*library) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	logger, logCloser, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeQuietly(logCloser)

	st := store.New(cfg.Storage.Root, logger)
	if mutating {
		if err := st.Lock(); err != nil {
			if errors.Is(err, store.ErrLocked) {
				return fmt.Errorf("%w (is another songstorage command running?)", err)
			}
			return err
		}
		defer st.Unlock()
	}

	idx, err := index.Open(ctx, cfg.Index, logger)
	if err != nil {
		return fmt.Errorf("failed to open catalog index: %w", err)
	}
	defer func() {
		if cerr := idx.Close(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to close catalog index")
		}
	}()

	resolver := metadata.NewResolver(metadata.FileTagReader{}, cfg.Metadata.ProbeDuration, logger)
	engine := catalog.NewEngine(st, idx, resolver, metadata.FileTagWriter{}, cfg.Storage.ArchiveDir, logger)

	return fn(&library{cfg: cfg, engine: engine, store: st, logger: logger})
}

func closeQuietly(c io.Closer) {
	if c != nil {
		c.Close()
	}
}
