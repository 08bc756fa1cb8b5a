// Package index is the catalog's document collection: one record per stored
// file, addressed by an identifier the backend assigns on insert.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"songstorage/internal/config"
	"songstorage/pkg/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotFound is returned by UpdateFields and Delete for unknown ids.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownField is returned for filter or update keys that are not stored.
	ErrUnknownField = errors.New("unknown field")
	// ErrDuplicate is returned when the backend's file name constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate file name")
)

// Filter is a conjunction of exact-match constraints.
type Filter map[models.Field]string

// Fields is a partial update merged into a stored record.
type Fields map[models.Field]string

// Index is the contract the catalog engine relies on. Find returns records in
// insertion order.
type Index interface {
	Insert(ctx context.Context, song models.Song) (string, error)
	Find(ctx context.Context, filter Filter) ([]models.Song, error)
	UpdateFields(ctx context.Context, id string, fields Fields) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open creates the backend selected by the configuration.
func Open(ctx context.Context, cfg config.IndexConfig, logger *logrus.Logger) (Index, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteIndex(cfg.SQLitePath, logger)
	case "bleve":
		return NewBleveIndex(cfg.BlevePath, logger)
	case "mongo":
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		return NewMongoIndex(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, timeout, logger)
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}

// checkFields rejects keys the index does not store.
func checkFields[M ~map[models.Field]string](m M) error {
	for f := range m {
		if !models.IsStored(f) {
			return fmt.Errorf("%w: %s", ErrUnknownField, f)
		}
	}
	return nil
}
