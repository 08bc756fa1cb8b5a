package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"songstorage/pkg/models"

	"github.com/sirupsen/logrus"
)

// ErrNoSource is returned when metadata must be read from a file that is
// missing or was not named.
var ErrNoSource = errors.New("source file missing")

// Resolver produces the metadata record for a file, either from user supplied
// fields or from the file's embedded tags, degrading to sentinels.
type Resolver struct {
	reader        TagReader
	probeDuration bool
	logger        *logrus.Logger
}

// NewResolver creates a resolver reading tags through reader. A nil logger
// gets a JSON logrus logger.
func NewResolver(reader TagReader, probeDuration bool, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Resolver{
		reader:        reader,
		probeDuration: probeDuration,
		logger:        logger,
	}
}

// Resolve returns the record for filePath. With user fields the file is never
// inspected. Without them the tag reader is consulted; any extraction failure
// yields an all-sentinel record rather than an error.
func (r *Resolver) Resolve(filePath string, user *models.UserFields) (models.Song, error) {
	song := models.NewUnknownSong(filePath)

	if user != nil {
		for _, f := range models.MetadataFields {
			if v := user.Get(f); v != "" {
				song.Set(f, v)
			}
		}
		return song, nil
	}

	if filePath == "" {
		return models.Song{}, ErrNoSource
	}
	if _, err := os.Stat(filePath); err != nil {
		return models.Song{}, ErrNoSource
	}

	tags, err := r.reader.Read(filePath)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Warn("Failed to extract metadata, using placeholders")
		return song, nil
	}

	for _, f := range models.MetadataFields {
		if v := strings.TrimSpace(tags[f]); v != "" {
			song.Set(f, tags[f])
		}
	}

	r.logger.WithFields(logrus.Fields{
		"filePath": filePath,
		"title":    song.Title,
		"artist":   song.Artist,
		"album":    song.Album,
	}).Debug("Successfully extracted metadata")

	return song, nil
}

// IsAudioFile checks whether a name carries one of the given extensions
func IsAudioFile(name string, supportedFormats []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}
