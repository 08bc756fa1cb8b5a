// Package catalog keeps the content store and the catalog index consistent
// across add, delete, modify, search and archive.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"songstorage/internal/index"
	"songstorage/internal/metadata"
	"songstorage/internal/store"
	"songstorage/pkg/models"

	"github.com/sirupsen/logrus"
)

// Engine orchestrates the store, the index and metadata resolution. It holds
// no state beyond its collaborators.
type Engine struct {
	store      *store.Store
	index      index.Index
	resolver   *metadata.Resolver
	tagWriter  metadata.TagWriter
	archiveDir string
	logger     *logrus.Logger
}

// NewEngine wires an engine. tagWriter may be nil, in which case SaveEdit
// only updates the index.
func NewEngine(st *store.Store, idx index.Index, resolver *metadata.Resolver, tagWriter metadata.TagWriter, archiveDir string, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Engine{
		store:      st,
		index:      idx,
		resolver:   resolver,
		tagWriter:  tagWriter,
		archiveDir: archiveDir,
		logger:     logger,
	}
}

// AddResult describes a newly catalogued song.
type AddResult struct {
	ID         string
	Song       models.Song
	StoredPath string
}

// Add copies filePath into the store and records its metadata. user may be
// nil, in which case metadata is read from the file's tags.
func (e *Engine) Add(ctx context.Context, filePath string, user *models.UserFields) (AddResult, error) {
	const op = "add"
	if strings.TrimSpace(filePath) == "" {
		return AddResult{}, newError(op, ErrInvalidInput, errors.New("file path is empty"))
	}
	fileName := filepath.Base(filePath)

	existing, err := e.index.Find(ctx, index.Filter{models.FieldFileName: fileName})
	if err != nil {
		return AddResult{}, newError(op, ErrIndexFailure, err)
	}
	if len(existing) > 0 {
		e.logger.WithField("file_name", fileName).Info("Song already catalogued, skipping")
		return AddResult{}, newError(op, ErrDuplicateFileName, errors.New(fileName))
	}

	song, err := e.resolver.Resolve(filePath, user)
	if err != nil {
		if errors.Is(err, metadata.ErrNoSource) {
			return AddResult{}, newError(op, ErrInvalidInput, fmt.Errorf("%s: %w", filePath, err))
		}
		return AddResult{}, newError(op, ErrInvalidInput, err)
	}

	storedPath, err := e.store.Put(filePath)
	if err != nil {
		return AddResult{}, newError(op, ErrIOFailure, err)
	}

	info := e.resolver.Probe(storedPath)
	song.Duration = info.Duration
	song.FileSize = info.Size

	id, err := e.index.Insert(ctx, song)
	if errors.Is(err, index.ErrDuplicate) {
		// Another writer catalogued the name between the lookup and the insert.
		warning := fmt.Sprintf("%s was overwritten in the store; its existing catalog record may not describe the new content", storedPath)
		e.logger.WithError(err).WithField("storedPath", storedPath).Warn("Index rejected duplicate file name after store write")
		return AddResult{}, newError(op, ErrDuplicateFileName, err, warning)
	}
	if err != nil {
		warning := fmt.Sprintf("%s was copied into the store but has no catalog record", storedPath)
		e.logger.WithError(err).WithField("storedPath", storedPath).Warn("Index insert failed after store write")
		return AddResult{}, newError(op, ErrIndexFailure, err, warning)
	}
	song.ID = id

	e.logger.WithFields(logrus.Fields{
		"song_id":   id,
		"file_name": song.FileName,
		"title":     song.Title,
		"artist":    song.Artist,
	}).Info("Song added")
	return AddResult{ID: id, Song: song, StoredPath: storedPath}, nil
}

// FindByTitle returns every record whose title matches exactly, in insertion
// order, for the caller to disambiguate.
func (e *Engine) FindByTitle(ctx context.Context, title string) ([]models.Song, error) {
	const op = "find"
	if title == "" {
		return nil, newError(op, ErrInvalidInput, errors.New("title is empty"))
	}
	songs, err := e.index.Find(ctx, index.Filter{models.FieldTitle: title})
	if err != nil {
		return nil, newError(op, ErrIndexFailure, err)
	}
	if len(songs) == 0 {
		return nil, newError(op, ErrNotFound, fmt.Errorf("title %q", title))
	}
	return songs, nil
}

// FindByFileName returns the record stored under name.
func (e *Engine) FindByFileName(ctx context.Context, name string) (*models.Song, error) {
	const op = "find"
	songs, err := e.index.Find(ctx, index.Filter{models.FieldFileName: name})
	if err != nil {
		return nil, newError(op, ErrIndexFailure, err)
	}
	if len(songs) == 0 {
		return nil, newError(op, ErrNotFound, fmt.Errorf("file name %q", name))
	}
	return &songs[0], nil
}

// Select picks the 1-based selection out of matches.
func Select(matches []models.Song, selection int) (models.Song, error) {
	if selection < 1 || selection > len(matches) {
		return models.Song{}, newError("select", ErrInvalidSelection,
			fmt.Errorf("%d is not between 1 and %d", selection, len(matches)))
	}
	return matches[selection-1], nil
}

// DeleteResult describes the outcome of Delete.
type DeleteResult struct {
	Song        models.Song
	Declined    bool
	FileRemoved bool
}

// Delete removes the stored file and then the record. Without confirmation
// nothing is touched. A file that is already gone is tolerated.
func (e *Engine) Delete(ctx context.Context, song models.Song, confirmed bool) (DeleteResult, error) {
	const op = "delete"
	result := DeleteResult{Song: song}
	if !confirmed {
		result.Declined = true
		return result, nil
	}
	if song.ID == "" {
		return result, newError(op, ErrInvalidInput, errors.New("song has no id"))
	}

	removed, err := e.store.Remove(song.FileName)
	if err != nil {
		return result, newError(op, ErrIOFailure, err)
	}
	result.FileRemoved = removed
	if !removed {
		e.logger.WithField("file_name", song.FileName).Warn("Stored file already missing, removing record only")
	}

	if err := e.index.Delete(ctx, song.ID); err != nil {
		var warnings []string
		if removed {
			warnings = append(warnings, fmt.Sprintf("%s was removed from the store but its catalog record remains", song.FileName))
		}
		e.logger.WithError(err).WithField("song_id", song.ID).Warn("Index delete failed after store removal")
		return result, newError(op, ErrIndexFailure, err, warnings...)
	}

	e.logger.WithFields(logrus.Fields{
		"song_id":      song.ID,
		"file_name":    song.FileName,
		"file_removed": removed,
	}).Info("Song deleted")
	return result, nil
}

// Report lists store/index divergences.
type Report struct {
	// Orphans are stored files without a record.
	Orphans []string
	// Missing are records whose stored file is absent.
	Missing []models.Song
}

// Consistent reports whether no divergence was found.
func (r Report) Consistent() bool {
	return len(r.Orphans) == 0 && len(r.Missing) == 0
}

// Check compares the store listing with the index. It never repairs.
func (e *Engine) Check(ctx context.Context) (Report, error) {
	const op = "check"
	var report Report

	files, err := e.store.List()
	if err != nil {
		return report, newError(op, ErrIOFailure, err)
	}
	songs, err := e.index.Find(ctx, index.Filter{})
	if err != nil {
		return report, newError(op, ErrIndexFailure, err)
	}

	recorded := make(map[string]bool, len(songs))
	for _, song := range songs {
		recorded[song.FileName] = true
		if !e.store.Exists(song.FileName) {
			report.Missing = append(report.Missing, song)
		}
	}
	for _, name := range files {
		if !recorded[name] {
			report.Orphans = append(report.Orphans, name)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"records": len(songs),
		"files":   len(files),
		"orphans": len(report.Orphans),
		"missing": len(report.Missing),
	}).Debug("Consistency check finished")
	return report, nil
}
