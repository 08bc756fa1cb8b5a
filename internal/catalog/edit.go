package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"songstorage/internal/index"
	"songstorage/pkg/models"

	"github.com/sirupsen/logrus"
)

// EditAction is what a line of edit-loop input asks for.
type EditAction int

const (
	EditUnknown EditAction = iota
	EditField
	EditSave
	EditCancel
)

// EditCommand is a parsed edit-loop input. Field is set for EditField.
type EditCommand struct {
	Action EditAction
	Field  models.Field
}

// ParseEditCommand maps "1".."5" to title, artist, album, year and genre, and
// "save" / "cancel" to their actions. Anything else is EditUnknown.
func ParseEditCommand(input string) EditCommand {
	in := strings.ToLower(strings.TrimSpace(input))
	switch in {
	case "save":
		return EditCommand{Action: EditSave}
	case "cancel":
		return EditCommand{Action: EditCancel}
	}
	if len(in) == 1 && in[0] >= '1' && in[0] <= '5' {
		return EditCommand{Action: EditField, Field: models.MetadataFields[in[0]-'1']}
	}
	return EditCommand{Action: EditUnknown}
}

// EditSession holds a working copy of one record. Nothing is persisted until
// SaveEdit.
type EditSession struct {
	original models.Song
	working  models.Song
	closed   bool
}

// NewEditSession starts editing song.
func NewEditSession(song models.Song) *EditSession {
	return &EditSession{original: song, working: song}
}

// Original returns the record as it was when the session started.
func (s *EditSession) Original() models.Song { return s.original }

// Working returns the current working copy.
func (s *EditSession) Working() models.Song { return s.working }

// Closed reports whether the session was saved or cancelled.
func (s *EditSession) Closed() bool { return s.closed }

// Set changes a metadata field of the working copy. A blank value stores the
// field's sentinel.
func (s *EditSession) Set(f models.Field, value string) error {
	if s.closed {
		return newError("modify", ErrInvalidInput, errors.New("edit session is closed"))
	}
	if models.Sentinel(f) == "" {
		return newError("modify", ErrInvalidInput, fmt.Errorf("%s is not editable", f))
	}
	value = strings.TrimSpace(value)
	if value == "" {
		value = models.Sentinel(f)
	}
	s.working.Set(f, value)
	return nil
}

// Changed lists the metadata fields that differ from the original.
func (s *EditSession) Changed() []models.Field {
	var changed []models.Field
	for _, f := range models.MetadataFields {
		if s.original.Get(f) != s.working.Get(f) {
			changed = append(changed, f)
		}
	}
	return changed
}

// Cancel discards the working copy.
func (s *EditSession) Cancel() {
	s.closed = true
}

// EditResult is the outcome of a saved edit. Warnings report a tag write that
// failed after the index was updated.
type EditResult struct {
	Song     models.Song
	Warnings []string
}

// SaveEdit writes the working copy's metadata to the index and then into the
// stored file's tags. A tag write failure does not undo the index update.
func (e *Engine) SaveEdit(ctx context.Context, s *EditSession) (EditResult, error) {
	const op = "modify"
	if s.closed {
		return EditResult{}, newError(op, ErrInvalidInput, errors.New("edit session is closed"))
	}
	song := s.working

	fields := make(index.Fields, len(models.MetadataFields))
	for _, f := range models.MetadataFields {
		fields[f] = song.Get(f)
	}
	if err := e.index.UpdateFields(ctx, song.ID, fields); err != nil {
		if errors.Is(err, index.ErrNotFound) {
			return EditResult{}, newError(op, ErrNotFound, err)
		}
		return EditResult{}, newError(op, ErrIndexFailure, err)
	}
	s.closed = true
	s.original = song

	result := EditResult{Song: song}
	if e.tagWriter != nil {
		path := e.store.ResolvePath(song.FileName)
		if err := e.tagWriter.Write(path, song); err != nil {
			e.logger.WithError(err).WithField("filePath", path).Warn("Failed to write tags, index updated anyway")
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("catalog updated but tags in %s were not rewritten: %v", song.FileName, err))
		}
	}

	e.logger.WithFields(logrus.Fields{
		"song_id":   song.ID,
		"file_name": song.FileName,
	}).Info("Song metadata updated")
	return result, nil
}
