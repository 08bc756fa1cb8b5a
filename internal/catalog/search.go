package catalog

import (
	"context"
	"errors"
	"strings"

	"songstorage/internal/index"
	"songstorage/pkg/models"
)

// splitCriteria turns criteria into an index filter plus the format
// constraint, which is evaluated on file names. Empty values are dropped.
func splitCriteria(c models.Criteria) (index.Filter, string) {
	filter := index.Filter{}
	var format string
	for f, v := range c {
		if v == "" {
			continue
		}
		if f == models.FieldFormat {
			format = strings.TrimPrefix(v, ".")
			continue
		}
		filter[f] = v
	}
	return filter, format
}

// Search returns every record matching all criteria. No match is an empty
// result, not an error.
func (e *Engine) Search(ctx context.Context, criteria models.Criteria) ([]models.Song, error) {
	const op = "search"
	filter, format := splitCriteria(criteria)

	songs, err := e.index.Find(ctx, filter)
	if err != nil {
		if errors.Is(err, index.ErrUnknownField) {
			return nil, newError(op, ErrInvalidInput, err)
		}
		return nil, newError(op, ErrIndexFailure, err)
	}

	if format == "" {
		if songs == nil {
			songs = []models.Song{}
		}
		return songs, nil
	}
	matched := make([]models.Song, 0, len(songs))
	for _, song := range songs {
		if song.Format() == format {
			matched = append(matched, song)
		}
	}
	return matched, nil
}
