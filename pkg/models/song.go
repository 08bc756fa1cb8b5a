package models

import (
	"path/filepath"
	"strings"
	"time"
)

// Field names a stored attribute of a Song. The values double as column,
// document and criteria keys.
type Field string

const (
	FieldFileName Field = "file_name"
	FieldTitle    Field = "title"
	FieldArtist   Field = "artist"
	FieldAlbum    Field = "album"
	FieldYear     Field = "year"
	FieldGenre    Field = "genre"

	// FieldFormat is derived from the file extension and never stored.
	FieldFormat Field = "format"
)

// Sentinel values used when a metadata field cannot be determined.
const (
	UnknownTitle  = "Unknown"
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownYear   = "Unknown Year"
	UnknownGenre  = "Unknown Genre"
)

// MetadataFields lists the editable fields in display order.
var MetadataFields = []Field{FieldTitle, FieldArtist, FieldAlbum, FieldYear, FieldGenre}

// Sentinel returns the placeholder for a metadata field, or "" for fields
// that have none.
func Sentinel(f Field) string {
	switch f {
	case FieldTitle:
		return UnknownTitle
	case FieldArtist:
		return UnknownArtist
	case FieldAlbum:
		return UnknownAlbum
	case FieldYear:
		return UnknownYear
	case FieldGenre:
		return UnknownGenre
	default:
		return ""
	}
}

// IsStored reports whether f is persisted by the catalog index.
func IsStored(f Field) bool {
	switch f {
	case FieldFileName, FieldTitle, FieldArtist, FieldAlbum, FieldYear, FieldGenre:
		return true
	}
	return false
}

// Song represents one catalogued audio file
type Song struct {
	ID       string    `json:"id"`
	FileName string    `json:"file_name"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist"`
	Album    string    `json:"album"`
	Year     string    `json:"year"`
	Genre    string    `json:"genre"`
	Duration int       `json:"duration"` // in seconds, 0 when unknown
	FileSize int64     `json:"file_size"`
	AddedAt  time.Time `json:"added_at"`
}

// Get returns the value of a stored field.
func (s *Song) Get(f Field) string {
	switch f {
	case FieldFileName:
		return s.FileName
	case FieldTitle:
		return s.Title
	case FieldArtist:
		return s.Artist
	case FieldAlbum:
		return s.Album
	case FieldYear:
		return s.Year
	case FieldGenre:
		return s.Genre
	case FieldFormat:
		return s.Format()
	}
	return ""
}

// Set assigns a stored field. Unknown fields are ignored.
func (s *Song) Set(f Field, value string) {
	switch f {
	case FieldFileName:
		s.FileName = value
	case FieldTitle:
		s.Title = value
	case FieldArtist:
		s.Artist = value
	case FieldAlbum:
		s.Album = value
	case FieldYear:
		s.Year = value
	case FieldGenre:
		s.Genre = value
	}
}

// Metadata returns the five metadata fields keyed by name.
func (s *Song) Metadata() map[Field]string {
	m := make(map[Field]string, len(MetadataFields))
	for _, f := range MetadataFields {
		m[f] = s.Get(f)
	}
	return m
}

// Format is the substring after the last "." of the file name.
func (s *Song) Format() string {
	return FormatOf(s.FileName)
}

// FormatOf returns the extension of name without the leading dot, or "" when
// the name has none.
func FormatOf(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}
	return name[i+1:]
}

// NewUnknownSong returns an all-sentinel record for the given path.
func NewUnknownSong(filePath string) Song {
	s := Song{FileName: filepath.Base(filePath)}
	for _, f := range MetadataFields {
		s.Set(f, Sentinel(f))
	}
	return s
}

// UserFields holds metadata typed in by the user. Empty strings mean
// "not supplied".
type UserFields struct {
	Title  string
	Artist string
	Album  string
	Year   string
	Genre  string
}

// Get returns the user supplied value for a metadata field.
func (u *UserFields) Get(f Field) string {
	switch f {
	case FieldTitle:
		return u.Title
	case FieldArtist:
		return u.Artist
	case FieldAlbum:
		return u.Album
	case FieldYear:
		return u.Year
	case FieldGenre:
		return u.Genre
	}
	return ""
}

// Criteria is a conjunction of exact-match constraints. Empty values impose
// no constraint.
type Criteria map[Field]string
