package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"songstorage/pkg/models"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacvorbis"
	goflac "github.com/go-flac/go-flac"
)

// ErrUnsupportedFormat is returned by the tag writer for formats it cannot edit.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Tags maps metadata fields to the raw values found in a file. Absent fields
// are missing or empty.
type Tags map[models.Field]string

// TagReader loads embedded metadata from an audio file.
type TagReader interface {
	Read(path string) (Tags, error)
}

// TagWriter persists the five metadata fields into an audio file.
type TagWriter interface {
	Write(path string, song models.Song) error
}

// FileTagReader reads ID3, MP4, FLAC and OGG tags.
type FileTagReader struct{}

// Read implements TagReader.
func (FileTagReader) Read(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}

	tags := Tags{
		models.FieldTitle:  m.Title(),
		models.FieldArtist: m.Artist(),
		models.FieldAlbum:  m.Album(),
		models.FieldGenre:  m.Genre(),
	}
	if year := m.Year(); year != 0 {
		tags[models.FieldYear] = strconv.Itoa(year)
	}
	return tags, nil
}

// FileTagWriter rewrites tags in place for MP3 (ID3v2.4) and FLAC (Vorbis
// comments) files.
type FileTagWriter struct{}

// Write implements TagWriter.
func (FileTagWriter) Write(path string, song models.Song) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return writeMP3(path, song)
	case ".flac":
		return writeFLAC(path, song)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func writeMP3(path string, song models.Song) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer t.Close()

	t.SetVersion(4)
	t.SetTitle(song.Title)
	t.SetArtist(song.Artist)
	t.SetAlbum(song.Album)
	t.SetYear(song.Year)
	t.SetGenre(song.Genre)

	if err := t.Save(); err != nil {
		return fmt.Errorf("failed to save MP3 tags: %w", err)
	}
	return nil
}

var vorbisFields = map[models.Field]string{
	models.FieldTitle:  flacvorbis.FIELD_TITLE,
	models.FieldArtist: flacvorbis.FIELD_ARTIST,
	models.FieldAlbum:  flacvorbis.FIELD_ALBUM,
	models.FieldYear:   flacvorbis.FIELD_DATE,
	models.FieldGenre:  flacvorbis.FIELD_GENRE,
}

// writeFLAC replaces the five fields inside the existing Vorbis comment block
// and keeps every other comment and metadata block.
func writeFLAC(path string, song models.Song) error {
	f, err := goflac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	comment := flacvorbis.New()
	blockIdx := -1
	for i, block := range f.Meta {
		if block.Type != goflac.VorbisComment {
			continue
		}
		existing, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return fmt.Errorf("failed to parse vorbis comment: %w", err)
		}
		comment = existing
		blockIdx = i
		break
	}

	kept := comment.Comments[:0]
	for _, c := range comment.Comments {
		if !isReplacedVorbisField(c) {
			kept = append(kept, c)
		}
	}
	comment.Comments = kept

	for _, field := range models.MetadataFields {
		if err := comment.Add(vorbisFields[field], song.Get(field)); err != nil {
			return fmt.Errorf("failed to set %s: %w", field, err)
		}
	}

	block := comment.Marshal()
	if blockIdx >= 0 {
		f.Meta[blockIdx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save FLAC file with metadata: %w", err)
	}
	return nil
}

func isReplacedVorbisField(comment string) bool {
	key, _, ok := strings.Cut(comment, "=")
	if !ok {
		return false
	}
	for _, name := range vorbisFields {
		if strings.EqualFold(key, name) {
			return true
		}
	}
	return false
}
