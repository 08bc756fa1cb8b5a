package metadata

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"songstorage/pkg/models"
)

func TestFileTagWriterUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	err := FileTagWriter{}.Write(path, models.NewUnknownSong(path))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFileTagWriterInvalidFLAC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.flac")
	if err := os.WriteFile(path, []byte("not a flac stream"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := (FileTagWriter{}).Write(path, models.NewUnknownSong(path)); err == nil {
		t.Error("Expected error for invalid FLAC file")
	}
}

// untaggedMP3 returns n silent MPEG-1 Layer III frames (128 kbps, 44.1 kHz),
// each 417 bytes long, with no ID3 tag.
func untaggedMP3(n int) []byte {
	const frameSize = 417
	data := make([]byte, 0, n*frameSize)
	for i := 0; i < n; i++ {
		frame := make([]byte, frameSize)
		copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
		data = append(data, frame...)
	}
	return data
}

func TestFileTagWriterMP3RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, untaggedMP3(4), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	writes := []models.Song{
		// First write prepends a fresh tag.
		{FileName: "song.mp3", Title: "New Title", Artist: "New Artist", Album: "New Album", Year: "2001", Genre: "Jazz"},
		// Second write replaces the existing tag.
		{FileName: "song.mp3", Title: "Retitled", Artist: "New Artist", Album: "New Album", Year: "2002", Genre: "Blues"},
	}
	for i, song := range writes {
		if err := (FileTagWriter{}).Write(path, song); err != nil {
			t.Fatalf("Write %d failed: %v", i+1, err)
		}

		tags, err := FileTagReader{}.Read(path)
		if err != nil {
			t.Fatalf("Read after write %d failed: %v", i+1, err)
		}
		for _, f := range models.MetadataFields {
			if tags[f] != song.Get(f) {
				t.Errorf("Write %d: expected %s %q, got %q", i+1, f, song.Get(f), tags[f])
			}
		}
	}

	// The audio frames survive both rewrites.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if !bytes.HasSuffix(data, untaggedMP3(4)) {
		t.Error("Audio frames were altered by tag writing")
	}
}

func TestIsReplacedVorbisField(t *testing.T) {
	testCases := []struct {
		comment  string
		expected bool
	}{
		{"TITLE=Old", true},
		{"title=Old", true},
		{"DATE=1999", true},
		{"TRACKNUMBER=3", false},
		{"garbage", false},
	}
	for _, tc := range testCases {
		if got := isReplacedVorbisField(tc.comment); got != tc.expected {
			t.Errorf("isReplacedVorbisField(%q): expected %v, got %v", tc.comment, tc.expected, got)
		}
	}
}
