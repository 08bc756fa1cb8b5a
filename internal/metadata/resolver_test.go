package metadata

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"songstorage/internal/logging"
	"songstorage/pkg/models"
)

type stubReader struct {
	tags  Tags
	err   error
	calls int
}

func (s *stubReader) Read(path string) (Tags, error) {
	s.calls++
	return s.tags, s.err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	return path
}

func assertNoEmptyFields(t *testing.T, song models.Song) {
	t.Helper()
	for _, f := range models.MetadataFields {
		if song.Get(f) == "" {
			t.Errorf("Field %s is empty", f)
		}
	}
}

func TestResolveUserFields(t *testing.T) {
	reader := &stubReader{}
	r := NewResolver(reader, false, logging.Discard())

	song, err := r.Resolve("/nowhere/song.mp3", &models.UserFields{Title: "A", Year: "1999"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if reader.calls != 0 {
		t.Errorf("Expected no file inspection, got %d reads", reader.calls)
	}
	if song.FileName != "song.mp3" {
		t.Errorf("Expected file name song.mp3, got %s", song.FileName)
	}
	if song.Title != "A" || song.Year != "1999" {
		t.Errorf("Expected user values, got title=%s year=%s", song.Title, song.Year)
	}
	if song.Artist != models.UnknownArtist || song.Album != models.UnknownAlbum || song.Genre != models.UnknownGenre {
		t.Errorf("Expected sentinels for unset fields, got %+v", song)
	}
}

func TestResolveFromTags(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "track.flac", []byte("data"))

	reader := &stubReader{tags: Tags{
		models.FieldTitle:  "Blue",
		models.FieldArtist: "   ",
		models.FieldAlbum:  "Kind of Blue",
		models.FieldYear:   "1959",
	}}
	r := NewResolver(reader, false, logging.Discard())

	song, err := r.Resolve(path, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if song.Title != "Blue" || song.Album != "Kind of Blue" || song.Year != "1959" {
		t.Errorf("Expected extracted values, got %+v", song)
	}
	if song.Artist != models.UnknownArtist {
		t.Errorf("Expected whitespace artist to fall back to sentinel, got %q", song.Artist)
	}
	if song.Genre != models.UnknownGenre {
		t.Errorf("Expected missing genre to fall back to sentinel, got %q", song.Genre)
	}
	assertNoEmptyFields(t, song)
}

func TestResolveReaderFailureFallsBack(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.mp3", []byte("this is not an audio file"))

	r := NewResolver(&stubReader{err: errors.New("no tags")}, false, logging.Discard())
	song, err := r.Resolve(path, nil)
	if err != nil {
		t.Fatalf("Expected fallback instead of error, got %v", err)
	}
	want := models.NewUnknownSong(path)
	if song != want {
		t.Errorf("Expected all-sentinel record %+v, got %+v", want, song)
	}
}

func TestResolveRealReaderOnInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "invalid.mp3", []byte("this is not an audio file"))

	r := NewResolver(FileTagReader{}, false, logging.Discard())
	song, err := r.Resolve(path, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if song.Title != models.UnknownTitle || song.Artist != models.UnknownArtist {
		t.Errorf("Expected placeholders, got %+v", song)
	}
}

func TestResolveMissingSource(t *testing.T) {
	r := NewResolver(&stubReader{}, false, logging.Discard())

	for _, path := range []string{"", "/nonexistent/file.mp3"} {
		if _, err := r.Resolve(path, nil); !errors.Is(err, ErrNoSource) {
			t.Errorf("Resolve(%q): expected ErrNoSource, got %v", path, err)
		}
	}
}

func TestIsAudioFile(t *testing.T) {
	formats := []string{".mp3", ".flac", ".wav"}
	testCases := []struct {
		filename string
		expected bool
	}{
		{"song.mp3", true},
		{"song.MP3", true},
		{"song.flac", true},
		{"song.txt", false},
		{"song", false},
		{"", false},
	}

	for _, tc := range testCases {
		if got := IsAudioFile(tc.filename, formats); got != tc.expected {
			t.Errorf("IsAudioFile(%s): expected %v, got %v", tc.filename, tc.expected, got)
		}
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(&stubReader{}, true, logging.Discard())

	t.Run("unsupported format keeps size", func(t *testing.T) {
		path := writeFile(t, dir, "notes.txt", []byte("12345"))
		info := r.Probe(path)
		if info.Size != 5 || info.Duration != 0 {
			t.Errorf("Expected size 5 and no duration, got %+v", info)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		info := r.Probe(filepath.Join(dir, "gone.mp3"))
		if info != (AudioInfo{}) {
			t.Errorf("Expected zero info, got %+v", info)
		}
	})

	t.Run("wav header", func(t *testing.T) {
		path := writeFile(t, dir, "tone.wav", pcmWAV(8000, 16000))
		info := r.Probe(path)
		if info.Duration != 1 {
			t.Errorf("Expected 1 second, got %d", info.Duration)
		}
	})
}

// pcmWAV builds a mono 16-bit PCM file with dataSize bytes of silence.
func pcmWAV(sampleRate, dataSize uint32) []byte {
	buf := make([]byte, 44+dataSize)
	copy(buf[0:], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:], 36+dataSize)
	copy(buf[8:], "WAVE")
	copy(buf[12:], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:], 16)
	binary.LittleEndian.PutUint16(buf[20:], 1)
	binary.LittleEndian.PutUint16(buf[22:], 1)
	binary.LittleEndian.PutUint32(buf[24:], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:], sampleRate*2)
	binary.LittleEndian.PutUint16(buf[32:], 2)
	binary.LittleEndian.PutUint16(buf[34:], 16)
	copy(buf[36:], "data")
	binary.LittleEndian.PutUint32(buf[40:], dataSize)
	return buf
}
