package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"songstorage/internal/index"
	"songstorage/internal/logging"
	"songstorage/internal/metadata"
	"songstorage/internal/store"
	"songstorage/pkg/models"
)

type fakeReader struct {
	tags metadata.Tags
	err  error
}

func (f fakeReader) Read(path string) (metadata.Tags, error) {
	return f.tags, f.err
}

type fakeWriter struct {
	err   error
	paths []string
}

func (f *fakeWriter) Write(path string, song models.Song) error {
	f.paths = append(f.paths, path)
	return f.err
}

// failingIndex wraps a real index and fails selected operations.
type failingIndex struct {
	index.Index
	failInsert bool
	insertErr  error
	failUpdate bool
	failDelete bool
}

var errBackendDown = errors.New("backend unavailable")

func (f *failingIndex) Insert(ctx context.Context, song models.Song) (string, error) {
	if f.failInsert {
		return "", errBackendDown
	}
	if f.insertErr != nil {
		return "", f.insertErr
	}
	return f.Index.Insert(ctx, song)
}

func (f *failingIndex) UpdateFields(ctx context.Context, id string, fields index.Fields) error {
	if f.failUpdate {
		return errBackendDown
	}
	return f.Index.UpdateFields(ctx, id, fields)
}

func (f *failingIndex) Delete(ctx context.Context, id string) error {
	if f.failDelete {
		return errBackendDown
	}
	return f.Index.Delete(ctx, id)
}

type testEnv struct {
	engine *Engine
	store  *store.Store
	index  *failingIndex
	writer *fakeWriter
	srcDir string
}

func newTestEnv(t *testing.T, reader metadata.TagReader) *testEnv {
	t.Helper()
	dir := t.TempDir()
	logger := logging.Discard()

	idx, err := index.NewSQLiteIndex(filepath.Join(dir, "test.db"), logger)
	if err != nil {
		t.Fatalf("Failed to create index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	if reader == nil {
		reader = fakeReader{err: errors.New("no tags")}
	}
	root := filepath.Join(dir, "Storage")
	env := &testEnv{
		store:  store.New(root, logger),
		index:  &failingIndex{Index: idx},
		writer: &fakeWriter{},
		srcDir: filepath.Join(dir, "src"),
	}
	env.engine = NewEngine(env.store, env.index, metadata.NewResolver(reader, false, logger),
		env.writer, filepath.Join(root, "Archive"), logger)

	if err := os.MkdirAll(env.srcDir, 0755); err != nil {
		t.Fatalf("Failed to create source dir: %v", err)
	}
	return env
}

func (env *testEnv) source(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(env.srcDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write source %s: %v", name, err)
	}
	return path
}

func (env *testEnv) add(t *testing.T, name string, user *models.UserFields) AddResult {
	t.Helper()
	res, err := env.engine.Add(context.Background(), env.source(t, name, "audio:"+name), user)
	if err != nil {
		t.Fatalf("Add(%s) failed: %v", name, err)
	}
	return res
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("Expected %v, got %v", kind, err)
	}
}

func TestCatalogScenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	res := env.add(t, "song.mp3", &models.UserFields{Title: "A"})
	if res.Song.Title != "A" || res.Song.Artist != models.UnknownArtist {
		t.Errorf("Unexpected metadata: %+v", res.Song)
	}
	if res.ID == "" {
		t.Error("Expected an id")
	}
	if !env.store.Exists("song.mp3") {
		t.Error("Expected song.mp3 in the store")
	}

	// A second file with the same base name is rejected before the store is touched.
	otherDir := t.TempDir()
	dup := filepath.Join(otherDir, "song.mp3")
	if err := os.WriteFile(dup, []byte("different"), 0644); err != nil {
		t.Fatalf("Failed to write duplicate: %v", err)
	}
	_, err := env.engine.Add(ctx, dup, &models.UserFields{Title: "B"})
	assertKind(t, err, ErrDuplicateFileName)
	stored, _ := os.ReadFile(env.store.ResolvePath("song.mp3"))
	if string(stored) != "audio:song.mp3" {
		t.Errorf("Store content changed by rejected add: %q", stored)
	}

	matches, err := env.engine.FindByTitle(ctx, "A")
	if err != nil {
		t.Fatalf("FindByTitle failed: %v", err)
	}
	song, err := Select(matches, 1)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	del, err := env.engine.Delete(ctx, song, true)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !del.FileRemoved {
		t.Error("Expected the stored file to be removed")
	}
	if env.store.Exists("song.mp3") {
		t.Error("song.mp3 still in the store")
	}
	if _, err := env.engine.FindByTitle(ctx, "A"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected record to be gone, got %v", err)
	}

	env.add(t, "x.mp3", nil)
	found, err := env.engine.Search(ctx, models.Criteria{models.FieldArtist: models.UnknownArtist})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(found) != 1 || found[0].FileName != "x.mp3" {
		t.Errorf("Expected only x.mp3, got %+v", found)
	}
}

func TestAddInvalidInput(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	_, err := env.engine.Add(ctx, "", nil)
	assertKind(t, err, ErrInvalidInput)

	_, err = env.engine.Add(ctx, filepath.Join(env.srcDir, "missing.mp3"), nil)
	assertKind(t, err, ErrInvalidInput)

	files, _ := env.store.List()
	if len(files) != 0 {
		t.Errorf("Expected empty store, got %v", files)
	}
}

func TestAddMissingSourceWithUserFields(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)

	_, err := env.engine.Add(ctx, filepath.Join(env.srcDir, "missing.mp3"), &models.UserFields{Title: "T"})
	assertKind(t, err, ErrIOFailure)

	songs, err := env.engine.Search(ctx, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(songs) != 0 {
		t.Errorf("Expected no records after failed copy, got %d", len(songs))
	}
}

func TestAddFromTags(t *testing.T) {
	env := newTestEnv(t, fakeReader{tags: metadata.Tags{
		models.FieldTitle: "Blue in Green",
		models.FieldYear:  "1959",
		models.FieldGenre: "   ",
	}})

	res := env.add(t, "blue.flac", nil)
	want := map[models.Field]string{
		models.FieldTitle:  "Blue in Green",
		models.FieldArtist: models.UnknownArtist,
		models.FieldAlbum:  models.UnknownAlbum,
		models.FieldYear:   "1959",
		models.FieldGenre:  models.UnknownGenre,
	}
	for f, v := range want {
		if got := res.Song.Get(f); got != v {
			t.Errorf("%s: expected %q, got %q", f, v, got)
		}
	}
	if res.Song.FileSize != int64(len("audio:blue.flac")) {
		t.Errorf("Expected probed file size, got %d", res.Song.FileSize)
	}
}

func TestAddIndexFailureLeavesOrphan(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.index.failInsert = true

	_, err := env.engine.Add(ctx, env.source(t, "orphan.mp3", "data"), &models.UserFields{})
	assertKind(t, err, ErrIndexFailure)
	if len(Warnings(err)) == 0 {
		t.Error("Expected an inconsistency warning")
	}
	if !env.store.Exists("orphan.mp3") {
		t.Error("Expected the copied file to remain")
	}

	report, err := env.engine.Check(ctx)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(report.Orphans) != 1 || report.Orphans[0] != "orphan.mp3" {
		t.Errorf("Expected orphan.mp3 to be reported, got %+v", report)
	}
}

func TestSelect(t *testing.T) {
	matches := []models.Song{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	tests := []struct {
		selection int
		wantID    string
		wantErr   bool
	}{
		{1, "1", false},
		{3, "3", false},
		{0, "", true},
		{4, "", true},
		{-1, "", true},
	}
	for _, tt := range tests {
		got, err := Select(matches, tt.selection)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidSelection) {
				t.Errorf("Select(%d): expected ErrInvalidSelection, got %v", tt.selection, err)
			}
			continue
		}
		if err != nil || got.ID != tt.wantID {
			t.Errorf("Select(%d) = %+v, %v", tt.selection, got, err)
		}
	}
}

func TestFindByTitleOrdersMatches(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "one.mp3", &models.UserFields{Title: "Same"})
	env.add(t, "two.mp3", &models.UserFields{Title: "Other"})
	env.add(t, "three.mp3", &models.UserFields{Title: "Same"})

	matches, err := env.engine.FindByTitle(context.Background(), "Same")
	if err != nil {
		t.Fatalf("FindByTitle failed: %v", err)
	}
	if len(matches) != 2 || matches[0].FileName != "one.mp3" || matches[1].FileName != "three.mp3" {
		t.Errorf("Unexpected matches: %+v", matches)
	}

	_, err = env.engine.FindByTitle(context.Background(), "Nope")
	assertKind(t, err, ErrNotFound)
}

func TestFindByFileName(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.add(t, "f.mp3", &models.UserFields{Title: "F"})

	song, err := env.engine.FindByFileName(context.Background(), "f.mp3")
	if err != nil {
		t.Fatalf("FindByFileName failed: %v", err)
	}
	if song.ID != res.ID {
		t.Errorf("Expected id %s, got %s", res.ID, song.ID)
	}
	_, err = env.engine.FindByFileName(context.Background(), "g.mp3")
	assertKind(t, err, ErrNotFound)
}

func TestDeleteDeclined(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.add(t, "keep.mp3", &models.UserFields{Title: "Keep"})

	del, err := env.engine.Delete(context.Background(), res.Song, false)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !del.Declined {
		t.Error("Expected a declined outcome")
	}
	if !env.store.Exists("keep.mp3") {
		t.Error("Declined delete removed the file")
	}
	if _, err := env.engine.FindByTitle(context.Background(), "Keep"); err != nil {
		t.Errorf("Declined delete removed the record: %v", err)
	}
}

func TestDeleteToleratesMissingFile(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	res := env.add(t, "gone.mp3", &models.UserFields{Title: "Gone"})
	os.Remove(env.store.ResolvePath("gone.mp3"))

	report, err := env.engine.Check(ctx)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(report.Missing) != 1 || report.Missing[0].FileName != "gone.mp3" {
		t.Errorf("Expected gone.mp3 to be reported missing, got %+v", report)
	}

	del, err := env.engine.Delete(ctx, res.Song, true)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if del.FileRemoved {
		t.Error("Expected FileRemoved to be false")
	}

	report, err = env.engine.Check(ctx)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.Consistent() {
		t.Errorf("Expected consistent catalog, got %+v", report)
	}
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.add(t, "a.mp3", &models.UserFields{Title: "Dup"})
	b := env.add(t, "b.mp3", &models.UserFields{Title: "Dup"})

	if _, err := env.engine.Delete(ctx, b.Song, true); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	remaining, err := env.engine.FindByTitle(ctx, "Dup")
	if err != nil {
		t.Fatalf("FindByTitle failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].FileName != "a.mp3" {
		t.Errorf("Expected only a.mp3 to remain, got %+v", remaining)
	}
	if !env.store.Exists("a.mp3") {
		t.Error("a.mp3 should still be stored")
	}
}

func TestDeleteIndexFailureWarns(t *testing.T) {
	env := newTestEnv(t, nil)
	res := env.add(t, "half.mp3", &models.UserFields{Title: "Half"})
	env.index.failDelete = true

	_, err := env.engine.Delete(context.Background(), res.Song, true)
	assertKind(t, err, ErrIndexFailure)
	if len(Warnings(err)) != 1 {
		t.Errorf("Expected one warning, got %v", Warnings(err))
	}
}

func TestCheckConsistent(t *testing.T) {
	env := newTestEnv(t, nil)
	env.add(t, "ok.mp3", &models.UserFields{Title: "Ok"})

	report, err := env.engine.Check(context.Background())
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !report.Consistent() {
		t.Errorf("Expected consistent catalog, got %+v", report)
	}
}

func TestAddDuplicateRejectedByIndex(t *testing.T) {
	env := newTestEnv(t, nil)
	env.index.insertErr = fmt.Errorf("%w: race.mp3", index.ErrDuplicate)

	_, err := env.engine.Add(context.Background(), env.source(t, "race.mp3", "data"), &models.UserFields{Title: "Race"})
	assertKind(t, err, ErrDuplicateFileName)
	if errors.Is(err, ErrIndexFailure) {
		t.Error("A duplicate rejected by the index is not an index failure")
	}
	warnings := Warnings(err)
	if len(warnings) != 1 || !strings.Contains(warnings[0], "overwritten") {
		t.Errorf("Expected an overwrite warning, got %v", warnings)
	}
}
