package catalog

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"songstorage/internal/index"
	"songstorage/pkg/models"

	"github.com/sirupsen/logrus"
)

// ArchiveResult describes a written archive.
type ArchiveResult struct {
	Path    string
	Added   []string
	Skipped []string
}

// Archive zips the stored files of every record matching criteria into
// outputName inside the archive directory. Records whose file is missing are
// skipped. format is not accepted as a criterion.
func (e *Engine) Archive(ctx context.Context, outputName string, criteria models.Criteria) (ArchiveResult, error) {
	const op = "archive"
	var result ArchiveResult

	name, err := archiveFileName(outputName)
	if err != nil {
		return result, newError(op, ErrInvalidInput, err)
	}
	if v := criteria[models.FieldFormat]; v != "" {
		return result, newError(op, ErrInvalidInput, errors.New("format is not an archive criterion"))
	}

	filter, _ := splitCriteria(criteria)
	songs, err := e.index.Find(ctx, filter)
	if err != nil {
		if errors.Is(err, index.ErrUnknownField) {
			return result, newError(op, ErrInvalidInput, err)
		}
		return result, newError(op, ErrIndexFailure, err)
	}
	if len(songs) == 0 {
		return result, newError(op, ErrNotFound, errors.New("no records match the criteria"))
	}

	if err := os.MkdirAll(e.archiveDir, 0755); err != nil {
		return result, newError(op, ErrArchiveFailure, fmt.Errorf("failed to create archive directory: %w", err))
	}

	result.Path = filepath.Join(e.archiveDir, name)
	added, skipped, err := e.writeArchive(result.Path, songs)
	if err != nil {
		return ArchiveResult{}, newError(op, ErrArchiveFailure, err)
	}
	result.Added = added
	result.Skipped = skipped

	e.logger.WithFields(logrus.Fields{
		"archive": result.Path,
		"added":   len(added),
		"skipped": len(skipped),
	}).Info("Archive created")
	return result, nil
}

// archiveFileName validates a bare output name and appends .zip when it has
// no extension.
func archiveFileName(outputName string) (string, error) {
	if outputName == "" || outputName == "." || outputName == ".." {
		return "", fmt.Errorf("invalid archive name %q", outputName)
	}
	if filepath.Base(outputName) != outputName || filepath.IsAbs(outputName) {
		return "", fmt.Errorf("archive name %q must not contain a directory", outputName)
	}
	if filepath.Ext(outputName) == "" {
		outputName += ".zip"
	}
	return outputName, nil
}

// writeArchive creates path and fills it. A partially written archive is
// removed; a path it failed to create is left alone.
func (e *Engine) writeArchive(path string, songs []models.Song) (added, skipped []string, err error) {
	out, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(path)
		}
	}()

	zw := zip.NewWriter(out)
	seen := make(map[string]bool, len(songs))
	for _, song := range songs {
		if seen[song.FileName] {
			continue
		}
		seen[song.FileName] = true

		if !e.store.Exists(song.FileName) {
			e.logger.WithField("file_name", song.FileName).Warn("Stored file missing, skipping from archive")
			skipped = append(skipped, song.FileName)
			continue
		}
		if err := addToArchive(zw, e.store.ResolvePath(song.FileName)); err != nil {
			zw.Close()
			out.Close()
			return nil, nil, fmt.Errorf("failed to add %s: %w", song.FileName, err)
		}
		added = append(added, song.FileName)
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return nil, nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, nil, fmt.Errorf("failed to close archive: %w", err)
	}
	return added, skipped, nil
}

func addToArchive(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
