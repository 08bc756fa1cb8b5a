// Package store owns the managed on-disk copies of catalogued files.
package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
)

// LockFileName is the advisory lock kept at the store root.
const LockFileName = ".songstorage.lock"

// ErrLocked is returned by Lock when another process holds the store.
var ErrLocked = errors.New("content store is locked by another process")

// Store is a flat directory of managed files addressed by base name.
type Store struct {
	root   string
	lock   *flock.Flock
	logger *logrus.Logger
}

// New creates a store rooted at root. The directory is created on first Put.
func New(root string, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Store{
		root:   root,
		lock:   flock.New(filepath.Join(root, LockFileName)),
		logger: logger,
	}
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// ResolvePath joins the store root with a file name. It performs no I/O.
func (s *Store) ResolvePath(fileName string) string {
	return filepath.Join(s.root, fileName)
}

// Exists reports whether a regular file with that name is stored.
func (s *Store) Exists(fileName string) bool {
	info, err := os.Stat(s.ResolvePath(fileName))
	return err == nil && info.Mode().IsRegular()
}

// Put copies sourcePath into the store under its base name, overwriting any
// stale copy, and returns the stored path. A partial copy is removed.
func (s *Store) Put(sourcePath string) (string, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat source file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("source %s is not a regular file", sourcePath)
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create store directory: %w", err)
	}

	destPath := s.ResolvePath(filepath.Base(sourcePath))
	if destInfo, err := os.Stat(destPath); err == nil && os.SameFile(info, destInfo) {
		return destPath, nil
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		os.Remove(destPath)
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := dest.Close(); err != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to finalize file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"source":     sourcePath,
		"storedPath": destPath,
		"size":       info.Size(),
	}).Debug("Stored file")
	return destPath, nil
}

// Remove deletes a stored file. A missing file is not an error; the result
// reports whether something was deleted.
func (s *Store) Remove(fileName string) (bool, error) {
	err := os.Remove(s.ResolvePath(fileName))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to remove %s: %w", fileName, err)
}

// List returns the names of the regular files directly under the root,
// excluding the lock file. A missing root yields an empty list.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list store: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || entry.Name() == LockFileName {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Lock takes the advisory single-instance lock without blocking.
func (s *Store) Lock() error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Unlock releases the lock taken by Lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}
