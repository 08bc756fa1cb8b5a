package store

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// ChangeKind classifies an out-of-band change to the store directory.
type ChangeKind int

const (
	FileCreated ChangeKind = iota
	FileRemoved
)

func (k ChangeKind) String() string {
	if k == FileCreated {
		return "created"
	}
	return "removed"
}

// Change is a file appearing in or vanishing from the store root.
type Change struct {
	Kind     ChangeKind
	FileName string
}

// Watcher reports changes to managed files made behind the catalog's back.
type Watcher struct {
	store   *Store
	filter  func(name string) bool
	watcher *fsnotify.Watcher
	changes chan Change
	done    chan struct{}
	once    sync.Once
	logger  *logrus.Logger
}

// Watch starts watching the store root. Only names accepted by filter are
// reported; a nil filter accepts everything except hidden and temporary files.
func (s *Store) Watch(filter func(name string) bool) (*Watcher, error) {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(s.root); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		store:   s,
		filter:  filter,
		watcher: fw,
		changes: make(chan Change, 16),
		done:    make(chan struct{}),
		logger:  s.logger,
	}
	go w.run()

	s.logger.WithField("root", s.root).Info("Store watcher started")
	return w, nil
}

// Changes delivers detected changes until the watcher is closed.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Close stops the watcher and closes the Changes channel, even when nobody
// is reading it.
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.done) })
	return w.watcher.Close()
}

func (w *Watcher) run() {
	defer close(w.changes)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if change, ok := w.classify(event); ok {
				select {
				case w.changes <- change:
				case <-w.done:
					return
				}
			}

		case <-w.done:
			return

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Store watcher error")
		}
	}
}

func (w *Watcher) classify(event fsnotify.Event) (Change, bool) {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") {
		return Change{}, false
	}
	if w.filter != nil && !w.filter(name) {
		return Change{}, false
	}

	switch {
	case event.Has(fsnotify.Create):
		return Change{Kind: FileCreated, FileName: name}, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Change{Kind: FileRemoved, FileName: name}, true
	}
	return Change{}, false
}
