// Package filesystem watches a directory for lease files and reports them
// to the ingestion service.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/leasequery/internal/core/domain"
	"github.com/custodia-labs/leasequery/internal/core/ports/driven"
	"github.com/custodia-labs/leasequery/internal/logger"
)

// DefaultEventBuffer is the capacity of the event channel returned by Watch.
const DefaultEventBuffer = 100

// Sink receives detected files. driving.IngestionService satisfies it.
type Sink interface {
	OnFileDetected(ctx context.Context, event domain.FileEvent) domain.RegisterOutcome
}

// Options configures a Watcher.
type Options struct {
	// ScanExisting reports files already in the directory when watching starts.
	ScanExisting bool

	// Recursive also watches subdirectories, including ones created later.
	Recursive bool

	// Exclude lists directories whose contents are never reported,
	// such as the processed-files directory.
	Exclude []string

	// OnRemoved is called with the path of a deleted or renamed file.
	OnRemoved func(path string)
}

// Watcher reports lease files appearing in a directory.
type Watcher struct {
	root    string
	loaders driven.LoaderRegistry
	opts    Options
	now     func() time.Time

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a watcher for root. Only files loaders supports are reported;
// a nil registry reports every regular file.
func New(root string, loaders driven.LoaderRegistry, opts Options) *Watcher {
	return &Watcher{
		root:    root,
		loaders: loaders,
		opts:    opts,
		now:     time.Now,
	}
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Validate checks that the root exists and is a directory.
func (w *Watcher) Validate() error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", w.root)
	}
	return nil
}

// Watch starts watching and returns a channel of file events.
// The channel is closed when ctx is cancelled or Close is called.
func (w *Watcher) Watch(ctx context.Context) (<-chan domain.FileEvent, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.addDirs(fsw, w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w.mu.Lock()
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
	w.watcher = fsw
	w.mu.Unlock()

	var existing []domain.FileEvent
	if w.opts.ScanExisting {
		existing = w.scan()
	}

	events := make(chan domain.FileEvent, DefaultEventBuffer)
	go w.loop(ctx, fsw, existing, events)

	logger.Info("Watching %s for lease files", w.root)
	return events, nil
}

// Run watches the directory and forwards created and updated files to sink
// until ctx is cancelled. Deletions go to Options.OnRemoved.
func (w *Watcher) Run(ctx context.Context, sink Sink) error {
	if sink == nil {
		return errors.New("watcher: nil sink")
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for event := range events {
		if event.Change == domain.ChangeDeleted {
			if w.opts.OnRemoved != nil {
				w.opts.OnRemoved(event.FilePath)
			}
			continue
		}
		sink.OnFileDetected(ctx, event)
	}
	return ctx.Err()
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, existing []domain.FileEvent, out chan<- domain.FileEvent) {
	defer close(out)
	defer func() { _ = fsw.Close() }()

	send := func(ev domain.FileEvent) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for _, ev := range existing {
		if !send(ev) {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case fsEvent, ok := <-fsw.Events:
			if !ok {
				return
			}
			if w.opts.Recursive && fsEvent.Has(fsnotify.Create) {
				w.watchNewDir(fsw, fsEvent.Name)
			}
			ev := w.handleFsEvent(fsEvent)
			if ev == nil {
				continue
			}
			logger.Debug("Watcher: %s %s", ev.Change, ev.FilePath)
			if !send(*ev) {
				return
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleFsEvent converts an fsnotify event into a FileEvent, or nil if the
// event is not of interest.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *domain.FileEvent {
	path := event.Name
	if !w.eligible(path) {
		return nil
	}

	var change domain.ChangeType
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		change = domain.ChangeDeleted
	case event.Has(fsnotify.Create):
		change = domain.ChangeCreated
	case event.Has(fsnotify.Write):
		change = domain.ChangeUpdated
	default:
		return nil
	}

	if change != domain.ChangeDeleted {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
	}

	return &domain.FileEvent{
		FilePath:   path,
		FileName:   filepath.Base(path),
		DetectedAt: w.now(),
		Change:     change,
	}
}

// eligible applies the name-based filters shared by events and scans.
func (w *Watcher) eligible(path string) bool {
	name := filepath.Base(path)
	if isHidden(name) || isOfficeLockFile(name) {
		return false
	}
	if w.excluded(path) {
		return false
	}
	if w.loaders != nil && !w.loaders.Supports(path) {
		return false
	}
	return true
}

func (w *Watcher) excluded(path string) bool {
	for _, dir := range w.opts.Exclude {
		if dir == "" {
			continue
		}
		rel, err := filepath.Rel(dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// scan lists supported files already present under root.
func (w *Watcher) scan() []domain.FileEvent {
	var found []domain.FileEvent
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Scan %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path == w.root {
				return nil
			}
			if !w.opts.Recursive || isHidden(d.Name()) || w.excluded(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !w.eligible(path) {
			return nil
		}
		found = append(found, domain.FileEvent{
			FilePath:   path,
			FileName:   d.Name(),
			DetectedAt: w.now(),
			Change:     domain.ChangeCreated,
		})
		return nil
	})
	if err != nil {
		logger.Warn("Scan %s: %v", w.root, err)
	}
	logger.Debug("Found %d existing files in %s", len(found), w.root)
	return found
}

// addDirs registers root, and its subdirectories when recursive.
func (w *Watcher) addDirs(fsw *fsnotify.Watcher, root string) error {
	if err := fsw.Add(root); err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if !w.opts.Recursive {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if isHidden(d.Name()) || w.excluded(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			logger.Warn("Watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) watchNewDir(fsw *fsnotify.Watcher, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if isHidden(filepath.Base(path)) || w.excluded(path) {
		return
	}
	if err := w.addDirs(fsw, path); err != nil {
		logger.Warn("%v", err)
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isOfficeLockFile matches the "~$name.docx" owner files Word writes.
func isOfficeLockFile(name string) bool {
	return strings.HasPrefix(name, "~$")
}
