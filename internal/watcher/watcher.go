// Package watcher uploads files dropped into inbox directories, with fsnotify and debouncing.
package watcher

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
	"github.com/hyperjump/docqa/internal/config"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// FileFunc handles a settled file in the inbox of project.
type FileFunc func(project int64, path string)

// Watcher watches inbox directories and hands settled files to a FileFunc.
type Watcher struct {
	inboxes     []config.Inbox
	extensions  []string
	recursive   bool
	onFile      FileFunc
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	inboxPaths  map[string][]string // inbox directory -> watched directories under it
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for watch events.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must stay quiet before it is handled.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRecursive also watches subdirectories of each inbox.
func WithRecursive(recursive bool) WatcherOption {
	return func(w *Watcher) { w.recursive = recursive }
}

// NewWatcher creates a watcher over inboxes. extensions filter which files are handled (empty = all);
// hidden files are always skipped.
func NewWatcher(inboxes []config.Inbox, extensions []string, onFile FileFunc, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		inboxes:     append([]config.Inbox(nil), inboxes...),
		extensions:  extensions,
		recursive:   true,
		onFile:      onFile,
		debounce:    defaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		inboxPaths:  make(map[string][]string),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.watcher = watcher
	w.started = true
	w.logger.Debug("watcher starting", zap.Int("inboxes", len(w.inboxes)), zap.Strings("extensions", w.extensions))
	for i, in := range w.inboxes {
		abs, err := filepath.Abs(in.Directory)
		if err == nil {
			w.inboxes[i].Directory = abs
			err = w.addInboxLocked(abs)
		}
		if err != nil {
			_ = w.watcher.Close()
			w.watcher = nil
			w.started = false
			w.mu.Unlock()
			return fmt.Errorf("failed to watch inbox %s: %w", in.Directory, err)
		}
	}
	events, errs := w.watcher.Events, w.watcher.Errors
	w.mu.Unlock()
	go w.run(ctx, events, errs)
	return nil
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	project, ok := w.projectFor(path)
	if !ok {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			w.handleNewDirectory(project, path)
			return
		}
		if w.accept(path) {
			w.debounceFile(project, path)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// The uploaded copy is kept; only a pending upload is dropped.
		w.cancelDebounce(path)
	}
}

// handleNewDirectory watches a directory created or moved into an inbox and uploads its files.
func (w *Watcher) handleNewDirectory(project int64, dirPath string) {
	w.mu.Lock()
	recursive := w.recursive
	watcher := w.watcher
	w.mu.Unlock()
	if watcher == nil || !recursive {
		return
	}
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				w.logger.Warn("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			}
		}
		return nil
	})
	w.syncDirectory(project, dirPath)
}

// projectFor returns the project of the innermost inbox containing path.
func (w *Watcher) projectFor(path string) (int64, bool) {
	w.mu.Lock()
	inboxes := append([]config.Inbox(nil), w.inboxes...)
	w.mu.Unlock()
	clean := filepath.Clean(path)
	var (
		project int64
		best    = -1
	)
	for _, in := range inboxes {
		dir := filepath.Clean(in.Directory)
		if (dir == clean || inDir(dir, clean)) && len(dir) > best {
			project, best = in.Project, len(dir)
		}
	}
	return project, best >= 0
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) accept(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return matchExtension(path, w.extensions)
}

func matchExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	if len(extensions) == 0 {
		return true
	}
	for _, e := range extensions {
		eNorm := strings.TrimPrefix(strings.ToLower(e), ".")
		extNorm := strings.TrimPrefix(strings.ToLower(ext), ".")
		if eNorm == extNorm {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceFile(project int64, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	t := time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.logger.Debug("inbox file settled", zap.Int64("project_id", project), zap.String("path", path))
		if w.onFile != nil {
			w.onFile(project, path)
		}
	})
	w.debounceMap[path] = t
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// AddInbox starts watching an inbox of project and optionally uploads the files already in it.
func (w *Watcher) AddInbox(project int64, dir string, syncExisting bool) error {
	if project <= 0 {
		return errors.New("inbox needs a positive project id")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return errors.New("watcher is not running")
	}
	for _, in := range w.inboxes {
		if filepath.Clean(in.Directory) == filepath.Clean(abs) {
			return nil
		}
	}
	if err := w.addInboxLocked(abs); err != nil {
		return err
	}
	w.inboxes = append(w.inboxes, config.Inbox{Project: project, Directory: abs})
	w.logger.Info("inbox added", zap.Int64("project_id", project), zap.String("path", abs))
	if syncExisting && w.onFile != nil {
		go w.syncDirectory(project, abs)
	}
	return nil
}

func (w *Watcher) addInboxLocked(dir string) error {
	dir = filepath.Clean(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	var paths []string
	if w.recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if err := w.watcher.Add(path); err != nil {
				return err
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return err
		}
	} else {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		paths = append(paths, dir)
	}
	w.inboxPaths[dir] = paths
	return nil
}

func (w *Watcher) syncDirectory(project int64, root string) {
	w.mu.Lock()
	onFile := w.onFile
	recursive := w.recursive
	w.mu.Unlock()
	w.logger.Debug("syncing inbox", zap.Int64("project_id", project), zap.String("root", root))
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if w.accept(path) && onFile != nil {
			onFile(project, path)
		}
		return nil
	})
}

// RemoveInbox stops watching dir. Assets already uploaded from it are kept.
func (w *Watcher) RemoveInbox(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	idx := -1
	for i, in := range w.inboxes {
		if filepath.Clean(in.Directory) == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	for _, p := range w.inboxPaths[abs] {
		_ = w.watcher.Remove(p)
	}
	delete(w.inboxPaths, abs)
	w.inboxes = append(w.inboxes[:idx], w.inboxes[idx+1:]...)
	w.logger.Info("inbox removed", zap.String("path", abs))
	return nil
}

// Inboxes returns a copy of the watched inboxes.
func (w *Watcher) Inboxes() []config.Inbox {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]config.Inbox(nil), w.inboxes...)
}

// SyncExistingFiles hands every file already present in each inbox to the FileFunc.
// Call this after Start to pick up files dropped while the server was down.
func (w *Watcher) SyncExistingFiles() {
	for _, in := range w.Inboxes() {
		w.syncDirectory(in.Project, in.Directory)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
