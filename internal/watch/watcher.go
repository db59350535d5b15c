// Package watch implements the per-project Watcher: it
// translates raw fsnotify notifications under a project's root into typed
// Events, consulting the ignore filter and the Baseline Cache, writing
// through the Store and notifying the Broadcaster. Built on
// github.com/fsnotify/fsnotify; fsnotify itself is not recursive, so the
// Watcher walks and Adds subdirectories itself as they appear, the same
// pattern used to watch a single file's directory and filter events down
// to one path.
package watch

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/anthropics/goclode/internal/baseline"
	"github.com/anthropics/goclode/internal/ignorematch"
	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/storeerr"
	"github.com/anthropics/goclode/internal/vcsutil"
)

// eventStore is the subset of *store.Store the Watcher needs.
type eventStore interface {
	AppendEvent(kind models.EventKind, projectID *int64, path string, payload any) (models.Event, error)
}

// publisher is the subset of *broadcast.Broadcaster the Watcher needs.
type publisher interface {
	Publish(envelope models.Envelope)
}

// Config constructs a Watcher for one project.
type Config struct {
	ProjectID      int64
	Root           string
	GlobalIgnore   []string
	ProjectIgnore  []string
	MaxBytes       int64
	DebounceWindow time.Duration
	Store          eventStore
	Broadcaster    publisher
	Logger         *slog.Logger
	// OnEvent is invoked after every successfully appended event, in
	// addition to the Broadcaster publish, so the caller (the Supervisor)
	// can enqueue an Architecture-Tracker task when appropriate.
	OnEvent func(models.Event)
}

// Watcher is one running file-watch instance for a single project root.
// One Watcher per active project; no two
// live Watchers coexist for the same project — enforced by the
// Supervisor, not by the Watcher itself.
type Watcher struct {
	projectID int64
	root      string
	ignore    *ignorematch.Matcher
	vcs       *vcsutil.Handle
	cache     *baseline.Cache
	store     eventStore
	broadcast publisher
	maxBytes  int64
	debounce  time.Duration
	onEvent   func(models.Event)
	log       *slog.Logger

	fsw    *fsnotify.Watcher
	cancel context.CancelFunc
	wg     sync.WaitGroup
	errCh  chan error

	dirsMu sync.Mutex
	dirs   map[string]struct{}

	pendingMu sync.Mutex
	pending   map[string]*time.Timer
}

// New builds a Watcher from cfg. It does not touch the filesystem until
// Start is called.
func New(cfg Config) *Watcher {
	root := filepath.Clean(cfg.Root)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}
	return &Watcher{
		projectID: cfg.ProjectID,
		root:      root,
		ignore:    ignorematch.New(cfg.GlobalIgnore, cfg.ProjectIgnore),
		vcs:       vcsutil.Open(root),
		cache:     baseline.New(root, vcsutil.Open(root)),
		store:     cfg.Store,
		broadcast: cfg.Broadcaster,
		maxBytes:  maxBytes,
		debounce:  cfg.DebounceWindow,
		onEvent:   cfg.OnEvent,
		log:       logger.With("project_id", cfg.ProjectID, "root", root),
		errCh:     make(chan error, 1),
		dirs:      make(map[string]struct{}),
		pending:   make(map[string]*time.Timer),
	}
}

// Start subscribes to the project root. It returns an error if the root
// cannot be watched at all (e.g. it does not exist) — the Supervisor
// treats this as a Watcher start failure and records an error Event
// rather than running the notification loop.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(w.root); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch root %s: %w", w.root, err)
	}
	w.fsw = fsw
	w.trackDir(w.root)
	w.addSubdirsRecursive(w.root)

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop unsubscribes and waits for the notification loop to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Err returns a channel that receives the error that caused the
// notification loop to exit, if any. Receives at most once.
func (w *Watcher) Err() <-chan error {
	return w.errCh
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleRaw(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher subscription failed", "error", err)
			select {
			case w.errCh <- err:
			default:
			}
			return
		}
	}
}

func (w *Watcher) handleRaw(ev fsnotify.Event) {
	relPath, ok := w.relPath(ev.Name)
	if !ok {
		return
	}
	if w.ignore.Ignored(relPath) {
		return
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		w.handleCreate(ev.Name, relPath)
	case ev.Op&fsnotify.Write != 0:
		w.handleWrite(ev.Name, relPath)
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.handleRemoval(ev.Name, relPath)
	}
}

func (w *Watcher) handleCreate(absPath, relPath string) {
	info, err := os.Stat(absPath)
	if err != nil {
		w.log.Warn("stat failed on create notification", "path", relPath, "error", err)
		return
	}
	if info.IsDir() {
		w.trackDir(absPath)
		w.addSubdirsRecursive(absPath)
		w.appendFolderEvent(relPath, models.KindFolderCreated, "created")
		return
	}
	w.dispatchContent(absPath, relPath, true)
}

func (w *Watcher) handleWrite(absPath, relPath string) {
	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		return
	}
	if w.debounce <= 0 {
		w.dispatchContent(absPath, relPath, false)
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if t, ok := w.pending[absPath]; ok {
		t.Stop()
	}
	w.pending[absPath] = time.AfterFunc(w.debounce, func() {
		w.pendingMu.Lock()
		delete(w.pending, absPath)
		w.pendingMu.Unlock()
		w.dispatchContent(absPath, relPath, false)
	})
}

func (w *Watcher) handleRemoval(absPath, relPath string) {
	w.dirsMu.Lock()
	_, wasDir := w.dirs[absPath]
	delete(w.dirs, absPath)
	w.dirsMu.Unlock()

	w.cache.Forget(absPath)

	if wasDir {
		w.appendFolderEvent(relPath, models.KindFolderDeleted, "deleted")
		return
	}
	ev, err := w.store.AppendEvent(models.KindFileDeleted, &w.projectID, relPath, models.DeletedPayload{Event: "deleted"})
	if err != nil {
		w.logAppendFailure("file_deleted", relPath, err)
		return
	}
	w.publish(ev)
}

// dispatchContent handles the "file created or modified" branch: it reads
// the new content, diffs it against the Baseline Cache, and appends the
// resulting file_change event.
func (w *Watcher) dispatchContent(absPath, relPath string, created bool) {
	info, err := os.Stat(absPath)
	if err != nil {
		return // read failed, drop silently
	}
	if info.Size() > w.maxBytes {
		return // exceeds cap, drop
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		w.log.Warn("read failed, dropping notification", "path", relPath, "error", err)
		return
	}

	prev, source := w.cache.Observe(absPath, relPath)
	if bytes.Equal(prev, data) {
		return // coalesce: no effective change
	}

	diff := baseline.UnifiedDiff(relPath, prev, data)
	w.cache.Update(absPath, data)

	eventType := "modified"
	if created {
		eventType = "created"
	}
	payload := models.FileChangePayload{
		Event:    eventType,
		Diff:     diff,
		SHA:      baseline.SHA256Hex(data),
		Size:     info.Size(),
		Baseline: source,
	}
	ev, err := w.store.AppendEvent(models.KindFileChange, &w.projectID, relPath, payload)
	if err != nil {
		w.logAppendFailure("file_change", relPath, err)
		return
	}
	w.publish(ev)
}

func (w *Watcher) appendFolderEvent(relPath string, kind models.EventKind, action string) {
	ev, err := w.store.AppendEvent(kind, &w.projectID, relPath, models.FolderPayload{Event: action, Type: "directory"})
	if err != nil {
		w.logAppendFailure(string(kind), relPath, err)
		return
	}
	w.publish(ev)
}

func (w *Watcher) publish(ev models.Event) {
	w.broadcast.Publish(ev.ToEnvelope())
	if w.onEvent != nil {
		w.onEvent(ev)
	}
}

func (w *Watcher) logAppendFailure(kind, path string, err error) {
	if storeerr.Is(err, storeerr.KindTransient) {
		w.log.Error("store append failed with a transient error; event not recorded", "kind", kind, "path", path, "error", err)
		return
	}
	w.log.Error("store append failed", "kind", kind, "path", path, "error", err)
}

// relPath resolves absPath relative to the project root, rejecting
// anything outside it.
func (w *Watcher) relPath(absPath string) (string, bool) {
	rel, err := filepath.Rel(w.root, absPath)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || strings.HasPrefix(rel, "../") || rel == ".." {
		return "", false
	}
	return rel, true
}

func (w *Watcher) trackDir(absPath string) {
	w.dirsMu.Lock()
	w.dirs[absPath] = struct{}{}
	w.dirsMu.Unlock()
}

// addSubdirsRecursive walks root and Adds every non-ignored subdirectory
// to the fsnotify watcher, since fsnotify does not recurse on its own.
// Per-subdirectory failures are logged and skipped, not fatal.
func (w *Watcher) addSubdirsRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root || !d.IsDir() {
			return nil
		}
		rel, ok := w.relPath(path)
		if !ok {
			return nil
		}
		if w.ignore.Ignored(rel) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn("failed to watch subdirectory", "path", rel, "error", err)
			return nil
		}
		w.trackDir(path)
		return nil
	})
}
