package watch

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
)

// ArchEnqueuer schedules an Architecture-Tracker task for ev, if the
// project owning it carries an ArchitectureRecord.
// Wired by internal/app to the Architecture Tracker's background task.
type ArchEnqueuer func(project models.Project, ev models.Event)

// Supervisor owns the set of live Watchers and performs the atomic
// two-phase swap needed to apply configuration changes without dropping
// notifications: start the replacement Watcher, then stop the old one
// once the new one is live. Generalized from a single config watcher to
// N per-project file-system watchers.
type Supervisor struct {
	store        *store.Store
	broadcaster  publisher
	globalIgnore []string
	maxBytes     int64
	debounce     time.Duration
	logger       *slog.Logger
	archEnqueue  ArchEnqueuer

	mu       sync.RWMutex
	running  map[int64]*runningWatcher
	projLock map[int64]*sync.Mutex // per-project swap serialization
}

type runningWatcher struct {
	watcher *Watcher
	done    chan struct{}
}

// SupervisorConfig bundles the Supervisor's fixed dependencies.
type SupervisorConfig struct {
	Store        *store.Store
	Broadcaster  publisher
	GlobalIgnore []string
	MaxBytes     int64
	Debounce     time.Duration
	ArchEnqueue  ArchEnqueuer
	Logger       *slog.Logger
}

// NewSupervisor builds an idle Supervisor; call Boot to start Watchers
// for every active project.
func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		store:        cfg.Store,
		broadcaster:  cfg.Broadcaster,
		globalIgnore: cfg.GlobalIgnore,
		maxBytes:     cfg.MaxBytes,
		debounce:     cfg.Debounce,
		archEnqueue:  cfg.ArchEnqueue,
		logger:       logger,
		running:      make(map[int64]*runningWatcher),
		projLock:     make(map[int64]*sync.Mutex),
	}
}

// Boot lists active projects and starts one Watcher each.
func (s *Supervisor) Boot() error {
	active := true
	projects, err := s.store.ListProjects(&active)
	if err != nil {
		return fmt.Errorf("list active projects: %w", err)
	}
	for _, p := range projects {
		if err := s.startLocked(p.Project); err != nil {
			s.logger.Error("failed to start watcher at boot", "project_id", p.ID, "error", err)
			s.recordStartFailure(p.ID, err)
		}
	}
	return nil
}

// StartProject starts a Watcher for a newly created, active project.
func (s *Supervisor) StartProject(p models.Project) error {
	lock := s.projectLock(p.ID)
	lock.Lock()
	defer lock.Unlock()
	if err := s.startLocked(p); err != nil {
		s.recordStartFailure(p.ID, err)
		return err
	}
	return nil
}

// Swap performs the two-phase restart: construct a
// new Watcher from the project's current configuration, start it, then
// tear down and join the old one. Serialized per project so no two
// Watchers for the same project are ever live simultaneously (invariant iv).
func (s *Supervisor) Swap(projectID int64) error {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	project, err := s.store.ReadProject(projectID)
	if err != nil {
		return fmt.Errorf("read project for swap: %w", err)
	}

	s.mu.RLock()
	old := s.running[projectID]
	s.mu.RUnlock()

	if !project.Active {
		if old != nil {
			s.teardown(projectID, old)
		}
		return nil
	}

	if err := s.startLocked(project); err != nil {
		// Old watcher, if any, keeps running: the swap failed, it is not torn down.
		return fmt.Errorf("start replacement watcher: %w", err)
	}
	if old != nil {
		s.teardown(projectID, old)
	}
	return nil
}

// Remove tears down and joins the Watcher for projectID, if any.
func (s *Supervisor) Remove(projectID int64) {
	lock := s.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	old := s.running[projectID]
	s.mu.RUnlock()
	if old != nil {
		s.teardown(projectID, old)
	}
}

// StopAll tears down every running Watcher; used on process shutdown.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	all := s.running
	s.running = make(map[int64]*runningWatcher)
	s.mu.Unlock()

	for id, rw := range all {
		close(rw.done)
		rw.watcher.Stop()
		s.logger.Info("watcher stopped", "project_id", id)
	}
}

// startLocked constructs and starts a new Watcher for p, registers it,
// and spawns its failure-observer goroutine. Caller must hold p's
// per-project lock.
func (s *Supervisor) startLocked(p models.Project) error {
	w := New(Config{
		ProjectID:      p.ID,
		Root:           p.Path,
		GlobalIgnore:   s.globalIgnore,
		ProjectIgnore:  p.IgnorePatterns,
		MaxBytes:       s.maxBytes,
		DebounceWindow: s.debounce,
		Store:          s.store,
		Broadcaster:    s.broadcaster,
		Logger:         s.logger,
		OnEvent: func(ev models.Event) {
			if s.archEnqueue == nil {
				return
			}
			project, err := s.store.ReadProject(p.ID)
			if err != nil || project.Architecture == nil {
				return
			}
			s.archEnqueue(project, ev)
		},
	})

	if err := w.Start(); err != nil {
		return err
	}

	rw := &runningWatcher{watcher: w, done: make(chan struct{})}
	s.mu.Lock()
	s.running[p.ID] = rw
	s.mu.Unlock()

	go s.observeFailure(p.ID, rw)
	return nil
}

// observeFailure watches for an unrecoverable notification-subscription
// failure.
func (s *Supervisor) observeFailure(projectID int64, rw *runningWatcher) {
	select {
	case <-rw.done:
		return
	case err, ok := <-rw.watcher.Err():
		if !ok {
			return
		}
		s.mu.Lock()
		if s.running[projectID] == rw {
			delete(s.running, projectID)
		}
		s.mu.Unlock()
		s.recordStartFailure(projectID, err)
	}
}

func (s *Supervisor) recordStartFailure(projectID int64, cause error) {
	id := projectID
	_, err := s.store.AppendEvent(models.KindError, &id, "", models.ErrorPayload{
		Message: fmt.Sprintf("watcher failed: %v", cause),
	})
	if err != nil {
		s.logger.Error("failed to record watcher failure event", "project_id", projectID, "error", err)
	}
}

func (s *Supervisor) teardown(projectID int64, rw *runningWatcher) {
	s.mu.Lock()
	if s.running[projectID] == rw {
		delete(s.running, projectID)
	}
	s.mu.Unlock()
	close(rw.done)
	rw.watcher.Stop()
}

func (s *Supervisor) projectLock(projectID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.projLock[projectID]
	if !ok {
		lock = &sync.Mutex{}
		s.projLock[projectID] = lock
	}
	return lock
}
