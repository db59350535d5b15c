package archtrack

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anthropics/goclode/internal/llmclient"
	"github.com/anthropics/goclode/internal/models"
)

// projectStore is the subset of *store.Store the Tracker needs.
type projectStore interface {
	ReadProject(id int64) (models.Project, error)
	UpdateArchitecture(id int64, arch *models.ArchitectureRecord) error
	AppendEvent(kind models.EventKind, projectID *int64, path string, payload any) (models.Event, error)
}

type publisher interface {
	Publish(envelope models.Envelope)
}

// Tracker owns the per-project critical section over ArchitectureRecord
// change logs.
type Tracker struct {
	store  projectStore
	bus    publisher
	llm    llmclient.Capability
	logger *slog.Logger

	mu       sync.Mutex
	projLock map[int64]*sync.Mutex
}

// Config wires a Tracker's dependencies.
type Config struct {
	Store       projectStore
	Broadcaster publisher
	LLM         llmclient.Capability
	Logger      *slog.Logger
}

// New builds a Tracker. A nil LLM falls back to llmclient.NoOp{}.
func New(cfg Config) *Tracker {
	llm := cfg.LLM
	if llm == nil {
		llm = llmclient.NoOp{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		store:    cfg.Store,
		bus:      cfg.Broadcaster,
		llm:      llm,
		logger:   logger,
		projLock: make(map[int64]*sync.Mutex),
	}
}

// ParseOnCreate parses project's architecture document (if it names one)
// and persists the resulting ArchitectureRecord. Called once on project
// creation.
func (t *Tracker) ParseOnCreate(project models.Project) error {
	if project.ArchitectureDocPath == "" {
		return nil
	}
	return t.Refresh(project)
}

// Refresh re-parses project's architecture document unconditionally,
// used by POST /projects/{id}/technical-doc/refresh. A failed parse
// leaves the previous ArchitectureRecord, if any, untouched.
func (t *Tracker) Refresh(project models.Project) error {
	arch, err := ParseArchitectureDocument(project.ArchitectureDocPath)
	if err != nil {
		return fmt.Errorf("parse architecture document: %w", err)
	}
	return t.store.UpdateArchitecture(project.ID, &arch)
}

// UpdateImpact runs the impact updater for one file_change event. Intended to run as a worker.Task scheduled by the Watcher
// Supervisor; failures are logged and never propagate back to the
// triggering file_change event.
func (t *Tracker) UpdateImpact(ctx context.Context, projectID int64, ev models.Event) {
	lock := t.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	project, err := t.store.ReadProject(projectID)
	if err != nil {
		t.logger.Error("archtrack: read project failed", "project_id", projectID, "error", err)
		return
	}
	if project.Architecture == nil {
		return
	}

	payload, _ := ev.DecodeFileChange()
	result, err := t.llm.SummarizeImpact(ctx, llmclient.ImpactRequest{
		ArchitectureSummary: project.Architecture.Overview,
		Path:                ev.Path,
		DiffExcerpt:         truncate(payload.Diff, 400),
	})
	if err != nil {
		t.logger.Warn("archtrack: impact summarization failed, change log unchanged", "project_id", projectID, "event_id", ev.ID, "error", err)
		return
	}

	entry := models.ImpactEntry{
		EventID:             ev.ID,
		Instant:             ev.Instant,
		Path:                ev.Path,
		ChangeType:          payload.Event,
		AffectedFeatures:    result.AffectedFeatures,
		ModifiedClasses:     result.ModifiedClasses,
		NewClasses:          result.NewClasses,
		ArchitecturalChange: result.ArchitecturalChange,
		ImpactLevel:         result.ImpactLevel,
		Summary:             result.Summary,
		Concerns:            result.Concerns,
		Recommendations:     result.Recommendations,
	}
	project.Architecture.PrependImpact(entry)
	if err := t.store.UpdateArchitecture(projectID, project.Architecture); err != nil {
		t.logger.Error("archtrack: persist architecture failed", "project_id", projectID, "error", err)
		return
	}

	out, err := t.store.AppendEvent(models.KindImplicationsAnalysis, &projectID, ev.Path, models.ImplicationsAnalysisPayload{
		Content:    result.Summary,
		ProjectID:  projectID,
		EventCount: len(project.Architecture.ChangeLog),
	})
	if err != nil {
		t.logger.Error("archtrack: append implications_analysis event failed", "project_id", projectID, "error", err)
		return
	}
	t.bus.Publish(out.ToEnvelope())
}

func (t *Tracker) projectLock(projectID int64) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.projLock[projectID]
	if !ok {
		lock = &sync.Mutex{}
		t.projLock[projectID] = lock
	}
	return lock
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
