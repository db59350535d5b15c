// Package queryapi implements the Query API read paths:
// paginated event listing, per-project configuration read/write (which
// triggers the Supervisor swap before returning), and conversation
// timelines.
package queryapi

import (
	"context"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
)

// projectStore is the subset of *store.Store the Query API needs.
type projectStore interface {
	ListEvents(filter store.ListEventsFilter) (store.ListEventsResult, error)
	ReadEvent(id int64) (models.Event, error)
	ReadProject(id int64) (models.Project, error)
	UpdateProjectConfig(id int64, cfg models.ProjectConfig) (models.Project, error)
	ReadAIConversation(id int64) (models.AIConversation, error)
	ListAIMatches(conversationID int64) ([]models.AICodeMatch, error)
	MatchesForEvent(eventID int64) ([]models.AICodeMatch, error)
}

// swapper is satisfied by watch.Supervisor, named locally to avoid
// importing internal/watch (which would create an import cycle through
// internal/app).
type swapper interface {
	Swap(projectID int64) error
}

// API implements list_events, project_config read/write, and
// conversation_timeline.
type API struct {
	store     projectStore
	watchers  swapper
}

// Config wires an API's dependencies.
type Config struct {
	Store     projectStore
	Watchers  swapper
}

func New(cfg Config) *API {
	return &API{store: cfg.Store, watchers: cfg.Watchers}
}

// ListEvents is a thin wrapper over the Store's list_events.
func (a *API) ListEvents(filter store.ListEventsFilter) (store.ListEventsResult, error) {
	return a.store.ListEvents(filter)
}

// ProjectConfig returns the narrow {ignore_patterns, architecture_document_path}
// view of a project.
func (a *API) ProjectConfig(ctx context.Context, projectID int64) (models.ProjectConfig, error) {
	p, err := a.store.ReadProject(projectID)
	if err != nil {
		return models.ProjectConfig{}, err
	}
	return models.ProjectConfig{IgnorePatterns: p.IgnorePatterns, ArchitectureDocPath: p.ArchitectureDocPath}, nil
}

// UpdateProjectConfig writes the new configuration and does not return
// until the Supervisor swap completes.
func (a *API) UpdateProjectConfig(ctx context.Context, projectID int64, cfg models.ProjectConfig) (models.Project, error) {
	p, err := a.store.UpdateProjectConfig(projectID, cfg)
	if err != nil {
		return models.Project{}, err
	}
	if err := a.watchers.Swap(projectID); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// ConversationTimeline returns the conversation plus a joined view per
// AICodeMatch row, sorted by descending confidence.
func (a *API) ConversationTimeline(conversationID int64) (models.ConversationTimeline, error) {
	conv, err := a.store.ReadAIConversation(conversationID)
	if err != nil {
		return models.ConversationTimeline{}, err
	}
	matches, err := a.store.ListAIMatches(conversationID)
	if err != nil {
		return models.ConversationTimeline{}, err
	}

	entries := make([]models.TimelineEntry, 0, len(matches))
	for _, m := range matches {
		entry := models.TimelineEntry{
			EventID:          m.EventID,
			MatchCategory:    m.Category,
			Confidence:       m.Confidence,
			Reasoning:        m.Reasoning,
			TimeDeltaSeconds: m.TimeDeltaSeconds,
		}
		if ev, err := a.store.ReadEvent(m.EventID); err == nil {
			entry.Path = ev.Path
			if payload, err := ev.DecodeFileChange(); err == nil {
				entry.Diff = payload.Diff
			}
		}
		entries = append(entries, entry)
	}

	return models.ConversationTimeline{Conversation: conv, Matches: entries}, nil
}

// EventMatches returns every AICodeMatch recorded against a single event,
// the event-side counterpart to ConversationTimeline's conversation-side
// join, ordered by descending confidence.
func (a *API) EventMatches(eventID int64) ([]models.AICodeMatch, error) {
	return a.store.MatchesForEvent(eventID)
}
