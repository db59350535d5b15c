// Package ingest implements the Ingest API write paths:
// externally supplied prompts, chat exchanges, error notes, and AI
// conversations. Every operation writes through the Store, then
// publishes via the Broadcaster identically to the Watcher path.
package ingest

import (
	"context"
	"log/slog"

	"github.com/anthropics/goclode/internal/correlate"
	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/worker"
)

// eventStore is the subset of *store.Store the Ingest API needs.
type eventStore interface {
	AppendEvent(kind models.EventKind, projectID *int64, path string, payload any) (models.Event, error)
	InsertAIConversation(c models.AIConversation) (models.AIConversation, error)
}

type publisher interface {
	Publish(envelope models.Envelope)
}

// Correlator is the subset of correlate.Correlator the API schedules
// after a log_ai_conversation call.
type Correlator interface {
	Correlate(ctx context.Context, conversationID int64) error
}

// API implements log_prompt, log_chat, log_error, log_ai_conversation.
type API struct {
	store      eventStore
	bus        publisher
	correlator Correlator
	pool       *worker.Pool
	logger     *slog.Logger
}

// Config wires an API's dependencies.
type Config struct {
	Store       eventStore
	Broadcaster publisher
	Correlator  Correlator
	Pool        *worker.Pool
	Logger      *slog.Logger
}

func New(cfg Config) *API {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{store: cfg.Store, bus: cfg.Broadcaster, correlator: cfg.Correlator, pool: cfg.Pool, logger: logger}
}

// LogPrompt implements log_prompt{text, source?, model?} → kind prompt.
func (a *API) LogPrompt(projectID *int64, text, source, model string) (models.Event, error) {
	return a.appendAndPublish(models.KindPrompt, projectID, "", models.PromptPayload{
		Text: text, Source: source, Model: model,
	})
}

// LogChat implements log_chat{prompt, response, source?, model?, conversation_id?} → kind copilot_chat.
func (a *API) LogChat(projectID *int64, prompt, response, source, model, conversationID string) (models.Event, error) {
	return a.appendAndPublish(models.KindCopilotChat, projectID, "", models.CopilotChatPayload{
		Prompt: prompt, Response: response, Source: source, Model: model, ConversationID: conversationID,
	})
}

// LogError implements log_error{message, context?} → kind error.
func (a *API) LogError(projectID *int64, message string, errContext any) (models.Event, error) {
	return a.appendAndPublish(models.KindError, projectID, "", models.ErrorPayload{
		Message: message, Context: errContext,
	})
}

// LogAIConversation inserts an AIConversation row, runs the deterministic
// extraction helpers synchronously, and schedules a Correlator task. It
// returns as soon as the conversation row is durable; Correlate runs
// asynchronously.
func (a *API) LogAIConversation(c models.AIConversation) (models.AIConversation, error) {
	text := c.UserPrompt + "\n" + c.AssistantResponse
	c.CodeSnippets = correlate.ExtractCodeSnippets(text)
	c.FileReferences = correlate.ExtractFileReferences(text)

	saved, err := a.store.InsertAIConversation(c)
	if err != nil {
		return models.AIConversation{}, err
	}

	if a.correlator != nil && a.pool != nil {
		id := saved.ID
		a.pool.Submit(func(ctx context.Context) {
			if err := a.correlator.Correlate(ctx, id); err != nil {
				a.logger.Warn("ingest: correlator task failed", "conversation_id", id, "error", err)
			}
		})
	}
	return saved, nil
}

func (a *API) appendAndPublish(kind models.EventKind, projectID *int64, path string, payload any) (models.Event, error) {
	ev, err := a.store.AppendEvent(kind, projectID, path, payload)
	if err != nil {
		return models.Event{}, err
	}
	a.bus.Publish(ev.ToEnvelope())
	return ev, nil
}
