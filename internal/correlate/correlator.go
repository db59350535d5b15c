package correlate

import (
	"context"
	"log/slog"
	"time"

	"github.com/anthropics/goclode/internal/llmclient"
	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
)

// DefaultWindow is the ±W lookback/lookahead used to select candidate
// events around a conversation's instant when CorrelatorWindow is left
// unconfigured.
const DefaultWindow = 5 * time.Minute

// candidateScanLimit bounds how many of a project's most recent
// file_change events are fetched before being filtered down to the
// configured time window (store has no time-range query of its own).
const candidateScanLimit = 500

// eventStore is the subset of *store.Store the Correlator needs, named
// locally to keep this package import-cycle free of internal/store's
// consumers.
type eventStore interface {
	ReadAIConversation(id int64) (models.AIConversation, error)
	ListEvents(filter store.ListEventsFilter) (store.ListEventsResult, error)
	InsertAIMatch(m models.AICodeMatch) (models.AICodeMatch, error)
	UpdateConversationMatches(id int64, eventIDs []int64, confidence float64) error
	AppendEvent(kind models.EventKind, projectID *int64, path string, payload any) (models.Event, error)
}

type publisher interface {
	Publish(envelope models.Envelope)
}

// Correlator scores an AIConversation against recent file_change events,
// preferring an LLM capability and falling back to a deterministic
// file-reference matcher when that call fails.
type Correlator struct {
	store   eventStore
	bus     publisher
	llm     llmclient.Capability
	window  time.Duration
	logger  *slog.Logger
}

// Config wires a Correlator's dependencies.
type Config struct {
	Store       eventStore
	Broadcaster publisher
	LLM         llmclient.Capability
	Window      time.Duration
	Logger      *slog.Logger
}

// New builds a Correlator. A nil LLM falls back to llmclient.NoOp{}.
func New(cfg Config) *Correlator {
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}
	llm := cfg.LLM
	if llm == nil {
		llm = llmclient.NoOp{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{store: cfg.Store, bus: cfg.Broadcaster, llm: llm, window: window, logger: logger}
}

// Correlate runs the full matching algorithm for one conversation: select
// candidate events, score them (LLM first, deterministic fallback
// second), persist AICodeMatch rows, and update the conversation's
// aggregate confidence. Intended to run as a worker.Task, scheduled by
// the Ingest API after log_ai_conversation.
func (c *Correlator) Correlate(ctx context.Context, conversationID int64) error {
	conv, err := c.store.ReadAIConversation(conversationID)
	if err != nil {
		return err
	}

	candidates, events, err := c.selectCandidates(conv)
	if err != nil {
		return err
	}

	var matches []llmclient.Match
	if len(candidates) > 0 {
		matches = c.scoreCandidates(ctx, conv, candidates)
	}

	insertedIDs := make([]int64, 0, len(matches))
	var confidenceSum float64
	for _, m := range matches {
		ev, ok := events[m.EventID]
		if !ok {
			continue
		}
		row := models.AICodeMatch{
			ConversationID:   conv.ID,
			EventID:          m.EventID,
			Category:         m.Category,
			Confidence:       m.Confidence,
			Reasoning:        m.Reasoning,
			FileOverlapCount: fileOverlapCount(ev.Path, conv.FileReferences),
			TimeDeltaSeconds: int64(ev.Instant.Sub(conv.Instant).Seconds()),
		}
		if _, err := c.store.InsertAIMatch(row); err != nil {
			c.logger.Error("correlator: insert match failed", "conversation_id", conv.ID, "event_id", m.EventID, "error", err)
			continue
		}
		insertedIDs = append(insertedIDs, m.EventID)
		confidenceSum += m.Confidence
	}

	aggregate := 0.0
	if len(insertedIDs) > 0 {
		aggregate = confidenceSum / float64(len(insertedIDs))
	}
	if err := c.store.UpdateConversationMatches(conv.ID, insertedIDs, aggregate); err != nil {
		return err
	}

	ev, err := c.store.AppendEvent(models.KindAIMatch, conv.ProjectID, "", models.AIMatchPayload{
		PromptCount:     1,
		CodeChangeCount: len(candidates),
		MatchCount:      len(insertedIDs),
	})
	if err != nil {
		c.logger.Error("correlator: append ai_match event failed", "conversation_id", conv.ID, "error", err)
		return nil
	}
	c.bus.Publish(ev.ToEnvelope())
	return nil
}

// selectCandidates fetches recent file_change events for the
// conversation's project within ±window of its instant.
func (c *Correlator) selectCandidates(conv models.AIConversation) ([]llmclient.CandidateEvent, map[int64]models.Event, error) {
	kind := models.KindFileChange
	res, err := c.store.ListEvents(store.ListEventsFilter{
		ProjectID: conv.ProjectID,
		Kind:      &kind,
		Limit:     candidateScanLimit,
	})
	if err != nil {
		return nil, nil, err
	}

	events := make(map[int64]models.Event)
	var candidates []llmclient.CandidateEvent
	for _, ev := range res.Items {
		delta := ev.Instant.Sub(conv.Instant)
		if delta < 0 {
			delta = -delta
		}
		if delta > c.window {
			continue
		}
		payload, _ := ev.DecodeFileChange()
		events[ev.ID] = ev
		candidates = append(candidates, llmclient.CandidateEvent{
			EventID:     ev.ID,
			Path:        ev.Path,
			DiffExcerpt: truncateExcerpt(payload.Diff, 400),
		})
	}
	return candidates, events, nil
}

// scoreCandidates asks the LLM to score candidates against the
// conversation, falling back to the deterministic file-reference matcher
// on any failure or malformed response.
func (c *Correlator) scoreCandidates(ctx context.Context, conv models.AIConversation, candidates []llmclient.CandidateEvent) []llmclient.Match {
	ids := make(map[int64]struct{}, len(candidates))
	for _, cand := range candidates {
		ids[cand.EventID] = struct{}{}
	}

	result, err := c.llm.ScoreMatches(ctx, llmclient.MatchRequest{
		UserPrompt:        conv.UserPrompt,
		AssistantResponse: conv.AssistantResponse,
		FileReferences:    conv.FileReferences,
		Candidates:        candidates,
	})
	if err != nil {
		c.logger.Warn("correlator: LLM scoring failed, using fallback matcher", "conversation_id", conv.ID, "error", err)
		return fallbackMatches(conv, candidates)
	}

	valid := filterValidMatches(result.Matches, ids)
	if len(valid) == 0 {
		return fallbackMatches(conv, candidates)
	}
	return valid
}

// filterValidMatches drops any returned match that names an event id
// outside the candidate list, an unknown category, or an out-of-range
// confidence.
func filterValidMatches(matches []llmclient.Match, ids map[int64]struct{}) []llmclient.Match {
	out := make([]llmclient.Match, 0, len(matches))
	for _, m := range matches {
		if _, ok := ids[m.EventID]; !ok {
			continue
		}
		switch m.Category {
		case models.MatchDirect, models.MatchRelated, models.MatchSuggested:
		default:
			continue
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			continue
		}
		out = append(out, m)
	}
	return out
}

// fallbackMatches implements the degenerate matcher: a "related" match at
// confidence 0.5 for every candidate whose path appears literally in the
// conversation's file references.
func fallbackMatches(conv models.AIConversation, candidates []llmclient.CandidateEvent) []llmclient.Match {
	refs := make(map[string]struct{}, len(conv.FileReferences))
	for _, r := range conv.FileReferences {
		refs[r] = struct{}{}
	}

	var out []llmclient.Match
	for _, cand := range candidates {
		if _, ok := refs[cand.Path]; !ok {
			continue
		}
		out = append(out, llmclient.Match{
			EventID:     cand.EventID,
			Category:    models.MatchRelated,
			Confidence:  0.5,
			Reasoning:   "file path referenced literally in conversation text",
			FileOverlap: 1,
		})
	}
	return out
}

func fileOverlapCount(path string, refs []string) int {
	for _, r := range refs {
		if r == path {
			return 1
		}
	}
	return 0
}

func truncateExcerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
