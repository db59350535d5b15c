// Package models defines the domain types shared across the recorder:
// projects, events, AI conversations, and AI/code matches.
package models

import (
	"encoding/json"
	"time"
)

// EventKind is the closed enum of event types the store accepts.
type EventKind string

const (
	KindFileChange          EventKind = "file_change"
	KindFileDeleted         EventKind = "file_deleted"
	KindFolderCreated       EventKind = "folder_created"
	KindFolderDeleted       EventKind = "folder_deleted"
	KindPrompt              EventKind = "prompt"
	KindCopilotChat         EventKind = "copilot_chat"
	KindError               EventKind = "error"
	KindSummary             EventKind = "summary"
	KindAIMatch             EventKind = "ai_match"
	KindImplicationsAnalysis EventKind = "implications_analysis"
)

// ValidKind reports whether k is one of the closed set of event kinds.
func ValidKind(k EventKind) bool {
	switch k {
	case KindFileChange, KindFileDeleted, KindFolderCreated, KindFolderDeleted,
		KindPrompt, KindCopilotChat, KindError, KindSummary, KindAIMatch, KindImplicationsAnalysis:
		return true
	}
	return false
}

// Event is an immutable, append-only record in the store. Payload is the
// raw JSON form of one of the per-kind payload structs below — the store
// persists it unchanged without interpreting it.
type Event struct {
	ID        int64           `json:"id"`
	ProjectID *int64          `json:"project_id,omitempty"`
	Instant   time.Time       `json:"instant"`
	Kind      EventKind       `json:"kind"`
	Path      string          `json:"path,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Envelope is the JSON-serializable record broadcast for each new event.
type Envelope struct {
	ID        int64           `json:"id"`
	Instant   time.Time       `json:"instant"`
	Kind      EventKind       `json:"kind"`
	ProjectID *int64          `json:"project_id,omitempty"`
	Path      string          `json:"path,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// EncodePayload marshals one of the typed payload structs into the raw
// JSON form Event/Envelope carry.
func EncodePayload(v any) (json.RawMessage, error) {
	return json.Marshal(v)
}

// DecodeFileChange unmarshals a file_change payload.
func (e Event) DecodeFileChange() (FileChangePayload, error) {
	var p FileChangePayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}

// ToEnvelope converts a stored event into its broadcast envelope.
func (e Event) ToEnvelope() Envelope {
	return Envelope{
		ID:        e.ID,
		Instant:   e.Instant,
		Kind:      e.Kind,
		ProjectID: e.ProjectID,
		Path:      e.Path,
		Payload:   e.Payload,
	}
}

// --- Per-kind payload shapes ---

type FileChangePayload struct {
	Event    string `json:"event"` // "created" | "modified"
	Diff     string `json:"diff"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Baseline string `json:"baseline"` // "cache" | "head"
}

type DeletedPayload struct {
	Event string `json:"event"` // "deleted"
}

type FolderPayload struct {
	Event string `json:"event"` // "created" | "deleted"
	Type  string `json:"type"`  // "directory"
}

type PromptPayload struct {
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
	Model  string `json:"model,omitempty"`
}

type CopilotChatPayload struct {
	Prompt         string `json:"prompt"`
	Response       string `json:"response"`
	Source         string `json:"source,omitempty"`
	Model          string `json:"model,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

type SummaryPayload struct {
	Content string `json:"content"`
}

type AIMatchPayload struct {
	PromptCount     int `json:"prompt_count"`
	CodeChangeCount int `json:"code_change_count"`
	MatchCount      int `json:"match_count"`
}

type ImplicationsAnalysisPayload struct {
	Content    string `json:"content"`
	ProjectID  int64  `json:"project_id"`
	EventCount int    `json:"event_count"`
}
