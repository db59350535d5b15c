package models

import "time"

// CodeSnippet is one fenced code block extracted from conversation text.
type CodeSnippet struct {
	Language  string `json:"language"`
	Text      string `json:"text"`
	LineCount int    `json:"line_count"`
}

// AIConversation is a prompt/response exchange submitted through the Ingest API.
type AIConversation struct {
	ID              int64          `json:"id"`
	SessionID       string         `json:"session_id"`
	ProjectID       *int64         `json:"project_id,omitempty"`
	Provider        string         `json:"ai_provider"`
	Model           string         `json:"model,omitempty"`
	Instant         time.Time      `json:"instant"`
	UserPrompt      string         `json:"user_prompt"`
	AssistantResponse string       `json:"assistant_response"`
	CodeSnippets    []CodeSnippet  `json:"code_snippets,omitempty"`
	FileReferences  []string       `json:"file_references,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	MatchedToEvents []int64        `json:"matched_to_events"`
	Confidence      float64        `json:"confidence_score"`
}

// MatchCategory is the closed enum an AICodeMatch row carries.
type MatchCategory string

const (
	MatchDirect    MatchCategory = "direct"
	MatchRelated   MatchCategory = "related"
	MatchSuggested MatchCategory = "suggested"
)

// AICodeMatch links a conversation to a candidate code-change event.
type AICodeMatch struct {
	ID               int64         `json:"id"`
	ConversationID   int64         `json:"conversation_id"`
	EventID          int64         `json:"event_id"`
	Category         MatchCategory `json:"match_category"`
	Confidence       float64       `json:"confidence"`
	Reasoning        string        `json:"reasoning"`
	FileOverlapCount int           `json:"file_overlap_count"`
	TimeDeltaSeconds int64         `json:"time_delta_seconds"`
	CreatedAt        time.Time     `json:"created_at"`
}

// TimelineEntry is the joined view conversation_timeline returns per match.
type TimelineEntry struct {
	EventID          int64         `json:"event_id"`
	Path             string        `json:"path"`
	MatchCategory    MatchCategory `json:"match_category"`
	Confidence       float64       `json:"confidence"`
	Reasoning        string        `json:"reasoning"`
	TimeDeltaSeconds int64         `json:"time_delta_seconds"`
	Diff             string        `json:"diff,omitempty"`
}

// ConversationTimeline is the full response of GET /ai-chat/{id}/timeline.
type ConversationTimeline struct {
	Conversation AIConversation  `json:"conversation"`
	Matches      []TimelineEntry `json:"matches"`
}
