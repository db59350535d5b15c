// Package llmclient models the single LLM capability the Correlator and
// Architecture Tracker depend on: ScoreMatches and SummarizeImpact. The
// HTTP-backed implementation is built on github.com/sashabaranov/go-openai
// (as recera-onyx-coding-agent's graph_service/internal/llm.LLMClient
// does) rather than a hand-rolled request struct, since OpenAI is the
// target vendor here. Every call is bounded by callTimeout, and a non-2xx
// reply surfaces as an error from the call.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/anthropics/goclode/internal/models"
)

// ErrNotConfigured is returned by NoOp's methods so callers take the same
// "LLM unavailable" branch whether the capability errored or was never
// configured in the first place.
var ErrNotConfigured = errors.New("llmclient: no LLM capability configured")

// CandidateEvent is one file_change event offered to the LLM as a
// correlation candidate.
type CandidateEvent struct {
	EventID     int64  `json:"event_id"`
	Path        string `json:"path"`
	DiffExcerpt string `json:"diff_excerpt"`
}

// MatchRequest bundles everything the prompt construction step presents
// to the LLM.
type MatchRequest struct {
	UserPrompt        string
	AssistantResponse string
	FileReferences    []string
	Candidates        []CandidateEvent
}

// Match is one element of the strict-object matches response.
type Match struct {
	EventID     int64                `json:"event_id"`
	Category    models.MatchCategory `json:"match_category"`
	Confidence  float64              `json:"confidence"`
	Reasoning   string               `json:"reasoning"`
	FileOverlap int                  `json:"file_overlap"`
	TimeDelta   int64                `json:"time_delta"`
}

// MatchResult is the parsed form of the LLM's matches response.
type MatchResult struct {
	Matches []Match `json:"matches"`
}

// ImpactRequest bundles the current architecture summary and the
// triggering event's path/diff.
type ImpactRequest struct {
	ArchitectureSummary string
	Path                string
	DiffExcerpt         string
}

// ImpactResult is the strict-object impact-summary response.
type ImpactResult struct {
	AffectedFeatures    []string           `json:"affected_features"`
	ModifiedClasses     []string           `json:"modified_classes"`
	NewClasses          []string           `json:"new_classes"`
	ArchitecturalChange bool               `json:"architectural_change"`
	ImpactLevel         models.ImpactLevel `json:"impact_level"`
	Summary             string             `json:"summary"`
	Concerns            []string           `json:"concerns"`
	Recommendations     []string           `json:"recommendations"`
}

// Capability is the single pluggable LLM interface the Correlator and
// Architecture Tracker call through.
type Capability interface {
	ScoreMatches(ctx context.Context, req MatchRequest) (MatchResult, error)
	SummarizeImpact(ctx context.Context, req ImpactRequest) (ImpactResult, error)
}

// NoOp is selected when OPENAI_API_KEY is unset. Both methods return
// ErrNotConfigured immediately, so the Correlator's fallback matcher and
// the Architecture Tracker's "updater failures are logged, change log
// left untouched" path apply uniformly whether the LLM call failed or
// was never configured in the first place.
type NoOp struct{}

func (NoOp) ScoreMatches(context.Context, MatchRequest) (MatchResult, error) {
	return MatchResult{}, ErrNotConfigured
}

func (NoOp) SummarizeImpact(context.Context, ImpactRequest) (ImpactResult, error) {
	return ImpactResult{}, ErrNotConfigured
}

// OpenAI is the HTTP-backed Capability implementation.
type OpenAI struct {
	client     *openai.Client
	matchModel string
	model      string
}

// New builds an OpenAI-backed Capability. matchModel is used for
// ScoreMatches, model for SummarizeImpact.
func New(apiKey, model, matchModel string) *OpenAI {
	return &OpenAI{
		client:     openai.NewClient(apiKey),
		matchModel: matchModel,
		model:      model,
	}
}

func (o *OpenAI) ScoreMatches(ctx context.Context, req MatchRequest) (MatchResult, error) {
	prompt := buildMatchPrompt(req)
	content, err := o.complete(ctx, o.matchModel, prompt)
	if err != nil {
		return MatchResult{}, err
	}
	var result MatchResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return MatchResult{}, fmt.Errorf("decode match result: %w", err)
	}
	return result, nil
}

func (o *OpenAI) SummarizeImpact(ctx context.Context, req ImpactRequest) (ImpactResult, error) {
	prompt := buildImpactPrompt(req)
	content, err := o.complete(ctx, o.model, prompt)
	if err != nil {
		return ImpactResult{}, err
	}
	var result ImpactResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return ImpactResult{}, fmt.Errorf("decode impact result: %w", err)
	}
	return result, nil
}

// callTimeout bounds each chat-completion request.
const callTimeout = 60 * time.Second

func (o *OpenAI) complete(ctx context.Context, model, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from API")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMatchPrompt(req MatchRequest) string {
	candidates, _ := json.Marshal(req.Candidates)
	refs, _ := json.Marshal(req.FileReferences)
	return fmt.Sprintf(`You correlate an AI coding conversation with recent file-change events.

User prompt: %s
Assistant response: %s
File references mentioned: %s
Candidate events: %s

Respond with a strict JSON object: {"matches": [{"event_id": int, "match_category": "direct"|"related"|"suggested", "confidence": 0..1, "reasoning": string, "file_overlap": int, "time_delta": int}]}. Only include candidate event ids from the list above.`,
		truncate(req.UserPrompt, 500), truncate(req.AssistantResponse, 1000), refs, candidates)
}

func buildImpactPrompt(req ImpactRequest) string {
	return fmt.Sprintf(`Given the current architecture summary and a code change, assess its impact.

Architecture summary: %s
Changed path: %s
Diff excerpt: %s

Respond with a strict JSON object: {"affected_features": [string], "modified_classes": [string], "new_classes": [string], "architectural_change": bool, "impact_level": "minor"|"moderate"|"major", "summary": string, "concerns": [string], "recommendations": [string]}.`,
		req.ArchitectureSummary, req.Path, req.DiffExcerpt)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
