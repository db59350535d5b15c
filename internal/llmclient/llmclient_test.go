package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func TestNoOpReturnsEmptyResultsAndErrNotConfigured(t *testing.T) {
	var c Capability = NoOp{}

	matches, err := c.ScoreMatches(context.Background(), MatchRequest{})
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Empty(t, matches.Matches)

	impact, err := c.SummarizeImpact(context.Background(), ImpactRequest{})
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Empty(t, impact.Summary)
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return &OpenAI{client: openai.NewClientWithConfig(cfg), matchModel: "gpt-4o", model: "gpt-4o-mini"}
}

func TestScoreMatchesDecodesStrictObjectResponse(t *testing.T) {
	payload := `{"matches":[{"event_id":7,"match_category":"direct","confidence":0.9,"reasoning":"same file","file_overlap":1,"time_delta":12}]}`
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: payload}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	result, err := o.ScoreMatches(context.Background(), MatchRequest{
		UserPrompt: "fix the cache bug",
		Candidates: []CandidateEvent{{EventID: 7, Path: "cache.go"}},
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	require.EqualValues(t, 7, result.Matches[0].EventID)
	require.InDelta(t, 0.9, result.Matches[0].Confidence, 0.0001)
}

func TestScoreMatchesPropagatesHTTPFailure(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := o.ScoreMatches(context.Background(), MatchRequest{})
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 10))
	require.Equal(t, "ab", truncate("abcdef", 2))
}
