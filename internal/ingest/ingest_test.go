package ingest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anthropics/goclode/internal/broadcast"
	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
	"github.com/anthropics/goclode/internal/worker"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "recorder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLogPromptWritesAndPublishes(t *testing.T) {
	s := newTestStore(t)
	b := broadcast.New()
	sub := b.Attach()
	t.Cleanup(func() { b.Detach(sub) })

	api := New(Config{Store: s, Broadcaster: b})
	ev, err := api.LogPrompt(nil, "write a test", "cli", "gpt-4o")
	require.NoError(t, err)
	require.Equal(t, models.KindPrompt, ev.Kind)

	select {
	case env := <-sub.C:
		require.Equal(t, ev.ID, env.ID)
	default:
		t.Fatal("expected envelope to be published")
	}
}

func TestLogChatWritesCopilotChatEvent(t *testing.T) {
	s := newTestStore(t)
	b := broadcast.New()
	api := New(Config{Store: s, Broadcaster: b})

	ev, err := api.LogChat(nil, "how do I test this", "use testify", "vscode", "gpt-4o", "sess-1")
	require.NoError(t, err)
	require.Equal(t, models.KindCopilotChat, ev.Kind)

	got, err := s.ReadEvent(ev.ID)
	require.NoError(t, err)
	var payload models.CopilotChatPayload
	require.NoError(t, json.Unmarshal(got.Payload, &payload))
	require.Equal(t, "how do I test this", payload.Prompt)
	require.Equal(t, "sess-1", payload.ConversationID)
}

func TestLogErrorWritesErrorEvent(t *testing.T) {
	s := newTestStore(t)
	b := broadcast.New()
	api := New(Config{Store: s, Broadcaster: b})

	ev, err := api.LogError(nil, "boom", map[string]string{"where": "handler"})
	require.NoError(t, err)
	require.Equal(t, models.KindError, ev.Kind)
}

type fakeCorrelator struct {
	mu    sync.Mutex
	calls []int64
}

func (f *fakeCorrelator) Correlate(ctx context.Context, conversationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, conversationID)
	return nil
}

func (f *fakeCorrelator) called() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.calls))
	copy(out, f.calls)
	return out
}

func TestLogAIConversationExtractsAndSchedulesCorrelator(t *testing.T) {
	s := newTestStore(t)
	b := broadcast.New()
	pool := worker.New(2, 8, nil)
	pool.Start(context.Background(), 2)
	t.Cleanup(pool.Stop)

	fc := &fakeCorrelator{}
	api := New(Config{Store: s, Broadcaster: b, Correlator: fc, Pool: pool})

	conv, err := api.LogAIConversation(models.AIConversation{
		Provider:          "claude",
		UserPrompt:        "fix auth/token.go please",
		AssistantResponse: "```go\nfunc X() {}\n```",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"auth/token.go"}, conv.FileReferences)
	require.Len(t, conv.CodeSnippets, 1)

	require.Eventually(t, func() bool {
		return len(fc.called()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, conv.ID, fc.called()[0])
}
