package store

import (
	"path/filepath"
	"testing"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/storeerr"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "recorder.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndReadProject(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject(models.Project{
		Path:           "/home/dev/app",
		Name:           "app",
		IgnorePatterns: []string{"node_modules", "*.log"},
		Active:         true,
	})
	require.NoError(t, err)
	require.NotZero(t, p.ID)

	got, err := s.ReadProject(p.ID)
	require.NoError(t, err)
	require.Equal(t, "/home/dev/app", got.Path)
	require.Equal(t, []string{"node_modules", "*.log"}, got.IgnorePatterns)
	require.True(t, got.Active)
}

func TestCreateProjectDuplicatePathConflicts(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CreateProject(models.Project{Path: "/dup", Name: "a"})
	require.NoError(t, err)

	_, err = s.CreateProject(models.Project{Path: "/dup", Name: "b"})
	require.Error(t, err)
	require.True(t, storeerr.Is(err, storeerr.KindConflict))
}

func TestReadProjectNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.ReadProject(999)
	require.Error(t, err)
	require.True(t, storeerr.Is(err, storeerr.KindNotFound))
}

func TestDeleteProjectCascades(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject(models.Project{Path: "/cascade", Name: "cascade"})
	require.NoError(t, err)

	ev, err := s.AppendEvent(models.KindFileChange, &p.ID, "main.go", models.FileChangePayload{Event: "modified"})
	require.NoError(t, err)

	conv, err := s.InsertAIConversation(models.AIConversation{ProjectID: &p.ID, UserPrompt: "hi"})
	require.NoError(t, err)

	_, err = s.InsertAIMatch(models.AICodeMatch{ConversationID: conv.ID, EventID: ev.ID, Category: models.MatchDirect, Confidence: 0.9})
	require.NoError(t, err)

	require.NoError(t, s.DeleteProject(p.ID))

	_, err = s.ReadProject(p.ID)
	require.True(t, storeerr.Is(err, storeerr.KindNotFound))

	matches, err := s.ListAIMatches(conv.ID)
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestAppendEventRejectsUnknownKind(t *testing.T) {
	s := openTestStore(t)
	_, err := s.AppendEvent(models.EventKind("bogus"), nil, "", nil)
	require.Error(t, err)
	require.True(t, storeerr.Is(err, storeerr.KindValidation))
}

func TestAppendEventIDsStrictlyIncrease(t *testing.T) {
	s := openTestStore(t)

	var ids []int64
	for i := 0; i < 5; i++ {
		ev, err := s.AppendEvent(models.KindPrompt, nil, "", models.PromptPayload{Text: "x"})
		require.NoError(t, err)
		ids = append(ids, ev.ID)
	}
	for i := 1; i < len(ids); i++ {
		require.Greater(t, ids[i], ids[i-1])
	}
}

func TestListEventsPagination(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 25; i++ {
		_, err := s.AppendEvent(models.KindPrompt, nil, "", models.PromptPayload{Text: "x"})
		require.NoError(t, err)
	}

	page1, err := s.ListEvents(ListEventsFilter{Offset: 0, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 25, page1.Total)
	require.Equal(t, 1, page1.Page)
	require.Equal(t, 3, page1.TotalPages)
	require.Len(t, page1.Items, 10)

	page2, err := s.ListEvents(ListEventsFilter{Offset: 10, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 2, page2.Page)
	require.Len(t, page2.Items, 10)

	page3, err := s.ListEvents(ListEventsFilter{Offset: 20, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 3, page3.Page)
	require.Len(t, page3.Items, 5)

	// Pages must be disjoint: no id appears on more than one page.
	seen := make(map[int64]bool)
	for _, page := range []ListEventsResult{page1, page2, page3} {
		for _, e := range page.Items {
			require.False(t, seen[e.ID], "id %d appeared on more than one page", e.ID)
			seen[e.ID] = true
		}
	}
	require.Len(t, seen, 25)
}

func TestListEventsFilterByKindAndProject(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject(models.Project{Path: "/filter", Name: "filter"})
	require.NoError(t, err)

	_, err = s.AppendEvent(models.KindFileChange, &p.ID, "a.go", models.FileChangePayload{Event: "modified"})
	require.NoError(t, err)
	_, err = s.AppendEvent(models.KindPrompt, nil, "", models.PromptPayload{Text: "y"})
	require.NoError(t, err)

	kind := models.KindFileChange
	res, err := s.ListEvents(ListEventsFilter{ProjectID: &p.ID, Kind: &kind})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, models.KindFileChange, res.Items[0].Kind)
}

func TestListEventsSearchMatchesPathOrPayload(t *testing.T) {
	s := openTestStore(t)

	_, err := s.AppendEvent(models.KindFileChange, nil, "src/Widget.go", models.FileChangePayload{Event: "modified"})
	require.NoError(t, err)
	_, err = s.AppendEvent(models.KindPrompt, nil, "", models.PromptPayload{Text: "refactor Widget rendering"})
	require.NoError(t, err)
	_, err = s.AppendEvent(models.KindPrompt, nil, "", models.PromptPayload{Text: "unrelated"})
	require.NoError(t, err)

	res, err := s.ListEvents(ListEventsFilter{Search: "widget"})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
}

func TestAIConversationInsertAndStats(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject(models.Project{Path: "/stats", Name: "stats"})
	require.NoError(t, err)

	conv, err := s.InsertAIConversation(models.AIConversation{
		ProjectID: &p.ID,
		Provider:  "claude",
		UserPrompt: "implement caching",
	})
	require.NoError(t, err)
	require.NotEmpty(t, conv.SessionID)

	ev, err := s.AppendEvent(models.KindFileChange, &p.ID, "cache.go", models.FileChangePayload{Event: "created"})
	require.NoError(t, err)

	_, err = s.InsertAIMatch(models.AICodeMatch{
		ConversationID: conv.ID,
		EventID:        ev.ID,
		Category:       models.MatchDirect,
		Confidence:     0.8,
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateConversationMatches(conv.ID, []int64{ev.ID}, 0.8))

	got, err := s.ReadAIConversation(conv.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{ev.ID}, got.MatchedToEvents)
	require.InDelta(t, 0.8, got.Confidence, 0.0001)

	stats, err := s.AIConversationStats(&p.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.ByProvider["claude"])
	require.Equal(t, 1, stats.TotalMatches)
}

func TestListAIConversationsPaginationAndFilter(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject(models.Project{Path: "/ai-list", Name: "ai-list"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := s.InsertAIConversation(models.AIConversation{ProjectID: &p.ID, Provider: "claude"})
		require.NoError(t, err)
	}
	_, err = s.InsertAIConversation(models.AIConversation{Provider: "openai"})
	require.NoError(t, err)

	all, total, err := s.ListAIConversations(ListAIConversationsFilter{Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Equal(t, 4, total)
	require.Len(t, all, 2)

	claudeOnly, total, err := s.ListAIConversations(ListAIConversationsFilter{ProjectID: &p.ID, Provider: "claude"})
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.Len(t, claudeOnly, 3)
}

func TestUpdateArchitectureRoundTrips(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject(models.Project{Path: "/arch", Name: "arch"})
	require.NoError(t, err)

	arch := &models.ArchitectureRecord{
		Overview: "example service",
		Features: []models.Feature{
			{Name: "auth", Files: []string{"auth.go"}},
		},
	}
	require.NoError(t, s.UpdateArchitecture(p.ID, arch))

	got, err := s.ReadProject(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Architecture)
	require.Len(t, got.Architecture.Features, 1)
	require.Equal(t, "auth", got.Architecture.Features[0].Name)
}

func TestPatchProjectAppliesPartialUpdate(t *testing.T) {
	s := openTestStore(t)

	p, err := s.CreateProject(models.Project{Path: "/patch", Name: "patch", Active: true})
	require.NoError(t, err)

	newName := "renamed"
	inactive := false
	updated, err := s.PatchProject(p.ID, ProjectPatch{Name: &newName, Active: &inactive})
	require.NoError(t, err)
	require.Equal(t, "renamed", updated.Name)
	require.False(t, updated.Active)
}
