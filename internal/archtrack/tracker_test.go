package archtrack

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anthropics/goclode/internal/broadcast"
	"github.com/anthropics/goclode/internal/llmclient"
	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
)

type fakeImpactLLM struct {
	result llmclient.ImpactResult
	err    error
}

func (f fakeImpactLLM) ScoreMatches(context.Context, llmclient.MatchRequest) (llmclient.MatchResult, error) {
	return llmclient.MatchResult{}, nil
}

func (f fakeImpactLLM) SummarizeImpact(context.Context, llmclient.ImpactRequest) (llmclient.ImpactResult, error) {
	if f.err != nil {
		return llmclient.ImpactResult{}, f.err
	}
	return f.result, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "recorder.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestParseOnCreatePersistsArchitecture(t *testing.T) {
	s := newTestStore(t)
	docPath := writeDoc(t, sampleDoc)

	proj, err := s.CreateProject(models.Project{Path: t.TempDir(), Name: "p", ArchitectureDocPath: docPath})
	require.NoError(t, err)

	tr := New(Config{Store: s, Broadcaster: broadcast.New()})
	require.NoError(t, tr.ParseOnCreate(proj))

	got, err := s.ReadProject(proj.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Architecture)
	require.Len(t, got.Architecture.Features, 2)
}

func TestParseOnCreateNoopWithoutDocPath(t *testing.T) {
	s := newTestStore(t)
	proj, err := s.CreateProject(models.Project{Path: t.TempDir(), Name: "p"})
	require.NoError(t, err)

	tr := New(Config{Store: s, Broadcaster: broadcast.New()})
	require.NoError(t, tr.ParseOnCreate(proj))

	got, err := s.ReadProject(proj.ID)
	require.NoError(t, err)
	require.Nil(t, got.Architecture)
}

func TestUpdateImpactPrependsChangeLogAndPublishes(t *testing.T) {
	s := newTestStore(t)
	b := broadcast.New()
	sub := b.Attach()
	t.Cleanup(func() { b.Detach(sub) })

	proj, err := s.CreateProject(models.Project{Path: t.TempDir(), Name: "p"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateArchitecture(proj.ID, &models.ArchitectureRecord{Overview: "a service"}))

	ev, err := s.AppendEvent(models.KindFileChange, &proj.ID, "main.go", models.FileChangePayload{Event: "modified", Diff: "+x"})
	require.NoError(t, err)

	llm := fakeImpactLLM{result: llmclient.ImpactResult{
		Summary:     "added a helper",
		ImpactLevel: models.ImpactMinor,
	}}
	tr := New(Config{Store: s, Broadcaster: b, LLM: llm})
	tr.UpdateImpact(context.Background(), proj.ID, ev)

	got, err := s.ReadProject(proj.ID)
	require.NoError(t, err)
	require.Len(t, got.Architecture.ChangeLog, 1)
	require.Equal(t, "added a helper", got.Architecture.ChangeLog[0].Summary)
	require.Equal(t, ev.ID, got.Architecture.ChangeLog[0].EventID)

	select {
	case env := <-sub.C:
		require.Equal(t, models.KindImplicationsAnalysis, env.Kind)
	default:
		t.Fatal("expected implications_analysis envelope to be published")
	}
}

func TestUpdateImpactSkipsProjectsWithoutArchitecture(t *testing.T) {
	s := newTestStore(t)
	b := broadcast.New()

	proj, err := s.CreateProject(models.Project{Path: t.TempDir(), Name: "p"})
	require.NoError(t, err)
	ev, err := s.AppendEvent(models.KindFileChange, &proj.ID, "main.go", models.FileChangePayload{Event: "modified"})
	require.NoError(t, err)

	tr := New(Config{Store: s, Broadcaster: b, LLM: fakeImpactLLM{}})
	tr.UpdateImpact(context.Background(), proj.ID, ev)

	got, err := s.ReadProject(proj.ID)
	require.NoError(t, err)
	require.Nil(t, got.Architecture)
}

func TestUpdateImpactLeavesChangeLogUnchangedOnLLMFailure(t *testing.T) {
	s := newTestStore(t)
	b := broadcast.New()

	proj, err := s.CreateProject(models.Project{Path: t.TempDir(), Name: "p"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateArchitecture(proj.ID, &models.ArchitectureRecord{Overview: "a service"}))
	ev, err := s.AppendEvent(models.KindFileChange, &proj.ID, "main.go", models.FileChangePayload{Event: "modified"})
	require.NoError(t, err)

	tr := New(Config{Store: s, Broadcaster: b, LLM: fakeImpactLLM{err: context.DeadlineExceeded}})
	tr.UpdateImpact(context.Background(), proj.ID, ev)

	got, err := s.ReadProject(proj.ID)
	require.NoError(t, err)
	require.Empty(t, got.Architecture.ChangeLog)
}

// With no OPENAI_API_KEY configured, Tracker falls back to llmclient.NoOp
// rather than a test double: UpdateImpact must leave the change log
// untouched and publish nothing, the same as an explicit LLM error.
func TestUpdateImpactIsNoOpWithUnconfiguredLLM(t *testing.T) {
	s := newTestStore(t)
	b := broadcast.New()
	sub := b.Attach()
	t.Cleanup(func() { b.Detach(sub) })

	proj, err := s.CreateProject(models.Project{Path: t.TempDir(), Name: "p"})
	require.NoError(t, err)
	require.NoError(t, s.UpdateArchitecture(proj.ID, &models.ArchitectureRecord{Overview: "a service"}))
	ev, err := s.AppendEvent(models.KindFileChange, &proj.ID, "main.go", models.FileChangePayload{Event: "modified"})
	require.NoError(t, err)

	tr := New(Config{Store: s, Broadcaster: b}) // LLM left nil -> llmclient.NoOp{}
	tr.UpdateImpact(context.Background(), proj.ID, ev)

	got, err := s.ReadProject(proj.ID)
	require.NoError(t, err)
	require.Empty(t, got.Architecture.ChangeLog)

	select {
	case env := <-sub.C:
		t.Fatalf("expected no event to be published, got %v", env.Kind)
	default:
	}
}
