package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anthropics/goclode/internal/broadcast"
	"github.com/anthropics/goclode/internal/models"
)

func TestListEventsReturnsPaginationEnvelope(t *testing.T) {
	s := newTestServer()
	r := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/events?limit=10&offset=0", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total_pages"`)
	require.Contains(t, w.Body.String(), `"items"`)
}

func TestListEventsRejectsUnknownKind(t *testing.T) {
	s := newTestServer()
	r := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/events?kind=not_a_real_kind", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsExportRejectsUnsupportedFormat(t *testing.T) {
	s := newTestServer()
	r := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/events/export?format=yaml", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsExportMarkdown(t *testing.T) {
	s := newTestServer()
	r := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/events/export?format=markdown", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "# Event export")
}

type eventMatchesQuery struct {
	fakeQuery
	matches []models.AICodeMatch
}

func (q eventMatchesQuery) EventMatches(eventID int64) ([]models.AICodeMatch, error) {
	return q.matches, nil
}

func TestEventMatchesReturnsCorrelatedMatches(t *testing.T) {
	s := New(Config{
		Store:      newFakeStore(),
		Watchers:   &fakeWatcherCtl{},
		Tracker:    fakeTracker{},
		Correlator: &fakeCorrelator{},
		Ingest:     fakeIngest{},
		Query: eventMatchesQuery{matches: []models.AICodeMatch{
			{ID: 1, EventID: 7, Category: models.MatchDirect, Confidence: 0.9},
		}},
		Broadcaster: broadcast.New(),
	})
	r := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/events/7/matches", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"event_id":7`)
}

func TestEventMatchesRejectsNonIntegerID(t *testing.T) {
	s := newTestServer()
	r := s.Router()

	req := httptest.NewRequest(http.MethodGet, "/events/not-an-id/matches", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

// The live-push channel attaches a subscription to the Broadcaster and
// streams every published envelope as an SSE frame until the client
// disconnects.
func TestEventsStreamDeliversPublishedEnvelope(t *testing.T) {
	bus := broadcast.New()
	s := New(Config{
		Store:       newFakeStore(),
		Watchers:    &fakeWatcherCtl{},
		Tracker:     fakeTracker{},
		Correlator:  &fakeCorrelator{},
		Ingest:      fakeIngest{},
		Query:       fakeQuery{},
		Broadcaster: bus,
	})
	r := s.Router()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	// Give the handler a moment to attach its subscription before publishing.
	time.Sleep(20 * time.Millisecond)
	bus.Publish(models.Envelope{Kind: models.KindPrompt})

	require.Eventually(t, func() bool {
		return strings.Contains(w.Body.String(), "data: ")
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
