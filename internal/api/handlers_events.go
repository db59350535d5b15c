package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
)

// paginationEnvelope is the {items, total, offset, limit, page,
// total_pages} shape every collection response uses.
type paginationEnvelope struct {
	Items      any `json:"items"`
	Total      int `json:"total"`
	Offset     int `json:"offset"`
	Limit      int `json:"limit"`
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

func envelopeFromEvents(res store.ListEventsResult) paginationEnvelope {
	items := res.Items
	if items == nil {
		items = []models.Event{}
	}
	return paginationEnvelope{
		Items: items, Total: res.Total, Offset: res.Offset, Limit: res.Limit,
		Page: res.Page, TotalPages: res.TotalPages,
	}
}

// handleListEvents implements GET /events.
func (s *Server) handleListEvents(c *gin.Context) {
	filter := store.ListEventsFilter{
		Search: c.Query("search"),
		Offset: queryInt(c, "offset", 0),
		Limit:  queryInt(c, "limit", 50),
	}
	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		filter.ProjectID = &id
	}
	if v := c.Query("kind"); v != "" {
		k := models.EventKind(v)
		if !models.ValidKind(k) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind"})
			return
		}
		filter.Kind = &k
	}

	res, err := s.query.ListEvents(filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, envelopeFromEvents(res))
}

// handleEventMatches implements GET /events/:id/matches, the event-side
// lookup of AICodeMatch rows correlated against a single event.
func (s *Server) handleEventMatches(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	matches, err := s.query.EventMatches(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if matches == nil {
		matches = []models.AICodeMatch{}
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// handleEventsStream implements GET /events/stream: one text frame per
// Event envelope, JSON-encoded, connection held open. Reconnecting clients recover missed events via /events.
func (s *Server) handleEventsStream(c *gin.Context) {
	sub := s.bus.Attach()
	defer s.bus.Detach(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			b, err := json.Marshal(env)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

// handleEventsExport implements GET /events/export?format=json|markdown.
func (s *Server) handleEventsExport(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	res, err := s.query.ListEvents(store.ListEventsFilter{Limit: exportLimit})
	if err != nil {
		writeError(c, err)
		return
	}

	switch format {
	case "json":
		c.JSON(http.StatusOK, res.Items)
	case "markdown":
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, renderMarkdownExport(res.Items))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
	}
}

// exportLimit bounds the bulk dump to a single, generous page; a full
// streaming export is out of scope for this surface.
const exportLimit = 10000

func renderMarkdownExport(events []models.Event) string {
	out := "# Event export\n\n"
	for _, ev := range events {
		out += fmt.Sprintf("## %s — %s\n\n", ev.Kind, ev.Instant.Format("2006-01-02T15:04:05Z07:00"))
		if ev.Path != "" {
			out += fmt.Sprintf("Path: `%s`\n\n", ev.Path)
		}
		out += fmt.Sprintf("```json\n%s\n```\n\n", ev.Payload)
	}
	return out
}
