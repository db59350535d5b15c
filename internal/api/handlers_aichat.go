package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
)

type createAIConversationRequest struct {
	SessionID         string         `json:"session_id"`
	ProjectID         *int64         `json:"project_id"`
	Provider          string         `json:"ai_provider" binding:"required"`
	Model             string         `json:"model"`
	UserPrompt        string         `json:"user_prompt" binding:"required"`
	AssistantResponse string         `json:"assistant_response"`
	Metadata          map[string]any `json:"metadata"`
}

// handleCreateAIConversation implements POST /ai-chat: insert the
// conversation and schedule the Correlator.
func (s *Server) handleCreateAIConversation(c *gin.Context) {
	var req createAIConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := s.ingest.LogAIConversation(models.AIConversation{
		SessionID:         req.SessionID,
		ProjectID:         req.ProjectID,
		Provider:          req.Provider,
		Model:             req.Model,
		UserPrompt:        req.UserPrompt,
		AssistantResponse: req.AssistantResponse,
		Metadata:          req.Metadata,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// handleListAIConversations implements GET /ai-chat.
func (s *Server) handleListAIConversations(c *gin.Context) {
	filter := store.ListAIConversationsFilter{
		Provider: c.Query("ai_provider"),
		Offset:   queryInt(c, "offset", 0),
		Limit:    queryInt(c, "limit", 50),
	}
	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		filter.ProjectID = &id
	}

	items, total, err := s.store.ListAIConversations(filter)
	if err != nil {
		writeError(c, err)
		return
	}
	if items == nil {
		items = []models.AIConversation{}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	totalPages := (total + limit - 1) / limit
	c.JSON(http.StatusOK, paginationEnvelope{
		Items: items, Total: total, Offset: filter.Offset, Limit: limit,
		Page: filter.Offset/limit + 1, TotalPages: totalPages,
	})
}

// handleAIStats implements GET /ai-chat/stats. Registered before
// /ai-chat/:id so it is never shadowed by the single-conversation route.
func (s *Server) handleAIStats(c *gin.Context) {
	var projectID *int64
	if v := c.Query("project_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project_id"})
			return
		}
		projectID = &id
	}

	stats, err := s.store.AIConversationStats(projectID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleReadAIConversation(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	conv, err := s.store.ReadAIConversation(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (s *Server) handleConversationTimeline(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	tl, err := s.query.ConversationTimeline(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tl)
}

// handleManualMatch implements POST /ai-chat/{id}/match: a manual
// Correlator trigger, run synchronously so the caller observes the
// outcome directly.
func (s *Server) handleManualMatch(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	if s.correlator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "correlator not configured"})
		return
	}
	if err := s.correlator.Correlate(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	tl, err := s.query.ConversationTimeline(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tl)
}
