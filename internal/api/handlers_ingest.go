package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type logPromptRequest struct {
	ProjectID *int64 `json:"project_id"`
	Text      string `json:"text" binding:"required"`
	Source    string `json:"source"`
	Model     string `json:"model"`
}

// handleLogPrompt implements POST /prompt.
func (s *Server) handleLogPrompt(c *gin.Context) {
	var req logPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := s.ingest.LogPrompt(req.ProjectID, req.Text, req.Source, req.Model)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

type logChatRequest struct {
	ProjectID      *int64 `json:"project_id"`
	Prompt         string `json:"prompt" binding:"required"`
	Response       string `json:"response" binding:"required"`
	Source         string `json:"source"`
	Model          string `json:"model"`
	ConversationID string `json:"conversation_id"`
}

// handleLogChat implements POST /copilot.
func (s *Server) handleLogChat(c *gin.Context) {
	var req logChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := s.ingest.LogChat(req.ProjectID, req.Prompt, req.Response, req.Source, req.Model, req.ConversationID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

type logErrorRequest struct {
	ProjectID *int64 `json:"project_id"`
	Message   string `json:"message" binding:"required"`
	Context   any    `json:"context"`
}

// handleLogError implements POST /error.
func (s *Server) handleLogError(c *gin.Context) {
	var req logErrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ev, err := s.ingest.LogError(req.ProjectID, req.Message, req.Context)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}
