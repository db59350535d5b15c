// Package api implements the HTTP surface: a gin.Engine
// exposing the Store, Ingest, Query, Correlator, and Architecture
// Tracker components as JSON routes, plus the SSE live-push channel.
// Grounded on codeready-toolchain-tarsy's pkg/api.Server — a struct
// holding the service dependencies, with one handler method per route
// using gin.Context and gin.H.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anthropics/goclode/internal/broadcast"
	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
)

// coreStore is the subset of *store.Store the HTTP surface reads/writes
// directly (projects and AI-conversation listings; events and config go
// through queryAPI).
type coreStore interface {
	CreateProject(p models.Project) (models.Project, error)
	ReadProject(id int64) (models.Project, error)
	ListProjects(activeFilter *bool) ([]models.ProjectWithStats, error)
	PatchProject(id int64, patch store.ProjectPatch) (models.Project, error)
	DeleteProject(id int64) error
	AIConversationStats(projectID *int64) (store.AIStats, error)
	ListAIConversations(filter store.ListAIConversationsFilter) ([]models.AIConversation, int, error)
	ReadAIConversation(id int64) (models.AIConversation, error)
}

// watcherCtl is satisfied by watch.Supervisor.
type watcherCtl interface {
	StartProject(p models.Project) error
	Remove(projectID int64)
}

// archTracker is satisfied by archtrack.Tracker.
type archTracker interface {
	ParseOnCreate(project models.Project) error
	Refresh(project models.Project) error
}

// correlatorCtl is satisfied by correlate.Correlator, used by the manual
// match-trigger endpoint.
type correlatorCtl interface {
	Correlate(ctx context.Context, conversationID int64) error
}

// ingestAPI is satisfied by ingest.API.
type ingestAPI interface {
	LogPrompt(projectID *int64, text, source, model string) (models.Event, error)
	LogChat(projectID *int64, prompt, response, source, model, conversationID string) (models.Event, error)
	LogError(projectID *int64, message string, errContext any) (models.Event, error)
	LogAIConversation(c models.AIConversation) (models.AIConversation, error)
}

// queryAPI is satisfied by queryapi.API.
type queryAPI interface {
	ListEvents(filter store.ListEventsFilter) (store.ListEventsResult, error)
	ProjectConfig(ctx context.Context, projectID int64) (models.ProjectConfig, error)
	UpdateProjectConfig(ctx context.Context, projectID int64, cfg models.ProjectConfig) (models.Project, error)
	ConversationTimeline(conversationID int64) (models.ConversationTimeline, error)
	EventMatches(eventID int64) ([]models.AICodeMatch, error)
}

type broadcaster interface {
	Attach() *broadcast.Subscription
	Detach(sub *broadcast.Subscription)
}

// Server wires every component the HTTP surface depends on.
type Server struct {
	store      coreStore
	watchers   watcherCtl
	tracker    archTracker
	correlator correlatorCtl
	ingest     ingestAPI
	query      queryAPI
	bus        broadcaster
	logger     *slog.Logger

	corsEnabled bool
	corsOrigins []string
}

// Config wires a Server's dependencies.
type Config struct {
	Store       coreStore
	Watchers    watcherCtl
	Tracker     archTracker
	Correlator  correlatorCtl
	Ingest      ingestAPI
	Query       queryAPI
	Broadcaster broadcaster
	Logger      *slog.Logger
	CORSEnabled bool
	CORSOrigins []string
}

// New builds a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:       cfg.Store,
		watchers:    cfg.Watchers,
		tracker:     cfg.Tracker,
		correlator:  cfg.Correlator,
		ingest:      cfg.Ingest,
		query:       cfg.Query,
		bus:         cfg.Broadcaster,
		logger:      logger,
		corsEnabled: cfg.CORSEnabled,
		corsOrigins: cfg.CORSOrigins,
	}
}

// Router builds the gin.Engine with every route wired in. /ai-chat/stats
// is registered before /ai-chat/:id to avoid the route being shadowed.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.corsEnabled {
		r.Use(corsMiddleware(s.corsOrigins))
	}

	r.GET("/health", s.handleHealth)

	r.POST("/projects", s.handleCreateProject)
	r.GET("/projects", s.handleListProjects)
	r.GET("/projects/:id", s.handleReadProject)
	r.PATCH("/projects/:id", s.handlePatchProject)
	r.DELETE("/projects/:id", s.handleDeleteProject)
	r.GET("/projects/:id/config", s.handleReadProjectConfig)
	r.PUT("/projects/:id/config", s.handleUpdateProjectConfig)
	r.GET("/projects/:id/technical-doc", s.handleReadTechnicalDoc)
	r.POST("/projects/:id/technical-doc/refresh", s.handleRefreshTechnicalDoc)

	r.GET("/events", s.handleListEvents)
	r.GET("/events/stream", s.handleEventsStream)
	r.GET("/events/export", s.handleEventsExport)
	r.GET("/events/:id/matches", s.handleEventMatches)

	r.POST("/prompt", s.handleLogPrompt)
	r.POST("/copilot", s.handleLogChat)
	r.POST("/error", s.handleLogError)

	r.POST("/ai-chat", s.handleCreateAIConversation)
	r.GET("/ai-chat", s.handleListAIConversations)
	r.GET("/ai-chat/stats", s.handleAIStats)
	r.GET("/ai-chat/:id", s.handleReadAIConversation)
	r.GET("/ai-chat/:id/timeline", s.handleConversationTimeline)
	r.POST("/ai-chat/:id/match", s.handleManualMatch)

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
