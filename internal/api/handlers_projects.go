package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/store"
)

func pathInt64(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

type createProjectRequest struct {
	Path                string   `json:"path" binding:"required"`
	Name                string   `json:"name" binding:"required"`
	Description         string   `json:"description"`
	Active              bool     `json:"active"`
	IgnorePatterns      []string `json:"ignore_patterns"`
	ArchitectureDocPath string   `json:"architecture_document_path"`
}

// handleCreateProject implements POST /projects: it writes the project,
// starts its Watcher if active, and parses its architecture document if
// one is named.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proj, err := s.store.CreateProject(models.Project{
		Path:                req.Path,
		Name:                req.Name,
		Description:         req.Description,
		Active:              req.Active,
		IgnorePatterns:      req.IgnorePatterns,
		ArchitectureDocPath: req.ArchitectureDocPath,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if proj.ArchitectureDocPath != "" {
		if err := s.tracker.ParseOnCreate(proj); err != nil {
			s.logger.Warn("api: architecture document parse failed", "project_id", proj.ID, "error", err)
		} else if refreshed, err := s.store.ReadProject(proj.ID); err == nil {
			proj = refreshed
		}
	}

	if proj.Active {
		if err := s.watchers.StartProject(proj); err != nil {
			s.logger.Error("api: watcher start failed", "project_id", proj.ID, "error", err)
		}
	}

	c.JSON(http.StatusCreated, proj)
}

// handleListProjects implements GET /projects.
func (s *Server) handleListProjects(c *gin.Context) {
	var activeFilter *bool
	if v := c.Query("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active filter"})
			return
		}
		activeFilter = &b
	}

	projects, err := s.store.ListProjects(activeFilter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": projects})
}

func (s *Server) handleReadProject(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	proj, err := s.store.ReadProject(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

type patchProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Active      *bool   `json:"active"`
}

func (s *Server) handlePatchProject(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	var req patchProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proj, err := s.store.PatchProject(id, store.ProjectPatch{Name: req.Name, Description: req.Description, Active: req.Active})
	if err != nil {
		writeError(c, err)
		return
	}

	if req.Active != nil {
		if proj.Active {
			if err := s.watchers.StartProject(proj); err != nil {
				s.logger.Error("api: watcher start failed", "project_id", proj.ID, "error", err)
			}
		} else {
			s.watchers.Remove(proj.ID)
		}
	}

	c.JSON(http.StatusOK, proj)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(id); err != nil {
		writeError(c, err)
		return
	}
	s.watchers.Remove(id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReadProjectConfig(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	cfg, err := s.query.ProjectConfig(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handleUpdateProjectConfig(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	var cfg models.ProjectConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proj, err := s.query.UpdateProjectConfig(c.Request.Context(), id, cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

func (s *Server) handleReadTechnicalDoc(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	proj, err := s.store.ReadProject(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if proj.Architecture == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no architecture document parsed for this project"})
		return
	}
	c.JSON(http.StatusOK, proj.Architecture)
}

func (s *Server) handleRefreshTechnicalDoc(c *gin.Context) {
	id, ok := pathInt64(c, "id")
	if !ok {
		return
	}
	proj, err := s.store.ReadProject(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if proj.ArchitectureDocPath == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project has no architecture_document_path configured"})
		return
	}
	if err := s.tracker.Refresh(proj); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	refreshed, err := s.store.ReadProject(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, refreshed.Architecture)
}
