package models

import "time"

// Project is a registered, watched directory.
type Project struct {
	ID                    int64     `json:"id"`
	Path                  string    `json:"path"`
	Name                  string    `json:"name"`
	Description           string    `json:"description,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	Active                bool      `json:"active"`
	IgnorePatterns        []string  `json:"ignore_patterns"`
	ArchitectureDocPath   string    `json:"architecture_document_path,omitempty"`
	Architecture          *ArchitectureRecord `json:"architecture,omitempty"`
}

// ProjectStats carries the derived statistics list_projects attaches to
// each project.
type ProjectStats struct {
	EventCount      int        `json:"event_count"`
	HasArchitecture bool       `json:"has_architecture"`
	ChangeLogSize   int        `json:"change_log_size"`
	LastUpdated     *time.Time `json:"last_updated,omitempty"`
}

// ProjectWithStats is the shape list_projects / GET /projects returns.
type ProjectWithStats struct {
	Project
	Stats ProjectStats `json:"stats"`
}

// ProjectConfig is the narrow read/write shape exposed by
// GET/PUT /projects/{id}/config.
type ProjectConfig struct {
	IgnorePatterns      []string `json:"ignore_patterns"`
	ArchitectureDocPath string   `json:"architecture_document_path"`
}
