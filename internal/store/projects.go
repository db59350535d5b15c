package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/storeerr"
)

// CreateProject inserts a new project. Returns storeerr Conflict if path
// is already registered.
func (s *Store) CreateProject(p models.Project) (models.Project, error) {
	if strings.TrimSpace(p.Path) == "" {
		return models.Project{}, storeerr.Validation("CreateProject", errors.New("path is required"))
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	patternsJSON, err := json.Marshal(p.IgnorePatterns)
	if err != nil {
		return models.Project{}, storeerr.Validation("CreateProject", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO projects (path, name, description, created_at, active, ignore_patterns, architecture_doc_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Path, p.Name, p.Description, p.CreatedAt.Unix(), boolToInt(p.Active), string(patternsJSON), p.ArchitectureDocPath)
	if err != nil {
		if isUniqueConstraint(err) {
			return models.Project{}, storeerr.Conflict("CreateProject", errors.New("project path already registered"))
		}
		return models.Project{}, storeerr.Transient("CreateProject", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.Project{}, storeerr.Transient("CreateProject", err)
	}
	p.ID = id
	return p, nil
}

// ReadProject returns a single project by id.
func (s *Store) ReadProject(id int64) (models.Project, error) {
	row := s.db.QueryRow(`
		SELECT id, path, name, description, created_at, active, ignore_patterns, architecture_doc_path, architecture_json
		FROM projects WHERE id = ?
	`, id)
	return scanProject(row)
}

// ListProjects returns all projects, optionally filtered by active flag,
// with derived stats attached.
func (s *Store) ListProjects(activeFilter *bool) ([]models.ProjectWithStats, error) {
	query := `SELECT id, path, name, description, created_at, active, ignore_patterns, architecture_doc_path, architecture_json FROM projects`
	var args []any
	if activeFilter != nil {
		query += " WHERE active = ?"
		args = append(args, boolToInt(*activeFilter))
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storeerr.Transient("ListProjects", err)
	}
	defer rows.Close()

	var out []models.ProjectWithStats
	for rows.Next() {
		p, err := scanProjectRows(rows)
		if err != nil {
			return nil, storeerr.Transient("ListProjects", err)
		}
		stats, err := s.projectStats(p.ID, p.Architecture)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ProjectWithStats{Project: p, Stats: stats})
	}
	return out, rows.Err()
}

func (s *Store) projectStats(projectID int64, arch *models.ArchitectureRecord) (models.ProjectStats, error) {
	var count int
	var lastUnix sql.NullInt64
	err := s.db.QueryRow(`SELECT COUNT(*), MAX(instant) FROM events WHERE project_id = ?`, projectID).Scan(&count, &lastUnix)
	if err != nil {
		return models.ProjectStats{}, storeerr.Transient("projectStats", err)
	}
	stats := models.ProjectStats{EventCount: count}
	if lastUnix.Valid {
		t := time.Unix(lastUnix.Int64, 0).UTC()
		stats.LastUpdated = &t
	}
	if arch != nil {
		stats.HasArchitecture = true
		stats.ChangeLogSize = len(arch.ChangeLog)
	}
	return stats, nil
}

// UpdateProjectConfig mutates the ignore-pattern list and architecture
// document path. The caller is
// responsible for invoking the Supervisor swap before returning to its
// own caller.
func (s *Store) UpdateProjectConfig(id int64, cfg models.ProjectConfig) (models.Project, error) {
	patternsJSON, err := json.Marshal(cfg.IgnorePatterns)
	if err != nil {
		return models.Project{}, storeerr.Validation("UpdateProjectConfig", err)
	}
	res, err := s.db.Exec(`
		UPDATE projects SET ignore_patterns = ?, architecture_doc_path = ? WHERE id = ?
	`, string(patternsJSON), cfg.ArchitectureDocPath, id)
	if err != nil {
		return models.Project{}, storeerr.Transient("UpdateProjectConfig", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Project{}, storeerr.NotFound("UpdateProjectConfig", errors.New("project not found"))
	}
	return s.ReadProject(id)
}

// ProjectPatch is a partial update applied by PatchProject
// (PATCH /projects/{id}); nil fields are left unchanged.
type ProjectPatch struct {
	Name        *string
	Description *string
	Active      *bool
}

func (s *Store) PatchProject(id int64, patch ProjectPatch) (models.Project, error) {
	cur, err := s.ReadProject(id)
	if err != nil {
		return models.Project{}, err
	}
	if patch.Name != nil {
		cur.Name = *patch.Name
	}
	if patch.Description != nil {
		cur.Description = *patch.Description
	}
	if patch.Active != nil {
		cur.Active = *patch.Active
	}
	_, err = s.db.Exec(`UPDATE projects SET name = ?, description = ?, active = ? WHERE id = ?`,
		cur.Name, cur.Description, boolToInt(cur.Active), id)
	if err != nil {
		return models.Project{}, storeerr.Transient("PatchProject", err)
	}
	return cur, nil
}

// UpdateArchitecture persists a project's parsed/updated ArchitectureRecord.
func (s *Store) UpdateArchitecture(id int64, arch *models.ArchitectureRecord) error {
	var archJSON string
	if arch != nil {
		b, err := json.Marshal(arch)
		if err != nil {
			return storeerr.Validation("UpdateArchitecture", err)
		}
		archJSON = string(b)
	}
	res, err := s.db.Exec(`UPDATE projects SET architecture_json = ? WHERE id = ?`, archJSON, id)
	if err != nil {
		return storeerr.Transient("UpdateArchitecture", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.NotFound("UpdateArchitecture", errors.New("project not found"))
	}
	return nil
}

// DeleteProject cascades to events and AI conversations/matches.
func (s *Store) DeleteProject(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return storeerr.Transient("DeleteProject", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM ai_code_matches WHERE conversation_id IN (SELECT id FROM ai_conversations WHERE project_id = ?)
	`, id); err != nil {
		return storeerr.Transient("DeleteProject", err)
	}
	if _, err := tx.Exec(`DELETE FROM ai_conversations WHERE project_id = ?`, id); err != nil {
		return storeerr.Transient("DeleteProject", err)
	}
	if _, err := tx.Exec(`DELETE FROM events WHERE project_id = ?`, id); err != nil {
		return storeerr.Transient("DeleteProject", err)
	}
	res, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return storeerr.Transient("DeleteProject", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.NotFound("DeleteProject", errors.New("project not found"))
	}
	if err := tx.Commit(); err != nil {
		return storeerr.Transient("DeleteProject", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (models.Project, error) {
	return scanProjectGeneric(row)
}

func scanProjectRows(rows *sql.Rows) (models.Project, error) {
	return scanProjectGeneric(rows)
}

func scanProjectGeneric(row rowScanner) (models.Project, error) {
	var (
		p                   models.Project
		createdAt           int64
		active              int
		patternsJSON        string
		archJSON            sql.NullString
	)
	err := row.Scan(&p.ID, &p.Path, &p.Name, &p.Description, &createdAt, &active, &patternsJSON, &p.ArchitectureDocPath, &archJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, storeerr.NotFound("ReadProject", err)
		}
		return models.Project{}, storeerr.Transient("ReadProject", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.Active = active != 0
	_ = json.Unmarshal([]byte(patternsJSON), &p.IgnorePatterns)
	if archJSON.Valid && archJSON.String != "" {
		var arch models.ArchitectureRecord
		if json.Unmarshal([]byte(archJSON.String), &arch) == nil {
			p.Architecture = &arch
		}
	}
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraint(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint")
}
