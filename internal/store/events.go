package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/storeerr"
)

// AppendEvent is atomic: it returns the assigned id once the row is
// durable, never before.
func (s *Store) AppendEvent(kind models.EventKind, projectID *int64, path string, payload any) (models.Event, error) {
	if !models.ValidKind(kind) {
		return models.Event{}, storeerr.Validation("AppendEvent", errors.New("unknown event kind"))
	}
	raw, err := models.EncodePayload(payload)
	if err != nil {
		return models.Event{}, storeerr.Validation("AppendEvent", err)
	}
	instant := time.Now().UTC()

	res, err := s.db.Exec(`
		INSERT INTO events (project_id, instant, kind, path, payload) VALUES (?, ?, ?, ?, ?)
	`, nullableID(projectID), instant.Unix(), string(kind), path, string(raw))
	if err != nil {
		return models.Event{}, storeerr.Transient("AppendEvent", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Event{}, storeerr.Transient("AppendEvent", err)
	}

	return models.Event{
		ID:        id,
		ProjectID: projectID,
		Instant:   instant,
		Kind:      kind,
		Path:      path,
		Payload:   raw,
	}, nil
}

// ReadEvent returns a single event by id.
func (s *Store) ReadEvent(id int64) (models.Event, error) {
	row := s.db.QueryRow(`SELECT id, project_id, instant, kind, path, payload FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// ListEventsFilter holds the parameters list_events accepts.
type ListEventsFilter struct {
	ProjectID *int64
	Kind      *models.EventKind
	Search    string
	Offset    int
	Limit     int
}

// ListEventsResult is the pagination envelope returned by ListEvents.
type ListEventsResult struct {
	Items      []models.Event
	Total      int
	Offset     int
	Limit      int
	Page       int
	TotalPages int
}

// ListEvents returns a page of events, newest first, matching filter.
// total reflects the same filter set as items.
func (s *Store) ListEvents(filter ListEventsFilter) (ListEventsResult, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := buildEventWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM events" + where
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return ListEventsResult{}, storeerr.Transient("ListEvents", err)
	}

	query := "SELECT id, project_id, instant, kind, path, payload FROM events" + where + " ORDER BY id DESC LIMIT ? OFFSET ?"
	queryArgs := append(append([]any{}, args...), limit, offset)

	rows, err := s.db.Query(query, queryArgs...)
	if err != nil {
		return ListEventsResult{}, storeerr.Transient("ListEvents", err)
	}
	defer rows.Close()

	var items []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return ListEventsResult{}, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return ListEventsResult{}, storeerr.Transient("ListEvents", err)
	}

	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	page := offset/limit + 1

	return ListEventsResult{
		Items:      items,
		Total:      total,
		Offset:     offset,
		Limit:      limit,
		Page:       page,
		TotalPages: totalPages,
	}, nil
}

func buildEventWhere(filter ListEventsFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.ProjectID != nil {
		clauses = append(clauses, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Kind != nil {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(*filter.Kind))
	}
	if filter.Search != "" {
		needle := "%" + strings.ToLower(filter.Search) + "%"
		clauses = append(clauses, "(LOWER(path) LIKE ? OR LOWER(payload) LIKE ?)")
		args = append(args, needle, needle)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEvent(row rowScanner) (models.Event, error) {
	var (
		e         models.Event
		projectID sql.NullInt64
		instant   int64
		payload   string
	)
	err := row.Scan(&e.ID, &projectID, &instant, &e.Kind, &e.Path, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, storeerr.NotFound("ReadEvent", err)
		}
		return models.Event{}, storeerr.Transient("ReadEvent", err)
	}
	if projectID.Valid {
		id := projectID.Int64
		e.ProjectID = &id
	}
	e.Instant = time.Unix(instant, 0).UTC()
	e.Payload = []byte(payload)
	return e, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
