package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/storeerr"
)

// InsertAIMatch records one Correlator-produced AICodeMatch row.
func (s *Store) InsertAIMatch(m models.AICodeMatch) (models.AICodeMatch, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO ai_code_matches
			(conversation_id, event_id, category, confidence, reasoning, file_overlap_count, time_delta_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ConversationID, m.EventID, string(m.Category), m.Confidence, m.Reasoning,
		m.FileOverlapCount, m.TimeDeltaSeconds, m.CreatedAt.Unix())
	if err != nil {
		return models.AICodeMatch{}, storeerr.Transient("InsertAIMatch", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.AICodeMatch{}, storeerr.Transient("InsertAIMatch", err)
	}
	m.ID = id
	return m, nil
}

// ListAIMatches returns every match recorded against a conversation,
// ordered by descending confidence.
func (s *Store) ListAIMatches(conversationID int64) ([]models.AICodeMatch, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, event_id, category, confidence, reasoning, file_overlap_count, time_delta_seconds, created_at
		FROM ai_code_matches WHERE conversation_id = ? ORDER BY confidence DESC
	`, conversationID)
	if err != nil {
		return nil, storeerr.Transient("ListAIMatches", err)
	}
	defer rows.Close()

	var out []models.AICodeMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MatchesForEvent returns every match recorded against a given event, used
// when building a timeline entry from the event side.
func (s *Store) MatchesForEvent(eventID int64) ([]models.AICodeMatch, error) {
	rows, err := s.db.Query(`
		SELECT id, conversation_id, event_id, category, confidence, reasoning, file_overlap_count, time_delta_seconds, created_at
		FROM ai_code_matches WHERE event_id = ? ORDER BY confidence DESC
	`, eventID)
	if err != nil {
		return nil, storeerr.Transient("MatchesForEvent", err)
	}
	defer rows.Close()

	var out []models.AICodeMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMatch(row rowScanner) (models.AICodeMatch, error) {
	var (
		m         models.AICodeMatch
		category  string
		createdAt int64
	)
	err := row.Scan(&m.ID, &m.ConversationID, &m.EventID, &category, &m.Confidence,
		&m.Reasoning, &m.FileOverlapCount, &m.TimeDeltaSeconds, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AICodeMatch{}, storeerr.NotFound("scanMatch", err)
		}
		return models.AICodeMatch{}, storeerr.Transient("scanMatch", err)
	}
	m.Category = models.MatchCategory(category)
	m.CreatedAt = time.Unix(createdAt, 0).UTC()
	return m, nil
}
