package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/goclode/internal/models"
	"github.com/anthropics/goclode/internal/storeerr"
	"github.com/google/uuid"
)

// InsertAIConversation stores a new conversation row, generating a session
// id if the caller omitted one.
func (s *Store) InsertAIConversation(c models.AIConversation) (models.AIConversation, error) {
	if strings.TrimSpace(c.SessionID) == "" {
		c.SessionID = uuid.New().String()
	}
	if c.Instant.IsZero() {
		c.Instant = time.Now().UTC()
	}

	snippetsJSON, _ := json.Marshal(c.CodeSnippets)
	refsJSON, _ := json.Marshal(c.FileReferences)
	metaJSON, _ := json.Marshal(c.Metadata)
	matchedJSON, _ := json.Marshal(c.MatchedToEvents)

	res, err := s.db.Exec(`
		INSERT INTO ai_conversations
			(session_id, project_id, provider, model, instant, user_prompt, assistant_response,
			 code_snippets, file_references, metadata, matched_to_events, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.SessionID, nullableID(c.ProjectID), c.Provider, c.Model, c.Instant.Unix(),
		c.UserPrompt, c.AssistantResponse, string(snippetsJSON), string(refsJSON),
		string(metaJSON), string(matchedJSON), c.Confidence)
	if err != nil {
		return models.AIConversation{}, storeerr.Transient("InsertAIConversation", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.AIConversation{}, storeerr.Transient("InsertAIConversation", err)
	}
	c.ID = id
	return c, nil
}

// ReadAIConversation returns a single conversation by id.
func (s *Store) ReadAIConversation(id int64) (models.AIConversation, error) {
	row := s.db.QueryRow(`
		SELECT id, session_id, project_id, provider, model, instant, user_prompt, assistant_response,
		       code_snippets, file_references, metadata, matched_to_events, confidence
		FROM ai_conversations WHERE id = ?
	`, id)
	return scanConversation(row)
}

// ListAIConversationsFilter holds GET /ai-chat's query parameters.
type ListAIConversationsFilter struct {
	ProjectID *int64
	Provider  string
	Offset    int
	Limit     int
}

func (s *Store) ListAIConversations(filter ListAIConversationsFilter) ([]models.AIConversation, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var clauses []string
	var args []any
	if filter.ProjectID != nil {
		clauses = append(clauses, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Provider != "" {
		clauses = append(clauses, "provider = ?")
		args = append(args, filter.Provider)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM ai_conversations"+where, args...).Scan(&total); err != nil {
		return nil, 0, storeerr.Transient("ListAIConversations", err)
	}

	query := `SELECT id, session_id, project_id, provider, model, instant, user_prompt, assistant_response,
		code_snippets, file_references, metadata, matched_to_events, confidence
		FROM ai_conversations` + where + " ORDER BY id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.Query(query, append(append([]any{}, args...), limit, filter.Offset)...)
	if err != nil {
		return nil, 0, storeerr.Transient("ListAIConversations", err)
	}
	defer rows.Close()

	var out []models.AIConversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// AIStats aggregates totals and per-provider counts for GET /ai-chat/stats.
type AIStats struct {
	Total        int            `json:"total"`
	ByProvider   map[string]int `json:"by_provider"`
	TotalMatches int            `json:"total_matches"`
}

func (s *Store) AIConversationStats(projectID *int64) (AIStats, error) {
	where := ""
	var args []any
	if projectID != nil {
		where = " WHERE project_id = ?"
		args = append(args, *projectID)
	}

	stats := AIStats{ByProvider: make(map[string]int)}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM ai_conversations"+where, args...).Scan(&stats.Total); err != nil {
		return stats, storeerr.Transient("AIConversationStats", err)
	}

	rows, err := s.db.Query("SELECT provider, COUNT(*) FROM ai_conversations"+where+" GROUP BY provider", args...)
	if err != nil {
		return stats, storeerr.Transient("AIConversationStats", err)
	}
	defer rows.Close()
	for rows.Next() {
		var provider string
		var count int
		if err := rows.Scan(&provider, &count); err != nil {
			return stats, storeerr.Transient("AIConversationStats", err)
		}
		stats.ByProvider[provider] = count
	}

	matchWhere := ""
	if projectID != nil {
		matchWhere = " JOIN ai_conversations ON ai_conversations.id = ai_code_matches.conversation_id WHERE ai_conversations.project_id = ?"
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM ai_code_matches"+matchWhere, args...).Scan(&stats.TotalMatches); err != nil {
		return stats, storeerr.Transient("AIConversationStats", err)
	}
	return stats, nil
}

// UpdateConversationMatches sets matched_to_events and the aggregate
// confidence after the Correlator runs.
func (s *Store) UpdateConversationMatches(id int64, eventIDs []int64, confidence float64) error {
	b, _ := json.Marshal(eventIDs)
	res, err := s.db.Exec(`UPDATE ai_conversations SET matched_to_events = ?, confidence = ? WHERE id = ?`, string(b), confidence, id)
	if err != nil {
		return storeerr.Transient("UpdateConversationMatches", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storeerr.NotFound("UpdateConversationMatches", errors.New("conversation not found"))
	}
	return nil
}

func scanConversation(row rowScanner) (models.AIConversation, error) {
	var (
		c                                              models.AIConversation
		projectID                                      sql.NullInt64
		instant                                        int64
		snippetsJSON, refsJSON, metaJSON, matchedJSON  string
	)
	err := row.Scan(&c.ID, &c.SessionID, &projectID, &c.Provider, &c.Model, &instant,
		&c.UserPrompt, &c.AssistantResponse, &snippetsJSON, &refsJSON, &metaJSON, &matchedJSON, &c.Confidence)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AIConversation{}, storeerr.NotFound("ReadAIConversation", err)
		}
		return models.AIConversation{}, storeerr.Transient("ReadAIConversation", err)
	}
	if projectID.Valid {
		id := projectID.Int64
		c.ProjectID = &id
	}
	c.Instant = time.Unix(instant, 0).UTC()
	_ = json.Unmarshal([]byte(snippetsJSON), &c.CodeSnippets)
	_ = json.Unmarshal([]byte(refsJSON), &c.FileReferences)
	_ = json.Unmarshal([]byte(metaJSON), &c.Metadata)
	_ = json.Unmarshal([]byte(matchedJSON), &c.MatchedToEvents)
	return c, nil
}
