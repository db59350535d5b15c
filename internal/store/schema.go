package store

// createTables is the idempotent base schema: CREATE TABLE IF NOT EXISTS
// plus indexes, executed as one batch on open.
const createTables = `
CREATE TABLE IF NOT EXISTS projects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	ignore_patterns TEXT NOT NULL DEFAULT '[]',
	architecture_doc_path TEXT NOT NULL DEFAULT '',
	architecture_json TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	project_id INTEGER,
	instant INTEGER NOT NULL,
	kind TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_events_project_id ON events(project_id, id);
CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind, id);

CREATE TABLE IF NOT EXISTS ai_conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	project_id INTEGER,
	provider TEXT NOT NULL DEFAULT '',
	model TEXT NOT NULL DEFAULT '',
	instant INTEGER NOT NULL,
	user_prompt TEXT NOT NULL DEFAULT '',
	assistant_response TEXT NOT NULL DEFAULT '',
	code_snippets TEXT NOT NULL DEFAULT '[]',
	file_references TEXT NOT NULL DEFAULT '[]',
	metadata TEXT NOT NULL DEFAULT '{}',
	matched_to_events TEXT NOT NULL DEFAULT '[]',
	confidence REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_ai_conv_project_instant ON ai_conversations(project_id, instant);
CREATE INDEX IF NOT EXISTS idx_ai_conv_session ON ai_conversations(session_id);

CREATE TABLE IF NOT EXISTS ai_code_matches (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id INTEGER NOT NULL,
	event_id INTEGER NOT NULL,
	category TEXT NOT NULL,
	confidence REAL NOT NULL,
	reasoning TEXT NOT NULL DEFAULT '',
	file_overlap_count INTEGER NOT NULL DEFAULT 0,
	time_delta_seconds INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ai_match_conversation ON ai_code_matches(conversation_id);
CREATE INDEX IF NOT EXISTS idx_ai_match_event ON ai_code_matches(event_id);
`

// columnSpec names a column a given table must have; used by the
// no-destructive-migration pass.
type columnSpec struct {
	table  string
	column string
	ddl    string // full "ADD COLUMN ..." fragment
}

// requiredColumns lists every column the current code expects. On open,
// the Store adds any of these missing from an existing table, leaving
// existing rows and unrelated columns untouched.
var requiredColumns = []columnSpec{
	{"projects", "architecture_json", "ADD COLUMN architecture_json TEXT NOT NULL DEFAULT ''"},
	{"projects", "architecture_doc_path", "ADD COLUMN architecture_doc_path TEXT NOT NULL DEFAULT ''"},
	{"ai_conversations", "confidence", "ADD COLUMN confidence REAL NOT NULL DEFAULT 0"},
	{"ai_conversations", "matched_to_events", "ADD COLUMN matched_to_events TEXT NOT NULL DEFAULT '[]'"},
}
