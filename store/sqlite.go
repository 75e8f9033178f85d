package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/csvchat/csvchat/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			filename TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			query TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			error TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_run ON messages(run_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			tool_call_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			status TEXT NOT NULL,
			args TEXT,
			result TEXT,
			error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_run ON tool_calls(run_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession records a session's metadata.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, filename, created_at) VALUES (?, ?, ?)`,
		session.SessionID, session.Filename, session.CreatedAt)
	return err
}

// CreateRun creates a new run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, session_id, query, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.RunID, run.SessionID, run.Query, run.Status, run.StartedAt)
	return err
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	var run domain.Run
	var errData sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, session_id, query, status, started_at, ended_at, error FROM runs WHERE run_id = ?`,
		runID).Scan(&run.RunID, &run.SessionID, &run.Query, &run.Status, &run.StartedAt, &endedAt, &errData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	if errData.Valid {
		run.Error = []byte(errData.String)
	}
	return &run, nil
}

// UpdateRunCompleted updates a run to a terminal state.
func (s *SQLiteStore) UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error {
	var errStr sql.NullString
	if errData != nil {
		errStr = sql.NullString{String: string(errData), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, ended_at = CURRENT_TIMESTAMP, error = ? WHERE run_id = ?`,
		status, errStr, runID)
	return err
}

// ListRuns retrieves the run history of a session, most recent first.
func (s *SQLiteStore) ListRuns(ctx context.Context, sessionID string, limit int) ([]domain.Run, error) {
	query := `SELECT run_id, session_id, query, status, started_at, ended_at, error FROM runs WHERE session_id = ? ORDER BY started_at DESC`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		var errData sql.NullString
		var endedAt sql.NullTime
		if err := rows.Scan(&run.RunID, &run.SessionID, &run.Query, &run.Status, &run.StartedAt, &endedAt, &errData); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		if errData.Valid {
			run.Error = []byte(errData.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CreateMessage records one conversation turn.
func (s *SQLiteStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, run_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		message.MessageID, message.RunID, message.Role, message.Content, message.CreatedAt)
	return err
}

// GetMessages retrieves the recorded turns of a run in order.
func (s *SQLiteStore) GetMessages(ctx context.Context, runID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, run_id, role, content, created_at FROM messages WHERE run_id = ? ORDER BY created_at ASC`
	args := []interface{}{runID}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.RunID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CreateToolCall records one tool execution.
func (s *SQLiteStore) CreateToolCall(ctx context.Context, record *domain.ToolCallRecord) error {
	var result sql.NullString
	if record.Result != nil {
		result = sql.NullString{String: string(record.Result), Valid: true}
	}
	var errStr sql.NullString
	if record.Error != "" {
		errStr = sql.NullString{String: record.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (tool_call_id, run_id, tool_name, status, args, result, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ToolCallID, record.RunID, record.ToolName, record.Status, string(record.Args), result, errStr, record.CreatedAt)
	return err
}

// ListToolCalls retrieves the tool calls of a run in order.
func (s *SQLiteStore) ListToolCalls(ctx context.Context, runID string) ([]domain.ToolCallRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_call_id, run_id, tool_name, status, args, result, error, created_at FROM tool_calls WHERE run_id = ? ORDER BY created_at ASC`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ToolCallRecord
	for rows.Next() {
		var rec domain.ToolCallRecord
		var args, result, errStr sql.NullString
		if err := rows.Scan(&rec.ToolCallID, &rec.RunID, &rec.ToolName, &rec.Status, &args, &result, &errStr, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if args.Valid {
			rec.Args = []byte(args.String)
		}
		if result.Valid {
			rec.Result = []byte(result.String)
		}
		if errStr.Valid {
			rec.Error = errStr.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
