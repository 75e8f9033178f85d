package domain

import (
	"encoding/json"
	"time"
)

// Session is the time-bounded binding between an identifier and an uploaded
// dataset. The dataset itself is held by the session registry; this struct
// carries the metadata that survives onto the wire.
type Session struct {
	SessionID  string    `json:"session_id"`
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
	LastAccess time.Time `json:"last_access"`
}

// Run records one query's full plan/act cycle.
type Run struct {
	RunID     string          `json:"run_id"`
	SessionID string          `json:"session_id"`
	Query     string          `json:"query"`
	Status    RunStatus       `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// Message is a single conversation turn recorded for a run.
type Message struct {
	MessageID string    `json:"message_id"`
	RunID     string    `json:"run_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToolCallRecord is the persisted trace of one tool execution.
type ToolCallRecord struct {
	ToolCallID string          `json:"tool_call_id"`
	RunID      string          `json:"run_id"`
	ToolName   string          `json:"tool_name"`
	Status     ToolCallStatus  `json:"status"`
	Args       json.RawMessage `json:"args,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Chart is a structured chart description for client-side rendering.
// X values are coerced to strings and Y values to numbers at tool time.
type Chart struct {
	ChartType string    `json:"chart_type"`
	Title     string    `json:"title"`
	X         []string  `json:"x"`
	Y         []float64 `json:"y"`
	XLabel    string    `json:"x_label"`
	YLabel    string    `json:"y_label"`
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

// QueryResult is the immutable outcome of one orchestration run.
// Visualization, when present, is either a JSON-encoded Chart or a
// self-describing embedded image string; clients distinguish by the
// "data:image/" prefix.
type QueryResult struct {
	Success       bool                     `json:"success"`
	Result        string                   `json:"result,omitempty"`
	Visualization string                   `json:"visualization,omitempty"`
	Data          []map[string]interface{} `json:"data,omitempty"`
	Error         string                   `json:"error,omitempty"`
	Query         string                   `json:"query"`
}

// UploadResult is the body of a successful POST /upload.
type UploadResult struct {
	SessionID    string   `json:"session_id"`
	Filename     string   `json:"filename"`
	Columns      []string `json:"columns"`
	Rows         int      `json:"rows"`
	ColumnsCount int      `json:"columns_count"`
}

// SessionInfo is the body of GET /session/{id}.
type SessionInfo struct {
	Filename  string   `json:"filename"`
	Columns   []string `json:"columns"`
	Shape     [2]int   `json:"shape"`
	CreatedAt string   `json:"created_at"`
}
