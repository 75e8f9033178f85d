// Package store defines the query-history persistence interface and its
// SQLite implementation. History is a trace of past runs; the live dataset
// itself never touches the store.
package store

import (
	"context"

	"github.com/csvchat/csvchat/internal/domain"
)

// Store persists the trace of orchestration runs.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error

	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error
	ListRuns(ctx context.Context, sessionID string, limit int) ([]domain.Run, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessages(ctx context.Context, runID string, limit int) ([]domain.Message, error)

	// ToolCall operations
	CreateToolCall(ctx context.Context, record *domain.ToolCallRecord) error
	ListToolCalls(ctx context.Context, runID string) ([]domain.ToolCallRecord, error)

	// Lifecycle
	Close() error
}
