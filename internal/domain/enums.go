// Package domain defines the core domain models for the query service.
package domain

// RunStatus represents the status of an orchestration run.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "CREATED"
	RunStatusPlanning  RunStatus = "PLANNING"
	RunStatusActing    RunStatus = "ACTING"
	RunStatusAnswering RunStatus = "ANSWERING"
	RunStatusFailed    RunStatus = "FAILED"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallStatus represents the outcome of a single tool call.
type ToolCallStatus string

const (
	ToolCallStatusSucceeded ToolCallStatus = "SUCCEEDED"
	ToolCallStatusFailed    ToolCallStatus = "FAILED"
	ToolCallStatusBlocked   ToolCallStatus = "BLOCKED"
)
