// Package planner abstracts the external reasoning service behind a single
// interface: given the conversation so far and the declared tool schemas, it
// returns either tool calls to execute or a final answer. Any concrete
// implementation (remote chat-completions API, heuristic mock, scripted stub
// for tests) can stand behind it.
package planner

import "context"

// ChatMessage is one conversation turn in OpenAI chat-completions shape.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolDef declares one invocable tool to the planner.
type ToolDef struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the function half of a tool declaration.
type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  interface{} `json:"parameters,omitempty"`
}

// ToolCall is a tool invocation requested by the planner.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the requested tool name and raw JSON arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// PlanResult is one planning step: zero or more tool calls, or a final
// answer when ToolCalls is empty.
type PlanResult struct {
	Content   string
	ToolCalls []ToolCall
}

// Planner selects the next action for an orchestration run.
type Planner interface {
	Plan(ctx context.Context, messages []ChatMessage, tools []ToolDef) (*PlanResult, error)
}
