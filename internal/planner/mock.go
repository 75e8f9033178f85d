package planner

import (
	"context"
	"fmt"
)

// MockPlanner is a deterministic offline planner: on the first turn it asks
// for the dataset info tool, then answers by echoing the tool output. Useful
// for running the service without an upstream LLM.
type MockPlanner struct{}

var _ Planner = (*MockPlanner)(nil)

// NewMockPlanner creates a mock planner.
func NewMockPlanner() *MockPlanner {
	return &MockPlanner{}
}

// Plan requests get_data_info once, then produces a final answer.
func (m *MockPlanner) Plan(ctx context.Context, messages []ChatMessage, tools []ToolDef) (*PlanResult, error) {
	var lastTool, lastUser string
	for _, msg := range messages {
		switch msg.Role {
		case "tool":
			lastTool = msg.Content
		case "user":
			lastUser = msg.Content
		}
	}

	if lastTool == "" && hasTool(tools, "get_data_info") {
		return &PlanResult{
			ToolCalls: []ToolCall{{
				ID:   "mock_tc_1",
				Type: "function",
				Function: ToolCallFunction{
					Name:      "get_data_info",
					Arguments: "{}",
				},
			}},
		}, nil
	}

	if lastTool != "" {
		return &PlanResult{
			Content: fmt.Sprintf("[MOCK] Based on the dataset: %s", truncate(lastTool, 400)),
		}, nil
	}
	return &PlanResult{
		Content: fmt.Sprintf("[MOCK] Received your question: %q.", truncate(lastUser, 100)),
	}, nil
}

func hasTool(tools []ToolDef, name string) bool {
	for _, t := range tools {
		if t.Function.Name == name {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
