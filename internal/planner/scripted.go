package planner

import (
	"context"
	"sync"
)

// Step produces one planning result given the conversation so far.
type Step func(messages []ChatMessage) (*PlanResult, error)

// ScriptedPlanner replays a fixed sequence of planning steps. Once the steps
// are exhausted the last one repeats, which lets tests script a planner that
// keeps requesting tool calls forever. End-to-end tests inject it where the
// remote planner would sit.
type ScriptedPlanner struct {
	mu    sync.Mutex
	steps []Step
	calls int
}

var _ Planner = (*ScriptedPlanner)(nil)

// NewScriptedPlanner creates a planner that replays steps in order.
func NewScriptedPlanner(steps ...Step) *ScriptedPlanner {
	return &ScriptedPlanner{steps: steps}
}

// Calls reports how many planning round-trips were made.
func (s *ScriptedPlanner) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Plan runs the next scripted step.
func (s *ScriptedPlanner) Plan(ctx context.Context, messages []ChatMessage, tools []ToolDef) (*PlanResult, error) {
	s.mu.Lock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	step := s.steps[i]
	s.mu.Unlock()
	return step(messages)
}

// Answer is a step returning a final answer with no tool calls.
func Answer(text string) Step {
	return func([]ChatMessage) (*PlanResult, error) {
		return &PlanResult{Content: text}, nil
	}
}

// CallTool is a step requesting a single tool invocation.
func CallTool(id, name, args string) Step {
	return func([]ChatMessage) (*PlanResult, error) {
		return &PlanResult{ToolCalls: []ToolCall{{
			ID:       id,
			Type:     "function",
			Function: ToolCallFunction{Name: name, Arguments: args},
		}}}, nil
	}
}

// Fail is a step simulating an unreachable reasoning service.
func Fail(err error) Step {
	return func([]ChatMessage) (*PlanResult, error) {
		return nil, err
	}
}
