package planner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTools() []ToolDef {
	return []ToolDef{{
		Type:     "function",
		Function: ToolFunction{Name: "get_data_info"},
	}}
}

func TestMockPlanner(t *testing.T) {
	m := NewMockPlanner()
	ctx := context.Background()

	messages := []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "what is in this file?"},
	}

	// First turn asks for dataset info.
	plan, err := m.Plan(ctx, messages, testTools())
	require.NoError(t, err)
	require.Len(t, plan.ToolCalls, 1)
	assert.Equal(t, "get_data_info", plan.ToolCalls[0].Function.Name)

	// After a tool result, it answers.
	messages = append(messages,
		ChatMessage{Role: "assistant", ToolCalls: plan.ToolCalls},
		ChatMessage{Role: "tool", Content: `{"shape":"3 rows"}`, ToolCallID: plan.ToolCalls[0].ID},
	)
	plan, err = m.Plan(ctx, messages, testTools())
	require.NoError(t, err)
	assert.Empty(t, plan.ToolCalls)
	assert.Contains(t, plan.Content, "[MOCK]")
	assert.Contains(t, plan.Content, "3 rows")
}

func TestScriptedPlanner(t *testing.T) {
	s := NewScriptedPlanner(
		CallTool("tc1", "execute_query", `{"expression":"sum(sales)"}`),
		Answer("done"),
	)
	ctx := context.Background()

	plan, err := s.Plan(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, plan.ToolCalls, 1)
	assert.Equal(t, "tc1", plan.ToolCalls[0].ID)

	plan, err = s.Plan(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", plan.Content)

	// Exhausted scripts repeat the last step.
	plan, err = s.Plan(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "done", plan.Content)
	assert.Equal(t, 3, s.Calls())

	f := NewScriptedPlanner(Fail(errors.New("boom")))
	_, err = f.Plan(ctx, nil, nil)
	assert.Error(t, err)
}

func TestClientPlan(t *testing.T) {
	var gotAuth string
	var gotReq chatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []choice{{
				Message: &ChatMessage{
					Role: "assistant",
					ToolCalls: []ToolCall{{
						ID:       "call_1",
						Type:     "function",
						Function: ToolCallFunction{Name: "execute_query", Arguments: `{"expression":"sum(sales)"}`},
					}},
				},
			}},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL, "sk-test", "gpt-4o-mini", time.Second)
	plan, err := c.Plan(context.Background(), []ChatMessage{{Role: "user", Content: "total sales"}}, testTools())
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Tools, 1)
	require.Len(t, plan.ToolCalls, 1)
	assert.Equal(t, "execute_query", plan.ToolCalls[0].Function.Name)
}

func TestClientPlanAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(errorResponse{Error: &apiError{Message: "rate limited", Type: "rate_limit_error"}})
	}))
	defer server.Close()

	c := NewClient(server.URL, "sk-test", "gpt-4o-mini", time.Second)
	_, err := c.Plan(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LLM API error [429]")
	assert.Contains(t, err.Error(), "rate limited")
}

func TestClientPlanNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionResponse{})
	}))
	defer server.Close()

	c := NewClient(server.URL, "", "gpt-4o-mini", time.Second)
	_, err := c.Plan(context.Background(), nil, nil)
	assert.Error(t, err)
}
