package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csvchat/csvchat/config"
	"github.com/csvchat/csvchat/internal/domain"
	"github.com/csvchat/csvchat/internal/planner"
	"github.com/csvchat/csvchat/internal/session"
	"github.com/csvchat/csvchat/internal/tools"
	"github.com/csvchat/csvchat/policy"
	"github.com/csvchat/csvchat/tests/helpers"
)

const salesCSV = "month,region,sales\nJan,west,100\nFeb,east,300\nMar,west,200\n"

func testConfig() *config.Config {
	return &config.Config{
		MaxUploadBytes: 1 << 20,
		SessionTTL:     30 * time.Minute,
		TurnLimit:      5,
		RunTimeout:     5 * time.Second,
	}
}

func newTestService(t *testing.T, p planner.Planner) *Service {
	t.Helper()

	registry := session.NewRegistry(30*time.Minute, 0)
	t.Cleanup(registry.Close)

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	return New(registry, tools.NewRegistry(), p, engine, helpers.NewTestSQLiteStore(t), testConfig())
}

func uploadSales(t *testing.T, svc *Service) string {
	t.Helper()
	res, err := svc.Upload(context.Background(), "sales.csv", "", []byte(salesCSV))
	require.NoError(t, err)
	return res.SessionID
}

func TestUpload(t *testing.T) {
	svc := newTestService(t, planner.NewMockPlanner())

	t.Run("Success", func(t *testing.T) {
		res, err := svc.Upload(context.Background(), "sales.csv", "", []byte(salesCSV))
		require.NoError(t, err)
		assert.NotEmpty(t, res.SessionID)
		assert.Equal(t, []string{"month", "region", "sales"}, res.Columns)
		assert.Equal(t, 3, res.Rows)
		assert.Equal(t, 3, res.ColumnsCount)
	})

	t.Run("Rejects Non CSV Filename", func(t *testing.T) {
		_, err := svc.Upload(context.Background(), "report.xlsx", "", []byte(salesCSV))
		assert.Equal(t, domain.CodeMalformedInput, domain.CodeOf(err))
	})

	t.Run("Rejects Malformed Payload", func(t *testing.T) {
		_, err := svc.Upload(context.Background(), "bad.csv", "", []byte("a,b\n1,2,3\n"))
		assert.Equal(t, domain.CodeMalformedInput, domain.CodeOf(err))
	})
}

func TestProcessQueryToolCallThenAnswer(t *testing.T) {
	p := planner.NewScriptedPlanner(
		planner.CallTool("tc1", "execute_query", `{"expression":"max(sales)"}`),
		func(messages []planner.ChatMessage) (*planner.PlanResult, error) {
			last := messages[len(messages)-1]
			require.Equal(t, "tool", last.Role)
			require.Contains(t, last.Content, "300")
			return &planner.PlanResult{Content: "The best month was Feb with 300 in sales."}, nil
		},
	)
	svc := newTestService(t, p)
	id := uploadSales(t, svc)

	result, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "which month had the highest sales?"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Contains(t, result.Result, "Feb")
	assert.Equal(t, "which month had the highest sales?", result.Query)
	assert.Empty(t, result.Error)
	assert.Equal(t, 2, p.Calls())
}

func TestProcessQueryValidation(t *testing.T) {
	svc := newTestService(t, planner.NewMockPlanner())
	id := uploadSales(t, svc)

	_, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: "", Query: "q"})
	assert.Equal(t, domain.CodeMalformedInput, domain.CodeOf(err))

	_, err = svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "   "})
	assert.Equal(t, domain.CodeMalformedInput, domain.CodeOf(err))

	_, err = svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: "unknown", Query: "q"})
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))
}

func TestProcessQueryTurnLimit(t *testing.T) {
	// A planner that never stops calling tools exhausts the turn budget.
	p := planner.NewScriptedPlanner(
		planner.CallTool("tc", "get_data_info", `{}`),
	)
	svc := newTestService(t, p)
	id := uploadSales(t, svc)

	result, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "loop forever"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "5 turns")
	assert.Equal(t, 5, p.Calls())
}

func TestProcessQueryPlannerFailure(t *testing.T) {
	p := planner.NewScriptedPlanner(planner.Fail(errors.New("connection refused")))
	svc := newTestService(t, p)
	id := uploadSales(t, svc)

	result, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "q"})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unavailable")
	// Internal detail must not leak into the client-facing message.
	assert.NotContains(t, result.Error, "connection refused")
}

func TestProcessQueryRecoversFromToolErrors(t *testing.T) {
	p := planner.NewScriptedPlanner(
		planner.CallTool("tc1", "execute_query", `{"expression":"sum(revenue)"}`),
		func(messages []planner.ChatMessage) (*planner.PlanResult, error) {
			last := messages[len(messages)-1]
			require.Equal(t, "tool", last.Role)
			require.Contains(t, last.Content, "tool error")
			require.Contains(t, last.Content, "revenue")
			// The planner corrects itself using the error feedback.
			return &planner.PlanResult{ToolCalls: []planner.ToolCall{{
				ID:       "tc2",
				Type:     "function",
				Function: planner.ToolCallFunction{Name: "execute_query", Arguments: `{"expression":"sum(sales)"}`},
			}}}, nil
		},
		planner.Answer("Total sales were 600."),
	)
	svc := newTestService(t, p)
	id := uploadSales(t, svc)

	result, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "total revenue?"})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Contains(t, result.Result, "600")
	assert.Equal(t, 3, p.Calls())
}

func TestProcessQueryPolicyBlocks(t *testing.T) {
	p := planner.NewScriptedPlanner(
		planner.CallTool("tc1", "execute_query", `{"expression":"import os"}`),
		func(messages []planner.ChatMessage) (*planner.PlanResult, error) {
			last := messages[len(messages)-1]
			require.Contains(t, last.Content, "blocked")
			return &planner.PlanResult{Content: "I cannot run that."}, nil
		},
	)
	svc := newTestService(t, p)
	id := uploadSales(t, svc)

	result, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "run import os"})
	require.NoError(t, err)
	assert.True(t, result.Success, "a blocked tool call is recoverable, not fatal")
}

func TestProcessQueryLastVisualizationWins(t *testing.T) {
	p := planner.NewScriptedPlanner(
		planner.CallTool("tc1", "create_visualization",
			`{"chart_type":"bar","x_column":"region","y_column":"sales","group_by":"region","title":"first"}`),
		planner.CallTool("tc2", "create_visualization",
			`{"chart_type":"line","x_column":"month","y_column":"sales","title":"second"}`),
		planner.Answer("Here is your chart."),
	)
	svc := newTestService(t, p)
	id := uploadSales(t, svc)

	result, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "chart it"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.NotEmpty(t, result.Visualization)

	var chart domain.Chart
	require.NoError(t, json.Unmarshal([]byte(result.Visualization), &chart))
	assert.Equal(t, "second", chart.Title)
	assert.Equal(t, "line", chart.ChartType)
	assert.Equal(t, []string{"Jan", "Feb", "Mar"}, chart.X)
}

func TestProcessQueryDataRows(t *testing.T) {
	p := planner.NewScriptedPlanner(
		planner.CallTool("tc1", "analyze_data", `{"operation":"filter","expression":"sales >= 200"}`),
		planner.Answer("Two months cleared 200."),
	)
	svc := newTestService(t, p)
	id := uploadSales(t, svc)

	result, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "months over 200"})
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "Feb", result.Data[0]["month"])
}

func TestProcessQueryIsRepeatable(t *testing.T) {
	// Two identical queries against the same session give identical answers:
	// tools never mutate the dataset.
	svc := newTestService(t, planner.NewMockPlanner())
	id := uploadSales(t, svc)
	req := domain.QueryRequest{SessionID: id, Query: "describe the data"}

	first, err := svc.ProcessQuery(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.ProcessQuery(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, first.Success)
	assert.Equal(t, first.Result, second.Result)
}

func TestSessionLifecycle(t *testing.T) {
	svc := newTestService(t, planner.NewMockPlanner())
	id := uploadSales(t, svc)

	info, err := svc.SessionInfo(id)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", info.Filename)
	assert.Equal(t, [2]int{3, 3}, info.Shape)

	require.NoError(t, svc.DeleteSession(id))

	_, err = svc.SessionInfo(id)
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))
	_, err = svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "q"})
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))
}

func TestSessionHistory(t *testing.T) {
	svc := newTestService(t, planner.NewMockPlanner())
	id := uploadSales(t, svc)
	ctx := context.Background()

	_, err := svc.ProcessQuery(ctx, domain.QueryRequest{SessionID: id, Query: "first question"})
	require.NoError(t, err)
	_, err = svc.ProcessQuery(ctx, domain.QueryRequest{SessionID: id, Query: "second question"})
	require.NoError(t, err)

	runs, err := svc.SessionHistory(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, domain.RunStatusAnswering, run.Status)
		assert.NotNil(t, run.EndedAt)
	}

	_, err = svc.SessionHistory(ctx, "unknown", 10)
	assert.Equal(t, domain.CodeSessionNotFound, domain.CodeOf(err))
}

func TestSystemPromptDescribesDataset(t *testing.T) {
	var sawPrompt string
	p := planner.NewScriptedPlanner(func(messages []planner.ChatMessage) (*planner.PlanResult, error) {
		sawPrompt = messages[0].Content
		return &planner.PlanResult{Content: "ok"}, nil
	})
	svc := newTestService(t, p)
	id := uploadSales(t, svc)

	_, err := svc.ProcessQuery(context.Background(), domain.QueryRequest{SessionID: id, Query: "hello"})
	require.NoError(t, err)

	assert.Contains(t, sawPrompt, "sales.csv")
	assert.Contains(t, sawPrompt, "3 rows, 3 columns")
	for _, col := range []string{"month", "region", "sales"} {
		assert.True(t, strings.Contains(sawPrompt, col), "prompt should name column %s", col)
	}
}
