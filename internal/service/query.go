package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/csvchat/csvchat/internal/domain"
	"github.com/csvchat/csvchat/internal/planner"
	"github.com/csvchat/csvchat/internal/session"
	"github.com/csvchat/csvchat/internal/tools"
)

// ProcessQuery runs one plan/act cycle against the session's dataset. A
// missing or expired session is returned as an error so the transport can map
// it to 404; every other failure mode is carried inside the QueryResult with
// Success=false.
func (s *Service) ProcessQuery(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	if req.SessionID == "" {
		return nil, domain.NewError(domain.CodeMalformedInput, "session_id is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.NewError(domain.CodeMalformedInput, "query is required")
	}

	handle, err := s.registry.Acquire(req.SessionID)
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	runID := "run_" + uuid.New().String()[:8]
	s.recordRunStarted(ctx, runID, req)
	s.recordMessage(ctx, runID, domain.RoleUser, req.Query)

	result := s.runLoop(ctx, runID, handle, req)
	s.recordRunFinished(ctx, runID, result)

	return result, nil
}

func (s *Service) runLoop(ctx context.Context, runID string, handle *session.Handle, req domain.QueryRequest) *domain.QueryResult {
	target := tools.Target{Dataset: handle.Dataset, Filename: handle.Session.Filename}
	defs := s.tools.Definitions()

	messages := []planner.ChatMessage{
		{Role: string(domain.RoleSystem), Content: systemPrompt(handle)},
		{Role: string(domain.RoleUser), Content: req.Query},
	}

	var lastChart *domain.Chart
	var lastRows []map[string]interface{}

	for turn := 0; turn < s.config.TurnLimit; turn++ {
		plan, err := s.planner.Plan(ctx, messages, defs)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return failure(req, domain.WrapError(domain.CodeTimeout, err,
					"query timed out after %s", s.config.RunTimeout))
			}
			log.Printf("ERROR: run %s: planner failed on turn %d: %v", runID, turn+1, err)
			return failure(req, domain.WrapError(domain.CodeUpstreamUnavailable, err,
				"planning service unavailable"))
		}

		if len(plan.ToolCalls) == 0 {
			s.recordMessage(ctx, runID, domain.RoleAssistant, plan.Content)
			return success(req, plan.Content, lastChart, lastRows)
		}

		messages = append(messages, planner.ChatMessage{
			Role:      string(domain.RoleAssistant),
			Content:   plan.Content,
			ToolCalls: plan.ToolCalls,
		})

		for _, tc := range plan.ToolCalls {
			content, res := s.executeToolCall(ctx, runID, target, tc)
			if res != nil {
				if res.Chart != nil {
					lastChart = res.Chart
				}
				if res.Rows != nil {
					lastRows = res.Rows
				}
			}
			messages = append(messages, planner.ChatMessage{
				Role:       string(domain.RoleTool),
				Content:    content,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
			s.recordMessage(ctx, runID, domain.RoleTool, content)
		}

		if ctx.Err() == context.DeadlineExceeded {
			return failure(req, domain.NewError(domain.CodeTimeout,
				"query timed out after %s", s.config.RunTimeout))
		}
	}

	return failure(req, domain.NewError(domain.CodeTurnLimitExceeded,
		"no answer after %d turns", s.config.TurnLimit))
}

// executeToolCall gates one tool call through the policy engine and
// dispatches it. Failures are not fatal to the run: the error text becomes
// the tool message so the planner can correct itself on the next turn.
func (s *Service) executeToolCall(ctx context.Context, runID string, target tools.Target, tc planner.ToolCall) (string, *tools.Result) {
	name := tc.Function.Name
	args := json.RawMessage(tc.Function.Arguments)

	if s.policyEngine != nil {
		var argMap map[string]interface{}
		if err := json.Unmarshal(args, &argMap); err != nil {
			argMap = map[string]interface{}{}
		}
		decision, err := s.policyEngine.Evaluate(ctx, map[string]interface{}{
			"tool_name": name,
			"args":      argMap,
		})
		if err != nil {
			log.Printf("ERROR: run %s: policy evaluation failed for %s: %v", runID, name, err)
		} else if decision == "block" {
			blockErr := domain.NewError(domain.CodeBlocked, "tool call %s blocked by policy", name)
			s.recordToolCall(ctx, runID, tc, domain.ToolCallStatusBlocked, nil, blockErr)
			log.Printf("WARN: run %s: blocked tool call %s", runID, name)
			return "tool error: " + blockErr.Error(), nil
		}
	}

	res, err := s.tools.Dispatch(ctx, name, target, args)
	if err != nil {
		s.recordToolCall(ctx, runID, tc, domain.ToolCallStatusFailed, nil, err)
		log.Printf("WARN: run %s: tool %s failed: %v", runID, name, err)
		return "tool error: " + domain.MessageOf(err), nil
	}

	s.recordToolCall(ctx, runID, tc, domain.ToolCallStatusSucceeded, res, nil)
	return res.Content, res
}

func systemPrompt(handle *session.Handle) string {
	ds := handle.Dataset
	var b strings.Builder
	b.WriteString("You are a data analysis assistant. Answer the user's question about the uploaded CSV dataset using the provided tools.\n\n")
	fmt.Fprintf(&b, "File: %s\n", handle.Session.Filename)
	fmt.Fprintf(&b, "Shape: %d rows, %d columns\n", ds.NumRows(), ds.NumCols())
	b.WriteString("Columns:\n")
	for _, col := range ds.Columns() {
		fmt.Fprintf(&b, "- %s (%s)\n", col.Name, col.Type)
	}
	b.WriteString("\nUse execute_query for ad-hoc expressions like `sum(sales) where region == \"west\"`. ")
	b.WriteString("When the user asks for a chart, call create_visualization. Answer concisely once the tools have given you enough.")
	return b.String()
}

func (s *Service) recordRunStarted(ctx context.Context, runID string, req domain.QueryRequest) {
	if s.store == nil {
		return
	}
	run := &domain.Run{
		RunID:     runID,
		SessionID: req.SessionID,
		Query:     req.Query,
		Status:    domain.RunStatusPlanning,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		log.Printf("ERROR: failed to record run %s: %v", runID, err)
	}
}

func (s *Service) recordRunFinished(ctx context.Context, runID string, result *domain.QueryResult) {
	if s.store == nil {
		return
	}
	status := domain.RunStatusAnswering
	var errData []byte
	if !result.Success {
		status = domain.RunStatusFailed
		errData, _ = json.Marshal(map[string]string{"message": result.Error})
	}
	if err := s.store.UpdateRunCompleted(ctx, runID, status, errData); err != nil {
		log.Printf("ERROR: failed to record run %s completion: %v", runID, err)
	}
}

func (s *Service) recordMessage(ctx context.Context, runID string, role domain.Role, content string) {
	if s.store == nil {
		return
	}
	msg := &domain.Message{
		MessageID: "msg_" + uuid.New().String()[:8],
		RunID:     runID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		log.Printf("ERROR: failed to record %s message for run %s: %v", role, runID, err)
	}
}

func (s *Service) recordToolCall(ctx context.Context, runID string, tc planner.ToolCall, status domain.ToolCallStatus, res *tools.Result, callErr error) {
	if s.store == nil {
		return
	}
	rec := &domain.ToolCallRecord{
		ToolCallID: tc.ID,
		RunID:      runID,
		ToolName:   tc.Function.Name,
		Status:     status,
		Args:       json.RawMessage(tc.Function.Arguments),
		CreatedAt:  time.Now(),
	}
	if res != nil {
		rec.Result, _ = json.Marshal(map[string]string{"content": res.Content})
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	if err := s.store.CreateToolCall(ctx, rec); err != nil {
		log.Printf("ERROR: failed to record tool call %s for run %s: %v", tc.ID, runID, err)
	}
}
