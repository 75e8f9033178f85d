// Package policy gates tool invocations through an OPA policy before they
// reach the tool catalog.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from rego policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks one tool call. Input carries tool_name and args.
// Returns the decision: allow or block.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "allow", nil
	}
	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "allow", nil
}

// DefaultPolicy blocks query expressions carrying tokens the restricted
// language never accepts anyway; the gate keeps them from reaching the
// parser at all.
const DefaultPolicy = `
package tool_policy

import rego.v1

default decision := "allow"

forbidden_tokens := ["__", "import", "open(", "exec(", "eval(", "system(", "globals", "locals"]

decision := "block" if {
	input.tool_name == "execute_query"
	some token in forbidden_tokens
	contains(lower(input.args.expression), token)
}
`
