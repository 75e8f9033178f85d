// Package tools implements the fixed catalog of data operations the planner
// may invoke. Every tool is a pure function over a dataset plus validated
// arguments; argument shape is checked against the tool's declared JSON
// schema before any dataset access.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/csvchat/csvchat/internal/dataset"
	"github.com/csvchat/csvchat/internal/domain"
	"github.com/csvchat/csvchat/internal/planner"
)

// Target is the dataset a tool call runs against.
type Target struct {
	Dataset  *dataset.Dataset
	Filename string
}

// Result is a tool's typed output. Content is what the planner sees; Chart
// and Rows are structured side channels picked up by the response assembler.
type Result struct {
	Content string
	Chart   *domain.Chart
	Rows    []map[string]interface{}
}

// ExecutorFunc runs one validated tool call.
type ExecutorFunc func(ctx context.Context, target Target, args json.RawMessage) (*Result, error)

// Definition declares a tool: its planner-facing schema and its executor.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Exec        ExecutorFunc
}

type compiledDef struct {
	def    Definition
	schema *gojsonschema.Schema
}

// Registry stores tool definitions keyed by tool name.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]compiledDef
	order []string
}

// NewRegistry creates a registry pre-populated with the builtin catalog.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]compiledDef)}
	for _, def := range builtins() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a tool definition, compiling its argument schema.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if def.Exec == nil {
		return fmt.Errorf("executor is required for %s", def.Name)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Parameters))
	if err != nil {
		return fmt.Errorf("invalid schema for %s: %w", def.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.defs[def.Name] = compiledDef{def: def, schema: schema}
	r.order = append(r.order, def.Name)
	return nil
}

// Definitions returns the catalog in registration order, in the shape the
// planner consumes.
func (r *Registry) Definitions() []planner.ToolDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]planner.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		def := r.defs[name].def
		out = append(out, planner.ToolDef{
			Type: "function",
			Function: planner.ToolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

// Dispatch validates the arguments against the tool's declared schema, then
// executes. Unknown tool names and schema mismatches fail with
// InvalidToolArguments so the planner can retry with corrected arguments.
func (r *Registry) Dispatch(ctx context.Context, name string, target Target, args json.RawMessage) (*Result, error) {
	r.mu.RLock()
	cd, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewError(domain.CodeInvalidToolArguments, "unknown tool %q", name)
	}

	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	doc := gojsonschema.NewBytesLoader(args)
	result, err := cd.schema.Validate(doc)
	if err != nil {
		return nil, domain.WrapError(domain.CodeInvalidToolArguments, err, "arguments for %s are not valid JSON", name)
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			reasons = append(reasons, re.String())
		}
		return nil, domain.NewError(domain.CodeInvalidToolArguments,
			"invalid arguments for %s: %s", name, strings.Join(reasons, "; "))
	}

	return cd.def.Exec(ctx, target, args)
}
