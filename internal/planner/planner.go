// Package planner defines the collaborator-in port the pipeline drives
// to turn a variation's intent into a concrete set of tool calls. Prompt
// construction and LLM invocation live outside this module; the core
// only consumes a validated ExecutionPlan.
package planner

import "context"

// ToolCall is one generator tool invocation the executor will dispatch.
type ToolCall struct {
	Name         string
	InstrumentID string
	Params       map[string]any
}

// ExecutionPlan is the planner's pure output: an ordered set of tool
// calls the executor groups into setup/instrument/mixing phases.
type ExecutionPlan struct {
	ToolCalls []ToolCall
}

// ProjectContext is the read-only project state the planner consults
// while building a plan (entity names, current tempo/key, etc.).
type ProjectContext struct {
	ProjectID string
	Tempo     float64
	Key       string
	Tracks    []string
}

// Planner builds an ExecutionPlan from a natural-language intent. It is
// pure with respect to the core: no core state is read or mutated.
type Planner interface {
	BuildExecutionPlan(ctx context.Context, intent string, projectContext ProjectContext) (ExecutionPlan, error)
}

// DefaultPlanner returns an empty ExecutionPlan for every intent, used
// when no vendor-specific collaborator is wired in (local development,
// tests).
type DefaultPlanner struct{}

// BuildExecutionPlan always succeeds with zero tool calls.
func (DefaultPlanner) BuildExecutionPlan(context.Context, string, ProjectContext) (ExecutionPlan, error) {
	return ExecutionPlan{}, nil
}
