package harness

import (
	"github.com/roach88/graphsync/internal/social"
)

// StepOutcome records what one scenario step produced.
type StepOutcome struct {
	Op string `json:"op"`

	// Batch counters, set by sync and repair steps.
	Attempted int              `json:"attempted,omitempty"`
	Succeeded int              `json:"succeeded,omitempty"`
	Failed    int              `json:"failed,omitempty"`
	Skipped   int              `json:"skipped,omitempty"`
	Failures  []FailureOutcome `json:"failures,omitempty"`

	// ErrorCode is the engine error code when the step returned an error.
	ErrorCode string `json:"error_code,omitempty"`

	// Consistent is set by validation steps.
	Consistent *bool `json:"consistent,omitempty"`

	// Divergences is set by validate_edges and audit steps.
	Divergences []social.Divergence `json:"divergences,omitempty"`
}

// FailureOutcome is a per-item failure without its driver-specific message.
type FailureOutcome struct {
	Item string `json:"item"`
	Code string `json:"code"`
}

// GraphState is the final content of the graph store.
type GraphState struct {
	Nodes []string    `json:"nodes"`
	Edges []EdgeState `json:"edges"`
}

// EdgeState is one undirected edge, keyed by its canonical pair.
type EdgeState struct {
	Lo               string        `json:"lo"`
	Hi               string        `json:"hi"`
	Status           social.Status `json:"status"`
	InteractionCount int64         `json:"interaction_count"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success.
	// True if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Steps holds one outcome per scenario step, in order.
	Steps []StepOutcome `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Graph is the graph store content after the last step.
	Graph GraphState `json:"graph"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Errors: []string{},
		Graph:  GraphState{Nodes: []string{}, Edges: []EdgeState{}},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step outcome.
func (r *Result) AddStep(outcome StepOutcome) {
	r.Steps = append(r.Steps, outcome)
}
