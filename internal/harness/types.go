package harness

import "fmt"

// TraceEvent is one executed flow step and its outcome.
type TraceEvent struct {
	Step int                    `json:"step"`
	Op   string                 `json:"op"`
	Args map[string]interface{} `json:"args"`

	// Code is the error code for a failed step, empty on success.
	Code string `json:"code,omitempty"`

	// Result is the operation's view on success.
	Result interface{} `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: every expect clause and
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains every flow step outcome in order. Used for golden
	// comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []TraceEvent{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}
