// Package solver abstracts heterogeneous mixed-integer programming
// backends behind one contract: build a backend handle from a milp.Model,
// solve it under common options, and report a normalized status. Solver
// outcomes (infeasible, unbounded, timeout, backend failure) are data in
// the Result, never Go errors; the error returns are reserved for misuse
// such as handing a backend someone else's handle.
package solver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

// Status is the normalized solve outcome shared by all backends.
type Status int

const (
	StatusUnknown Status = iota
	// StatusOptimal: proven optimal (possibly within the configured gap).
	StatusOptimal
	// StatusFeasible: an incumbent exists but optimality was not proven,
	// typically because the time limit expired first. Never silently
	// promoted to optimal.
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	// StatusTimeout: the time limit expired with no incumbent at all.
	StatusTimeout
	// StatusError: the backend itself failed (license, numerics, missing
	// binary). The verbatim backend error is carried in Result.Err.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE_SUBOPTIMAL"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbounded:
		return "UNBOUNDED"
	case StatusTimeout:
		return "TIMEOUT"
	case StatusError:
		return "SOLVER_ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON renders the status by its normalized name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// HasSolution reports whether variable values may be extracted.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Options are the solve parameters common to all backends.
type Options struct {
	// TimeLimit bounds solver runtime. Nil means unlimited. A zero
	// duration is an already-exhausted budget: a non-trivial model solves
	// to TIMEOUT with no incumbent.
	TimeLimit *time.Duration

	// RelativeGap and AbsoluteGap are early-stop tolerances on the
	// distance between incumbent and best bound.
	RelativeGap float64
	AbsoluteGap float64

	// WarmStart seeds the search with a candidate assignment keyed by
	// variable name. Backends that cannot use it ignore it.
	WarmStart map[string]float64
}

// TimeLimit is a convenience for populating Options.TimeLimit.
func TimeLimit(d time.Duration) *time.Duration { return &d }

// Result is the normalized outcome of one solve.
type Result struct {
	Status    Status
	Objective float64
	// Values holds the assignment keyed by model variable name; nil
	// unless Status.HasSolution().
	Values map[string]float64
	// Backend identifies which implementation produced the result.
	Backend string
	// Err carries the verbatim backend error when Status is StatusError.
	Err error
}

// Handle is an opaque, backend-owned representation of a built model. A
// handle is only valid with the backend that produced it.
type Handle interface {
	BackendName() string
}

// Backend is implemented once per integer-programming product. Build
// freezes the model and translates it into the backend's native form;
// Solve runs it under the given options and normalizes the outcome.
type Backend interface {
	Name() string
	Build(ctx context.Context, m *milp.Model) (Handle, error)
	Solve(ctx context.Context, h Handle, opts Options) (Result, error)
}
