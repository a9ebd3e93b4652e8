package optimizer

import "errors"

var (
	// ErrNoSolution marks extraction attempted on a solve that produced no
	// usable assignment (infeasible, unbounded, timed out empty, or failed).
	ErrNoSolution = errors.New("no solution available")

	// ErrNumericalAnomaly marks a binary variable whose relaxed value lies
	// outside [-tol, 1+tol]; the backend's answer cannot be trusted.
	ErrNumericalAnomaly = errors.New("solver numerical anomaly")
)
