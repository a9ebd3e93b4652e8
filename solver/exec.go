package solver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

// execHandle is the built form shared by the external-process backends:
// the frozen model plus its rendered LP file, ready to be written to a
// scratch directory at solve time.
type execHandle struct {
	backend string
	model   *milp.Model
	lp      []byte
}

func (h *execHandle) BackendName() string { return h.backend }

func buildExecHandle(backend string, m *milp.Model) (*execHandle, error) {
	m.Freeze()
	var buf bytes.Buffer
	if err := writeLP(&buf, m); err != nil {
		return nil, fmt.Errorf("%s: render model: %w", backend, err)
	}
	return &execHandle{backend: backend, model: m, lp: buf.Bytes()}, nil
}

// claimExecHandle validates a handle handed to an exec backend's Solve.
func claimExecHandle(backend string, h Handle) (*execHandle, error) {
	eh, ok := h.(*execHandle)
	if !ok || eh.backend != backend {
		return nil, fmt.Errorf("%s: handle built by backend %q", backend, h.BackendName())
	}
	return eh, nil
}

// expiredBudget reports whether the caller's time budget is already spent
// before the solver process is even launched.
func expiredBudget(opts Options) bool {
	return opts.TimeLimit != nil && *opts.TimeLimit <= 0
}

// runSolver writes the LP file into a fresh scratch directory, invokes the
// solver binary, and returns the content of the solution file it produced.
// argv receives the LP path and the path the solution must be written to.
// A missing or failing binary is reported through Result with
// StatusError, not as a Go error: the solve was attempted and lost.
func runSolver(ctx context.Context, h *execHandle, opts Options, argv func(lpPath, solPath string) (string, []string)) ([]byte, *Result, error) {
	if expiredBudget(opts) {
		return nil, &Result{Status: StatusTimeout, Backend: h.backend}, nil
	}

	dir, err := os.MkdirTemp("", h.backend+"-*")
	if err != nil {
		return nil, nil, fmt.Errorf("%s: scratch dir: %w", h.backend, err)
	}
	defer os.RemoveAll(dir)

	lpPath := filepath.Join(dir, "model.lp")
	solPath := filepath.Join(dir, "solution.txt")
	if err := os.WriteFile(lpPath, h.lp, 0o600); err != nil {
		return nil, nil, fmt.Errorf("%s: write model: %w", h.backend, err)
	}

	name, args := argv(lpPath, solPath)
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, &Result{
			Status:  StatusError,
			Backend: h.backend,
			Err:     fmt.Errorf("binary %q not found: %w", name, err),
		}, nil
	}

	if opts.TimeLimit != nil {
		// Hard stop somewhat past the solver's own limit so the solver
		// gets a chance to write out its incumbent first.
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *opts.TimeLimit+10*time.Second)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		// Some solvers exit non-zero on infeasible models but still write
		// a solution file; only a missing file is fatal.
		if _, statErr := os.Stat(solPath); statErr != nil {
			return nil, &Result{
				Status:  StatusError,
				Backend: h.backend,
				Err:     fmt.Errorf("%s failed: %v: %s", name, err, bytes.TrimSpace(stderr.Bytes())),
			}, nil
		}
	}

	out, err := os.ReadFile(solPath)
	if err != nil {
		return nil, &Result{
			Status:  StatusError,
			Backend: h.backend,
			Err:     fmt.Errorf("%s wrote no solution file: %w", name, err),
		}, nil
	}
	return out, nil, nil
}

// evalObjective recomputes the model objective at the parsed assignment.
// Solver log objective lines vary in precision and omit the constant
// offset, so the value is always derived from the variables directly.
func evalObjective(m *milp.Model, byID map[int]float64) float64 {
	obj, ok := m.Objective()
	if !ok {
		return 0
	}
	total := obj.Expr.Offset
	for _, t := range obj.Expr.Terms {
		total += t.Coef * byID[t.Var]
	}
	return total
}

// solutionResult assembles the common success path for exec backends.
func solutionResult(h *execHandle, status Status, byID map[int]float64) Result {
	return Result{
		Status:    status,
		Objective: evalObjective(h.model, byID),
		Values:    valuesFromLP(h.model, byID),
		Backend:   h.backend,
	}
}
