package solver

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

// CBC solves through the COIN-OR branch-and-cut command line binary. The
// model is exchanged as an LP file and the solution read back from the
// file written by the "solution" directive.
type CBC struct {
	// Path overrides the binary looked up on PATH. Defaults to "cbc".
	Path string
}

func (CBC) Name() string { return "cbc" }

func (b CBC) binary() string {
	if b.Path != "" {
		return b.Path
	}
	return "cbc"
}

func (b CBC) Build(ctx context.Context, m *milp.Model) (Handle, error) {
	return buildExecHandle(b.Name(), m)
}

func (b CBC) Solve(ctx context.Context, h Handle, opts Options) (Result, error) {
	eh, err := claimExecHandle(b.Name(), h)
	if err != nil {
		return Result{}, err
	}
	out, early, err := runSolver(ctx, eh, opts, func(lpPath, solPath string) (string, []string) {
		args := []string{lpPath}
		if opts.TimeLimit != nil {
			args = append(args, "-seconds", fmt.Sprintf("%.3f", opts.TimeLimit.Seconds()))
		}
		if opts.RelativeGap > 0 {
			args = append(args, "-ratioGap", fmt.Sprintf("%g", opts.RelativeGap))
		}
		if opts.AbsoluteGap > 0 {
			args = append(args, "-allowableGap", fmt.Sprintf("%g", opts.AbsoluteGap))
		}
		args = append(args, "solve", "solution", solPath)
		return b.binary(), args
	})
	if err != nil {
		return Result{}, err
	}
	if early != nil {
		return *early, nil
	}

	status, byID := parseCBCSolution(string(out))
	if !status.HasSolution() {
		return Result{Status: status, Backend: b.Name()}, nil
	}
	return solutionResult(eh, status, byID), nil
}

// parseCBCSolution reads a CBC solution file. The first line carries the
// termination status and objective, the remainder is one line per nonbasic
// column: index, name, value, reduced cost.
func parseCBCSolution(out string) (Status, map[int]float64) {
	lines := strings.Split(out, "\n")
	if len(lines) == 0 {
		return StatusError, nil
	}
	header := strings.TrimSpace(lines[0])

	var status Status
	switch {
	case strings.HasPrefix(header, "Optimal"):
		status = StatusOptimal
	case strings.Contains(header, "Infeasible") || strings.Contains(header, "infeasible"):
		return StatusInfeasible, nil
	case strings.Contains(header, "Unbounded") || strings.Contains(header, "unbounded"):
		return StatusUnbounded, nil
	case strings.HasPrefix(header, "Stopped"):
		// CBC writes an incumbent when it has one; without one the
		// reported objective is its infinity placeholder.
		if v, ok := cbcHeaderObjective(header); !ok || math.Abs(v) >= 1e40 {
			return StatusTimeout, nil
		}
		status = StatusFeasible
	default:
		return StatusError, nil
	}

	byID := make(map[int]float64)
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		id := lpVarID(fields[1])
		if id < 0 {
			continue
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			continue
		}
		byID[id] = v
	}
	return status, byID
}

func cbcHeaderObjective(header string) (float64, bool) {
	const marker = "objective value"
	i := strings.Index(header, marker)
	if i < 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(header[i+len(marker):]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
