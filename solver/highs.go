package solver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

// HiGHS solves through the HiGHS command line binary. Time limit is a
// direct flag; the MIP gap tolerances are only reachable through an
// options file, which is written next to the model in the scratch
// directory.
type HiGHS struct {
	// Path overrides the binary looked up on PATH. Defaults to "highs".
	Path string
}

func (HiGHS) Name() string { return "highs" }

func (b HiGHS) binary() string {
	if b.Path != "" {
		return b.Path
	}
	return "highs"
}

func (b HiGHS) Build(ctx context.Context, m *milp.Model) (Handle, error) {
	return buildExecHandle(b.Name(), m)
}

func (b HiGHS) Solve(ctx context.Context, h Handle, opts Options) (Result, error) {
	eh, err := claimExecHandle(b.Name(), h)
	if err != nil {
		return Result{}, err
	}
	out, early, err := runSolver(ctx, eh, opts, func(lpPath, solPath string) (string, []string) {
		args := []string{lpPath, "--solution_file", solPath}
		if opts.TimeLimit != nil {
			args = append(args, "--time_limit", fmt.Sprintf("%.3f", opts.TimeLimit.Seconds()))
		}
		if opts.RelativeGap > 0 || opts.AbsoluteGap > 0 {
			var sb strings.Builder
			if opts.RelativeGap > 0 {
				fmt.Fprintf(&sb, "mip_rel_gap = %g\n", opts.RelativeGap)
			}
			if opts.AbsoluteGap > 0 {
				fmt.Fprintf(&sb, "mip_abs_gap = %g\n", opts.AbsoluteGap)
			}
			optPath := filepath.Join(filepath.Dir(lpPath), "highs.opt")
			if os.WriteFile(optPath, []byte(sb.String()), 0o600) == nil {
				args = append(args, "--options_file", optPath)
			}
		}
		return b.binary(), args
	})
	if err != nil {
		return Result{}, err
	}
	if early != nil {
		return *early, nil
	}

	status, byID := parseHiGHSSolution(string(out))
	if !status.HasSolution() {
		return Result{Status: status, Backend: b.Name()}, nil
	}
	return solutionResult(eh, status, byID), nil
}

// parseHiGHSSolution reads a HiGHS raw-style solution file: a "Model
// status" header, a primal section flagged Feasible or None, and the
// column values between "# Columns" and "# Rows".
func parseHiGHSSolution(out string) (Status, map[int]float64) {
	lines := strings.Split(out, "\n")

	modelStatus := ""
	primalFeasible := false
	byID := make(map[int]float64)
	inColumns := false

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		switch {
		case line == "Model status" && i+1 < len(lines):
			modelStatus = strings.TrimSpace(lines[i+1])
		case line == "# Primal solution values" && i+1 < len(lines):
			primalFeasible = strings.TrimSpace(lines[i+1]) == "Feasible"
		case strings.HasPrefix(line, "# Columns"):
			inColumns = true
		case strings.HasPrefix(line, "# Rows"):
			inColumns = false
		case inColumns:
			fields := strings.Fields(line)
			if len(fields) != 2 {
				continue
			}
			id := lpVarID(fields[0])
			if id < 0 {
				continue
			}
			if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
				byID[id] = v
			}
		}
	}

	switch {
	case modelStatus == "Optimal":
		return StatusOptimal, byID
	case strings.Contains(modelStatus, "Infeasible"):
		return StatusInfeasible, nil
	case strings.Contains(modelStatus, "Unbounded"):
		return StatusUnbounded, nil
	case strings.Contains(modelStatus, "limit"):
		if primalFeasible {
			return StatusFeasible, byID
		}
		return StatusTimeout, nil
	default:
		return StatusError, nil
	}
}
