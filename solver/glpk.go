package solver

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

// GLPK solves through the GNU Linear Programming Kit's glpsol binary,
// exchanging the model as an LP file and parsing the plain-text report
// written by -o. glpsol only exposes a relative MIP gap, so
// Options.AbsoluteGap is ignored by this backend, and --tmlim takes whole
// seconds, so a sub-second positive TimeLimit rounds up to one second.
type GLPK struct {
	// Path overrides the binary looked up on PATH. Defaults to "glpsol".
	Path string
}

func (GLPK) Name() string { return "glpk" }

func (b GLPK) binary() string {
	if b.Path != "" {
		return b.Path
	}
	return "glpsol"
}

func (b GLPK) Build(ctx context.Context, m *milp.Model) (Handle, error) {
	return buildExecHandle(b.Name(), m)
}

func (b GLPK) Solve(ctx context.Context, h Handle, opts Options) (Result, error) {
	eh, err := claimExecHandle(b.Name(), h)
	if err != nil {
		return Result{}, err
	}
	out, early, err := runSolver(ctx, eh, opts, func(lpPath, solPath string) (string, []string) {
		args := []string{"--lp", lpPath, "-o", solPath}
		if opts.TimeLimit != nil {
			secs := int(opts.TimeLimit.Seconds())
			if secs < 1 {
				secs = 1
			}
			args = append(args, "--tmlim", strconv.Itoa(secs))
		}
		if opts.RelativeGap > 0 {
			args = append(args, "--mipgap", fmt.Sprintf("%g", opts.RelativeGap))
		}
		return b.binary(), args
	})
	if err != nil {
		return Result{}, err
	}
	if early != nil {
		return *early, nil
	}

	status, byID := parseGLPKReport(string(out))
	if !status.HasSolution() {
		return Result{Status: status, Backend: b.Name()}, nil
	}
	return solutionResult(eh, status, byID), nil
}

// parseGLPKReport reads a glpsol -o report: a "Status:" line followed by
// row and column tables. Only columns named x<ID> are collected, which
// skips the row table since rows are emitted as c<index>.
func parseGLPKReport(out string) (Status, map[int]float64) {
	status := StatusError
	byID := make(map[int]float64)

	for _, line := range strings.Split(out, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Status:"); ok {
			status = glpkStatus(strings.TrimSpace(rest))
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		id := lpVarID(fields[1])
		if id < 0 {
			continue
		}
		val := fields[2]
		if val == "*" {
			if len(fields) < 4 {
				continue
			}
			val = fields[3]
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			continue
		}
		byID[id] = v
	}

	if !status.HasSolution() {
		return status, nil
	}
	return status, byID
}

func glpkStatus(s string) Status {
	switch {
	case strings.Contains(s, "INTEGER OPTIMAL"), s == "OPTIMAL":
		return StatusOptimal
	case strings.Contains(s, "INTEGER NON-OPTIMAL"), s == "FEASIBLE":
		return StatusFeasible
	case strings.Contains(s, "INTEGER EMPTY"), strings.Contains(s, "INFEASIBLE"), strings.Contains(s, "NO FEASIBLE"):
		return StatusInfeasible
	case strings.Contains(s, "UNBOUNDED"):
		return StatusUnbounded
	case strings.Contains(s, "UNDEFINED"):
		// Search stopped before the first incumbent was found.
		return StatusTimeout
	default:
		return StatusError
	}
}
