package solver

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

// writeLP renders a model in CPLEX LP format, which CBC, GLPK, and HiGHS
// all read. Domain variable names may contain characters LP parsers reject,
// so every variable is emitted as x<ID> and solution parsers map the IDs
// back through the model. The objective's constant offset is not
// representable portably and is re-added by the backend after parsing.
func writeLP(w io.Writer, m *milp.Model) error {
	bw := bufio.NewWriter(w)

	obj, hasObj := m.Objective()
	if hasObj && obj.Sense == milp.Maximize {
		fmt.Fprintln(bw, "Maximize")
	} else {
		fmt.Fprintln(bw, "Minimize")
	}
	fmt.Fprint(bw, " obj:")
	if hasObj && len(obj.Expr.Terms) > 0 {
		writeTerms(bw, obj.Expr.Terms)
	} else {
		// A constant (or absent) objective still needs one term for the
		// parsers; pin the first variable with weight zero.
		fmt.Fprint(bw, " 0 x0")
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "Subject To")
	for i, c := range m.Constraints() {
		fmt.Fprintf(bw, " c%d:", i)
		writeTerms(bw, c.Expr.Terms)
		fmt.Fprintf(bw, " %s %s\n", lpSense(c.Sense), formatCoef(c.RHS-c.Expr.Offset))
	}

	fmt.Fprintln(bw, "Bounds")
	for _, v := range m.Variables() {
		if v.Kind == milp.Binary {
			continue
		}
		switch {
		case math.IsInf(v.Upper, 1):
			fmt.Fprintf(bw, " x%d >= %s\n", v.ID, formatCoef(v.Lower))
		default:
			fmt.Fprintf(bw, " %s <= x%d <= %s\n", formatCoef(v.Lower), v.ID, formatCoef(v.Upper))
		}
	}

	var binaries []string
	for _, v := range m.Variables() {
		if v.Kind == milp.Binary {
			binaries = append(binaries, fmt.Sprintf("x%d", v.ID))
		}
	}
	if len(binaries) > 0 {
		fmt.Fprintln(bw, "Binary")
		fmt.Fprintf(bw, " %s\n", strings.Join(binaries, " "))
	}

	fmt.Fprintln(bw, "End")
	return bw.Flush()
}

func writeTerms(w io.Writer, terms []milp.Term) {
	for _, t := range terms {
		if t.Coef >= 0 {
			fmt.Fprintf(w, " + %s x%d", formatCoef(t.Coef), t.Var)
		} else {
			fmt.Fprintf(w, " - %s x%d", formatCoef(-t.Coef), t.Var)
		}
	}
}

func lpSense(s milp.Sense) string {
	switch s {
	case milp.LessEq:
		return "<="
	case milp.GreaterEq:
		return ">="
	default:
		return "="
	}
}

func formatCoef(v float64) string {
	return fmt.Sprintf("%.12g", v)
}

// lpVarID recovers the model variable ID from the x<ID> name used in LP
// files, returning -1 for anything else (row names, objective entries).
func lpVarID(name string) int {
	if len(name) < 2 || name[0] != 'x' {
		return -1
	}
	id := 0
	for i := 1; i < len(name); i++ {
		d := name[i]
		if d < '0' || d > '9' {
			return -1
		}
		id = id*10 + int(d-'0')
	}
	return id
}

// valuesFromLP maps parsed x<ID> assignments back onto model variable
// names. Variables the backend omitted (typically zeros) default to zero.
func valuesFromLP(m *milp.Model, byID map[int]float64) map[string]float64 {
	out := make(map[string]float64, m.NumVariables())
	for _, v := range m.Variables() {
		out[v.Name] = byID[v.ID]
	}
	return out
}
