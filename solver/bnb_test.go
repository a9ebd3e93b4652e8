package solver

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

func solveModel(t *testing.T, m *milp.Model, opts Options) Result {
	t.Helper()
	b := NewBranchAndBound()
	h, err := b.Build(context.Background(), m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	res, err := b.Solve(context.Background(), h, opts)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	return res
}

// knapsackModel maximizes 3a + 2b + 2c subject to a + b + c <= 2.
func knapsackModel(t *testing.T) *milp.Model {
	t.Helper()
	m := milp.NewModel("knapsack")
	var capacity, obj milp.Expr
	for _, it := range []struct {
		name  string
		value float64
	}{{"a", 3}, {"b", 2}, {"c", 2}} {
		id, err := m.AddBinary(it.name)
		if err != nil {
			t.Fatalf("AddBinary: %v", err)
		}
		capacity.Add(id, 1)
		obj.Add(id, it.value)
	}
	if err := m.AddConstraint(milp.Constraint{Name: "cap", Expr: capacity, Sense: milp.LessEq, RHS: 2}); err != nil {
		t.Fatalf("AddConstraint: %v", err)
	}
	if err := m.SetObjective(milp.ObjectiveTerm{Name: "value", Sense: milp.Maximize, Expr: obj}); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}
	return m
}

func TestSolveKnapsackOptimal(t *testing.T) {
	res := solveModel(t, knapsackModel(t), Options{})
	if res.Status != StatusOptimal {
		t.Fatalf("status = %v, want StatusOptimal", res.Status)
	}
	if math.Abs(res.Objective-5) > 1e-6 {
		t.Fatalf("objective = %v, want 5", res.Objective)
	}
	if res.Values["a"] < 0.5 {
		t.Fatalf("a = %v, want selected", res.Values["a"])
	}
	if res.Values["b"]+res.Values["c"] < 0.5 || res.Values["b"]+res.Values["c"] > 1.5 {
		t.Fatalf("b+c = %v, want exactly one", res.Values["b"]+res.Values["c"])
	}
}

func TestSolveMinimizeWithEquality(t *testing.T) {
	m := milp.NewModel("eq")
	x, _ := m.AddBinary("x")
	y, _ := m.AddBinary("y")
	var pick milp.Expr
	pick.Add(x, 1)
	pick.Add(y, 1)
	if err := m.AddConstraint(milp.Constraint{Name: "one", Expr: pick, Sense: milp.Equal, RHS: 1}); err != nil {
		t.Fatalf("AddConstraint: %v", err)
	}
	var obj milp.Expr
	obj.Add(x, 10)
	obj.Add(y, 4)
	if err := m.SetObjective(milp.ObjectiveTerm{Name: "cost", Sense: milp.Minimize, Expr: obj}); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}

	res := solveModel(t, m, Options{})
	if res.Status != StatusOptimal {
		t.Fatalf("status = %v, want StatusOptimal", res.Status)
	}
	if math.Abs(res.Objective-4) > 1e-6 {
		t.Fatalf("objective = %v, want 4", res.Objective)
	}
	if res.Values["y"] < 0.5 || res.Values["x"] > 0.5 {
		t.Fatalf("assignment = %v, want y selected", res.Values)
	}
}

func TestSolveInfeasible(t *testing.T) {
	m := milp.NewModel("infeasible")
	x, _ := m.AddBinary("x")
	var e milp.Expr
	e.Add(x, 1)
	if err := m.AddConstraint(milp.Constraint{Name: "impossible", Expr: e, Sense: milp.GreaterEq, RHS: 2}); err != nil {
		t.Fatalf("AddConstraint: %v", err)
	}

	res := solveModel(t, m, Options{})
	if res.Status != StatusInfeasible {
		t.Fatalf("status = %v, want StatusInfeasible", res.Status)
	}
	if res.Values != nil {
		t.Fatalf("values = %v, want nil", res.Values)
	}
}

func TestSolveUnbounded(t *testing.T) {
	m := milp.NewModel("unbounded")
	y, err := m.AddContinuous("y", 0, math.Inf(1))
	if err != nil {
		t.Fatalf("AddContinuous: %v", err)
	}
	var obj milp.Expr
	obj.Add(y, 1)
	if err := m.SetObjective(milp.ObjectiveTerm{Name: "grow", Sense: milp.Maximize, Expr: obj}); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}

	res := solveModel(t, m, Options{})
	if res.Status != StatusUnbounded {
		t.Fatalf("status = %v, want StatusUnbounded", res.Status)
	}
}

func TestSolveZeroTimeLimitTimesOutWithNoIncumbent(t *testing.T) {
	res := solveModel(t, knapsackModel(t), Options{TimeLimit: TimeLimit(0)})
	if res.Status != StatusTimeout {
		t.Fatalf("status = %v, want StatusTimeout", res.Status)
	}
	if res.Values != nil {
		t.Fatalf("values = %v, want nil without incumbent", res.Values)
	}
}

func TestSolveZeroTimeLimitKeepsWarmIncumbent(t *testing.T) {
	warm := map[string]float64{"a": 1, "b": 1, "c": 0}
	res := solveModel(t, knapsackModel(t), Options{
		TimeLimit: TimeLimit(0),
		WarmStart: warm,
	})
	if res.Status != StatusFeasible {
		t.Fatalf("status = %v, want StatusFeasible for timeout with incumbent", res.Status)
	}
	if math.Abs(res.Objective-5) > 1e-6 {
		t.Fatalf("objective = %v, want warm-start value 5", res.Objective)
	}
}

func TestSolveRejectsInfeasibleWarmStart(t *testing.T) {
	// Violates the capacity constraint, so it must not seed an incumbent.
	warm := map[string]float64{"a": 1, "b": 1, "c": 1}
	res := solveModel(t, knapsackModel(t), Options{
		TimeLimit: TimeLimit(0),
		WarmStart: warm,
	})
	if res.Status != StatusTimeout {
		t.Fatalf("status = %v, want StatusTimeout when warm start is invalid", res.Status)
	}
}

func TestSolveObjectiveOffsetCarriedThrough(t *testing.T) {
	m := milp.NewModel("offset")
	x, _ := m.AddBinary("x")
	obj := milp.Expr{Offset: 100}
	obj.Add(x, -1)
	if err := m.SetObjective(milp.ObjectiveTerm{Name: "o", Sense: milp.Minimize, Expr: obj}); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}

	res := solveModel(t, m, Options{})
	if res.Status != StatusOptimal {
		t.Fatalf("status = %v, want StatusOptimal", res.Status)
	}
	if math.Abs(res.Objective-99) > 1e-6 {
		t.Fatalf("objective = %v, want 99", res.Objective)
	}
}

func TestSolveForeignHandleRejected(t *testing.T) {
	b := NewBranchAndBound()
	eh := &execHandle{backend: "cbc"}
	if _, err := b.Solve(context.Background(), eh, Options{}); err == nil {
		t.Fatal("Solve accepted a foreign handle")
	}
}

func TestExpiredContextTimesOut(t *testing.T) {
	b := NewBranchAndBound()
	h, err := b.Build(context.Background(), knapsackModel(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	res, err := b.Solve(ctx, h, Options{})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Status != StatusTimeout {
		t.Fatalf("status = %v, want StatusTimeout", res.Status)
	}
}
