package milp

import (
	"errors"
	"math"
	"testing"
)

func TestAddBinaryRejectsDuplicateName(t *testing.T) {
	m := NewModel("dup")
	if _, err := m.AddBinary("x"); err != nil {
		t.Fatalf("first AddBinary: %v", err)
	}
	_, err := m.AddBinary("x")
	if !errors.Is(err, ErrDuplicateVariable) {
		t.Fatalf("duplicate AddBinary error = %v, want ErrDuplicateVariable", err)
	}
}

func TestFrozenModelRejectsMutation(t *testing.T) {
	m := NewModel("frozen")
	id, err := m.AddBinary("x")
	if err != nil {
		t.Fatalf("AddBinary: %v", err)
	}
	m.Freeze()

	if _, err := m.AddBinary("y"); !errors.Is(err, ErrModelFrozen) {
		t.Fatalf("AddBinary on frozen model error = %v, want ErrModelFrozen", err)
	}
	var e Expr
	e.Add(id, 1)
	if err := m.AddConstraint(Constraint{Name: "c", Expr: e, Sense: LessEq, RHS: 1}); !errors.Is(err, ErrModelFrozen) {
		t.Fatalf("AddConstraint on frozen model error = %v, want ErrModelFrozen", err)
	}
	if err := m.SetObjective(ObjectiveTerm{Name: "o", Sense: Minimize, Expr: e}); !errors.Is(err, ErrModelFrozen) {
		t.Fatalf("SetObjective on frozen model error = %v, want ErrModelFrozen", err)
	}
}

func TestConstraintRejectsUnknownVariable(t *testing.T) {
	m := NewModel("unknown")
	if _, err := m.AddBinary("x"); err != nil {
		t.Fatalf("AddBinary: %v", err)
	}
	var e Expr
	e.Add(7, 1)
	err := m.AddConstraint(Constraint{Name: "bad", Expr: e, Sense: LessEq, RHS: 1})
	if !errors.Is(err, ErrUnknownVariable) {
		t.Fatalf("AddConstraint error = %v, want ErrUnknownVariable", err)
	}
}

func TestConstraintRejectsNonFiniteCoefficient(t *testing.T) {
	m := NewModel("nan")
	id, err := m.AddBinary("x")
	if err != nil {
		t.Fatalf("AddBinary: %v", err)
	}
	var e Expr
	e.Add(id, math.NaN())
	if err := m.AddConstraint(Constraint{Name: "bad", Expr: e, Sense: LessEq, RHS: 1}); err == nil {
		t.Fatal("AddConstraint accepted NaN coefficient")
	}
}

func TestAddContinuousRejectsInvertedBounds(t *testing.T) {
	m := NewModel("bounds")
	if _, err := m.AddContinuous("y", 5, 1); err == nil {
		t.Fatal("AddContinuous accepted upper < lower")
	}
}

func TestCloneIsIndependentAndUnfrozen(t *testing.T) {
	m := NewModel("clone")
	id, err := m.AddBinary("x")
	if err != nil {
		t.Fatalf("AddBinary: %v", err)
	}
	var e Expr
	e.Add(id, 1)
	if err := m.AddConstraint(Constraint{Name: "c", Expr: e, Sense: LessEq, RHS: 1}); err != nil {
		t.Fatalf("AddConstraint: %v", err)
	}
	m.Freeze()

	c := m.Clone()
	if c.Frozen() {
		t.Fatal("clone inherited frozen state")
	}
	var e2 Expr
	e2.Add(id, 2)
	if err := c.AddConstraint(Constraint{Name: "c2", Expr: e2, Sense: GreaterEq, RHS: 0}); err != nil {
		t.Fatalf("AddConstraint on clone: %v", err)
	}
	if got, want := c.NumConstraints(), 2; got != want {
		t.Fatalf("clone constraints = %d, want %d", got, want)
	}
	if got, want := m.NumConstraints(), 1; got != want {
		t.Fatalf("original constraints = %d after mutating clone, want %d", got, want)
	}
}
