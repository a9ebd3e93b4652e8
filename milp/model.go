// Package milp holds the mixed-integer linear program representation for
// ground station selection: decision variables, linear constraints, and
// objective terms, plus the builder and the constraint/objective generator
// libraries that populate them from a scenario.
package milp

import (
	"fmt"
	"math"
)

// VarKind distinguishes binary decisions from continuous auxiliaries.
type VarKind int

const (
	Binary VarKind = iota
	Continuous
)

// Variable is a single decision variable. ID is the dense index of the
// variable inside its Model; Name is unique within the Model.
type Variable struct {
	ID    int
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is one coefficient of a linear expression.
type Term struct {
	Var  int
	Coef float64
}

// Expr is a linear expression over model variables plus a constant offset.
type Expr struct {
	Terms  []Term
	Offset float64
}

// Add appends a coefficient for the given variable.
func (e *Expr) Add(varID int, coef float64) {
	e.Terms = append(e.Terms, Term{Var: varID, Coef: coef})
}

// Clone returns a deep copy of the expression.
func (e Expr) Clone() Expr {
	out := Expr{Offset: e.Offset}
	out.Terms = append([]Term(nil), e.Terms...)
	return out
}

// Sense is the relation of a constraint to its right-hand side.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Constraint is a named linear inequality or equality. Immutable once
// attached to a model.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// ObjSense is the optimization direction of an objective term.
type ObjSense int

const (
	Minimize ObjSense = iota
	Maximize
)

// ObjectiveTerm is a named linear objective with a direction.
type ObjectiveTerm struct {
	Name  string
	Sense ObjSense
	Expr  Expr
}

// Model aggregates all variables, constraints, and the objective for one
// scenario instance. Models are build-once, solve-once: Freeze is invoked
// by the solve path, after which structural mutation fails with
// ErrModelFrozen.
type Model struct {
	name      string
	vars      []Variable
	index     map[string]int
	cons      []Constraint
	objective *ObjectiveTerm
	frozen    bool
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{name: name, index: make(map[string]int)}
}

// Name returns the model's identifying name.
func (m *Model) Name() string { return m.name }

// AddBinary registers a binary decision variable and returns its ID.
func (m *Model) AddBinary(name string) (int, error) {
	return m.addVar(Variable{Name: name, Kind: Binary, Lower: 0, Upper: 1})
}

// AddContinuous registers a bounded continuous variable and returns its ID.
// Use math.Inf(1) for an unbounded upper limit.
func (m *Model) AddContinuous(name string, lower, upper float64) (int, error) {
	if upper < lower {
		return 0, fmt.Errorf("variable %q: upper bound %v below lower bound %v", name, upper, lower)
	}
	return m.addVar(Variable{Name: name, Kind: Continuous, Lower: lower, Upper: upper})
}

func (m *Model) addVar(v Variable) (int, error) {
	if m.frozen {
		return 0, fmt.Errorf("add variable %q: %w", v.Name, ErrModelFrozen)
	}
	if v.Name == "" {
		return 0, fmt.Errorf("variable name must not be empty")
	}
	if _, exists := m.index[v.Name]; exists {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateVariable, v.Name)
	}
	v.ID = len(m.vars)
	m.vars = append(m.vars, v)
	m.index[v.Name] = v.ID
	return v.ID, nil
}

// Lookup returns the ID of the named variable.
func (m *Model) Lookup(name string) (int, bool) {
	id, ok := m.index[name]
	return id, ok
}

// Var returns the variable with the given ID.
func (m *Model) Var(id int) Variable { return m.vars[id] }

// Variables returns all variables in registration order. The returned slice
// must not be modified.
func (m *Model) Variables() []Variable { return m.vars }

// Constraints returns all attached constraints. The returned slice must not
// be modified.
func (m *Model) Constraints() []Constraint { return m.cons }

// NumVariables returns the variable count.
func (m *Model) NumVariables() int { return len(m.vars) }

// NumConstraints returns the constraint count.
func (m *Model) NumConstraints() int { return len(m.cons) }

// AddConstraint validates and attaches a constraint.
func (m *Model) AddConstraint(c Constraint) error {
	if m.frozen {
		return fmt.Errorf("add constraint %q: %w", c.Name, ErrModelFrozen)
	}
	if c.Name == "" {
		return fmt.Errorf("constraint name must not be empty")
	}
	if err := m.checkExpr(c.Expr); err != nil {
		return fmt.Errorf("constraint %q: %w", c.Name, err)
	}
	m.cons = append(m.cons, c)
	return nil
}

// SetObjective validates and installs the model objective, replacing any
// previous one.
func (m *Model) SetObjective(t ObjectiveTerm) error {
	if m.frozen {
		return fmt.Errorf("set objective %q: %w", t.Name, ErrModelFrozen)
	}
	if err := m.checkExpr(t.Expr); err != nil {
		return fmt.Errorf("objective %q: %w", t.Name, err)
	}
	obj := t
	obj.Expr = t.Expr.Clone()
	m.objective = &obj
	return nil
}

// Objective returns the installed objective, if any.
func (m *Model) Objective() (ObjectiveTerm, bool) {
	if m.objective == nil {
		return ObjectiveTerm{}, false
	}
	return *m.objective, true
}

// Freeze marks the model immutable. Called by the solver adapter before
// dispatching; idempotent.
func (m *Model) Freeze() { m.frozen = true }

// Frozen reports whether the model has been frozen.
func (m *Model) Frozen() bool { return m.frozen }

// Clone returns an unfrozen deep copy, used by lexicographic solving to
// derive each stage from pristine inputs.
func (m *Model) Clone() *Model {
	out := NewModel(m.name)
	out.vars = append([]Variable(nil), m.vars...)
	for name, id := range m.index {
		out.index[name] = id
	}
	out.cons = make([]Constraint, 0, len(m.cons))
	for _, c := range m.cons {
		c.Expr = c.Expr.Clone()
		out.cons = append(out.cons, c)
	}
	if m.objective != nil {
		obj := *m.objective
		obj.Expr = m.objective.Expr.Clone()
		out.objective = &obj
	}
	return out
}

func (m *Model) checkExpr(e Expr) error {
	for _, t := range e.Terms {
		if t.Var < 0 || t.Var >= len(m.vars) {
			return fmt.Errorf("%w: variable id %d", ErrUnknownVariable, t.Var)
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("non-finite coefficient %v on variable %q", t.Coef, m.vars[t.Var].Name)
		}
	}
	if math.IsNaN(e.Offset) || math.IsInf(e.Offset, 0) {
		return fmt.Errorf("non-finite expression offset %v", e.Offset)
	}
	return nil
}
