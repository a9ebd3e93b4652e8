package solver

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

// BranchAndBound is the in-process MILP backend: best-first branch and
// bound over the integer variables, with each node's LP relaxation solved
// by gonum's simplex. It has no external dependencies and is the default
// backend for tests and small scenarios.
type BranchAndBound struct {
	// IntegralityTol decides when a relaxation value counts as integral.
	IntegralityTol float64
	// NodeLimit caps explored nodes; exceeding it is reported like a
	// time limit. Zero means the default.
	NodeLimit int
}

const (
	defaultIntegralityTol = 1e-6
	defaultNodeLimit      = 1 << 18
	simplexTol            = 1e-10
)

// NewBranchAndBound returns a backend with default tolerances.
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{}
}

func (b *BranchAndBound) Name() string { return "bnb" }

type bnbRow struct {
	coefs map[int]float64
	sense milp.Sense
	rhs   float64
}

type bnbHandle struct {
	model     *milp.Model
	n         int
	obj       []float64 // minimize form
	objOffset float64
	maximize  bool
	rows      []bnbRow
	intVars   []int
}

func (h *bnbHandle) BackendName() string { return "bnb" }

// Build freezes the model and compiles it into dense minimize-form data.
func (b *BranchAndBound) Build(ctx context.Context, m *milp.Model) (Handle, error) {
	if m == nil {
		return nil, fmt.Errorf("bnb: model is nil")
	}
	m.Freeze()

	h := &bnbHandle{model: m, n: m.NumVariables()}
	h.obj = make([]float64, h.n)
	if obj, ok := m.Objective(); ok {
		h.maximize = obj.Sense == milp.Maximize
		sign := 1.0
		if h.maximize {
			sign = -1.0
		}
		for _, t := range obj.Expr.Terms {
			h.obj[t.Var] += sign * t.Coef
		}
		h.objOffset = sign * obj.Expr.Offset
	}

	for _, c := range m.Constraints() {
		row := bnbRow{coefs: make(map[int]float64), sense: c.Sense, rhs: c.RHS - c.Expr.Offset}
		for _, t := range c.Expr.Terms {
			row.coefs[t.Var] += t.Coef
		}
		h.rows = append(h.rows, row)
	}

	for _, v := range m.Variables() {
		if v.Kind == milp.Binary {
			h.intVars = append(h.intVars, v.ID)
		}
	}
	return h, nil
}

type relaxStatus int

const (
	relaxOptimal relaxStatus = iota
	relaxInfeasible
	relaxUnbounded
	relaxFailed
)

// relax solves the LP relaxation under the node's variable bounds. The
// model is rewritten in standard form (shifted non-negative variables plus
// slack columns) so the simplex can consume it directly.
func (h *bnbHandle) relax(lb, ub []float64) ([]float64, float64, relaxStatus, error) {
	n := h.n
	for i := 0; i < n; i++ {
		if ub[i] < lb[i] {
			return nil, 0, relaxInfeasible, nil
		}
	}

	type stdRow struct {
		coefs map[int]float64
		rhs   float64
		slack float64 // +1 for <=, -1 for >=, 0 for =
	}
	var rows []stdRow

	for _, r := range h.rows {
		rhs := r.rhs
		coefs := make(map[int]float64, len(r.coefs))
		for v, c := range r.coefs {
			coefs[v] = c
			rhs -= c * lb[v]
		}
		switch r.sense {
		case milp.LessEq:
			rows = append(rows, stdRow{coefs: coefs, rhs: rhs, slack: 1})
		case milp.GreaterEq:
			rows = append(rows, stdRow{coefs: coefs, rhs: rhs, slack: -1})
		default:
			rows = append(rows, stdRow{coefs: coefs, rhs: rhs})
		}
	}
	for i := 0; i < n; i++ {
		if math.IsInf(ub[i], 1) {
			continue
		}
		rows = append(rows, stdRow{coefs: map[int]float64{i: 1}, rhs: ub[i] - lb[i], slack: 1})
	}

	m := len(rows)
	if m == 0 {
		// No constraints of any kind: each variable sits at whichever
		// finite bound its cost prefers.
		x := make([]float64, n)
		obj := h.objOffset
		for i := 0; i < n; i++ {
			switch {
			case h.obj[i] >= 0:
				x[i] = lb[i]
			case math.IsInf(ub[i], 1):
				return nil, 0, relaxUnbounded, nil
			default:
				x[i] = ub[i]
			}
			obj += h.obj[i] * x[i]
		}
		return x, obj, relaxOptimal, nil
	}

	nSlack := 0
	for _, r := range rows {
		if r.slack != 0 {
			nSlack++
		}
	}
	cols := n + nSlack
	data := make([]float64, m*cols)
	bvec := make([]float64, m)
	c := make([]float64, cols)
	copy(c, h.obj)

	slackCol := n
	for i, r := range rows {
		base := i * cols
		for v, coef := range r.coefs {
			data[base+v] = coef
		}
		if r.slack != 0 {
			data[base+slackCol] = r.slack
			slackCol++
		}
		bvec[i] = r.rhs
	}

	// The simplex phase-1 construction wants non-negative rhs.
	for i := 0; i < m; i++ {
		if bvec[i] < 0 {
			bvec[i] = -bvec[i]
			base := i * cols
			for j := 0; j < cols; j++ {
				data[base+j] = -data[base+j]
			}
		}
	}

	_, optX, err := lp.Simplex(c, mat.NewDense(m, cols, data), bvec, simplexTol, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return nil, 0, relaxInfeasible, nil
		case errors.Is(err, lp.ErrUnbounded):
			return nil, 0, relaxUnbounded, nil
		default:
			return nil, 0, relaxFailed, err
		}
	}

	x := make([]float64, n)
	obj := h.objOffset
	for i := 0; i < n; i++ {
		x[i] = optX[i] + lb[i]
		obj += h.obj[i] * x[i]
	}
	return x, obj, relaxOptimal, nil
}

type bnbNode struct {
	lb, ub []float64
	bound  float64
}

type nodeHeap []*bnbNode

func (q nodeHeap) Len() int            { return len(q) }
func (q nodeHeap) Less(i, j int) bool  { return q[i].bound < q[j].bound }
func (q nodeHeap) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeHeap) Push(v interface{}) { *q = append(*q, v.(*bnbNode)) }
func (q *nodeHeap) Pop() interface{} {
	old := *q
	n := len(old)
	v := old[n-1]
	*q = old[:n-1]
	return v
}

// Solve runs branch and bound under the given options.
func (b *BranchAndBound) Solve(ctx context.Context, handle Handle, opts Options) (Result, error) {
	h, ok := handle.(*bnbHandle)
	if !ok {
		return Result{}, fmt.Errorf("bnb: foreign handle %T", handle)
	}

	intTol := b.IntegralityTol
	if intTol <= 0 {
		intTol = defaultIntegralityTol
	}
	nodeLimit := b.NodeLimit
	if nodeLimit <= 0 {
		nodeLimit = defaultNodeLimit
	}

	var deadline time.Time
	hasDeadline := false
	if opts.TimeLimit != nil {
		deadline = time.Now().Add(*opts.TimeLimit)
		hasDeadline = true
	}
	if d, ok := ctx.Deadline(); ok && (!hasDeadline || d.Before(deadline)) {
		deadline = d
		hasDeadline = true
	}
	expired := func() bool {
		if ctx.Err() != nil {
			return true
		}
		return hasDeadline && !time.Now().Before(deadline)
	}

	bestObj := math.Inf(1)
	var bestX []float64
	if len(opts.WarmStart) > 0 {
		if x, obj, ok := h.checkWarmStart(opts.WarmStart, intTol); ok {
			bestObj, bestX = obj, x
		}
	}

	finish := func(status Status) Result {
		res := Result{Status: status, Backend: b.Name()}
		if status.HasSolution() && bestX != nil {
			res.Objective = bestObj
			if h.maximize {
				res.Objective = -bestObj
			}
			res.Values = make(map[string]float64, h.n)
			for _, v := range h.model.Variables() {
				res.Values[v.Name] = bestX[v.ID]
			}
		}
		return res
	}
	timeoutResult := func() Result {
		if bestX != nil {
			return finish(StatusFeasible)
		}
		return finish(StatusTimeout)
	}

	root := &bnbNode{
		lb:    make([]float64, h.n),
		ub:    make([]float64, h.n),
		bound: math.Inf(-1),
	}
	for _, v := range h.model.Variables() {
		root.lb[v.ID] = v.Lower
		root.ub[v.ID] = v.Upper
	}

	open := &nodeHeap{root}
	heap.Init(open)
	explored := 0

	for open.Len() > 0 {
		if expired() {
			return timeoutResult(), nil
		}
		if explored >= nodeLimit {
			return timeoutResult(), nil
		}
		node := heap.Pop(open).(*bnbNode)
		explored++

		// Best-first order makes the popped bound a global lower bound;
		// stop once the incumbent is provably within the requested gap.
		if bestX != nil {
			gap := bestObj - node.bound
			if gap <= 1e-9 ||
				(opts.AbsoluteGap > 0 && gap <= opts.AbsoluteGap) ||
				(opts.RelativeGap > 0 && gap <= opts.RelativeGap*math.Max(1, math.Abs(bestObj))) {
				return finish(StatusOptimal), nil
			}
		}

		x, obj, st, err := h.relax(node.lb, node.ub)
		switch st {
		case relaxInfeasible:
			continue
		case relaxUnbounded:
			return finish(StatusUnbounded), nil
		case relaxFailed:
			return Result{
				Status:  StatusError,
				Backend: b.Name(),
				Err:     fmt.Errorf("bnb: relaxation failed: %w", err),
			}, nil
		}

		if obj >= bestObj-1e-9 {
			continue
		}

		branchVar := -1
		worstFrac := intTol
		for _, id := range h.intVars {
			frac := math.Abs(x[id] - math.Round(x[id]))
			if frac > worstFrac {
				worstFrac = frac
				branchVar = id
			}
		}

		if branchVar < 0 {
			// Integral relaxation: new incumbent.
			bestObj = obj
			bestX = append([]float64(nil), x...)
			continue
		}

		down := &bnbNode{
			lb:    append([]float64(nil), node.lb...),
			ub:    append([]float64(nil), node.ub...),
			bound: obj,
		}
		down.ub[branchVar] = math.Floor(x[branchVar])
		up := &bnbNode{
			lb:    append([]float64(nil), node.lb...),
			ub:    append([]float64(nil), node.ub...),
			bound: obj,
		}
		up.lb[branchVar] = math.Ceil(x[branchVar])
		heap.Push(open, down)
		heap.Push(open, up)
	}

	if bestX != nil {
		return finish(StatusOptimal), nil
	}
	return finish(StatusInfeasible), nil
}

// checkWarmStart validates a candidate assignment against bounds,
// integrality, and every constraint; a valid candidate seeds the incumbent.
func (h *bnbHandle) checkWarmStart(assignment map[string]float64, intTol float64) ([]float64, float64, bool) {
	const feasTol = 1e-6
	x := make([]float64, h.n)
	for _, v := range h.model.Variables() {
		val, ok := assignment[v.Name]
		if !ok {
			return nil, 0, false
		}
		if val < v.Lower-feasTol || val > v.Upper+feasTol {
			return nil, 0, false
		}
		x[v.ID] = val
	}
	for _, id := range h.intVars {
		if math.Abs(x[id]-math.Round(x[id])) > intTol {
			return nil, 0, false
		}
		x[id] = math.Round(x[id])
	}
	for _, r := range h.rows {
		lhs := 0.0
		for v, c := range r.coefs {
			lhs += c * x[v]
		}
		switch r.sense {
		case milp.LessEq:
			if lhs > r.rhs+feasTol {
				return nil, 0, false
			}
		case milp.GreaterEq:
			if lhs < r.rhs-feasTol {
				return nil, 0, false
			}
		default:
			if math.Abs(lhs-r.rhs) > feasTol {
				return nil, 0, false
			}
		}
	}
	obj := h.objOffset
	for i := 0; i < h.n; i++ {
		obj += h.obj[i] * x[i]
	}
	return x, obj, true
}
