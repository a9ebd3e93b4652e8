package optimizer

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
)

// defaultStageTolerance is the absolute slack left when pinning a stage's
// optimum, so later stages are not cut off by solver-level rounding.
const defaultStageTolerance = 1e-6

// LexStage is one priority level of a lexicographic solve.
type LexStage struct {
	Objective milp.ObjectiveGenerator
	// Tolerance is the absolute slack allowed on this stage's optimum in
	// later stages; defaultStageTolerance when zero.
	Tolerance float64
}

func (s LexStage) tolerance() float64 {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return defaultStageTolerance
}

// RunLexicographic solves the request's model once per stage in priority
// order. After each stage, that stage's objective is pinned to its
// optimum (within the stage tolerance) as a constraint, so later stages
// only discriminate among the earlier stages' optimal solutions. The
// returned Solution is the final stage's, with every stage's outcome
// recorded in Stages. Request.Objective is ignored; stages carry the
// objectives.
func (pl *Pipeline) RunLexicographic(ctx context.Context, req Request, stages []LexStage) (*Solution, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("lexicographic solve needs at least one stage")
	}

	cur, err := pl.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		results  []StageResult
		finalSol *Solution
	)
	for i, stage := range stages {
		name := stage.Objective.Name()

		term, err := stage.Objective.Term(cur)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", name, err)
		}
		if err := cur.Model.SetObjective(term); err != nil {
			return nil, fmt.Errorf("stage %s: %w", name, err)
		}

		// Solve a clone so the working model stays mutable for the
		// pin constraint and the next stage's objective.
		probe := cur.Clone()
		res, err := pl.solve(ctx, probe, req.Solver)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", name, err)
		}
		if !res.Status.HasSolution() {
			return nil, fmt.Errorf("%w: stage %s finished %s on backend %s",
				ErrNoSolution, name, res.Status, res.Backend)
		}
		results = append(results, StageResult{Name: name, Status: res.Status, Objective: res.Objective})

		if i == len(stages)-1 {
			finalSol, err = ExtractTolerance(probe, res, pl.tolerance())
			if err != nil {
				return nil, err
			}
			break
		}

		pin := milp.Constraint{
			Name: fmt.Sprintf("lex_pin[%d/%s]", i, name),
			Expr: term.Expr.Clone(),
		}
		if term.Sense == milp.Minimize {
			pin.Sense = milp.LessEq
			pin.RHS = res.Objective + stage.tolerance()
		} else {
			pin.Sense = milp.GreaterEq
			pin.RHS = res.Objective - stage.tolerance()
		}
		if err := cur.Model.AddConstraint(pin); err != nil {
			return nil, fmt.Errorf("stage %s: pin optimum: %w", name, err)
		}
	}

	finalSol.Stages = results
	return finalSol, nil
}
