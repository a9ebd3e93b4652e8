package optimizer

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/groundstation-optimizer/internal/logging"
	"github.com/signalsfoundry/groundstation-optimizer/internal/observability"
	"github.com/signalsfoundry/groundstation-optimizer/milp"
	"github.com/signalsfoundry/groundstation-optimizer/model"
	"github.com/signalsfoundry/groundstation-optimizer/solver"
)

const tracerName = "groundstation-optimizer/optimizer"

// Request describes one optimization run: the scenario and horizon to
// plan over, the constraint generators to attach in order, the objective,
// and the solve options handed to the backend.
type Request struct {
	Scenario    *model.Scenario
	Window      model.OptimizationWindow
	Constraints []milp.ConstraintGenerator
	Objective   milp.ObjectiveGenerator
	Solver      solver.Options
}

// Pipeline wires scenario, model builder, generators, backend, and
// extractor into one run. A Pipeline holds no per-run state: every Run
// builds and owns its Model and Handle exclusively, so one Pipeline may
// serve concurrent runs.
type Pipeline struct {
	Backend solver.Backend
	Logger  logging.Logger
	Metrics *observability.Metrics

	// Tolerance overrides DefaultTolerance for binary rounding when > 0.
	Tolerance float64
}

func (pl *Pipeline) logger() logging.Logger {
	if pl.Logger == nil {
		return logging.Noop()
	}
	return pl.Logger
}

func (pl *Pipeline) tolerance() float64 {
	if pl.Tolerance > 0 {
		return pl.Tolerance
	}
	return DefaultTolerance
}

// Run executes one full optimization: build, constrain, solve, extract.
// Scenario problems surface as errors (ErrMalformedScenario and friends);
// solver outcomes without a usable assignment surface as ErrNoSolution
// with the status preserved in the message.
func (pl *Pipeline) Run(ctx context.Context, req Request) (*Solution, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "optimizer.run",
		trace.WithAttributes(attribute.String("solver.backend", pl.Backend.Name())))
	defer span.End()

	p, err := pl.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := milp.ApplyObjective(p, req.Objective); err != nil {
		return nil, fmt.Errorf("objective %s: %w", req.Objective.Name(), err)
	}

	res, err := pl.solve(ctx, p, req.Solver)
	if err != nil {
		return nil, err
	}
	return ExtractTolerance(p, res, pl.tolerance())
}

// prepare builds the problem skeleton and applies the request's
// constraint generators in order.
func (pl *Pipeline) prepare(ctx context.Context, req Request) (*milp.Problem, error) {
	p, err := milp.Build(req.Scenario, req.Window)
	if err != nil {
		return nil, err
	}
	for _, gen := range req.Constraints {
		if err := gen.Apply(p); err != nil {
			return nil, fmt.Errorf("constraint %s: %w", gen.Name(), err)
		}
	}
	return p, nil
}

// solve dispatches one problem to the backend and records telemetry.
func (pl *Pipeline) solve(ctx context.Context, p *milp.Problem, opts solver.Options) (solver.Result, error) {
	log := pl.logger()
	backend := pl.Backend.Name()

	if pl.Metrics != nil {
		pl.Metrics.ObserveModelSize(p.Model.NumVariables(), p.Model.NumConstraints())
	}
	log.Info(ctx, "dispatching model",
		logging.String("backend", backend),
		logging.Int("variables", p.Model.NumVariables()),
		logging.Int("constraints", p.Model.NumConstraints()))

	h, err := pl.Backend.Build(ctx, p.Model)
	if err != nil {
		return solver.Result{}, fmt.Errorf("build on %s: %w", backend, err)
	}

	start := time.Now()
	res, err := pl.Backend.Solve(ctx, h, opts)
	elapsed := time.Since(start)
	if err != nil {
		return solver.Result{}, fmt.Errorf("solve on %s: %w", backend, err)
	}

	if pl.Metrics != nil {
		pl.Metrics.ObserveSolve(backend, res.Status.String(), elapsed)
	}
	if res.Status == solver.StatusError {
		log.Error(ctx, "backend failed",
			logging.String("backend", backend),
			logging.Err(res.Err))
	} else {
		log.Info(ctx, "solve finished",
			logging.String("backend", backend),
			logging.String("status", res.Status.String()),
			logging.Float64("objective", res.Objective),
			logging.Duration("elapsed", elapsed))
	}
	return res, nil
}
