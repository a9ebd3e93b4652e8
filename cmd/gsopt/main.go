package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/groundstation-optimizer/ephemeris"
	"github.com/signalsfoundry/groundstation-optimizer/internal/logging"
	"github.com/signalsfoundry/groundstation-optimizer/internal/observability"
	"github.com/signalsfoundry/groundstation-optimizer/milp"
	"github.com/signalsfoundry/groundstation-optimizer/optimizer"
	"github.com/signalsfoundry/groundstation-optimizer/scenario"
	"github.com/signalsfoundry/groundstation-optimizer/solver"
)

func main() {
	var (
		scenarioPath = flag.String("scenario", "", "path to the scenario YAML file (required)")
		backendName  = flag.String("backend", "bnb", "solver backend: bnb, cbc, glpk, or highs")
		objectives   = flag.String("objective", "min-cost", "objective, or comma-separated list solved lexicographically: min-cost, max-data, min-max-gap, max-min-gap")

		budget      = flag.Float64("budget", 0, "total cost ceiling over the optimization window (0 disables)")
		minData     = flag.Float64("min-data", 0, "constellation downlink floor in bits (0 disables)")
		minDataSat  = flag.Float64("min-data-per-sat", 0, "per-satellite downlink floor in bits (0 disables)")
		maxGap      = flag.Duration("max-gap", 0, "per-satellite ceiling on idle time between used contacts (0 disables)")
		maxProvider = flag.Int("max-providers", 0, "limit on selected providers (0 disables)")

		timeLimit = flag.Duration("time-limit", 0, "solver time limit (0 means unlimited)")
		mipGap    = flag.Float64("mip-gap", 0, "relative MIP gap at which the solver may stop")

		computeContacts = flag.Bool("compute-contacts", false, "derive contact windows from TLEs instead of requiring them in the scenario file")
		sampleStep      = flag.Duration("sample-step", ephemeris.DefaultStep, "elevation sampling step for -compute-contacts")

		metricsAddr = flag.String("metrics-addr", "", "listen address for /metrics (empty disables)")
		outPath     = flag.String("out", "", "write the solution JSON here instead of stdout")
	)
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "gsopt: -scenario is required")
		flag.Usage()
		os.Exit(2)
	}

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	if err := run(ctx, log, runConfig{
		scenarioPath:    *scenarioPath,
		backendName:     *backendName,
		objectives:      strings.Split(*objectives, ","),
		budget:          *budget,
		minData:         *minData,
		minDataSat:      *minDataSat,
		maxGap:          *maxGap,
		maxProviders:    *maxProvider,
		timeLimit:       *timeLimit,
		mipGap:          *mipGap,
		computeContacts: *computeContacts,
		sampleStep:      *sampleStep,
		metricsAddr:     *metricsAddr,
		outPath:         *outPath,
	}); err != nil {
		log.Error(ctx, "optimization failed", logging.Err(err))
		os.Exit(1)
	}
}

type runConfig struct {
	scenarioPath string
	backendName  string
	objectives   []string

	budget       float64
	minData      float64
	minDataSat   float64
	maxGap       time.Duration
	maxProviders int

	timeLimit time.Duration
	mipGap    float64

	computeContacts bool
	sampleStep      time.Duration

	metricsAddr string
	outPath     string
}

func run(ctx context.Context, log logging.Logger, cfg runConfig) error {
	input, err := scenario.LoadFile(cfg.scenarioPath)
	if err != nil {
		return err
	}
	if cfg.computeContacts {
		contacts, err := ephemeris.ComputeContacts(input.Scenario, input.Window, ephemeris.Config{Step: cfg.sampleStep})
		if err != nil {
			return fmt.Errorf("compute contacts: %w", err)
		}
		input.Scenario.Contacts = contacts
		log.Info(ctx, "computed contact windows", logging.Int("contacts", len(contacts)))
	}

	backend, err := backendByName(cfg.backendName)
	if err != nil {
		return err
	}

	var metrics *observability.Metrics
	if cfg.metricsAddr != "" {
		metrics, err = observability.NewMetrics(nil)
		if err != nil {
			return err
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.metricsAddr, mux); err != nil {
				log.Error(ctx, "metrics listener stopped", logging.Err(err))
			}
		}()
		log.Info(ctx, "serving metrics", logging.String("addr", cfg.metricsAddr))
	}

	req := optimizer.Request{
		Scenario:    input.Scenario,
		Window:      input.Window,
		Constraints: assembleConstraints(cfg),
	}
	if cfg.timeLimit > 0 {
		req.Solver.TimeLimit = solver.TimeLimit(cfg.timeLimit)
	}
	req.Solver.RelativeGap = cfg.mipGap

	pipeline := &optimizer.Pipeline{
		Backend: backend,
		Logger:  log,
		Metrics: metrics,
	}

	var sol *optimizer.Solution
	if len(cfg.objectives) == 1 {
		req.Objective, err = objectiveByName(cfg.objectives[0])
		if err != nil {
			return err
		}
		sol, err = pipeline.Run(ctx, req)
	} else {
		var stages []optimizer.LexStage
		for _, name := range cfg.objectives {
			gen, genErr := objectiveByName(name)
			if genErr != nil {
				return genErr
			}
			stages = append(stages, optimizer.LexStage{Objective: gen})
		}
		sol, err = pipeline.RunLexicographic(ctx, req, stages)
	}
	if err != nil {
		return err
	}

	return writeSolution(cfg.outPath, sol)
}

func assembleConstraints(cfg runConfig) []milp.ConstraintGenerator {
	gens := []milp.ConstraintGenerator{
		milp.StationCapacity{},
		milp.SatelliteContactExclusion{},
	}
	if cfg.budget > 0 {
		gens = append(gens, milp.BudgetCap{Ceiling: cfg.budget})
	}
	if cfg.minData > 0 {
		gens = append(gens, milp.MinDownlink{FloorBits: cfg.minData})
	}
	if cfg.minDataSat > 0 {
		gens = append(gens, milp.SatelliteMinDownlink{FloorBits: cfg.minDataSat})
	}
	if cfg.maxGap > 0 {
		gens = append(gens, milp.MaxContactGap{MaxGap: cfg.maxGap})
	}
	if cfg.maxProviders > 0 {
		gens = append(gens, milp.ProviderLimit{Max: cfg.maxProviders})
	}
	return gens
}

func backendByName(name string) (solver.Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bnb":
		return &solver.BranchAndBound{}, nil
	case "cbc":
		return solver.CBC{}, nil
	case "glpk", "glpsol":
		return solver.GLPK{}, nil
	case "highs":
		return solver.HiGHS{}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", name)
	}
}

func objectiveByName(name string) (milp.ObjectiveGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "min-cost":
		return milp.MinCost{}, nil
	case "max-data":
		return milp.MaxDataDownlink{}, nil
	case "min-max-gap":
		return milp.MinMaxContactGap{}, nil
	case "max-min-gap":
		return milp.MaxMinContactGap{}, nil
	default:
		return nil, fmt.Errorf("unknown objective %q", name)
	}
}

func writeSolution(path string, sol *optimizer.Solution) error {
	out, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
