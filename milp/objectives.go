package milp

import (
	"fmt"
	"math"
)

// ObjectiveGenerator contributes one objective term to a problem. Gap-based
// generators also register the auxiliary variables and constraints their
// linearization needs; like constraint generators they never remove or
// mutate existing variables.
type ObjectiveGenerator interface {
	Name() string
	Term(p *Problem) (ObjectiveTerm, error)
}

// MinCost minimizes total cost over the optimization window: provider
// integration, station setup, monthly station cost normalized to the
// window, per-satellite license fees via the (station, satellite)
// indicators, and extrapolated contact usage fees. Providers with a
// minimum commitment bill at least that amount when selected, modeled
// with a per-provider shortfall variable added to the objective.
type MinCost struct{}

func (MinCost) Name() string { return "min_cost" }

func (g MinCost) Term(p *Problem) (ObjectiveTerm, error) {
	monthly := p.Window.MonthlyCostFactor()
	extr := p.Window.ExtrapolationFactor()

	var e Expr
	for _, prov := range p.Scenario.Providers {
		e.Add(p.ProviderVars[prov.ID], prov.IntegrationCost)

		// Usage-dependent spend with this provider, reused below as the
		// left side of the commitment floor.
		var spend Expr
		for _, st := range prov.Stations {
			costs := p.StationCosts[st.ID]
			spend.Add(p.StationVars[st.ID], costs.SetupCost+monthly*costs.MonthlyCost)
			for _, sat := range p.Scenario.Satellites {
				if id, ok := p.StationSatVars[StationSatKey(st.ID, sat.ID)]; ok {
					spend.Add(id, costs.PerSatelliteLicenseCost)
				}
			}
			for _, c := range p.ContactsByStation[st.ID] {
				spend.Add(p.UsageVars[c.ID], extr*c.Cost)
			}
		}
		for _, t := range spend.Terms {
			e.Add(t.Var, t.Coef)
		}

		if prov.MinimumCommitment > 0 {
			short, err := ensureCommitment(p, prov.ID, prov.MinimumCommitment, spend)
			if err != nil {
				return ObjectiveTerm{}, err
			}
			e.Add(short, 1)
		}
	}
	return ObjectiveTerm{Name: g.Name(), Sense: Minimize, Expr: e}, nil
}

// ensureCommitment registers the shortfall variable for one provider's
// commitment floor, reusing it when an earlier stage already created it.
// The constraint forces spend + shortfall >= commitment whenever the
// provider is selected, so minimization bills exactly the unmet portion.
func ensureCommitment(p *Problem, providerID string, commitment float64, spend Expr) (int, error) {
	if id, ok := p.commitments[providerID]; ok {
		return id, nil
	}
	id, err := p.Model.AddContinuous("commit_shortfall["+providerID+"]", 0, commitment)
	if err != nil {
		return 0, err
	}
	floor := spend.Clone()
	floor.Add(id, 1)
	floor.Add(p.ProviderVars[providerID], -commitment)
	if err := p.Model.AddConstraint(Constraint{
		Name:  "commitment[" + providerID + "]",
		Expr:  floor,
		Sense: GreaterEq,
	}); err != nil {
		return 0, err
	}
	p.commitments[providerID] = id
	return id, nil
}

// MaxDataDownlink maximizes the total data volume downlinked by the
// constellation over the optimization window.
type MaxDataDownlink struct{}

func (MaxDataDownlink) Name() string { return "max_data_downlink" }

func (g MaxDataDownlink) Term(p *Problem) (ObjectiveTerm, error) {
	var e Expr
	extr := p.Window.ExtrapolationFactor()
	for _, c := range p.Contacts {
		e.Add(p.UsageVars[c.ID], extr*c.DataVolumeBits)
	}
	return ObjectiveTerm{Name: g.Name(), Sense: Maximize, Expr: e}, nil
}

// MinMaxContactGap minimizes the largest idle time between consecutive used
// contacts across all satellites. A single epigraph variable dominates
// every chosen successor pair's gap and is minimized directly.
type MinMaxContactGap struct{}

func (MinMaxContactGap) Name() string { return "min_max_contact_gap" }

func (g MinMaxContactGap) Term(p *Problem) (ObjectiveTerm, error) {
	upper := 0.0
	for _, sat := range p.Scenario.Satellites {
		if span := satelliteSpanSeconds(p, sat.ID); span > upper {
			upper = span
		}
	}
	maxGap, err := p.Model.AddContinuous("max_gap", 0, upper)
	if err != nil {
		return ObjectiveTerm{}, err
	}
	for _, sat := range p.Scenario.Satellites {
		pairs, err := ensureGapStructure(p, sat.ID)
		if err != nil {
			return ObjectiveTerm{}, err
		}
		for _, pair := range pairs {
			if pair.GapSeconds == 0 {
				continue
			}
			var e Expr
			e.Add(pair.Var, pair.GapSeconds)
			e.Add(maxGap, -1)
			err := p.Model.AddConstraint(Constraint{
				Name:  "gap_bound[" + pair.From.ID + "/" + pair.To.ID + "]",
				Expr:  e,
				Sense: LessEq,
			})
			if err != nil {
				return ObjectiveTerm{}, err
			}
		}
	}
	var obj Expr
	obj.Add(maxGap, 1)
	return ObjectiveTerm{Name: g.Name(), Sense: Minimize, Expr: obj}, nil
}

// MaxMinContactGap maximizes the smallest idle time between consecutive
// used contacts across all satellites, spreading contacts apart. The
// epigraph variable is bounded above by every active pair gap through a
// big-M constant sized per satellite from that satellite's window span.
type MaxMinContactGap struct{}

func (MaxMinContactGap) Name() string { return "max_min_contact_gap" }

func (g MaxMinContactGap) Term(p *Problem) (ObjectiveTerm, error) {
	upper := 0.0
	for _, sat := range p.Scenario.Satellites {
		if span := satelliteSpanSeconds(p, sat.ID); span > upper {
			upper = span
		}
	}
	minGap, err := p.Model.AddContinuous("min_gap", 0, upper)
	if err != nil {
		return ObjectiveTerm{}, err
	}
	for _, sat := range p.Scenario.Satellites {
		pairs, err := ensureGapStructure(p, sat.ID)
		if err != nil {
			return ObjectiveTerm{}, err
		}
		bigM := satelliteSpanSeconds(p, sat.ID)
		for _, pair := range pairs {
			// minGap <= gap + M*(1 - z), linearized.
			var e Expr
			e.Add(minGap, 1)
			e.Add(pair.Var, bigM)
			err := p.Model.AddConstraint(Constraint{
				Name:  "gap_floor[" + pair.From.ID + "/" + pair.To.ID + "]",
				Expr:  e,
				Sense: LessEq,
				RHS:   pair.GapSeconds + bigM,
			})
			if err != nil {
				return ObjectiveTerm{}, err
			}
		}
	}
	var obj Expr
	obj.Add(minGap, 1)
	return ObjectiveTerm{Name: g.Name(), Sense: Maximize, Expr: obj}, nil
}

// WeightedTerm pairs an objective generator with its non-negative weight in
// a weighted-sum composition.
type WeightedTerm struct {
	Generator ObjectiveGenerator
	Weight    float64
}

// WeightedSum combines multiple objective terms into one scalar objective
// with caller-supplied non-negative weights. Terms whose sense disagrees
// with the composite sense enter negated. A zero-weight term contributes
// nothing but is still generated and validated against the model.
type WeightedSum struct {
	Sense ObjSense
	Terms []WeightedTerm
}

func (WeightedSum) Name() string { return "weighted_sum" }

func (g WeightedSum) Term(p *Problem) (ObjectiveTerm, error) {
	var combined Expr
	for _, wt := range g.Terms {
		if wt.Weight < 0 || math.IsNaN(wt.Weight) || math.IsInf(wt.Weight, 0) {
			return ObjectiveTerm{}, fmt.Errorf("weighted_sum: term %q has invalid weight %v", wt.Generator.Name(), wt.Weight)
		}
		term, err := wt.Generator.Term(p)
		if err != nil {
			return ObjectiveTerm{}, err
		}
		scale := wt.Weight
		if term.Sense != g.Sense {
			scale = -scale
		}
		for _, t := range term.Expr.Terms {
			combined.Add(t.Var, scale*t.Coef)
		}
		combined.Offset += scale * term.Expr.Offset
	}
	return ObjectiveTerm{Name: g.Name(), Sense: g.Sense, Expr: combined}, nil
}

// ApplyObjective generates and installs a single objective on the problem's
// model.
func ApplyObjective(p *Problem, gen ObjectiveGenerator) error {
	term, err := gen.Term(p)
	if err != nil {
		return err
	}
	return p.Model.SetObjective(term)
}
