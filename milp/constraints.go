package milp

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/signalsfoundry/groundstation-optimizer/model"
)

// ConstraintGenerator contributes a set of constraints to a problem. Each
// generator is a pure function of the problem and its own parameters: it
// only adds inequalities over existing variables, never removes or mutates
// them. Generators are assembled by the caller as an explicit ordered list;
// ordering does not affect correctness.
type ConstraintGenerator interface {
	Name() string
	Apply(p *Problem) error
}

// BudgetCap bounds total cost over the optimization window: provider
// integration and station setup costs, monthly station costs normalized to
// the window, per-satellite license fees via the (station, satellite)
// indicators, and per-contact usage fees extrapolated from the simulation
// window.
type BudgetCap struct {
	Ceiling float64
}

func (BudgetCap) Name() string { return "budget_cap" }

func (g BudgetCap) Apply(p *Problem) error {
	var e Expr
	for _, prov := range p.Scenario.Providers {
		e.Add(p.ProviderVars[prov.ID], prov.IntegrationCost)
	}
	monthly := p.Window.MonthlyCostFactor()
	for _, st := range p.Scenario.Stations() {
		costs := p.StationCosts[st.ID]
		e.Add(p.StationVars[st.ID], costs.SetupCost+monthly*costs.MonthlyCost)
		for _, sat := range p.Scenario.Satellites {
			if id, ok := p.StationSatVars[StationSatKey(st.ID, sat.ID)]; ok {
				e.Add(id, costs.PerSatelliteLicenseCost)
			}
		}
	}
	extr := p.Window.ExtrapolationFactor()
	for _, c := range p.Contacts {
		e.Add(p.UsageVars[c.ID], extr*c.Cost)
	}
	return p.Model.AddConstraint(Constraint{
		Name:  g.Name(),
		Expr:  e,
		Sense: LessEq,
		RHS:   g.Ceiling,
	})
}

// MinDownlink enforces a floor on the total data volume downlinked by the
// constellation over the optimization window.
type MinDownlink struct {
	FloorBits float64
}

func (MinDownlink) Name() string { return "min_downlink" }

func (g MinDownlink) Apply(p *Problem) error {
	var e Expr
	extr := p.Window.ExtrapolationFactor()
	for _, c := range p.Contacts {
		e.Add(p.UsageVars[c.ID], extr*c.DataVolumeBits)
	}
	return p.Model.AddConstraint(Constraint{
		Name:  g.Name(),
		Expr:  e,
		Sense: GreaterEq,
		RHS:   g.FloorBits,
	})
}

// SatelliteMinDownlink enforces a per-satellite data floor, for every
// satellite in the scenario.
type SatelliteMinDownlink struct {
	FloorBits float64
}

func (SatelliteMinDownlink) Name() string { return "satellite_min_downlink" }

func (g SatelliteMinDownlink) Apply(p *Problem) error {
	extr := p.Window.ExtrapolationFactor()
	for _, sat := range p.Scenario.Satellites {
		var e Expr
		for _, c := range p.ContactsBySatellite[sat.ID] {
			e.Add(p.UsageVars[c.ID], extr*c.DataVolumeBits)
		}
		err := p.Model.AddConstraint(Constraint{
			Name:  "satellite_min_downlink[" + sat.ID + "]",
			Expr:  e,
			Sense: GreaterEq,
			RHS:   g.FloorBits,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// StationCapacity bounds the number of simultaneously active contacts at
// each station by its antenna count. Overlapping contacts are grouped per
// start event; in an interval graph the largest simultaneous set always
// occurs at some window start, so bounding each start-event group bounds
// every instant.
type StationCapacity struct{}

func (StationCapacity) Name() string { return "station_capacity" }

func (g StationCapacity) Apply(p *Problem) error {
	for _, st := range p.Scenario.Stations() {
		limit := st.AntennaCount
		if limit <= 0 {
			limit = 1
		}
		for _, group := range overlapGroups(p.ContactsByStation[st.ID], limit) {
			var e Expr
			for _, c := range group {
				e.Add(p.UsageVars[c.ID], 1)
			}
			err := p.Model.AddConstraint(Constraint{
				Name:  "station_capacity[" + st.ID + "/" + group[0].ID + "]",
				Expr:  e,
				Sense: LessEq,
				RHS:   float64(limit),
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// SatelliteContactExclusion forbids a satellite from serving two stations
// at once: among any set of its time-overlapping contacts, at most one may
// be used.
type SatelliteContactExclusion struct{}

func (SatelliteContactExclusion) Name() string { return "satellite_contact_exclusion" }

func (g SatelliteContactExclusion) Apply(p *Problem) error {
	for _, sat := range p.Scenario.Satellites {
		for _, group := range overlapGroups(p.ContactsBySatellite[sat.ID], 1) {
			var e Expr
			for _, c := range group {
				e.Add(p.UsageVars[c.ID], 1)
			}
			err := p.Model.AddConstraint(Constraint{
				Name:  "satellite_exclusion[" + sat.ID + "/" + group[0].ID + "]",
				Expr:  e,
				Sense: LessEq,
				RHS:   1,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// ContractExclusivity allows at most one provider of a named group to be
// selected, modeling mutually exclusive contract options.
type ContractExclusivity struct {
	Group       string
	ProviderIDs []string
}

func (g ContractExclusivity) Name() string { return "contract_exclusivity[" + g.Group + "]" }

func (g ContractExclusivity) Apply(p *Problem) error {
	var e Expr
	for _, id := range g.ProviderIDs {
		v, ok := p.ProviderVars[id]
		if !ok {
			return fmt.Errorf("%s: %w: provider %q", g.Name(), ErrUnknownVariable, id)
		}
		e.Add(v, 1)
	}
	return p.Model.AddConstraint(Constraint{
		Name:  g.Name(),
		Expr:  e,
		Sense: LessEq,
		RHS:   1,
	})
}

// ProviderLimit caps the number of providers that may be selected.
type ProviderLimit struct {
	Max int
}

func (ProviderLimit) Name() string { return "provider_limit" }

func (g ProviderLimit) Apply(p *Problem) error {
	var e Expr
	for _, prov := range p.Scenario.Providers {
		e.Add(p.ProviderVars[prov.ID], 1)
	}
	return p.Model.AddConstraint(Constraint{
		Name:  g.Name(),
		Expr:  e,
		Sense: LessEq,
		RHS:   float64(g.Max),
	})
}

// MaxContactGap bounds, per satellite, the idle time between consecutive
// used contacts. It rides on the successor-indicator structure: for each
// candidate pair the constant pair gap multiplies the indicator, so any
// pair whose gap exceeds the bound cannot be chosen as consecutive.
type MaxContactGap struct {
	MaxGap time.Duration
}

func (MaxContactGap) Name() string { return "max_contact_gap" }

func (g MaxContactGap) Apply(p *Problem) error {
	bound := g.MaxGap.Seconds()
	for _, sat := range p.Scenario.Satellites {
		pairs, err := ensureGapStructure(p, sat.ID)
		if err != nil {
			return err
		}
		for _, pair := range pairs {
			if pair.GapSeconds <= bound {
				continue
			}
			var e Expr
			e.Add(pair.Var, pair.GapSeconds)
			err := p.Model.AddConstraint(Constraint{
				Name:  "max_gap[" + pair.From.ID + "/" + pair.To.ID + "]",
				Expr:  e,
				Sense: LessEq,
				RHS:   bound,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// overlapGroups returns, for each window start event, the set of windows
// active at that instant, deduplicated and filtered to groups larger than
// the capacity limit (smaller groups cannot violate it).
func overlapGroups(contacts []model.ContactWindow, limit int) [][]model.ContactWindow {
	var groups [][]model.ContactWindow
	seen := make(map[string]bool)

	for _, anchor := range contacts {
		var group []model.ContactWindow
		for _, c := range contacts {
			if !c.Start.After(anchor.Start) && c.End.After(anchor.Start) {
				group = append(group, c)
			}
		}
		if len(group) <= limit {
			continue
		}
		ids := make([]string, len(group))
		for i, c := range group {
			ids[i] = c.ID
		}
		sort.Strings(ids)
		key := strings.Join(ids, "|")
		if seen[key] {
			continue
		}
		seen[key] = true
		groups = append(groups, group)
	}
	return groups
}
