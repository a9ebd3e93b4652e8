package optimizer

import (
	"fmt"
	"sort"
	"time"

	"github.com/signalsfoundry/groundstation-optimizer/milp"
	"github.com/signalsfoundry/groundstation-optimizer/model"
	"github.com/signalsfoundry/groundstation-optimizer/solver"
)

// DefaultTolerance is the binary rounding tolerance used when extracting
// solutions: MIP backends legitimately return values like 0.9999999997.
const DefaultTolerance = 1e-6

// Extract converts a solver result back into domain terms using
// DefaultTolerance.
func Extract(p *milp.Problem, res solver.Result) (*Solution, error) {
	return ExtractTolerance(p, res, DefaultTolerance)
}

// ExtractTolerance converts a solver result into a Solution. Only results
// whose status carries an assignment are extractable; anything else fails
// with ErrNoSolution. A binary variable valued outside [-tol, 1+tol]
// fails with ErrNumericalAnomaly; values inside the band round to the
// nearest integer.
func ExtractTolerance(p *milp.Problem, res solver.Result, tol float64) (*Solution, error) {
	if !res.Status.HasSolution() {
		return nil, fmt.Errorf("%w: solve finished %s on backend %s", ErrNoSolution, res.Status, res.Backend)
	}
	if res.Values == nil {
		return nil, fmt.Errorf("%w: status %s carried no assignment", ErrNoSolution, res.Status)
	}

	set, err := roundBinaries(p.Model, res.Values, tol)
	if err != nil {
		return nil, err
	}

	sol := &Solution{
		Status:                    res.Status,
		Backend:                   res.Backend,
		Objective:                 res.Objective,
		DownlinkedBitsBySatellite: make(map[string]float64),
	}

	for _, prov := range p.Scenario.Providers {
		if set[p.ProviderVars[prov.ID]] {
			sol.SelectedProviders = append(sol.SelectedProviders, prov.ID)
			sol.FixedCost += prov.IntegrationCost
		}
	}
	monthly := p.Window.MonthlyCostFactor()
	extr := p.Window.ExtrapolationFactor()

	// Spend per provider feeds the commitment true-up below.
	spend := make(map[string]float64)
	providerOf := make(map[string]string)
	for _, prov := range p.Scenario.Providers {
		for _, st := range prov.Stations {
			providerOf[st.ID] = prov.ID
			if set[p.StationVars[st.ID]] {
				sol.SelectedStations = append(sol.SelectedStations, st.ID)
				costs := p.StationCosts[st.ID]
				fixed := costs.SetupCost + monthly*costs.MonthlyCost
				sol.FixedCost += fixed
				spend[prov.ID] += fixed
			}
			for _, sat := range p.Scenario.Satellites {
				id, ok := p.StationSatVars[milp.StationSatKey(st.ID, sat.ID)]
				if !ok || !set[id] {
					continue
				}
				license := p.StationCosts[st.ID].PerSatelliteLicenseCost
				sol.FixedCost += license
				spend[prov.ID] += license
			}
		}
	}

	for _, c := range p.Contacts {
		if !set[p.UsageVars[c.ID]] {
			continue
		}
		sol.UsedContacts = append(sol.UsedContacts, c)
		fee := extr * c.Cost
		sol.OperationalCost += fee
		spend[providerOf[c.StationID]] += fee
		sol.DownlinkedBits += extr * c.DataVolumeBits
		sol.DownlinkedBitsBySatellite[c.SatelliteID] += extr * c.DataVolumeBits
	}

	// Selected providers bill at least their commitment.
	for _, prov := range p.Scenario.Providers {
		if prov.MinimumCommitment > 0 && set[p.ProviderVars[prov.ID]] {
			if short := prov.MinimumCommitment - spend[prov.ID]; short > 0 {
				sol.FixedCost += short
			}
		}
	}
	sol.TotalCost = sol.FixedCost + sol.OperationalCost

	sort.Strings(sol.SelectedProviders)
	sort.Strings(sol.SelectedStations)
	sol.MaxContactGap = worstContactGap(p, set)
	return sol, nil
}

// roundBinaries validates and rounds every binary variable of the model,
// returning the set of variables rounded to one.
func roundBinaries(m *milp.Model, values map[string]float64, tol float64) (map[int]bool, error) {
	set := make(map[int]bool)
	for _, v := range m.Variables() {
		if v.Kind != milp.Binary {
			continue
		}
		val := values[v.Name]
		if val < -tol || val > 1+tol {
			return nil, fmt.Errorf("%w: binary %q valued %v", ErrNumericalAnomaly, v.Name, val)
		}
		if val > 0.5 {
			set[v.ID] = true
		}
	}
	return set, nil
}

// worstContactGap computes, from the rounded usage assignment, the longest
// idle time between consecutive used contacts of any satellite.
func worstContactGap(p *milp.Problem, set map[int]bool) time.Duration {
	var worst time.Duration
	for _, contacts := range p.ContactsBySatellite {
		var prev *model.ContactWindow
		for i := range contacts {
			c := contacts[i]
			if !set[p.UsageVars[c.ID]] {
				continue
			}
			if prev != nil {
				if gap := c.Start.Sub(prev.End); gap > worst {
					worst = gap
				}
			}
			prev = &c
		}
	}
	return worst
}
