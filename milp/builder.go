package milp

import (
	"fmt"
	"sort"

	"github.com/signalsfoundry/groundstation-optimizer/model"
)

// Problem couples a Model with the scenario it was built from and the
// variable indices that constraint and objective generators operate on.
// Each pipeline run owns its Problem exclusively; Problems are never shared
// across concurrent solves.
type Problem struct {
	Model    *Model
	Scenario *model.Scenario
	Window   model.OptimizationWindow

	// Variable IDs keyed by domain identifier.
	ProviderVars map[string]int
	StationVars  map[string]int
	UsageVars    map[string]int
	// StationSatVars holds the (station, satellite) indicator variables,
	// keyed by StationSatKey.
	StationSatVars map[string]int

	// In-horizon contacts, sorted by start time, with per-entity groupings.
	Contacts            []model.ContactWindow
	ContactsByStation   map[string][]model.ContactWindow
	ContactsBySatellite map[string][]model.ContactWindow

	// Effective cost terms per station ID.
	StationCosts map[string]model.CostTerms

	gaps map[string][]gapPair
	// Commitment shortfall variable per provider, created on demand by
	// the cost objective.
	commitments map[string]int
}

// StationSatKey names the indicator variable for a (station, satellite)
// pair.
func StationSatKey(stationID, satelliteID string) string {
	return stationID + "/" + satelliteID
}

// Build turns a scenario and planning horizon into a MILP skeleton: one
// binary selection variable per provider and station, one binary usage
// variable per in-horizon contact window, one indicator per (station,
// satellite) pair with contacts, and the structural linking constraints
// between them. The scenario is never mutated.
//
// Build fails with ErrMalformedScenario when a contact references an
// unknown station or satellite, when identifiers collide, or when the
// horizon excludes every contact of a satellite.
func Build(sc *model.Scenario, window model.OptimizationWindow) (*Problem, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: scenario is nil", ErrMalformedScenario)
	}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedScenario, err)
	}

	p := &Problem{
		Model:               NewModel("gsopt"),
		Scenario:            sc,
		Window:              window,
		ProviderVars:        make(map[string]int),
		StationVars:         make(map[string]int),
		UsageVars:           make(map[string]int),
		StationSatVars:      make(map[string]int),
		ContactsByStation:   make(map[string][]model.ContactWindow),
		ContactsBySatellite: make(map[string][]model.ContactWindow),
		StationCosts:        make(map[string]model.CostTerms),
		gaps:                make(map[string][]gapPair),
		commitments:         make(map[string]int),
	}

	for _, prov := range sc.Providers {
		if _, dup := p.ProviderVars[prov.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate provider %q", ErrMalformedScenario, prov.ID)
		}
		id, err := p.Model.AddBinary("provider[" + prov.ID + "]")
		if err != nil {
			return nil, err
		}
		p.ProviderVars[prov.ID] = id

		for _, st := range prov.Stations {
			if st.ProviderID != "" && st.ProviderID != prov.ID {
				return nil, fmt.Errorf("%w: station %q claims provider %q but is listed under %q",
					ErrMalformedScenario, st.ID, st.ProviderID, prov.ID)
			}
			if _, dup := p.StationVars[st.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate station %q", ErrMalformedScenario, st.ID)
			}
			sid, err := p.Model.AddBinary("station[" + st.ID + "]")
			if err != nil {
				return nil, err
			}
			p.StationVars[st.ID] = sid
			p.StationCosts[st.ID] = prov.StationCosts(st)
		}
	}

	seenSats := make(map[string]bool, len(sc.Satellites))
	for _, sat := range sc.Satellites {
		if seenSats[sat.ID] {
			return nil, fmt.Errorf("%w: duplicate satellite %q", ErrMalformedScenario, sat.ID)
		}
		seenSats[sat.ID] = true
	}

	for _, c := range sc.Contacts {
		if !window.ContainsContact(c) {
			continue
		}
		if !c.End.After(c.Start) {
			return nil, fmt.Errorf("%w: contact %q ends at or before its start", ErrMalformedScenario, c.ID)
		}
		if _, ok := p.StationVars[c.StationID]; !ok {
			return nil, fmt.Errorf("%w: contact %q references unknown station %q", ErrMalformedScenario, c.ID, c.StationID)
		}
		if !seenSats[c.SatelliteID] {
			return nil, fmt.Errorf("%w: contact %q references unknown satellite %q", ErrMalformedScenario, c.ID, c.SatelliteID)
		}
		if _, dup := p.UsageVars[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate contact %q", ErrMalformedScenario, c.ID)
		}
		uid, err := p.Model.AddBinary("contact[" + c.ID + "]")
		if err != nil {
			return nil, err
		}
		p.UsageVars[c.ID] = uid
		p.Contacts = append(p.Contacts, c)
		p.ContactsByStation[c.StationID] = append(p.ContactsByStation[c.StationID], c)
		p.ContactsBySatellite[c.SatelliteID] = append(p.ContactsBySatellite[c.SatelliteID], c)
	}

	for _, sat := range sc.Satellites {
		if len(p.ContactsBySatellite[sat.ID]) == 0 {
			return nil, fmt.Errorf("%w: satellite %q has no contact window inside the horizon", ErrMalformedScenario, sat.ID)
		}
	}

	sortByStart(p.Contacts)
	for _, group := range p.ContactsByStation {
		sortByStart(group)
	}
	for _, group := range p.ContactsBySatellite {
		sortByStart(group)
	}

	// (station, satellite) license indicators for pairs with contacts.
	for _, c := range p.Contacts {
		key := StationSatKey(c.StationID, c.SatelliteID)
		if _, exists := p.StationSatVars[key]; exists {
			continue
		}
		id, err := p.Model.AddBinary("stasat[" + key + "]")
		if err != nil {
			return nil, err
		}
		p.StationSatVars[key] = id
	}

	if err := p.attachLinking(); err != nil {
		return nil, err
	}
	return p, nil
}

// attachLinking generates the structural constraints that hold for every
// scenario regardless of the caller-selected constraint library:
//
//   - a contact cannot be used unless its station is selected,
//   - a contact cannot be used unless its (station, satellite) license
//     indicator is set,
//   - a station cannot be selected unless its provider is selected,
//   - a selected station must serve at least one contact.
func (p *Problem) attachLinking() error {
	for _, c := range p.Contacts {
		use := p.UsageVars[c.ID]

		var link Expr
		link.Add(use, 1)
		link.Add(p.StationVars[c.StationID], -1)
		if err := p.Model.AddConstraint(Constraint{
			Name:  "link_contact_station[" + c.ID + "]",
			Expr:  link,
			Sense: LessEq,
		}); err != nil {
			return err
		}

		var lic Expr
		lic.Add(use, 1)
		lic.Add(p.StationSatVars[StationSatKey(c.StationID, c.SatelliteID)], -1)
		if err := p.Model.AddConstraint(Constraint{
			Name:  "link_contact_license[" + c.ID + "]",
			Expr:  lic,
			Sense: LessEq,
		}); err != nil {
			return err
		}
	}

	for _, prov := range p.Scenario.Providers {
		for _, st := range prov.Stations {
			var e Expr
			e.Add(p.StationVars[st.ID], 1)
			e.Add(p.ProviderVars[prov.ID], -1)
			if err := p.Model.AddConstraint(Constraint{
				Name:  "link_station_provider[" + st.ID + "]",
				Expr:  e,
				Sense: LessEq,
			}); err != nil {
				return err
			}

			// A station only counts as selected if it is actually used.
			contacts := p.ContactsByStation[st.ID]
			if len(contacts) == 0 {
				continue
			}
			var active Expr
			for _, c := range contacts {
				active.Add(p.UsageVars[c.ID], 1)
			}
			active.Add(p.StationVars[st.ID], -1)
			if err := p.Model.AddConstraint(Constraint{
				Name:  "station_active[" + st.ID + "]",
				Expr:  active,
				Sense: GreaterEq,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone derives a Problem with an independent (unfrozen) model copy but
// shared, read-only scenario data. Used by lexicographic solving.
func (p *Problem) Clone() *Problem {
	out := *p
	out.Model = p.Model.Clone()
	out.gaps = make(map[string][]gapPair, len(p.gaps))
	for sat, pairs := range p.gaps {
		out.gaps[sat] = append([]gapPair(nil), pairs...)
	}
	out.commitments = make(map[string]int, len(p.commitments))
	for prov, id := range p.commitments {
		out.commitments[prov] = id
	}
	return &out
}

func sortByStart(contacts []model.ContactWindow) {
	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].Start.Equal(contacts[j].Start) {
			return contacts[i].ID < contacts[j].ID
		}
		return contacts[i].Start.Before(contacts[j].Start)
	})
}
