package model

// Scenario aggregates the domain inputs for one optimization run: the
// candidate providers (with their stations), the constellation, and the
// contact opportunities computed upstream.
type Scenario struct {
	Providers  []Provider
	Satellites []Satellite
	Contacts   []ContactWindow
}

// Stations returns all candidate stations across providers.
func (s *Scenario) Stations() []Station {
	var out []Station
	for _, p := range s.Providers {
		out = append(out, p.Stations...)
	}
	return out
}

// ProviderByID returns the provider with the given ID.
func (s *Scenario) ProviderByID(id string) (Provider, bool) {
	for _, p := range s.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// StationByID returns the station with the given ID and its provider.
func (s *Scenario) StationByID(id string) (Station, Provider, bool) {
	for _, p := range s.Providers {
		for _, st := range p.Stations {
			if st.ID == id {
				return st, p, true
			}
		}
	}
	return Station{}, Provider{}, false
}

// SatelliteByID returns the satellite with the given ID.
func (s *Scenario) SatelliteByID(id string) (Satellite, bool) {
	for _, sat := range s.Satellites {
		if sat.ID == id {
			return sat, true
		}
	}
	return Satellite{}, false
}

// ContactCost computes the usage fee for a contact at station st given the
// effective cost terms.
func ContactCost(costs CostTerms, c ContactWindow) float64 {
	minutes := c.Duration().Minutes()
	return costs.CostPerPass + minutes*costs.CostPerMinute
}
