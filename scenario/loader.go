// Package scenario loads optimization scenarios from YAML files into the
// domain model.
package scenario

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/groundstation-optimizer/model"
)

// Input is a fully decoded scenario file: the domain scenario plus the
// planning horizon it should be optimized over.
type Input struct {
	Scenario *model.Scenario
	Window   model.OptimizationWindow
}

// yaml shapes are unexported so the file format can evolve independently
// of the domain model.
type scenarioYAML struct {
	Window     windowYAML      `yaml:"window"`
	Providers  []providerYAML  `yaml:"providers"`
	Satellites []satelliteYAML `yaml:"satellites"`
	Contacts   []contactYAML   `yaml:"contacts"`
}

type windowYAML struct {
	OptStart time.Time `yaml:"opt_start"`
	OptEnd   time.Time `yaml:"opt_end"`
	// Simulation sub-window; defaults to the optimization window.
	SimStart time.Time `yaml:"sim_start"`
	SimEnd   time.Time `yaml:"sim_end"`
}

type providerYAML struct {
	ID                string        `yaml:"id"`
	Name              string        `yaml:"name"`
	IntegrationCost   float64       `yaml:"integration_cost"`
	MinimumCommitment float64       `yaml:"minimum_commitment"`
	DefaultCosts      costsYAML     `yaml:"default_costs"`
	Stations          []stationYAML `yaml:"stations"`
}

type stationYAML struct {
	ID              string    `yaml:"id"`
	Name            string    `yaml:"name"`
	Longitude       float64   `yaml:"longitude"`
	Latitude        float64   `yaml:"latitude"`
	Altitude        float64   `yaml:"altitude"`
	AntennaCount    int       `yaml:"antenna_count"`
	DatarateBps     float64   `yaml:"datarate_bps"`
	MinElevationDeg float64   `yaml:"min_elevation_deg"`
	Costs           costsYAML `yaml:"costs"`
}

type costsYAML struct {
	SetupCost               float64 `yaml:"setup_cost"`
	MonthlyCost             float64 `yaml:"monthly_cost"`
	CostPerPass             float64 `yaml:"cost_per_pass"`
	CostPerMinute           float64 `yaml:"cost_per_minute"`
	PerSatelliteLicenseCost float64 `yaml:"per_satellite_license_cost"`
}

type satelliteYAML struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	DataRateBps float64 `yaml:"datarate_bps"`
	TLELine1    string  `yaml:"tle_line1"`
	TLELine2    string  `yaml:"tle_line2"`
}

type contactYAML struct {
	ID             string    `yaml:"id"`
	Satellite      string    `yaml:"satellite"`
	Station        string    `yaml:"station"`
	Start          time.Time `yaml:"start"`
	End            time.Time `yaml:"end"`
	DataVolumeBits float64   `yaml:"data_volume_bits"`
	Cost           float64   `yaml:"cost"`
}

// LoadFile reads and decodes a scenario YAML file.
func LoadFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a scenario from r. Structural and reference errors fail the
// load; semantic validation of the assembled scenario (duplicate IDs,
// satellites without windows) is left to the model builder, which performs
// it for every scenario regardless of origin.
func Load(r io.Reader) (*Input, error) {
	var payload scenarioYAML
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	window := model.OptimizationWindow{
		OptStart: payload.Window.OptStart,
		OptEnd:   payload.Window.OptEnd,
		SimStart: payload.Window.SimStart,
		SimEnd:   payload.Window.SimEnd,
	}
	if window.SimStart.IsZero() && window.SimEnd.IsZero() {
		window.SimStart = window.OptStart
		window.SimEnd = window.OptEnd
	}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("scenario window: %w", err)
	}

	sc := &model.Scenario{}

	for _, p := range payload.Providers {
		if p.ID == "" {
			return nil, fmt.Errorf("provider with empty id")
		}
		prov := model.Provider{
			ID:                p.ID,
			Name:              p.Name,
			IntegrationCost:   p.IntegrationCost,
			MinimumCommitment: p.MinimumCommitment,
			DefaultCosts:      costTerms(p.DefaultCosts),
		}
		for _, s := range p.Stations {
			if s.ID == "" {
				return nil, fmt.Errorf("provider %q: station with empty id", p.ID)
			}
			prov.Stations = append(prov.Stations, model.Station{
				ID:              s.ID,
				Name:            s.Name,
				ProviderID:      p.ID,
				Longitude:       s.Longitude,
				Latitude:        s.Latitude,
				Altitude:        s.Altitude,
				AntennaCount:    s.AntennaCount,
				DatarateBps:     s.DatarateBps,
				MinElevationDeg: s.MinElevationDeg,
				Costs:           costTerms(s.Costs),
			})
		}
		sc.Providers = append(sc.Providers, prov)
	}

	for _, s := range payload.Satellites {
		if s.ID == "" {
			return nil, fmt.Errorf("satellite with empty id")
		}
		sc.Satellites = append(sc.Satellites, model.Satellite{
			ID:          s.ID,
			Name:        s.Name,
			DataRateBps: s.DataRateBps,
			TLELine1:    s.TLELine1,
			TLELine2:    s.TLELine2,
		})
	}

	for _, c := range payload.Contacts {
		if c.ID == "" {
			return nil, fmt.Errorf("contact with empty id")
		}
		st, prov, ok := sc.StationByID(c.Station)
		if !ok {
			return nil, fmt.Errorf("contact %q references unknown station %q", c.ID, c.Station)
		}
		if _, ok := sc.SatelliteByID(c.Satellite); !ok {
			return nil, fmt.Errorf("contact %q references unknown satellite %q", c.ID, c.Satellite)
		}
		contact := model.ContactWindow{
			ID:             c.ID,
			SatelliteID:    c.Satellite,
			StationID:      c.Station,
			ProviderID:     prov.ID,
			Start:          c.Start,
			End:            c.End,
			DataVolumeBits: c.DataVolumeBits,
			Cost:           c.Cost,
		}
		// A file may omit the fee and let the station pricing decide.
		if contact.Cost == 0 {
			contact.Cost = model.ContactCost(prov.StationCosts(st), contact)
		}
		sc.Contacts = append(sc.Contacts, contact)
	}

	return &Input{Scenario: sc, Window: window}, nil
}

func costTerms(c costsYAML) model.CostTerms {
	return model.CostTerms{
		SetupCost:               c.SetupCost,
		MonthlyCost:             c.MonthlyCost,
		CostPerPass:             c.CostPerPass,
		CostPerMinute:           c.CostPerMinute,
		PerSatelliteLicenseCost: c.PerSatelliteLicenseCost,
	}
}
