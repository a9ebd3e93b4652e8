package ephemeris

import (
	"testing"
	"time"

	"github.com/signalsfoundry/groundstation-optimizer/model"
)

// ISS sample TLE, epoch 2021-10-02.
const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func issScenario() *model.Scenario {
	return &model.Scenario{
		Providers: []model.Provider{{
			ID: "p1",
			DefaultCosts: model.CostTerms{
				CostPerPass:   2,
				CostPerMinute: 0.5,
			},
			Stations: []model.Station{{
				ID:              "quito",
				ProviderID:      "p1",
				Latitude:        -0.18,
				Longitude:       -78.47,
				Altitude:        2850,
				AntennaCount:    1,
				DatarateBps:     100e6,
				MinElevationDeg: 5,
			}},
		}},
		Satellites: []model.Satellite{{
			ID:          "iss",
			DataRateBps: 300e6,
			TLELine1:    issTLE1,
			TLELine2:    issTLE2,
		}},
	}
}

func TestComputeContactsISSOverEquator(t *testing.T) {
	start := time.Date(2021, time.October, 2, 0, 0, 0, 0, time.UTC)
	window := model.SimWindow(start, start.Add(24*time.Hour))

	contacts, err := ComputeContacts(issScenario(), window, Config{Step: 30 * time.Second})
	if err != nil {
		t.Fatalf("ComputeContacts: %v", err)
	}
	// A 51.6 degree inclination orbit passes over an equatorial station
	// several times a day.
	if len(contacts) == 0 {
		t.Fatal("no contact windows over a full day")
	}
	for _, c := range contacts {
		if !c.End.After(c.Start) {
			t.Errorf("contact %s has non-positive duration [%v, %v]", c.ID, c.Start, c.End)
		}
		if c.Start.Before(window.SimStart) || c.End.After(window.SimEnd) {
			t.Errorf("contact %s [%v, %v] leaves the simulation window", c.ID, c.Start, c.End)
		}
		if c.SatelliteID != "iss" || c.StationID != "quito" || c.ProviderID != "p1" {
			t.Errorf("contact %s carries wrong references: %+v", c.ID, c)
		}
		// Station rate caps the downlink: 100 Mbps times the duration.
		wantBits := 100e6 * c.Duration().Seconds()
		if c.DataVolumeBits != wantBits {
			t.Errorf("contact %s volume = %v, want %v", c.ID, c.DataVolumeBits, wantBits)
		}
		wantCost := 2 + 0.5*c.Duration().Minutes()
		if c.Cost != wantCost {
			t.Errorf("contact %s cost = %v, want %v", c.ID, c.Cost, wantCost)
		}
	}
	// An ISS pass above a 5 degree mask lasts a few minutes, never an hour.
	for _, c := range contacts {
		if c.Duration() > time.Hour {
			t.Errorf("contact %s duration %v is implausibly long", c.ID, c.Duration())
		}
	}
}

func TestComputeContactsRequiresTLE(t *testing.T) {
	sc := issScenario()
	sc.Satellites[0].TLELine1 = ""
	start := time.Date(2021, time.October, 2, 0, 0, 0, 0, time.UTC)
	_, err := ComputeContacts(sc, model.SimWindow(start, start.Add(time.Hour)), Config{})
	if err == nil {
		t.Fatal("ComputeContacts accepted a satellite without a TLE")
	}
}

func TestComputeContactsRejectsInvalidWindow(t *testing.T) {
	start := time.Date(2021, time.October, 2, 0, 0, 0, 0, time.UTC)
	window := model.OptimizationWindow{
		OptStart: start, OptEnd: start.Add(time.Hour),
		SimStart: start.Add(time.Hour), SimEnd: start,
	}
	if _, err := ComputeContacts(issScenario(), window, Config{}); err == nil {
		t.Fatal("ComputeContacts accepted an inverted window")
	}
}

func TestContactIDsNumberPassesPerPair(t *testing.T) {
	start := time.Date(2021, time.October, 2, 0, 0, 0, 0, time.UTC)
	window := model.SimWindow(start, start.Add(24*time.Hour))
	contacts, err := ComputeContacts(issScenario(), window, Config{})
	if err != nil {
		t.Fatalf("ComputeContacts: %v", err)
	}
	seen := map[string]bool{}
	for _, c := range contacts {
		if seen[c.ID] {
			t.Fatalf("duplicate contact id %s", c.ID)
		}
		seen[c.ID] = true
	}
}
