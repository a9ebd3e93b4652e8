package scenario

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/groundstation-optimizer/model"
)

const scenarioDoc = `
window:
  opt_start: 2027-03-01T00:00:00Z
  opt_end: 2027-03-31T00:00:00Z
  sim_start: 2027-03-01T00:00:00Z
  sim_end: 2027-03-02T00:00:00Z
providers:
  - id: p1
    name: Polar Networks
    integration_cost: 100
    minimum_commitment: 500
    default_costs:
      cost_per_pass: 2
      cost_per_minute: 0.5
    stations:
      - id: svalbard
        name: Svalbard
        latitude: 78.23
        longitude: 15.39
        altitude: 450
        antenna_count: 2
        datarate_bps: 500000000
        min_elevation_deg: 5
        costs:
          setup_cost: 50
satellites:
  - id: sat1
    name: Pathfinder
    datarate_bps: 300000000
contacts:
  - id: c1
    satellite: sat1
    station: svalbard
    start: 2027-03-01T10:00:00Z
    end: 2027-03-01T10:10:00Z
    data_volume_bits: 180000000000
    cost: 12
  - id: c2
    satellite: sat1
    station: svalbard
    start: 2027-03-01T14:00:00Z
    end: 2027-03-01T14:10:00Z
    data_volume_bits: 180000000000
`

func TestLoadDecodesScenario(t *testing.T) {
	in, err := Load(strings.NewReader(scenarioDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sc := in.Scenario

	if len(sc.Providers) != 1 || sc.Providers[0].ID != "p1" {
		t.Fatalf("providers = %+v, want one p1", sc.Providers)
	}
	prov := sc.Providers[0]
	if prov.IntegrationCost != 100 {
		t.Errorf("integration cost = %v, want 100", prov.IntegrationCost)
	}
	if prov.MinimumCommitment != 500 {
		t.Errorf("minimum commitment = %v, want 500", prov.MinimumCommitment)
	}
	if len(prov.Stations) != 1 {
		t.Fatalf("stations = %+v, want one", prov.Stations)
	}
	st := prov.Stations[0]
	if st.ID != "svalbard" || st.ProviderID != "p1" {
		t.Errorf("station = %+v, want svalbard under p1", st)
	}
	if st.AntennaCount != 2 || st.MinElevationDeg != 5 {
		t.Errorf("station geometry fields = %+v", st)
	}
	// Station overrides merge with provider defaults.
	eff := prov.StationCosts(st)
	if eff.SetupCost != 50 || eff.CostPerPass != 2 || eff.CostPerMinute != 0.5 {
		t.Errorf("effective costs = %+v", eff)
	}

	if len(sc.Satellites) != 1 || sc.Satellites[0].ID != "sat1" {
		t.Fatalf("satellites = %+v, want one sat1", sc.Satellites)
	}
	if len(sc.Contacts) != 2 {
		t.Fatalf("contacts = %+v, want two", sc.Contacts)
	}

	wantC1 := model.ContactWindow{
		ID:             "c1",
		SatelliteID:    "sat1",
		StationID:      "svalbard",
		ProviderID:     "p1",
		Start:          time.Date(2027, time.March, 1, 10, 0, 0, 0, time.UTC),
		End:            time.Date(2027, time.March, 1, 10, 10, 0, 0, time.UTC),
		DataVolumeBits: 180e9,
		Cost:           12,
	}
	if diff := cmp.Diff(wantC1, sc.Contacts[0]); diff != "" {
		t.Errorf("contact c1 mismatch (-want +got):\n%s", diff)
	}
	// c2 omits the fee; it derives from the station pricing:
	// 2 per pass + 10 min * 0.5/min = 7.
	if got := sc.Contacts[1].Cost; got != 7 {
		t.Errorf("derived contact cost = %v, want 7", got)
	}

	if got := in.Window.OptEnd.Sub(in.Window.OptStart); got != 30*24*time.Hour {
		t.Errorf("optimization span = %v, want 720h", got)
	}
	if got := in.Window.SimEnd.Sub(in.Window.SimStart); got != 24*time.Hour {
		t.Errorf("simulation span = %v, want 24h", got)
	}
}

func TestLoadDefaultsSimWindowToOptWindow(t *testing.T) {
	doc := `
window:
  opt_start: 2027-03-01T00:00:00Z
  opt_end: 2027-03-02T00:00:00Z
providers: []
satellites: []
contacts: []
`
	in, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !in.Window.SimStart.Equal(in.Window.OptStart) || !in.Window.SimEnd.Equal(in.Window.OptEnd) {
		t.Fatalf("sim window = [%v, %v], want optimization window", in.Window.SimStart, in.Window.SimEnd)
	}
}

func TestLoadRejectsInvalidWindow(t *testing.T) {
	doc := `
window:
  opt_start: 2027-03-02T00:00:00Z
  opt_end: 2027-03-01T00:00:00Z
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("Load accepted an inverted window")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	doc := `
window:
  opt_start: 2027-03-01T00:00:00Z
  opt_end: 2027-03-02T00:00:00Z
proivders: []
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("Load accepted a misspelled top-level key")
	}
}

func TestLoadRejectsDanglingReferences(t *testing.T) {
	base := `
window:
  opt_start: 2027-03-01T00:00:00Z
  opt_end: 2027-03-02T00:00:00Z
providers:
  - id: p1
    stations:
      - id: s1
satellites:
  - id: sat1
contacts:
  - id: c1
    satellite: %s
    station: %s
    start: 2027-03-01T10:00:00Z
    end: 2027-03-01T10:10:00Z
`
	cases := []struct {
		name               string
		satellite, station string
		wantFragment       string
	}{
		{"unknown station", "sat1", "nowhere", "unknown station"},
		{"unknown satellite", "ghost", "s1", "unknown satellite"},
	}
	for _, tc := range cases {
		doc := fmt.Sprintf(base, tc.satellite, tc.station)
		_, err := Load(strings.NewReader(doc))
		if err == nil {
			t.Errorf("%s: Load accepted the document", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantFragment) {
			t.Errorf("%s: error = %v, want mention of %q", tc.name, err, tc.wantFragment)
		}
	}
}

func TestLoadRejectsEmptyIDs(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"provider", `
window:
  opt_start: 2027-03-01T00:00:00Z
  opt_end: 2027-03-02T00:00:00Z
providers:
  - name: anonymous
`},
		{"station", `
window:
  opt_start: 2027-03-01T00:00:00Z
  opt_end: 2027-03-02T00:00:00Z
providers:
  - id: p1
    stations:
      - name: anonymous
`},
		{"satellite", `
window:
  opt_start: 2027-03-01T00:00:00Z
  opt_end: 2027-03-02T00:00:00Z
satellites:
  - name: anonymous
`},
	}
	for _, tc := range cases {
		if _, err := Load(strings.NewReader(tc.doc)); err == nil {
			t.Errorf("%s: Load accepted an empty id", tc.name)
		}
	}
}
