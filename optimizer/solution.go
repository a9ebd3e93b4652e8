package optimizer

import (
	"time"

	"github.com/signalsfoundry/groundstation-optimizer/model"
	"github.com/signalsfoundry/groundstation-optimizer/solver"
)

// Solution is the extracted, domain-level answer of one optimization run:
// which providers and stations to contract, which contact windows to use,
// and the realized cost, downlink, and gap figures those choices imply
// over the optimization window.
type Solution struct {
	Status    solver.Status `json:"status"`
	Backend   string        `json:"backend"`
	Objective float64       `json:"objective"`

	SelectedProviders []string              `json:"selected_providers"`
	SelectedStations  []string              `json:"selected_stations"`
	UsedContacts      []model.ContactWindow `json:"used_contacts"`

	// Cost figures in the scenario's currency over the optimization
	// window: fixed covers integration, setup, normalized monthly fees,
	// per-satellite licenses, and any commitment shortfall billed by a
	// selected provider; operational covers extrapolated contact usage
	// fees.
	FixedCost       float64 `json:"fixed_cost"`
	OperationalCost float64 `json:"operational_cost"`
	TotalCost       float64 `json:"total_cost"`

	// Downlink volumes extrapolated from the simulation window.
	DownlinkedBits            float64            `json:"downlinked_bits"`
	DownlinkedBitsBySatellite map[string]float64 `json:"downlinked_bits_by_satellite"`

	// MaxContactGap is the realized worst idle time between consecutive
	// used contacts of any one satellite.
	MaxContactGap time.Duration `json:"max_contact_gap"`

	// Stages is populated by lexicographic runs with the per-stage
	// outcomes, final stage last.
	Stages []StageResult `json:"stages,omitempty"`
}

// StageResult records one stage of a lexicographic solve.
type StageResult struct {
	Name      string        `json:"name"`
	Status    solver.Status `json:"status"`
	Objective float64       `json:"objective"`
}
