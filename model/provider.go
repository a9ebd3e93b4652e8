package model

// CostTerms are the per-station pricing terms of a provider contract.
// Stations inherit their provider's defaults; any non-zero field on the
// station overrides the provider value.
type CostTerms struct {
	// SetupCost is the one-time cost of onboarding the station.
	SetupCost float64
	// MonthlyCost is the recurring lease cost per month of use.
	MonthlyCost float64
	// CostPerPass is the fixed fee charged for each contact.
	CostPerPass float64
	// CostPerMinute is the fee charged per minute of contact time.
	CostPerMinute float64
	// PerSatelliteLicenseCost is charged once per (station, satellite)
	// pair that communicates during the horizon.
	PerSatelliteLicenseCost float64
}

// merged returns t with zero fields replaced by the provider defaults.
func (t CostTerms) merged(defaults CostTerms) CostTerms {
	if t.SetupCost == 0 {
		t.SetupCost = defaults.SetupCost
	}
	if t.MonthlyCost == 0 {
		t.MonthlyCost = defaults.MonthlyCost
	}
	if t.CostPerPass == 0 {
		t.CostPerPass = defaults.CostPerPass
	}
	if t.CostPerMinute == 0 {
		t.CostPerMinute = defaults.CostPerMinute
	}
	if t.PerSatelliteLicenseCost == 0 {
		t.PerSatelliteLicenseCost = defaults.PerSatelliteLicenseCost
	}
	return t
}

// Station is a physical ground asset offered by a provider.
type Station struct {
	ID         string
	Name       string
	ProviderID string

	// Geodetic location (degrees, degrees, metres).
	Longitude float64
	Latitude  float64
	Altitude  float64

	// AntennaCount bounds the number of simultaneous contacts the
	// station can support.
	AntennaCount int

	// DatarateBps caps the downlink rate of any contact at this station.
	DatarateBps float64

	// MinElevationDeg is the elevation mask used when computing contact
	// windows for this station.
	MinElevationDeg float64

	Costs CostTerms
}

// Provider is an organization offering one or more ground stations under
// a single contract.
type Provider struct {
	ID   string
	Name string

	// IntegrationCost is the one-time cost of contracting the provider.
	IntegrationCost float64

	// MinimumCommitment is the contractual spend floor over the
	// optimization window: a selected provider bills at least this much
	// even when actual station and contact charges fall short.
	MinimumCommitment float64

	// DefaultCosts seed the cost terms of stations that do not override
	// them.
	DefaultCosts CostTerms

	Stations []Station
}

// StationCosts returns the effective cost terms for s under provider p,
// merging station overrides with provider defaults.
func (p Provider) StationCosts(s Station) CostTerms {
	return s.Costs.merged(p.DefaultCosts)
}
