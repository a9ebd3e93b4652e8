package model

import (
	"fmt"
	"time"
)

// secondsPerMonth converts a monthly recurring cost into a per-second rate
// using the mean Gregorian year, matching the contract pricing convention.
const secondsPerMonth = 365.25 * 86400.0 / 12.0

// OptimizationWindow is the planning horizon. Contacts are simulated over
// the (typically shorter) simulation sub-window and their costs and data
// volumes are extrapolated to the optimization window.
type OptimizationWindow struct {
	OptStart time.Time
	OptEnd   time.Time

	SimStart time.Time
	SimEnd   time.Time
}

// TOpt returns the optimization window length in seconds.
func (w OptimizationWindow) TOpt() float64 {
	return w.OptEnd.Sub(w.OptStart).Seconds()
}

// TSim returns the simulation window length in seconds.
func (w OptimizationWindow) TSim() float64 {
	return w.SimEnd.Sub(w.SimStart).Seconds()
}

// ExtrapolationFactor scales a quantity accrued over the simulation window
// up to the full optimization window.
func (w OptimizationWindow) ExtrapolationFactor() float64 {
	return w.TOpt() / w.TSim()
}

// MonthlyCostFactor converts a monthly cost into its share over the
// optimization window, normalized by the simulation length.
func (w OptimizationWindow) MonthlyCostFactor() float64 {
	return w.TOpt() / (secondsPerMonth * w.TSim())
}

// ContainsContact reports whether the window overlaps the simulation
// sub-window and therefore participates in the optimization.
func (w OptimizationWindow) ContainsContact(c ContactWindow) bool {
	return c.Start.Before(w.SimEnd) && w.SimStart.Before(c.End)
}

// Validate checks internal consistency of the window bounds.
func (w OptimizationWindow) Validate() error {
	if !w.OptEnd.After(w.OptStart) {
		return fmt.Errorf("optimization window end %v is not after start %v", w.OptEnd, w.OptStart)
	}
	if !w.SimEnd.After(w.SimStart) {
		return fmt.Errorf("simulation window end %v is not after start %v", w.SimEnd, w.SimStart)
	}
	return nil
}

// SimWindow builds an OptimizationWindow whose optimization and simulation
// spans coincide, the common case for short planning studies.
func SimWindow(start, end time.Time) OptimizationWindow {
	return OptimizationWindow{
		OptStart: start,
		OptEnd:   end,
		SimStart: start,
		SimEnd:   end,
	}
}
