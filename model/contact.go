package model

import "time"

// ContactWindow is a precomputed line-of-sight interval between one
// satellite and one station. It is produced by the ephemeris collaborator
// and treated as authoritative, read-only input by the optimizer.
type ContactWindow struct {
	ID string

	SatelliteID string
	StationID   string
	ProviderID  string

	Start time.Time
	End   time.Time

	// DataVolumeBits is the deliverable data volume for the whole window.
	DataVolumeBits float64

	// Cost is the fee for using this window (per-pass fee plus duration
	// charges), in the same currency unit as the station cost terms.
	Cost float64
}

// Duration returns the window length.
func (c ContactWindow) Duration() time.Duration {
	return c.End.Sub(c.Start)
}

// Overlaps reports whether the two windows share any instant.
func (c ContactWindow) Overlaps(other ContactWindow) bool {
	return c.Start.Before(other.End) && other.Start.Before(c.End)
}
