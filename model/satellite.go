package model

// Satellite is a spacecraft whose downlink demand drives the optimization.
// The TLE lines are an opaque ephemeris reference owned by the ephemeris
// collaborator; the optimization core never interprets them.
type Satellite struct {
	ID   string
	Name string

	// DataRateBps is the downlink data rate the satellite can sustain
	// during a contact, in bits per second.
	DataRateBps float64

	TLELine1 string
	TLELine2 string
}
