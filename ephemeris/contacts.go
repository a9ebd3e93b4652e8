// Package ephemeris computes contact windows between a constellation and
// candidate ground stations by propagating satellite TLEs with SGP4 and
// sampling elevation above each station's mask. It produces the
// ContactWindow inputs the optimizer consumes; the optimizer itself never
// calls into this package.
package ephemeris

import (
	"fmt"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/groundstation-optimizer/model"
)

// DefaultStep is the elevation sampling interval used when Config.Step is
// unset. Window edges are resolved to this granularity.
const DefaultStep = 30 * time.Second

// Config tunes contact computation.
type Config struct {
	// Step is the propagation sampling interval.
	Step time.Duration
}

func (c Config) step() time.Duration {
	if c.Step > 0 {
		return c.Step
	}
	return DefaultStep
}

// orbit propagates one satellite's TLE to ECEF positions.
type orbit struct {
	sat satellite.Satellite
}

func newOrbit(tle1, tle2 string) orbit {
	return orbit{sat: satellite.TLEToSat(tle1, tle2, satellite.GravityWGS72)}
}

// positionECEF returns the satellite's ECEF position in kilometres at t.
func (o orbit) positionECEF(t time.Time) Vec3 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(o.sat, year, int(month), day, hour, min, sec)
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	gmst := satellite.ThetaG_JD(jd)
	posECEF := satellite.ECIToECEF(posECI, gmst)

	return Vec3{X: posECEF.X, Y: posECEF.Y, Z: posECEF.Z}
}

// ComputeContacts samples every (satellite, station) pair across the
// simulation sub-window and emits one ContactWindow per interval during
// which the satellite stays above the station's elevation mask. Data
// volume is the pass duration times the lower of the satellite and
// station rates; cost follows the station's effective pricing. Satellites
// without TLE lines fail the computation.
func ComputeContacts(sc *model.Scenario, window model.OptimizationWindow, cfg Config) ([]model.ContactWindow, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	step := cfg.step()

	type site struct {
		station model.Station
		costs   model.CostTerms
		pos     Vec3
	}
	var sites []site
	for _, prov := range sc.Providers {
		for _, st := range prov.Stations {
			sites = append(sites, site{
				station: st,
				costs:   prov.StationCosts(st),
				pos:     GeodeticToECEF(st.Latitude, st.Longitude, st.Altitude),
			})
		}
	}

	var contacts []model.ContactWindow
	for _, sat := range sc.Satellites {
		if sat.TLELine1 == "" || sat.TLELine2 == "" {
			return nil, fmt.Errorf("satellite %q has no TLE", sat.ID)
		}
		o := newOrbit(sat.TLELine1, sat.TLELine2)

		// Propagate once per step, evaluate all stations at each sample.
		visible := make([]bool, len(sites))
		starts := make([]time.Time, len(sites))
		passes := make([]int, len(sites))

		for t := window.SimStart; !t.After(window.SimEnd); t = t.Add(step) {
			pos := o.positionECEF(t)
			for i := range sites {
				up := ElevationDegrees(sites[i].pos, pos) >= sites[i].station.MinElevationDeg
				switch {
				case up && !visible[i]:
					visible[i] = true
					starts[i] = t
				case !up && visible[i]:
					visible[i] = false
					contacts = append(contacts, makeContact(sat, sites[i].station, sites[i].costs, starts[i], t, passes[i]))
					passes[i]++
				}
			}
		}
		for i := range sites {
			if visible[i] && window.SimEnd.After(starts[i]) {
				contacts = append(contacts, makeContact(sat, sites[i].station, sites[i].costs, starts[i], window.SimEnd, passes[i]))
			}
		}
	}
	return contacts, nil
}

func makeContact(sat model.Satellite, st model.Station, costs model.CostTerms, start, end time.Time, pass int) model.ContactWindow {
	rate := sat.DataRateBps
	if st.DatarateBps > 0 && st.DatarateBps < rate {
		rate = st.DatarateBps
	}
	c := model.ContactWindow{
		ID:          fmt.Sprintf("%s/%s/%d", sat.ID, st.ID, pass),
		SatelliteID: sat.ID,
		StationID:   st.ID,
		ProviderID:  st.ProviderID,
		Start:       start,
		End:         end,
	}
	c.DataVolumeBits = rate * c.Duration().Seconds()
	c.Cost = model.ContactCost(costs, c)
	return c
}
