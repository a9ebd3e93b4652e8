package milp

import (
	"github.com/signalsfoundry/groundstation-optimizer/model"
)

// gapPair is one candidate (used contact, next used contact) pairing for a
// satellite. Var is the binary successor indicator: it is 1 exactly when
// From and To are both used and To is chosen as the contact following From.
type gapPair struct {
	SatelliteID string
	From, To    model.ContactWindow
	Var         int
	// GapSeconds is the idle time between the end of From and the start
	// of To, clamped at zero for overlapping windows.
	GapSeconds float64
}

// ensureGapStructure lazily creates, once per satellite, the successor
// machinery that linearizes "gap between consecutive used contacts":
//
//   - a binary successor indicator z[i,j] for every ordered pair of the
//     satellite's contacts,
//   - binary terminal and opening indicators t[i] and s[i] marking the
//     satellite's last and first used contacts,
//   - successor chains sum_j z[i,j] + t[i] = u[i] (every used contact has
//     exactly one successor or ends the chain),
//   - predecessor chains sum_i z[i,j] + s[j] = u[j] (every used contact
//     has exactly one predecessor or opens the chain),
//   - at most one terminal and one opener per satellite.
//
// The two chains together force the chosen pairs to be exactly the
// consecutive used contacts: an indicator cannot jump over a used contact,
// because the skipped contact would be left without a predecessor. Pair
// gaps are therefore the real gaps, safe to bound or score in either
// direction.
func ensureGapStructure(p *Problem, satelliteID string) ([]gapPair, error) {
	if pairs, ok := p.gaps[satelliteID]; ok {
		return pairs, nil
	}

	contacts := p.ContactsBySatellite[satelliteID]
	var pairs []gapPair
	incoming := make([]Expr, len(contacts))

	for i, from := range contacts {
		var chain Expr

		for j := i + 1; j < len(contacts); j++ {
			to := contacts[j]
			gap := to.Start.Sub(from.End).Seconds()
			if gap < 0 {
				gap = 0
			}

			z, err := p.Model.AddBinary("gapnext[" + from.ID + "/" + to.ID + "]")
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, gapPair{
				SatelliteID: satelliteID,
				From:        from,
				To:          to,
				Var:         z,
				GapSeconds:  gap,
			})
			chain.Add(z, 1)
			incoming[j].Add(z, 1)
		}

		term, err := p.Model.AddBinary("gaplast[" + from.ID + "]")
		if err != nil {
			return nil, err
		}
		chain.Add(term, 1)
		chain.Add(p.UsageVars[from.ID], -1)
		if err := p.Model.AddConstraint(Constraint{
			Name:  "gap_chain[" + from.ID + "]",
			Expr:  chain,
			Sense: Equal,
		}); err != nil {
			return nil, err
		}
	}

	var terminals, openers Expr
	for i, c := range contacts {
		id, _ := p.Model.Lookup("gaplast[" + c.ID + "]")
		terminals.Add(id, 1)

		opener, err := p.Model.AddBinary("gapfirst[" + c.ID + "]")
		if err != nil {
			return nil, err
		}
		openers.Add(opener, 1)

		pre := incoming[i]
		pre.Add(opener, 1)
		pre.Add(p.UsageVars[c.ID], -1)
		if err := p.Model.AddConstraint(Constraint{
			Name:  "gap_prechain[" + c.ID + "]",
			Expr:  pre,
			Sense: Equal,
		}); err != nil {
			return nil, err
		}
	}
	if err := p.Model.AddConstraint(Constraint{
		Name:  "gap_terminal[" + satelliteID + "]",
		Expr:  terminals,
		Sense: LessEq,
		RHS:   1,
	}); err != nil {
		return nil, err
	}
	if err := p.Model.AddConstraint(Constraint{
		Name:  "gap_opener[" + satelliteID + "]",
		Expr:  openers,
		Sense: LessEq,
		RHS:   1,
	}); err != nil {
		return nil, err
	}

	p.gaps[satelliteID] = pairs
	return pairs, nil
}

// satelliteSpanSeconds is the big-M constant for gap formulations: the time
// span covered by the satellite's own contact windows, falling back to the
// simulation window length when the satellite has a single window. Sizing M
// per satellite keeps the LP relaxation as tight as the data allows.
func satelliteSpanSeconds(p *Problem, satelliteID string) float64 {
	contacts := p.ContactsBySatellite[satelliteID]
	if len(contacts) >= 2 {
		span := contacts[len(contacts)-1].End.Sub(contacts[0].Start).Seconds()
		if span > 0 {
			return span
		}
	}
	return p.Window.TSim()
}
