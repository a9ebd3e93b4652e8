package model

import (
	"math"
	"testing"
	"time"
)

var windowStart = time.Date(2027, time.March, 1, 0, 0, 0, 0, time.UTC)

func TestExtrapolationFactor(t *testing.T) {
	w := OptimizationWindow{
		OptStart: windowStart,
		OptEnd:   windowStart.Add(30 * 24 * time.Hour),
		SimStart: windowStart,
		SimEnd:   windowStart.Add(24 * time.Hour),
	}
	if got := w.ExtrapolationFactor(); math.Abs(got-30) > 1e-12 {
		t.Errorf("ExtrapolationFactor = %v, want 30", got)
	}
	if got := SimWindow(windowStart, windowStart.Add(time.Hour)).ExtrapolationFactor(); got != 1 {
		t.Errorf("coincident windows: ExtrapolationFactor = %v, want 1", got)
	}
}

func TestMonthlyCostFactor(t *testing.T) {
	// Simulating exactly one mean month with matching optimization span
	// charges exactly one month of lease.
	month := time.Duration(secondsPerMonth * float64(time.Second))
	w := SimWindow(windowStart, windowStart.Add(month))
	if got := w.MonthlyCostFactor(); math.Abs(got-1.0/secondsPerMonth) > 1e-18 {
		t.Errorf("MonthlyCostFactor = %v, want %v", got, 1.0/secondsPerMonth)
	}

	// Halving the simulation span doubles the per-simulated-second share.
	w.SimEnd = windowStart.Add(month / 2)
	if got := w.MonthlyCostFactor(); math.Abs(got-2.0/secondsPerMonth) > 1e-18 {
		t.Errorf("MonthlyCostFactor = %v, want %v", got, 2.0/secondsPerMonth)
	}
}

func TestContainsContact(t *testing.T) {
	w := SimWindow(windowStart, windowStart.Add(24*time.Hour))
	mk := func(startOffset, dur time.Duration) ContactWindow {
		return ContactWindow{
			Start: windowStart.Add(startOffset),
			End:   windowStart.Add(startOffset + dur),
		}
	}
	cases := []struct {
		name string
		c    ContactWindow
		want bool
	}{
		{"inside", mk(1*time.Hour, time.Hour), true},
		{"straddles start", mk(-30*time.Minute, time.Hour), true},
		{"straddles end", mk(23*time.Hour+30*time.Minute, time.Hour), true},
		{"before", mk(-2*time.Hour, time.Hour), false},
		{"after", mk(25*time.Hour, time.Hour), false},
		{"ends at start", mk(-time.Hour, time.Hour), false},
		{"starts at end", mk(24*time.Hour, time.Hour), false},
	}
	for _, tc := range cases {
		if got := w.ContainsContact(tc.c); got != tc.want {
			t.Errorf("%s: ContainsContact = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestWindowValidate(t *testing.T) {
	good := SimWindow(windowStart, windowStart.Add(time.Hour))
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	inverted := good
	inverted.OptEnd = windowStart.Add(-time.Hour)
	if err := inverted.Validate(); err == nil {
		t.Error("Validate accepted an inverted optimization window")
	}

	empty := good
	empty.SimEnd = empty.SimStart
	if err := empty.Validate(); err == nil {
		t.Error("Validate accepted an empty simulation window")
	}
}

func TestSimWindowCoincides(t *testing.T) {
	w := SimWindow(windowStart, windowStart.Add(2*time.Hour))
	if !w.OptStart.Equal(w.SimStart) || !w.OptEnd.Equal(w.SimEnd) {
		t.Fatalf("SimWindow spans differ: %+v", w)
	}
	if w.TOpt() != w.TSim() || w.TOpt() != 7200 {
		t.Fatalf("TOpt/TSim = %v/%v, want 7200", w.TOpt(), w.TSim())
	}
}
