package aging

import (
	"testing"
	"time"
)

func TestNoneStrategyNeverBoosts(t *testing.T) {
	s := NoneStrategy{}
	if got := s.Boost(time.Hour, time.Second, 5); got != 0 {
		t.Errorf("NoneStrategy.Boost() = %d, want 0", got)
	}
}

func TestLinearStrategy(t *testing.T) {
	s := LinearStrategy{}
	threshold := 10 * time.Second
	tests := []struct {
		name string
		age  time.Duration
		unit int
		want int
	}{
		{"below threshold", 5 * time.Second, 5, 0},
		{"at threshold", 10 * time.Second, 5, 0},
		{"one interval past", 15 * time.Second, 5, 5},
		{"two intervals", 25 * time.Second, 5, 10},
		{"many intervals", 95 * time.Second, 5, 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Boost(tt.age, threshold, tt.unit); got != tt.want {
				t.Errorf("Boost(%v) = %d, want %d", tt.age, got, tt.want)
			}
		})
	}
}

func TestExponentialStrategyTruncation(t *testing.T) {
	s := ExponentialStrategy{}
	threshold := 10 * time.Second
	unit := 5

	// ln truncates to zero until age/threshold passes e, so just past the
	// threshold the boost stays zero.
	if got := s.Boost(11*time.Second, threshold, unit); got != 0 {
		t.Errorf("Boost just past threshold = %d, want 0 (truncated ln)", got)
	}
	// ratio 2.0: ln(2) ≈ 0.69, floor is still 0.
	if got := s.Boost(20*time.Second, threshold, unit); got != 0 {
		t.Errorf("Boost at 2x threshold = %d, want 0", got)
	}
	// ratio 3.0 > e: floor(ln 3) = 1.
	if got := s.Boost(30*time.Second, threshold, unit); got != unit {
		t.Errorf("Boost at 3x threshold = %d, want %d", got, unit)
	}
	// ratio e^2 ≈ 7.39: floor = 2.
	if got := s.Boost(80*time.Second, threshold, unit); got != 2*unit {
		t.Errorf("Boost at ~e^2 threshold = %d, want %d", got, 2*unit)
	}
}

func TestThresholdStrategy(t *testing.T) {
	s := ThresholdStrategy{}
	threshold := 10 * time.Second

	if got := s.Boost(9*time.Second, threshold, 5); got != 0 {
		t.Errorf("Boost below threshold = %d, want 0", got)
	}
	if got := s.Boost(11*time.Second, threshold, 5); got != 50 {
		t.Errorf("Boost past threshold = %d, want 50", got)
	}
	// The jump is flat, not progressive.
	if got := s.Boost(time.Hour, threshold, 5); got != 50 {
		t.Errorf("Boost long past threshold = %d, want 50", got)
	}
}

func TestBoostZeroThreshold(t *testing.T) {
	for _, s := range []Strategy{LinearStrategy{}, ExponentialStrategy{}, ThresholdStrategy{}} {
		if got := s.Boost(time.Minute, 0, 5); got != 0 {
			t.Errorf("%T.Boost with zero threshold = %d, want 0", s, got)
		}
	}
}

func TestForKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want Strategy
	}{
		{None, NoneStrategy{}},
		{Linear, LinearStrategy{}},
		{Exponential, ExponentialStrategy{}},
		{Threshold, ThresholdStrategy{}},
		{Kind(99), NoneStrategy{}},
	}
	for _, tt := range tests {
		if got := ForKind(tt.kind); got != tt.want {
			t.Errorf("ForKind(%d) = %T, want %T", tt.kind, got, tt.want)
		}
	}
}

func TestCalculator(t *testing.T) {
	c := NewCalculator(Linear, 10*time.Second, 5)
	if got := c.Boost(25 * time.Second); got != 10 {
		t.Errorf("Calculator.Boost(25s) = %d, want 10", got)
	}
	if got := c.Threshold(); got != 10*time.Second {
		t.Errorf("Calculator.Threshold() = %v, want 10s", got)
	}

	var nilCalc *Calculator
	if got := nilCalc.Boost(time.Hour); got != 0 {
		t.Errorf("nil Calculator.Boost() = %d, want 0", got)
	}
}
