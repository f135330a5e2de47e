package aging

import (
	"math"
	"time"
)

// Kind selects a boost formula. Values mirror the exported configuration enum.
type Kind int

const (
	None Kind = iota
	Linear
	Exponential
	Threshold
)

// Strategy defines the interface for age-boost calculation algorithms.
// Implementations are pure functions of (age, threshold, unit) so they can be
// unit-tested independent of any queue or clock.
type Strategy interface {
	// Boost returns the priority increment for a request that has been queued
	// for age, given the starvation threshold and the per-step boost unit.
	Boost(age, threshold time.Duration, unit int) int
}

// NoneStrategy never boosts.
type NoneStrategy struct{}

func (NoneStrategy) Boost(time.Duration, time.Duration, int) int { return 0 }

// LinearStrategy boosts by one unit per full threshold interval once age
// exceeds the threshold.
type LinearStrategy struct{}

func (LinearStrategy) Boost(age, threshold time.Duration, unit int) int {
	if threshold <= 0 || age <= threshold {
		return 0
	}
	return unit * int(math.Floor(age.Seconds()/threshold.Seconds()))
}

// ExponentialStrategy boosts by unit × floor(ln(age/threshold)) once age
// exceeds the threshold. For ratios between 1 and e the truncated log is zero,
// so the boost is effectively delayed until the ratio passes e. That behavior
// is intentional and must be preserved.
type ExponentialStrategy struct{}

func (ExponentialStrategy) Boost(age, threshold time.Duration, unit int) int {
	if threshold <= 0 || age <= threshold {
		return 0
	}
	return unit * int(math.Floor(math.Log(age.Seconds()/threshold.Seconds())))
}

// ThresholdStrategy applies a single fixed jump of ten units once age exceeds
// the threshold.
type ThresholdStrategy struct{}

func (ThresholdStrategy) Boost(age, threshold time.Duration, unit int) int {
	if threshold <= 0 || age <= threshold {
		return 0
	}
	return unit * 10
}

// ForKind returns the strategy implementation for a kind. Unknown kinds fall
// back to NoneStrategy.
func ForKind(k Kind) Strategy {
	switch k {
	case Linear:
		return LinearStrategy{}
	case Exponential:
		return ExponentialStrategy{}
	case Threshold:
		return ThresholdStrategy{}
	default:
		return NoneStrategy{}
	}
}
