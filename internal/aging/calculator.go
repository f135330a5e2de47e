package aging

import "time"

// Calculator binds a strategy to its threshold and boost unit so queue code
// only carries one handle.
type Calculator struct {
	strategy  Strategy
	threshold time.Duration
	unit      int
}

// NewCalculator creates a calculator for the given kind.
func NewCalculator(kind Kind, threshold time.Duration, unit int) *Calculator {
	return &Calculator{
		strategy:  ForKind(kind),
		threshold: threshold,
		unit:      unit,
	}
}

// Boost returns the priority increment for a request queued for age.
func (c *Calculator) Boost(age time.Duration) int {
	if c == nil {
		return 0
	}
	return c.strategy.Boost(age, c.threshold, c.unit)
}

// Threshold returns the configured starvation threshold.
func (c *Calculator) Threshold() time.Duration { return c.threshold }
