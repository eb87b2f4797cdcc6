package taper

import (
	"fmt"
	"math"
)

// DecayPolicy shrinks the remaining weekly dose. Next must return a value
// strictly lower than any positive dose it is given.
type DecayPolicy interface {
	Name() string
	Next(dose float64) float64
}

// Tier applies Factor to doses strictly above Above.
type Tier struct {
	Above  float64
	Factor float64
}

// TieredPolicy cuts high doses by a percentage and finishes with a flat step
// so that the dose reaches zero in a bounded number of weeks.
type TieredPolicy struct {
	tiers    []Tier
	flatStep float64
}

// NewTieredPolicy builds a policy from tiers ordered by descending threshold.
func NewTieredPolicy(tiers []Tier, flatStep float64) (*TieredPolicy, error) {
	if !(flatStep > 0) || math.IsInf(flatStep, 0) {
		return nil, fmt.Errorf("flat step must be positive, got %v", flatStep)
	}

	for i, tier := range tiers {
		if !(tier.Factor > 0 && tier.Factor < 1) {
			return nil, fmt.Errorf("tier %d: factor must be in (0, 1), got %v", i, tier.Factor)
		}
		if tier.Above < 0 {
			return nil, fmt.Errorf("tier %d: threshold must not be negative, got %v", i, tier.Above)
		}
		if i > 0 && tier.Above >= tiers[i-1].Above {
			return nil, fmt.Errorf("tier %d: thresholds must be strictly descending", i)
		}
	}

	return &TieredPolicy{
		tiers:    append([]Tier(nil), tiers...),
		flatStep: flatStep,
	}, nil
}

// DefaultTieredPolicy cuts 10% a week above 40 drops, 5% above 20 drops and
// one drop a week below that.
func DefaultTieredPolicy() *TieredPolicy {
	return &TieredPolicy{
		tiers: []Tier{
			{Above: 40, Factor: 0.90},
			{Above: 20, Factor: 0.95},
		},
		flatStep: 1,
	}
}

func (p *TieredPolicy) Name() string { return "tiered" }

func (p *TieredPolicy) Next(dose float64) float64 {
	for _, tier := range p.tiers {
		if dose > tier.Above {
			return dose * tier.Factor
		}
	}
	return dose - p.flatStep
}

// ExponentialPolicy applies the same percentage cut every week. On its own it
// never reaches zero, the generator's cutoff and horizon end the schedule.
type ExponentialPolicy struct {
	factor float64
}

func NewExponentialPolicy(factor float64) (*ExponentialPolicy, error) {
	if !(factor > 0 && factor < 1) {
		return nil, fmt.Errorf("factor must be in (0, 1), got %v", factor)
	}
	return &ExponentialPolicy{factor: factor}, nil
}

// DefaultExponentialPolicy cuts 4% a week.
func DefaultExponentialPolicy() *ExponentialPolicy {
	return &ExponentialPolicy{factor: 0.96}
}

func (p *ExponentialPolicy) Name() string { return "exponential" }

func (p *ExponentialPolicy) Next(dose float64) float64 {
	return dose * p.factor
}
