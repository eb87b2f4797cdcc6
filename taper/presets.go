package taper

const (
	// DefaultHorizonWeeks caps the tiered schedule at one year.
	DefaultHorizonWeeks = 52
	// DefaultSafetyCeiling is the largest initial drop count the tiered
	// schedule accepts.
	DefaultSafetyCeiling = 100
	// DefaultExponentialMaxWeeks bounds the exponential schedule.
	DefaultExponentialMaxWeeks = 520
)

// TieredRules start from the initial drops rounded half to even, so week 1
// never differs from the drops checked against the ceiling. Weeks report the
// ceiling of the running dose while at least one drop remains, and the
// schedule closes with an explicit 0-drop week.
func TieredRules(safetyCeiling int) Rules {
	return Rules{
		Policy:          DefaultTieredPolicy(),
		Report:          RoundCeil,
		MinDose:         1,
		MaxWeeks:        DefaultHorizonWeeks,
		SafetyCeiling:   safetyCeiling,
		InitialRounding: RoundHalfEven,
		TerminalEntry:   true,
		StartRounded:    true,
	}
}

// ExponentialRules start from the rounded initial drops, report half-to-even
// rounded values and stop as soon as a week would be reported as zero drops.
func ExponentialRules(maxWeeks int) Rules {
	return Rules{
		Policy:          DefaultExponentialPolicy(),
		Report:          RoundHalfEven,
		MinDose:         0.5,
		MaxWeeks:        maxWeeks,
		InitialRounding: RoundHalfEven,
		StartRounded:    true,
	}
}
