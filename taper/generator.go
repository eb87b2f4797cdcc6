// Package taper generates weekly dose-reduction schedules measured in drops.
//
// A Generator is configured once with Rules (decay policy, rounding, stopping
// conditions, safety ceiling) and can be shared between goroutines: Generate
// keeps all of its state on the stack.
package taper

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const daysPerWeek = 7

var (
	ErrInvalidInitialDose  = errors.New("initial drops must be a positive number")
	ErrSafetyLimitExceeded = errors.New("initial drops exceed the safety limit")
	ErrInvalidRules        = errors.New("invalid taper rules")
)

// Rules configure how a schedule is generated.
type Rules struct {
	Policy DecayPolicy
	// Report rounds the running dose into the drops shown for each week.
	Report Rounding
	// MinDose keeps the loop going while dose >= MinDose and the reported
	// drops are still positive.
	MinDose float64
	// MaxWeeks is the last week that may be emitted before the terminal entry.
	MaxWeeks int
	// SafetyCeiling rejects schedules whose rounded initial drops exceed it.
	// Zero disables the check.
	SafetyCeiling int
	// InitialRounding rounds the initial drops for the ceiling check and for
	// StartRounded.
	InitialRounding Rounding
	// TerminalEntry appends an explicit 0-drop week after the loop.
	TerminalEntry bool
	// StartRounded starts the decay from the rounded initial drops instead of
	// the real value.
	StartRounded bool
}

// Generator builds schedules under fixed rules.
type Generator struct {
	rules Rules
}

// NewGenerator validates rules. A positive MaxWeeks is mandatory so that every
// policy terminates regardless of floating point behaviour.
func NewGenerator(rules Rules) (*Generator, error) {
	if rules.Policy == nil {
		return nil, fmt.Errorf("%w: missing decay policy", ErrInvalidRules)
	}
	if rules.MaxWeeks <= 0 {
		return nil, fmt.Errorf("%w: max weeks must be positive, got %d", ErrInvalidRules, rules.MaxWeeks)
	}
	if !(rules.MinDose > 0) || math.IsInf(rules.MinDose, 0) {
		return nil, fmt.Errorf("%w: min dose must be positive, got %v", ErrInvalidRules, rules.MinDose)
	}
	if rules.SafetyCeiling < 0 {
		return nil, fmt.Errorf("%w: safety ceiling must not be negative, got %d", ErrInvalidRules, rules.SafetyCeiling)
	}

	return &Generator{rules: rules}, nil
}

// Rules returns a copy of the generator's rules
func (g *Generator) Rules() Rules {
	return g.rules
}

// Generate produces the schedule for initialDrops starting on start. Any error
// is returned before an entry is produced.
func (g *Generator) Generate(initialDrops float64, start time.Time) (Schedule, error) {
	if !(initialDrops > 0) || math.IsInf(initialDrops, 0) {
		return Schedule{}, fmt.Errorf("%w: got %v", ErrInvalidInitialDose, initialDrops)
	}

	r := g.rules

	if r.SafetyCeiling > 0 {
		if rounded := r.InitialRounding.Apply(initialDrops); rounded > r.SafetyCeiling {
			return Schedule{}, fmt.Errorf("%w: %d drops, limit is %d", ErrSafetyLimitExceeded, rounded, r.SafetyCeiling)
		}
	}

	dose := initialDrops
	if r.StartRounded {
		dose = float64(r.InitialRounding.Apply(initialDrops))
	}

	week := 1
	date := dateOnly(start)
	entries := make([]Entry, 0, estimateWeeks(r.MaxWeeks))

	for g.continues(dose) && week <= r.MaxWeeks {
		entries = append(entries, newEntry(week, date, r.Report.Apply(dose)))

		date = date.AddDate(0, 0, daysPerWeek)
		week++
		dose = r.Policy.Next(dose)
	}

	horizonReached := week > r.MaxWeeks && g.continues(dose)

	if r.TerminalEntry {
		entries = append(entries, newEntry(week, date, 0))
	}

	return Schedule{
		Policy:         r.Policy.Name(),
		Entries:        entries,
		HorizonReached: horizonReached,
	}, nil
}

func (g *Generator) continues(dose float64) bool {
	return dose >= g.rules.MinDose && g.rules.Report.Apply(dose) > 0
}

func newEntry(week int, start time.Time, drops int) Entry {
	return Entry{
		Week:        week,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 0, daysPerWeek-1),
		Drops:       drops,
	}
}

// dateOnly drops the clock part so that week boundaries are calendar days
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func estimateWeeks(maxWeeks int) int {
	if maxWeeks > 64 {
		return 64
	}
	return maxWeeks + 1
}
