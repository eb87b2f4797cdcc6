package taper

import (
	"errors"
	"math"
	"testing"
	"time"
)

var startDate = time.Date(2025, 3, 27, 0, 0, 0, 0, time.UTC)

func mustGenerator(t *testing.T, rules Rules) *Generator {
	t.Helper()
	g, err := NewGenerator(rules)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	return g
}

func dropsOf(s Schedule) []int {
	out := make([]int, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Drops
	}
	return out
}

func TestTieredScheduleFromFiftyDrops(t *testing.T) {
	g := mustGenerator(t, TieredRules(DefaultSafetyCeiling))

	schedule, err := g.Generate(50, startDate)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := []int{
		50, 45, 41, 37, 35, 33, 32, 30, 29, 27, 26, 25, 23, 22, 21, 20, 19,
		18, 17, 16, 15, 14, 13, 12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 0,
	}
	got := dropsOf(schedule)

	if len(got) != len(want) {
		t.Fatalf("Expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("week %d: expected %d drops, got %d", i+1, want[i], got[i])
		}
	}

	last, _ := schedule.Last()
	if last.Week != 35 || last.Drops != 0 {
		t.Errorf("Expected terminal entry at week 35 with 0 drops, got week %d with %d", last.Week, last.Drops)
	}
	if !last.PeriodStart.Equal(startDate.AddDate(0, 0, 34*7)) {
		t.Errorf("terminal entry starts %v", last.PeriodStart)
	}
	if schedule.HorizonReached {
		t.Error("50 drops should not reach the horizon")
	}
	if schedule.Policy != "tiered" {
		t.Errorf("Expected policy tiered, got %s", schedule.Policy)
	}
}

func TestTieredScheduleAtCeiling(t *testing.T) {
	g := mustGenerator(t, TieredRules(DefaultSafetyCeiling))

	schedule, err := g.Generate(100, startDate)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// 41 decaying weeks plus the terminal one
	if schedule.Weeks() != 42 {
		t.Errorf("Expected 42 entries, got %d", schedule.Weeks())
	}
	if schedule.Entries[1].Drops != 90 || schedule.Entries[2].Drops != 81 {
		t.Errorf("unexpected start of schedule: %v", dropsOf(schedule)[:3])
	}
}

func TestSafetyCeiling(t *testing.T) {
	g := mustGenerator(t, TieredRules(DefaultSafetyCeiling))

	tests := []struct {
		name    string
		drops   float64
		wantErr bool
	}{
		{"exactly at the limit", 100, false},
		{"rounds down to the limit", 100.4, false},
		{"half rounds to even at the limit", 100.5, false},
		{"rounds up past the limit", 100.6, true},
		{"half rounds to even past the limit", 101.5, true},
		{"far above the limit", 250, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schedule, err := g.Generate(tt.drops, startDate)
			if tt.wantErr {
				if !errors.Is(err, ErrSafetyLimitExceeded) {
					t.Fatalf("Expected ErrSafetyLimitExceeded, got %v", err)
				}
				if schedule.Weeks() != 0 {
					t.Errorf("Expected no entries on error, got %d", schedule.Weeks())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestTieredStartsFromRoundedDrops(t *testing.T) {
	g := mustGenerator(t, TieredRules(DefaultSafetyCeiling))

	tests := []struct {
		drops float64
		week1 int
		week2 int
	}{
		{50.4, 50, 45},
		{50.5, 50, 45},
		{51.5, 52, 47},
		{99.7, 100, 90},
		{100.5, 100, 90},
		{20.6, 21, 20},
	}

	for _, tt := range tests {
		schedule, err := g.Generate(tt.drops, startDate)
		if err != nil {
			t.Fatalf("Generate(%v) error = %v", tt.drops, err)
		}
		if got := schedule.Entries[0].Drops; got != tt.week1 {
			t.Errorf("Generate(%v): week 1 = %d drops, want %d", tt.drops, got, tt.week1)
		}
		if got := schedule.Entries[1].Drops; got != tt.week2 {
			t.Errorf("Generate(%v): week 2 = %d drops, want %d", tt.drops, got, tt.week2)
		}
		if schedule.Entries[0].Drops > DefaultSafetyCeiling {
			t.Errorf("Generate(%v): week 1 exceeds the ceiling", tt.drops)
		}
	}
}

func TestSafetyCeilingDisabled(t *testing.T) {
	g := mustGenerator(t, ExponentialRules(DefaultExponentialMaxWeeks))

	if _, err := g.Generate(5000, startDate); err != nil {
		t.Errorf("exponential rules have no ceiling, got %v", err)
	}
}

func TestInvalidInitialDrops(t *testing.T) {
	g := mustGenerator(t, TieredRules(DefaultSafetyCeiling))

	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := g.Generate(v, startDate); !errors.Is(err, ErrInvalidInitialDose) {
			t.Errorf("Generate(%v): expected ErrInvalidInitialDose, got %v", v, err)
		}
	}
}

func TestTieredHorizon(t *testing.T) {
	rules := TieredRules(0)
	rules.MaxWeeks = 10

	g := mustGenerator(t, rules)
	schedule, err := g.Generate(80, startDate)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if schedule.Weeks() != 11 {
		t.Fatalf("Expected 10 weeks plus terminal entry, got %d", schedule.Weeks())
	}
	last, _ := schedule.Last()
	if last.Week != 11 || last.Drops != 0 {
		t.Errorf("Expected terminal week 11 with 0 drops, got %+v", last)
	}
	if !schedule.HorizonReached {
		t.Error("Expected HorizonReached to be set")
	}
}

func TestTieredNeverExceedsHorizon(t *testing.T) {
	g := mustGenerator(t, TieredRules(DefaultSafetyCeiling))

	for drops := 1.0; drops <= 100; drops += 0.5 {
		schedule, err := g.Generate(drops, startDate)
		if err != nil {
			t.Fatalf("Generate(%v) error = %v", drops, err)
		}
		if schedule.Weeks() > DefaultHorizonWeeks+1 {
			t.Fatalf("Generate(%v) produced %d entries", drops, schedule.Weeks())
		}
		last, _ := schedule.Last()
		if last.Drops != 0 {
			t.Fatalf("Generate(%v) does not end at zero", drops)
		}
	}
}

func TestExponentialSchedule(t *testing.T) {
	g := mustGenerator(t, ExponentialRules(DefaultExponentialMaxWeeks))

	schedule, err := g.Generate(100, startDate)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got := dropsOf(schedule)
	if len(got) != 130 {
		t.Fatalf("Expected 130 entries, got %d", len(got))
	}

	for i, want := range []int{100, 96, 92, 88, 85} {
		if got[i] != want {
			t.Errorf("week %d: expected %d drops, got %d", i+1, want, got[i])
		}
	}

	last, _ := schedule.Last()
	if last.Drops != 1 {
		t.Errorf("exponential schedule has no terminal entry, last drops should be 1, got %d", last.Drops)
	}
	if schedule.HorizonReached {
		t.Error("100 drops should end before the horizon")
	}
}

func TestExponentialStartsFromRoundedDrops(t *testing.T) {
	g := mustGenerator(t, ExponentialRules(DefaultExponentialMaxWeeks))

	// 2.5 rounds half to even
	schedule, err := g.Generate(2.5, startDate)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// 2, 1.92, 1.8432, 1.769, 1.699, 1.631, 1.566, 1.503, 1.443 ... until < 0.5
	if schedule.Entries[0].Drops != 2 {
		t.Errorf("Expected first week at 2 drops, got %d", schedule.Entries[0].Drops)
	}
}

func TestExponentialTerminates(t *testing.T) {
	g := mustGenerator(t, ExponentialRules(DefaultExponentialMaxWeeks))

	doses := []float64{0.6, 1, 3, 17.3, 100, 999, 1e6, 1e12, math.MaxFloat64 / 2}
	for _, d := range doses {
		schedule, err := g.Generate(d, startDate)
		if err != nil {
			t.Fatalf("Generate(%v) error = %v", d, err)
		}
		if schedule.Weeks() > DefaultExponentialMaxWeeks {
			t.Fatalf("Generate(%v) produced %d weeks", d, schedule.Weeks())
		}
		if schedule.Weeks() == 0 {
			t.Fatalf("Generate(%v) produced no weeks", d)
		}
	}

	huge, _ := g.Generate(1e12, startDate)
	if !huge.HorizonReached {
		t.Error("1e12 drops should stop at the horizon")
	}
}

func TestNonIncreasingDrops(t *testing.T) {
	generators := map[string]*Generator{
		"tiered":      mustGenerator(t, TieredRules(DefaultSafetyCeiling)),
		"exponential": mustGenerator(t, ExponentialRules(DefaultExponentialMaxWeeks)),
	}

	for name, g := range generators {
		t.Run(name, func(t *testing.T) {
			for drops := 0.75; drops <= 100; drops += 1.25 {
				schedule, err := g.Generate(drops, startDate)
				if err != nil {
					t.Fatalf("Generate(%v) error = %v", drops, err)
				}
				for i := 1; i < len(schedule.Entries); i++ {
					if schedule.Entries[i].Drops > schedule.Entries[i-1].Drops {
						t.Fatalf("Generate(%v): week %d has %d drops after %d", drops,
							schedule.Entries[i].Week, schedule.Entries[i].Drops, schedule.Entries[i-1].Drops)
					}
				}
			}
		})
	}
}

func TestDateArithmetic(t *testing.T) {
	g := mustGenerator(t, TieredRules(DefaultSafetyCeiling))

	// Crosses a month end and a year end
	start := time.Date(2024, 12, 20, 15, 30, 0, 0, time.UTC)
	schedule, err := g.Generate(30, start)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	first := schedule.Entries[0]
	if first.PeriodStart.Hour() != 0 || first.PeriodStart.Day() != 20 {
		t.Errorf("Expected first period to start on 2024-12-20 at midnight, got %v", first.PeriodStart)
	}

	for i, e := range schedule.Entries {
		if e.Week != i+1 {
			t.Errorf("Expected week %d, got %d", i+1, e.Week)
		}
		if !e.PeriodEnd.Equal(e.PeriodStart.AddDate(0, 0, 6)) {
			t.Errorf("week %d: period end %v is not start + 6 days", e.Week, e.PeriodEnd)
		}
		if i > 0 {
			prev := schedule.Entries[i-1]
			if !e.PeriodStart.Equal(prev.PeriodStart.AddDate(0, 0, 7)) {
				t.Errorf("week %d starts %v, expected 7 days after %v", e.Week, e.PeriodStart, prev.PeriodStart)
			}
		}
	}

	if got := schedule.Entries[2].PeriodStart; got.Year() != 2025 || got.Month() != time.January || got.Day() != 3 {
		t.Errorf("week 3 should start on 2025-01-03, got %v", got)
	}
}

func TestNewGeneratorValidation(t *testing.T) {
	valid := TieredRules(DefaultSafetyCeiling)

	tests := []struct {
		name   string
		modify func(r *Rules)
	}{
		{"missing policy", func(r *Rules) { r.Policy = nil }},
		{"zero horizon", func(r *Rules) { r.MaxWeeks = 0 }},
		{"zero min dose", func(r *Rules) { r.MinDose = 0 }},
		{"negative ceiling", func(r *Rules) { r.SafetyCeiling = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := valid
			tt.modify(&rules)
			if _, err := NewGenerator(rules); !errors.Is(err, ErrInvalidRules) {
				t.Errorf("Expected ErrInvalidRules, got %v", err)
			}
		})
	}
}
