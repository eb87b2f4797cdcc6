package taper

import "time"

// Entry is one week of a schedule. PeriodEnd is PeriodStart plus six days.
type Entry struct {
	Week        int
	PeriodStart time.Time
	PeriodEnd   time.Time
	Drops       int
}

// Schedule is ordered by week, starting at 1.
type Schedule struct {
	Policy  string
	Entries []Entry
	// HorizonReached is set when the week cap stopped the schedule before the
	// dose fell under the cutoff.
	HorizonReached bool
}

// Weeks returns the number of entries
func (s Schedule) Weeks() int {
	return len(s.Entries)
}

// Last returns the final entry, if any
func (s Schedule) Last() (Entry, bool) {
	if len(s.Entries) == 0 {
		return Entry{}, false
	}
	return s.Entries[len(s.Entries)-1], true
}
