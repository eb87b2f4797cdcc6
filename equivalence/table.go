// Package equivalence holds the benzodiazepine equivalence tables and the
// conversions from a source dose to diazepam-equivalent milligrams and from
// there to drops of a liquid destination drug.
//
// Tables are immutable once built. Each one carries its own convention for
// reading the factors, and tables with different conventions are never mixed.
package equivalence

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnknownDrug            = errors.New("unknown benzodiazepine")
	ErrUnsupportedDestination = errors.New("unsupported destination drug")
	ErrInvalidDose            = errors.New("dose must be a positive number")
	ErrInvalidTable           = errors.New("invalid equivalence table")
	ErrNonFiniteResult        = errors.New("conversion produced a non-finite value")
)

// Convention tells how a table factor relates a drug to diazepam.
type Convention int

const (
	// DiazepamPerMg factors are the mg of diazepam equivalent to 1 mg of the
	// drug. The diazepam-equivalent dose is dose * factor.
	DiazepamPerMg Convention = iota
	// MgPerReference factors are the mg of the drug equivalent to the table's
	// reference diazepam dose. The diazepam-equivalent dose is
	// dose * reference / factor.
	MgPerReference
)

func (c Convention) String() string {
	switch c {
	case DiazepamPerMg:
		return "diazepam_per_mg"
	case MgPerReference:
		return "mg_per_reference"
	default:
		return "unknown"
	}
}

// Destination describes a liquid formulation patients are switched to.
// DestinationMgPerDiazepamMg converts diazepam mg into destination mg, and
// MgPerDrop converts destination mg into drops.
type Destination struct {
	DestinationMgPerDiazepamMg float64 `json:"destination_mg_per_diazepam_mg"`
	MgPerDrop                  float64 `json:"mg_per_drop"`
}

// Table is a named, versioned equivalence table. The zero value is not usable,
// build tables with NewTable.
type Table struct {
	name         string
	convention   Convention
	referenceMg  float64
	factors      map[string]float64
	destinations map[string]Destination
}

// NewTable validates and copies the given factors and destinations.
// referenceMg is only read for MgPerReference tables.
func NewTable(name string, convention Convention, referenceMg float64,
	factors map[string]float64, destinations map[string]Destination) (*Table, error) {

	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidTable)
	}

	if convention == MgPerReference && !isPositive(referenceMg) {
		return nil, fmt.Errorf("%w: %s: reference dose must be positive, got %v", ErrInvalidTable, name, referenceMg)
	}

	if len(factors) == 0 {
		return nil, fmt.Errorf("%w: %s: no drugs", ErrInvalidTable, name)
	}

	t := &Table{
		name:         name,
		convention:   convention,
		referenceMg:  referenceMg,
		factors:      make(map[string]float64, len(factors)),
		destinations: make(map[string]Destination, len(destinations)),
	}

	for drug, factor := range factors {
		key := NormalizeDrugName(drug)
		if key == "" {
			return nil, fmt.Errorf("%w: %s: empty drug name", ErrInvalidTable, name)
		}
		if !isPositive(factor) {
			return nil, fmt.Errorf("%w: %s: factor for %s must be positive, got %v", ErrInvalidTable, name, drug, factor)
		}
		t.factors[key] = factor
	}

	for drug, dest := range destinations {
		key := NormalizeDrugName(drug)
		if !isPositive(dest.DestinationMgPerDiazepamMg) || !isPositive(dest.MgPerDrop) {
			return nil, fmt.Errorf("%w: %s: destination %s needs positive constants", ErrInvalidTable, name, drug)
		}
		t.destinations[key] = dest
	}

	if len(t.destinations) != 2 {
		return nil, fmt.Errorf("%w: %s: exactly two destinations are supported, got %d", ErrInvalidTable, name, len(t.destinations))
	}

	return t, nil
}

// Name returns the table's versioned name
func (t *Table) Name() string { return t.name }

// Convention returns how the factors are read
func (t *Table) Convention() Convention { return t.convention }

// ReferenceMg returns the reference diazepam dose of a MgPerReference table
func (t *Table) ReferenceMg() float64 { return t.referenceMg }

// Factor returns the equivalence factor for a drug
func (t *Table) Factor(drug string) (float64, bool) {
	f, ok := t.factors[NormalizeDrugName(drug)]
	return f, ok
}

// Destination returns the conversion constants for a destination drug
func (t *Table) Destination(drug string) (Destination, bool) {
	d, ok := t.destinations[NormalizeDrugName(drug)]
	return d, ok
}

// Drugs returns the known source drugs in alphabetical order
func (t *Table) Drugs() []string {
	return sortedKeys(t.factors)
}

// Destinations returns the supported destination drugs in alphabetical order
func (t *Table) Destinations() []string {
	return sortedKeys(t.destinations)
}

// Factors returns a copy of the factor map
func (t *Table) Factors() map[string]float64 {
	out := make(map[string]float64, len(t.factors))
	for k, v := range t.factors {
		out[k] = v
	}
	return out
}

// DestinationConstants returns a copy of the destination map
func (t *Table) DestinationConstants() map[string]Destination {
	out := make(map[string]Destination, len(t.destinations))
	for k, v := range t.destinations {
		out[k] = v
	}
	return out
}

// DiazepamEquivalent converts doseMg of drug into mg of diazepam.
func (t *Table) DiazepamEquivalent(drug string, doseMg float64) (float64, error) {
	if !isPositive(doseMg) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidDose, doseMg)
	}

	key := NormalizeDrugName(drug)
	factor, ok := t.factors[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDrug, drug)
	}

	var mg float64
	switch t.convention {
	case DiazepamPerMg:
		mg = doseMg * factor
	case MgPerReference:
		mg = doseMg * t.referenceMg / factor
	default:
		return 0, fmt.Errorf("%w: %s: unknown convention %d", ErrInvalidTable, t.name, t.convention)
	}

	if math.IsNaN(mg) || math.IsInf(mg, 0) {
		return 0, fmt.Errorf("%w: %s %v mg", ErrNonFiniteResult, key, doseMg)
	}

	return mg, nil
}

// ToDestinationDrops converts diazepam mg into drops of the destination drug.
// The result is not rounded.
func (t *Table) ToDestinationDrops(diazepamMg float64, destination string) (float64, error) {
	key := NormalizeDrugName(destination)
	dest, ok := t.destinations[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDestination, destination)
	}

	if !isPositive(diazepamMg) {
		return 0, fmt.Errorf("%w: diazepam equivalent %v", ErrInvalidDose, diazepamMg)
	}

	destinationMg := diazepamMg * dest.DestinationMgPerDiazepamMg
	drops := destinationMg / dest.MgPerDrop

	if math.IsNaN(drops) || math.IsInf(drops, 0) {
		return 0, fmt.Errorf("%w: %v mg diazepam to %s", ErrNonFiniteResult, diazepamMg, key)
	}

	return drops, nil
}

func isPositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
