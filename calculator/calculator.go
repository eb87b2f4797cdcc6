// Package calculator turns a raw deprescription request into a tapering
// schedule: it parses and validates the inputs, converts the source dose into
// drops of the destination drug using the protocol's equivalence table, and
// runs the protocol's schedule generator.
//
// Every failure is returned as a *Error carrying a Kind, and no partial result
// is ever returned alongside an error.
package calculator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/desprescricao-api/equivalence"
	"github.com/giygas/desprescricao-api/taper"
)

// StartDateLayout is the accepted start date format (YYYY-MM-DD)
const StartDateLayout = "2006-01-02"

// Request holds the raw caller inputs.
type Request struct {
	SourceDrug      string
	Dose            string
	DestinationDrug string
	StartDate       string
	Protocol        string
}

// Result is a successful calculation.
type Result struct {
	Protocol        string
	Table           string
	SourceDrug      string
	DestinationDrug string
	DoseMg          float64
	DiazepamMg      float64
	Drops           float64
	InitialDrops    int
	Schedule        taper.Schedule
}

// Calculator runs calculations against an immutable protocol registry.
type Calculator struct {
	registry *Registry
}

func New(registry *Registry) *Calculator {
	return &Calculator{registry: registry}
}

// Registry returns the protocols the calculator serves
func (c *Calculator) Registry() *Registry {
	return c.registry
}

// Protocols describes every protocol the calculator serves
func (c *Calculator) Protocols() []ProtocolInfo {
	return c.registry.Info()
}

// Calculate validates req and builds its schedule.
func (c *Calculator) Calculate(req Request) (*Result, error) {
	protocol, ok := c.registry.Get(strings.ToLower(strings.TrimSpace(req.Protocol)))
	if !ok {
		return nil, newError(KindUnknownProtocol,
			fmt.Sprintf("unknown protocol %q, expected one of %v", req.Protocol, c.registry.Names()), nil)
	}

	dose, err := ParseDose(req.Dose)
	if err != nil {
		return nil, err
	}

	start, err := ParseStartDate(req.StartDate)
	if err != nil {
		return nil, err
	}

	source := equivalence.NormalizeDrugName(req.SourceDrug)
	destination := equivalence.NormalizeDrugName(req.DestinationDrug)

	// Resolve both names before doing any arithmetic
	if _, ok := protocol.Table.Factor(source); !ok {
		return nil, newError(KindUnknownDrug, fmt.Sprintf("unknown benzodiazepine %q", req.SourceDrug), nil)
	}
	if _, ok := protocol.Table.Destination(destination); !ok {
		return nil, newError(KindUnsupportedDestination,
			fmt.Sprintf("unsupported destination %q, expected one of %v", req.DestinationDrug, protocol.Table.Destinations()), nil)
	}

	diazepamMg, err := protocol.Table.DiazepamEquivalent(source, dose)
	if err != nil {
		return nil, classify(err)
	}

	drops, err := protocol.Table.ToDestinationDrops(diazepamMg, destination)
	if err != nil {
		return nil, classify(err)
	}

	if !(drops > 0) || math.IsInf(drops, 0) {
		return nil, newError(KindInternal, "internal computation error",
			fmt.Errorf("conversion of %v mg %s produced %v drops", dose, source, drops))
	}

	initialDrops := protocol.InitialRounding.Apply(drops)
	if initialDrops == 0 {
		return nil, newError(KindInvalidDose,
			fmt.Sprintf("dose of %v mg %s is less than one drop of %s", dose, source, destination), nil)
	}

	schedule, err := protocol.Generator.Generate(drops, start)
	if err != nil {
		return nil, classify(err)
	}

	return &Result{
		Protocol:        protocol.Name,
		Table:           protocol.Table.Name(),
		SourceDrug:      source,
		DestinationDrug: destination,
		DoseMg:          dose,
		DiazepamMg:      diazepamMg,
		Drops:           drops,
		InitialDrops:    initialDrops,
		Schedule:        schedule,
	}, nil
}

// ParseDose reads a positive dose in mg. A decimal comma is accepted.
func ParseDose(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, newError(KindInvalidDose, "dose is required", nil)
	}

	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}

	dose, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, newError(KindInvalidDose, fmt.Sprintf("dose %q is not a number", raw), err)
	}

	if math.IsNaN(dose) || math.IsInf(dose, 0) {
		return 0, newError(KindInvalidDose, fmt.Sprintf("dose %q is not a finite number", raw), nil)
	}

	if dose <= 0 {
		return 0, newError(KindInvalidDose, fmt.Sprintf("dose must be greater than zero, got %v", dose), nil)
	}

	return dose, nil
}

// ParseStartDate reads a YYYY-MM-DD date as UTC midnight.
func ParseStartDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, newError(KindInvalidDate, "start date is required", nil)
	}

	date, err := time.Parse(StartDateLayout, s)
	if err != nil {
		return time.Time{}, newError(KindInvalidDate, fmt.Sprintf("start date %q must use the YYYY-MM-DD format", raw), err)
	}

	return date, nil
}
