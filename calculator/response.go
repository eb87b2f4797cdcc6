package calculator

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// PeriodLayout formats schedule dates as DD/MM/YYYY
const PeriodLayout = "02/01/2006"

// Response is the wire shape of a Result.
type Response struct {
	CalculationID   string          `json:"calculation_id,omitempty"`
	Protocol        string          `json:"protocol"`
	InitialDrops    int             `json:"initial_drops"`
	EquivalenceNote string          `json:"equivalence_note,omitempty"`
	HorizonReached  bool            `json:"horizon_reached,omitempty"`
	Schedule        []EntryResponse `json:"schedule"`
}

// EntryResponse is one week on the wire.
type EntryResponse struct {
	Week        int    `json:"week"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Drops       int    `json:"drops"`
}

// ErrorResponse is the wire shape of a failed calculation.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  Kind   `json:"kind,omitempty"`
}

// NewResponse shapes a result for JSON output
func NewResponse(result *Result) Response {
	entries := make([]EntryResponse, 0, len(result.Schedule.Entries))
	for _, e := range result.Schedule.Entries {
		entries = append(entries, EntryResponse{
			Week:        e.Week,
			PeriodStart: e.PeriodStart.Format(PeriodLayout),
			PeriodEnd:   e.PeriodEnd.Format(PeriodLayout),
			Drops:       e.Drops,
		})
	}

	return Response{
		Protocol:        result.Protocol,
		InitialDrops:    result.InitialDrops,
		EquivalenceNote: EquivalenceNote(result),
		HorizonReached:  result.Schedule.HorizonReached,
		Schedule:        entries,
	}
}

// NewErrorResponse shapes an error for JSON output
func NewErrorResponse(err error) ErrorResponse {
	var calcErr *Error
	if !errors.As(err, &calcErr) || calcErr.Kind == KindInternal {
		return ErrorResponse{Error: "internal computation error", Kind: KindInternal}
	}
	return ErrorResponse{Error: calcErr.Message, Kind: calcErr.Kind}
}

// EquivalenceNote renders e.g.
// "2 mg alprazolam ≈ 40 mg diazepam ≈ 20 drops clonazepam (table diazepam-per-mg/v1)".
func EquivalenceNote(result *Result) string {
	return fmt.Sprintf("%s mg %s ≈ %s mg diazepam ≈ %d drops %s (table %s)",
		formatMg(result.DoseMg), result.SourceDrug,
		formatMg(result.DiazepamMg),
		result.InitialDrops, result.DestinationDrug,
		result.Table)
}

func formatMg(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
