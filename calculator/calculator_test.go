package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/giygas/desprescricao-api/taper"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	registry, err := NewRegistry(DefaultOptions())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return New(registry)
}

func TestCalculateTiered(t *testing.T) {
	calc := newTestCalculator(t)

	result, err := calc.Calculate(Request{
		SourceDrug:      "Alprazolam",
		Dose:            "1",
		DestinationDrug: "clonazepam",
		StartDate:       "2025-03-27",
	})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if result.Protocol != ProtocolTiered {
		t.Errorf("Expected default protocol tiered, got %s", result.Protocol)
	}
	if result.DiazepamMg != 20 {
		t.Errorf("Expected 20 mg diazepam, got %v", result.DiazepamMg)
	}
	if result.InitialDrops != 10 {
		t.Errorf("Expected 10 initial drops, got %d", result.InitialDrops)
	}

	// 10 down to 1, then the terminal zero week
	if result.Schedule.Weeks() != 11 {
		t.Fatalf("Expected 11 weeks, got %d", result.Schedule.Weeks())
	}
	if result.Schedule.Entries[0].Drops != 10 {
		t.Errorf("Expected week 1 at 10 drops, got %d", result.Schedule.Entries[0].Drops)
	}
	last, _ := result.Schedule.Last()
	if last.Drops != 0 || last.Week != 11 {
		t.Errorf("Expected terminal week 11 at 0 drops, got %+v", last)
	}
}

func TestCalculateExponential(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		name         string
		drug         string
		dose         string
		destination  string
		initialDrops int
	}{
		{"alprazolam to clonazepam", "alprazolam", "1", "clonazepam", 20},
		{"alprazolam to bromazepam gives the same drops", "alprazolam", "1", "bromazepam", 20},
		{"half drop rounds to even", "oxazepam", "15", "clonazepam", 8},
		{"decimal comma", "diazepam", "2,5", "clonazepam", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := calc.Calculate(Request{
				SourceDrug:      tt.drug,
				Dose:            tt.dose,
				DestinationDrug: tt.destination,
				StartDate:       "2025-03-27",
				Protocol:        "Exponential",
			})
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if result.InitialDrops != tt.initialDrops {
				t.Errorf("Expected %d initial drops, got %d", tt.initialDrops, result.InitialDrops)
			}
			if result.Schedule.Entries[0].Drops != tt.initialDrops {
				t.Errorf("Expected week 1 at %d drops, got %d", tt.initialDrops, result.Schedule.Entries[0].Drops)
			}
			if last, _ := result.Schedule.Last(); last.Drops == 0 {
				t.Error("exponential schedules end on the last non-zero week")
			}
		})
	}
}

func TestCalculateTieredConversions(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		name         string
		drug         string
		dose         string
		destination  string
		diazepamMg   float64
		initialDrops int
	}{
		{"alprazolam to clonazepam", "alprazolam", "1", "clonazepam", 20, 10},
		{"alprazolam to bromazepam", "alprazolam", "1", "bromazepam", 20, 13},
		{"diazepam to bromazepam", "diazepam", "10", "bromazepam", 10, 7},
		{"lormetazepam", "lormetazepam", "1", "clonazepam", 10, 5},
		{"chlordiazepoxide", "chlordiazepoxide", "2", "clonazepam", 50, 25},
		{"bromazepam factor", "bromazepam", "3", "clonazepam", 15, 8},
		{"oxazepam factor", "oxazepam", "1", "clonazepam", 15, 8},
		{"half drop rounds to even", "diazepam", "5", "clonazepam", 5, 2},
		{"non integer drops", "diazepam", "100.8", "clonazepam", 100.8, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := calc.Calculate(Request{
				SourceDrug:      tt.drug,
				Dose:            tt.dose,
				DestinationDrug: tt.destination,
				StartDate:       "2025-03-27",
				Protocol:        ProtocolTiered,
			})
			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if math.Abs(result.DiazepamMg-tt.diazepamMg) > 1e-9 {
				t.Errorf("Expected %v mg diazepam, got %v", tt.diazepamMg, result.DiazepamMg)
			}
			if result.InitialDrops != tt.initialDrops {
				t.Errorf("Expected %d initial drops, got %d", tt.initialDrops, result.InitialDrops)
			}
			if result.Schedule.Entries[0].Drops != result.InitialDrops {
				t.Errorf("week 1 has %d drops, initial drops are %d", result.Schedule.Entries[0].Drops, result.InitialDrops)
			}
		})
	}
}

func TestCalculateTieredOnlyDrugs(t *testing.T) {
	calc := newTestCalculator(t)

	for _, drug := range []string{"estazolam", "midazolam", "flurazepam", "prazepam"} {
		_, err := calc.Calculate(Request{
			SourceDrug: drug, Dose: "1", DestinationDrug: "clonazepam", StartDate: "2025-03-27", Protocol: ProtocolTiered,
		})
		if KindOf(err) != KindUnknownDrug {
			t.Errorf("%s is not in the tiered table, got %v", drug, err)
		}

		if _, err := calc.Calculate(Request{
			SourceDrug: drug, Dose: "1", DestinationDrug: "clonazepam", StartDate: "2025-03-27", Protocol: ProtocolExponential,
		}); err != nil {
			t.Errorf("%s should be accepted by the exponential protocol, got %v", drug, err)
		}
	}

	for _, drug := range []string{"lormetazepam", "chlordiazepoxide"} {
		_, err := calc.Calculate(Request{
			SourceDrug: drug, Dose: "1", DestinationDrug: "clonazepam", StartDate: "2025-03-27", Protocol: ProtocolExponential,
		})
		if KindOf(err) != KindUnknownDrug {
			t.Errorf("%s is not in the exponential table, got %v", drug, err)
		}
	}
}

func TestCalculateSafetyLimit(t *testing.T) {
	calc := newTestCalculator(t)

	tests := []struct {
		name        string
		drug        string
		dose        string
		destination string
		wantErr     bool
		drops       int
	}{
		{"151 mg diazepam is 99.66 bromazepam drops", "diazepam", "151", "bromazepam", false, 100},
		{"153 mg diazepam is 100.98 bromazepam drops", "diazepam", "153", "bromazepam", true, 0},
		{"200.8 mg diazepam rounds down to the limit", "diazepam", "200.8", "clonazepam", false, 100},
		{"30 mg oxazepam is 450 mg diazepam", "oxazepam", "30", "clonazepam", true, 0},
		{"6 mg alprazolam to bromazepam", "alprazolam", "6", "bromazepam", false, 79},
		{"8 mg alprazolam to bromazepam", "alprazolam", "8", "bromazepam", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := calc.Calculate(Request{
				SourceDrug:      tt.drug,
				Dose:            tt.dose,
				DestinationDrug: tt.destination,
				StartDate:       "2025-03-27",
				Protocol:        ProtocolTiered,
			})

			if tt.wantErr {
				if KindOf(err) != KindSafetyLimitExceeded {
					t.Fatalf("Expected %s, got %v", KindSafetyLimitExceeded, err)
				}
				if result != nil {
					t.Error("Expected no result alongside the error")
				}
				return
			}

			if err != nil {
				t.Fatalf("Calculate() error = %v", err)
			}
			if result.InitialDrops != tt.drops {
				t.Errorf("Expected %d drops, got %d", tt.drops, result.InitialDrops)
			}
			if week1 := result.Schedule.Entries[0].Drops; week1 != result.InitialDrops || week1 > taper.DefaultSafetyCeiling {
				t.Errorf("week 1 has %d drops, initial drops %d, ceiling %d", week1, result.InitialDrops, taper.DefaultSafetyCeiling)
			}
		})
	}
}

func TestCalculateErrors(t *testing.T) {
	calc := newTestCalculator(t)

	valid := Request{
		SourceDrug:      "alprazolam",
		Dose:            "1",
		DestinationDrug: "clonazepam",
		StartDate:       "2025-03-27",
	}

	tests := []struct {
		name   string
		modify func(r *Request)
		want   Kind
	}{
		{"zero dose", func(r *Request) { r.Dose = "0" }, KindInvalidDose},
		{"negative dose", func(r *Request) { r.Dose = "-2" }, KindInvalidDose},
		{"missing dose", func(r *Request) { r.Dose = "" }, KindInvalidDose},
		{"non numeric dose", func(r *Request) { r.Dose = "abc" }, KindInvalidDose},
		{"NaN dose", func(r *Request) { r.Dose = "NaN" }, KindInvalidDose},
		{"infinite dose", func(r *Request) { r.Dose = "Inf" }, KindInvalidDose},
		{"less than one drop", func(r *Request) { r.SourceDrug = "diazepam"; r.Dose = "0.05" }, KindInvalidDose},
		{"unknown drug", func(r *Request) { r.SourceDrug = "unknownbenzo" }, KindUnknownDrug},
		{"cloxazolam is not validated", func(r *Request) { r.SourceDrug = "cloxazolam" }, KindUnknownDrug},
		{"unsupported destination", func(r *Request) { r.DestinationDrug = "diazepam" }, KindUnsupportedDestination},
		{"empty destination", func(r *Request) { r.DestinationDrug = "" }, KindUnsupportedDestination},
		{"wrong date format", func(r *Request) { r.StartDate = "27/03/2025" }, KindInvalidDate},
		{"impossible date", func(r *Request) { r.StartDate = "2025-02-30" }, KindInvalidDate},
		{"missing date", func(r *Request) { r.StartDate = "" }, KindInvalidDate},
		{"unknown protocol", func(r *Request) { r.Protocol = "linear" }, KindUnknownProtocol},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.modify(&req)

			result, err := calc.Calculate(req)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if result != nil {
				t.Error("Expected no result alongside the error")
			}

			var calcErr *Error
			if !errors.As(err, &calcErr) {
				t.Fatalf("Expected *Error, got %T", err)
			}
			if calcErr.Kind != tt.want {
				t.Errorf("Expected kind %s, got %s (%v)", tt.want, calcErr.Kind, err)
			}
			if !calcErr.Kind.BadInput() {
				t.Error("validation errors must be classified as bad input")
			}
		})
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	calc := newTestCalculator(t)

	req := Request{SourceDrug: "lorazepam", Dose: "2", DestinationDrug: "clonazepam", StartDate: "2025-01-01"}

	first, err := calc.Calculate(req)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	second, _ := calc.Calculate(req)

	if first.InitialDrops != second.InitialDrops || first.Schedule.Weeks() != second.Schedule.Weeks() {
		t.Fatal("same request produced different results")
	}
	for i := range first.Schedule.Entries {
		if first.Schedule.Entries[i] != second.Schedule.Entries[i] {
			t.Fatalf("week %d differs", i+1)
		}
	}
}

func TestParseDose(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"2", 2, false},
		{" 0.25 ", 0.25, false},
		{"0,5", 0.5, false},
		{"1e1", 10, false},
		{"1,000.5", 0, true},
		{"0", 0, true},
		{"-0.1", 0, true},
		{"", 0, true},
		{"two", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDose(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDose(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDose(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	registry, err := NewRegistry(DefaultOptions())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	names := registry.Names()
	if len(names) != 2 || names[0] != ProtocolExponential || names[1] != ProtocolTiered {
		t.Errorf("unexpected protocols %v", names)
	}

	if p, ok := registry.Get(""); !ok || p.Name != ProtocolTiered {
		t.Error("empty name should resolve to the default protocol")
	}

	tiered, _ := registry.Get(ProtocolTiered)
	exponential, _ := registry.Get(ProtocolExponential)
	if tiered.Table.Convention() == exponential.Table.Convention() {
		t.Error("protocols must keep their own table conventions")
	}

	for _, info := range registry.Info() {
		if info.Name == ProtocolTiered && info.SafetyCeiling != taper.DefaultSafetyCeiling {
			t.Errorf("Expected tiered ceiling %d, got %d", taper.DefaultSafetyCeiling, info.SafetyCeiling)
		}
		if info.Name == ProtocolExponential && info.ReferenceMg != 10 {
			t.Errorf("Expected exponential reference 10 mg, got %v", info.ReferenceMg)
		}
		wantDrugs := map[string]int{ProtocolTiered: 13, ProtocolExponential: 15}[info.Name]
		if len(info.Factors) != wantDrugs || len(info.Destinations) != 2 {
			t.Errorf("%s: expected %d drugs and 2 destinations, got %d and %d",
				info.Name, wantDrugs, len(info.Factors), len(info.Destinations))
		}
	}
}

func TestRegistryOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.DefaultProtocol = "linear"
	if _, err := NewRegistry(opts); err == nil {
		t.Error("Expected error for an unknown default protocol")
	}

	opts = DefaultOptions()
	opts.ExponentialMaxWeeks = 0
	if _, err := NewRegistry(opts); err == nil {
		t.Error("Expected error for an unbounded exponential protocol")
	}

	opts = DefaultOptions()
	opts.SafetyCeiling = 50
	registry, err := NewRegistry(opts)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	_, err = New(registry).Calculate(Request{
		SourceDrug: "alprazolam", Dose: "6", DestinationDrug: "clonazepam", StartDate: "2025-03-27",
	})
	if KindOf(err) != KindSafetyLimitExceeded {
		t.Errorf("60 drops should exceed a ceiling of 50, got %v", err)
	}
}
