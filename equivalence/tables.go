package equivalence

const (
	// DiazepamPerMgV1 reads "mg of diazepam equivalent to 1 mg of the drug".
	DiazepamPerMgV1 = "diazepam-per-mg/v1"
	// TenMgReferenceV1 reads "mg of the drug equivalent to 10 mg of diazepam".
	TenMgReferenceV1 = "ten-mg-reference/v1"
)

// Diazepam mg equivalent to 1 mg of each drug, from Ashton's manual.
var diazepamPerMgFactors = map[string]float64{
	"alprazolam":       20,
	"bromazepam":       5,
	"chlordiazepoxide": 25,
	"clobazam":         20,
	"clonazepam":       20,
	"diazepam":         1,
	"flunitrazepam":    20,
	"lorazepam":        10,
	"lormetazepam":     10,
	"nitrazepam":       10,
	"oxazepam":         15,
	"temazepam":        20,
	"triazolam":        20,
}

// Equivalent doses to 10 mg of diazepam. Cloxazolam is left out until its
// factor is clinically validated.
var tenMgReferenceFactors = map[string]float64{
	"alprazolam":    0.5,
	"bromazepam":    6,
	"clonazepam":    0.5,
	"diazepam":      10,
	"flunitrazepam": 1,
	"lorazepam":     1,
	"nitrazepam":    10,
	"oxazepam":      20,
	"clobazam":      20,
	"estazolam":     1.5,
	"flurazepam":    22.5,
	"midazolam":     11.25,
	"prazepam":      15,
	"temazepam":     20,
	"triazolam":     0.5,
}

// NewDiazepamPerMgTable builds the table used by the tiered protocol.
// Both destinations go through their oral solution at 0.1 mg per drop:
// 10 mg diazepam = 0.5 mg clonazepam, 15 mg diazepam = 1 mg bromazepam.
func NewDiazepamPerMgTable() (*Table, error) {
	return NewTable(DiazepamPerMgV1, DiazepamPerMg, 0, diazepamPerMgFactors, map[string]Destination{
		"clonazepam": {DestinationMgPerDiazepamMg: 0.05, MgPerDrop: 0.1},
		"bromazepam": {DestinationMgPerDiazepamMg: 0.066, MgPerDrop: 0.1},
	})
}

// NewTenMgReferenceTable builds the table used by the exponential protocol.
// Its destination ratio equals the drop size, so one drop stands for one mg of
// diazepam whatever the destination.
func NewTenMgReferenceTable() (*Table, error) {
	return NewTable(TenMgReferenceV1, MgPerReference, 10, tenMgReferenceFactors, map[string]Destination{
		"clonazepam": {DestinationMgPerDiazepamMg: 0.1, MgPerDrop: 0.1},
		"bromazepam": {DestinationMgPerDiazepamMg: 0.25, MgPerDrop: 0.25},
	})
}
