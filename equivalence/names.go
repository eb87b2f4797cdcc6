package equivalence

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeDrugName folds case and strips diacritics so that "Clonazepám",
// " CLONAZEPAM " and "clonazepam" resolve to the same table key.
func NormalizeDrugName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	// Transformers keep state, build a fresh chain per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	return cases.Fold().String(stripped)
}
