// Package validation screens raw request values before they reach the
// calculator.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/giygas/desprescricao-api/interfaces"
)

const (
	minDrugNameLength = 3
	maxDrugNameLength = 40
	maxDoseLength     = 16
	maxProtocolLength = 20
)

// Pre-compiled patterns, reused for every request
var (
	// Letters (with Portuguese and French accents), spaces and hyphens
	drugNameRegex = regexp.MustCompile(`^[\p{L}\s\-]+$`)

	// Digits with an optional decimal point or comma and exponent
	doseRegex = regexp.MustCompile(`^\s*[0-9.,eE+\-]+\s*$`)

	protocolRegex = regexp.MustCompile(`^[a-zA-Z]*$`)

	// Substring checks are cheaper than regex for these
	dangerousPatterns = []string{
		"<script", "</script>", "javascript:", "vbscript:", "onload=", "onerror=",
		"eval(", "expression(", "url(", "@import",
		// SQL injection patterns
		"' or ", "\" or ", "union select", "drop table", "delete from", "insert into",
		"--", "/*", "*/", "exec(",
		// Command injection patterns
		"; ", "| ", "& ", "`", "$(", "${",
		// Path traversal patterns
		"../", "..\\", "%2e%2e", "file://",
	}
)

// InputValidatorImpl implements interfaces.InputValidator
type InputValidatorImpl struct{}

// NewInputValidator creates a new input validator
func NewInputValidator() interfaces.InputValidator {
	return &InputValidatorImpl{}
}

// ValidateDrugName accepts names made of letters, spaces and hyphens.
// Whether the drug is known is left to the equivalence table.
func (v *InputValidatorImpl) ValidateDrugName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("drug name cannot be empty")
	}

	length := utf8.RuneCountInString(trimmed)
	if length < minDrugNameLength {
		return fmt.Errorf("drug name too short: minimum %d characters", minDrugNameLength)
	}
	if length > maxDrugNameLength {
		return fmt.Errorf("drug name too long: maximum %d characters", maxDrugNameLength)
	}

	if containsDangerousPattern(trimmed) {
		return fmt.Errorf("drug name contains potentially dangerous content")
	}

	if !drugNameRegex.MatchString(trimmed) {
		return fmt.Errorf("drug name contains invalid characters, only letters, spaces and hyphens are allowed")
	}

	if hasExcessiveRepetition(trimmed) {
		return fmt.Errorf("drug name contains excessive character repetition")
	}

	return nil
}

// ValidateDose only screens size and characters; ParseDose does the rest
func (v *InputValidatorImpl) ValidateDose(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("dose is required")
	}
	if len(raw) > maxDoseLength {
		return fmt.Errorf("dose too long: maximum %d characters", maxDoseLength)
	}
	if !doseRegex.MatchString(raw) {
		return fmt.Errorf("dose %q is not a number", raw)
	}
	return nil
}

// ValidateProtocolName accepts an empty name, meaning the default protocol
func (v *InputValidatorImpl) ValidateProtocolName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) > maxProtocolLength {
		return fmt.Errorf("protocol name too long: maximum %d characters", maxProtocolLength)
	}
	if !protocolRegex.MatchString(trimmed) {
		return fmt.Errorf("protocol name contains invalid characters, only letters are allowed")
	}
	return nil
}

func containsDangerousPattern(input string) bool {
	lower := strings.ToLower(input)
	for _, pattern := range dangerousPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// hasExcessiveRepetition reports a rune repeated more than 5 times in a row.
// No drug name in the tables repeats a letter more than twice.
func hasExcessiveRepetition(input string) bool {
	var last rune
	run := 0
	for _, r := range input {
		if r == last {
			run++
			if run > 5 {
				return true
			}
			continue
		}
		last = r
		run = 1
	}
	return false
}
