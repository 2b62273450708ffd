// Package privacy obscures direct identifiers in merchant and category labels
// before they leave the retrieval engine.
package privacy

import (
	"regexp"
	"strings"
)

var (
	digitRunPattern = regexp.MustCompile(`\d{4,}`)
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+-]+@([A-Za-z0-9.-]+)`)
)

// Masker rewrites a label with account numbers, reference numbers and email
// addresses obscured. The masked label keeps enough of the merchant name to
// stay readable.
type Masker struct{}

// NewMasker creates a Masker.
func NewMasker() *Masker {
	return &Masker{}
}

// Mask obscures direct identifiers in the label.
func (m *Masker) Mask(label string) string {
	masked := strings.TrimSpace(label)
	if masked == "" {
		return masked
	}

	masked = emailPattern.ReplaceAllString(masked, "***@$1")
	masked = digitRunPattern.ReplaceAllString(masked, "****")
	return masked
}
