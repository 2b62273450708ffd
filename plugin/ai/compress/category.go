package compress

import "strings"

// categoryCodes maps each supported category name to its 2-letter mnemonic.
// The table is a closed enumeration maintained alongside the category taxonomy;
// labels outside it fall back to a derived code.
var categoryCodes = map[string]string{
	"income":        "in",
	"groceries":     "gr",
	"dining":        "di",
	"transport":     "tr",
	"travel":        "tv",
	"utilities":     "ut",
	"rent":          "rn",
	"entertainment": "en",
	"shopping":      "sh",
	"healthcare":    "hc",
	"insurance":     "is",
	"education":     "ed",
	"subscriptions": "sb",
	"transfer":      "tf",
	"fees":          "fe",
	"taxes":         "tx",
	"savings":       "sv",
	"investment":    "iv",
	"other":         "ot",
}

// fallbackCategoryCode is returned when no letters survive derivation.
const fallbackCategoryCode = "ot"

// ShortCategory returns the 2-character code for a category label.
// Known categories use the curated table; unknown labels derive a code from
// their first two alphabetic characters.
func ShortCategory(label string) string {
	normalized := strings.ToLower(strings.TrimSpace(label))
	if code, ok := categoryCodes[normalized]; ok {
		return code
	}

	letters := make([]rune, 0, 2)
	for _, r := range normalized {
		if r >= 'a' && r <= 'z' {
			letters = append(letters, r)
			if len(letters) == 2 {
				break
			}
		}
	}

	switch len(letters) {
	case 0:
		return fallbackCategoryCode
	case 1:
		return string(letters) + string(letters)
	default:
		return string(letters)
	}
}
