// Package compress encodes selected transaction rows into a minimal CSV
// payload plus per-response dictionaries of short merchant/category codes.
package compress

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// rowDateLayout encodes dates as 2-digit year, month, day with no separators.
const rowDateLayout = "060102"

// Masker obscures direct identifiers in a label. Raw merchant or category
// text must never enter a dictionary, only its masked form.
type Masker interface {
	Mask(label string) string
}

// CompactRow is the unit serialized by the compressor.
type CompactRow struct {
	Code         string
	Date         time.Time
	MerchantCode string
	AmountCents  int64
	CategoryCode string
}

// TransactionCode derives the stable compact code for a transaction
// identifier. The code depends only on the identifier, so it is identical
// across any number of separate calls.
func TransactionCode(transactionID string) string {
	digest := sha256.Sum256([]byte(transactionID))
	return "t" + hex.EncodeToString(digest[:4])
}

// Dictionary assigns short codes for a single response. Merchant codes are
// sequential in first-seen order; category codes reuse ShortCategory output.
// Codes are not stable across responses, only within one.
type Dictionary struct {
	masker Masker

	merchantCodes map[string]string // merchant id -> assigned code
	merchants     map[string]string // code -> masked display name
	categories    map[string]string // code -> masked label
}

// NewDictionary creates an empty dictionary using the given masker.
func NewDictionary(masker Masker) *Dictionary {
	return &Dictionary{
		masker:        masker,
		merchantCodes: make(map[string]string),
		merchants:     make(map[string]string),
		categories:    make(map[string]string),
	}
}

// MerchantCode returns the code for a merchant, assigning "m1", "m2", … in
// order of first encounter. The dictionary records the masked display name.
func (d *Dictionary) MerchantCode(merchantID, displayName string) string {
	key := merchantID
	if key == "" {
		key = displayName
	}
	if code, ok := d.merchantCodes[key]; ok {
		return code
	}

	code := "m" + strconv.Itoa(len(d.merchantCodes)+1)
	d.merchantCodes[key] = code
	d.merchants[code] = d.masker.Mask(displayName)
	return code
}

// CategoryCode returns the 2-character code for a category label and records
// its masked form in the dictionary.
func (d *Dictionary) CategoryCode(label string) string {
	code := ShortCategory(label)
	if _, ok := d.categories[code]; !ok {
		d.categories[code] = d.masker.Mask(label)
	}
	return code
}

// Merchants returns the merchant code -> masked label mapping.
func (d *Dictionary) Merchants() map[string]string {
	return d.merchants
}

// Categories returns the category code -> masked label mapping.
func (d *Dictionary) Categories() map[string]string {
	return d.categories
}

// Encode serializes rows one per line, comma-separated, no header.
// Field order: transaction code, date, merchant code, amount in cents,
// category code. Field values never contain commas by construction.
func Encode(rows []CompactRow) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(row.Code)
		b.WriteByte(',')
		b.WriteString(row.Date.Format(rowDateLayout))
		b.WriteByte(',')
		b.WriteString(row.MerchantCode)
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(row.AmountCents, 10))
		b.WriteByte(',')
		b.WriteString(row.CategoryCode)
	}
	return b.String()
}
