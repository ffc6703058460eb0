package promo

import (
	"math"
	"strings"
)

// Table maps normalized promo codes to their discount value. A value below 1
// is a fraction of the subtotal (0.10 means 10%, rounded to the nearest
// rupee); any other value is a fixed deduction. The table is injected into
// the pricing calculator so environments can carry their own catalogs.
type Table map[string]float64

// NewTable normalizes codes for case-insensitive lookup.
func NewTable(codes map[string]float64) Table {
	table := make(Table, len(codes))
	for code, value := range codes {
		code = normalize(code)
		if code == "" {
			continue
		}
		table[code] = value
	}
	return table
}

// Default returns the built-in promo catalog used when no external table is
// configured.
func Default() Table {
	return NewTable(map[string]float64{
		"FIRST10":   0.10,
		"SAVE50":    50,
		"MONSOON15": 0.15,
		"FLAT100":   100,
	})
}

// Discount resolves a code against the subtotal. Unknown or blank codes
// yield zero; an invalid code never fails a booking.
func (t Table) Discount(code string, subtotal int64) int64 {
	value, ok := t[normalize(code)]
	if !ok {
		return 0
	}
	if value < 1 {
		return int64(math.Round(float64(subtotal) * value))
	}
	return int64(value)
}

// Known reports whether the code exists in the table.
func (t Table) Known(code string) bool {
	_, ok := t[normalize(code)]
	return ok
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
