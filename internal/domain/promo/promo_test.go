package promo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscountFractionalValue(t *testing.T) {
	table := NewTable(map[string]float64{"FIRST10": 0.10})

	assert.Equal(t, int64(100), table.Discount("FIRST10", 1000))
	assert.Equal(t, int64(25), table.Discount("first10", 250))
}

func TestDiscountFixedValue(t *testing.T) {
	table := NewTable(map[string]float64{"SAVE50": 50})

	assert.Equal(t, int64(50), table.Discount("SAVE50", 1000))
	assert.Equal(t, int64(50), table.Discount("SAVE50", 10))
}

func TestDiscountRoundsToNearest(t *testing.T) {
	table := NewTable(map[string]float64{"MONSOON15": 0.15})

	// 333 * 0.15 = 49.95, rounds to 50.
	assert.Equal(t, int64(50), table.Discount("MONSOON15", 333))
	// 330 * 0.15 = 49.5, rounds away from zero.
	assert.Equal(t, int64(50), table.Discount("MONSOON15", 330))
}

func TestDiscountUnknownCodeIsZero(t *testing.T) {
	table := Default()

	assert.Equal(t, int64(0), table.Discount("XYZ", 1000))
	assert.Equal(t, int64(0), table.Discount("", 1000))
	assert.False(t, table.Known("XYZ"))
}

func TestNewTableNormalizesCodes(t *testing.T) {
	table := NewTable(map[string]float64{" flat100 ": 100, "": 5})

	assert.True(t, table.Known("FLAT100"))
	assert.True(t, table.Known("flat100"))
	assert.Len(t, table, 1)
}
