package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeease/internal/domain/promo"
	"homeease/internal/domain/shared/money"
)

func codes() promo.Table {
	return promo.NewTable(map[string]float64{
		"FIRST10": 0.10,
		"SAVE50":  50,
	})
}

func TestComputeWithoutPromo(t *testing.T) {
	quote, applied, err := Compute([]LineInput{
		{UnitPrice: money.INR(100), Quantity: 2},
		{UnitPrice: money.INR(50), Quantity: 1},
	}, codes(), "")
	require.NoError(t, err)

	assert.Equal(t, int64(250), quote.Subtotal.Amount)
	assert.Equal(t, ServiceChargeAmount, quote.ServiceCharges.Amount)
	assert.Equal(t, int64(0), quote.Discount.Amount)
	assert.Equal(t, int64(349), quote.Total.Amount)
	assert.Nil(t, applied)
}

func TestComputePercentagePromo(t *testing.T) {
	quote, applied, err := Compute([]LineInput{
		{UnitPrice: money.INR(500), Quantity: 2},
	}, codes(), "FIRST10")
	require.NoError(t, err)

	assert.Equal(t, int64(1000), quote.Subtotal.Amount)
	assert.Equal(t, int64(100), quote.Discount.Amount)
	assert.Equal(t, int64(999), quote.Total.Amount)
	require.NotNil(t, applied)
	assert.Equal(t, "FIRST10", applied.Code)
	assert.Equal(t, int64(100), applied.DiscountAmount.Amount)
}

func TestComputeFixedPromo(t *testing.T) {
	quote, applied, err := Compute([]LineInput{
		{UnitPrice: money.INR(250), Quantity: 1},
	}, codes(), "SAVE50")
	require.NoError(t, err)

	assert.Equal(t, int64(50), quote.Discount.Amount)
	assert.Equal(t, int64(299), quote.Total.Amount)
	require.NotNil(t, applied)
	assert.Equal(t, "SAVE50", applied.Code)
}

func TestComputeUnknownPromoResolvesSilently(t *testing.T) {
	quote, applied, err := Compute([]LineInput{
		{UnitPrice: money.INR(250), Quantity: 1},
	}, codes(), "XYZ")
	require.NoError(t, err)

	assert.Equal(t, int64(0), quote.Discount.Amount)
	assert.Equal(t, int64(349), quote.Total.Amount)
	assert.Nil(t, applied)
}

func TestComputeTotalNotClampedAtZero(t *testing.T) {
	table := promo.NewTable(map[string]float64{"FLAT500": 500})
	quote, _, err := Compute([]LineInput{
		{UnitPrice: money.INR(100), Quantity: 1},
	}, table, "FLAT500")
	require.NoError(t, err)

	// 100 + 99 - 500
	assert.Equal(t, int64(-301), quote.Total.Amount)
}

func TestComputeIsDeterministic(t *testing.T) {
	lines := []LineInput{
		{UnitPrice: money.INR(199), Quantity: 3},
		{UnitPrice: money.INR(49), Quantity: 2},
	}
	first, firstApplied, err := Compute(lines, codes(), "FIRST10")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, againApplied, err := Compute(lines, codes(), "FIRST10")
		require.NoError(t, err)
		assert.Equal(t, first, again)
		assert.Equal(t, firstApplied, againApplied)
	}
}

func TestComputeValidation(t *testing.T) {
	_, _, err := Compute(nil, codes(), "")
	assert.ErrorIs(t, err, ErrNoLineItems)

	_, _, err = Compute([]LineInput{{UnitPrice: money.INR(100), Quantity: 0}}, codes(), "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, _, err = Compute([]LineInput{
		{UnitPrice: money.INR(100), Quantity: 1},
		{UnitPrice: money.Money{Amount: 100, Currency: "USD"}, Quantity: 1},
	}, codes(), "")
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}
