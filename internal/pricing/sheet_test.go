package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetTotals(t *testing.T) {
	s := NewSheet("CHF", 3)
	s.AddItem(ItemParams{Amount: 30000, IsTaxable: true})
	require.NoError(t, s.AddDiscount(DiscountParams{Amount: -5000, DiscountID: "d1", IsTaxable: true}))
	require.NoError(t, s.AddTax(TaxParams{Amount: 1925, Rate: 0.077}))

	assert.Equal(t, int64(26925), s.Gross())
	assert.Equal(t, int64(1925), s.TaxSum())
	assert.Equal(t, int64(25000), s.Net())
	assert.Equal(t, s.Gross(), s.Net()+s.TaxSum())

	assert.Equal(t, int64(30000), s.Total(TotalParams{Category: CategoryItem}))
	assert.Equal(t, int64(-5000), s.Total(TotalParams{Category: CategoryDiscount}))
	assert.Equal(t, int64(26925), s.Total(TotalParams{}))
	assert.Equal(t, int64(25000), s.Total(TotalParams{UseNetPrice: true}))
}

func TestTotalCategoryGrossAndNet(t *testing.T) {
	s := NewSheet("CHF", 1)
	s.AddItem(ItemParams{Amount: 30000, IsTaxable: true})
	require.NoError(t, s.AddTaxAdjustment(TaxAdjustmentParams{Category: CategoryItem, Amount: -2145}))
	require.NoError(t, s.AddTax(TaxParams{Amount: 2145, Rate: 0.077}))

	assert.Equal(t, int64(30000), s.Total(TotalParams{Category: CategoryItem}))
	assert.Equal(t, int64(27855), s.Total(TotalParams{Category: CategoryItem, UseNetPrice: true}))
	assert.Equal(t, int64(30000), s.Gross())
	assert.Equal(t, int64(27855), s.Net())
}

func TestAddTaxAdjustmentKeepsDiscountAttribution(t *testing.T) {
	s := NewSheet("CHF", 1)

	err := s.AddTaxAdjustment(TaxAdjustmentParams{Category: CategoryDiscount, Amount: -50})
	assert.ErrorIs(t, err, ErrCalculationInconsistency)
	assert.Empty(t, s.Rows)

	require.NoError(t, s.AddTaxAdjustment(TaxAdjustmentParams{Category: CategoryDiscount, Amount: -50, DiscountID: "d1"}))
	require.Len(t, s.Rows, 1)
	assert.True(t, s.Rows[0].TaxAdjustment)
	assert.Equal(t, "d1", s.Rows[0].DiscountID)
	// The balancing row is attributed but never dilutes the saving.
	assert.Zero(t, s.DiscountSum("d1"))
}

func TestSheetTaxSumCountsOrderLevelRows(t *testing.T) {
	s := NewSheet("CHF", 1)
	s.AddItems(ItemParams{Amount: 30000})
	require.NoError(t, s.AddTaxes(TaxParams{Amount: 2145, Rate: 0.077}))

	assert.Equal(t, int64(2145), s.TaxSum())
	assert.Equal(t, s.Gross(), s.Net()+s.TaxSum())
}

func TestSheetDiscountAttribution(t *testing.T) {
	s := NewSheet("CHF", 1)
	s.AddItem(ItemParams{Amount: 10000, IsTaxable: true})
	require.NoError(t, s.AddDiscount(DiscountParams{Amount: -2500, DiscountID: "d1", IsTaxable: true}))
	require.NoError(t, s.AddDiscount(DiscountParams{Amount: -500, DiscountID: "d2", IsTaxable: true}))
	require.NoError(t, s.AddDiscount(DiscountParams{Amount: -100, DiscountID: "d1", IsTaxable: true}))

	assert.Equal(t, int64(-2600), s.DiscountSum("d1"))
	assert.Equal(t, []string{"d1", "d2"}, s.DiscountIDs())

	prices := s.DiscountPrices()
	require.Len(t, prices, 2)
	assert.Equal(t, DiscountPrice{DiscountID: "d1", Amount: 2600}, prices[0])
	assert.Equal(t, DiscountPrice{DiscountID: "d2", Amount: 500}, prices[1])
}

func TestAddDiscountRequiresDiscountID(t *testing.T) {
	s := NewSheet("CHF", 1)
	err := s.AddDiscount(DiscountParams{Amount: -100})
	assert.ErrorIs(t, err, ErrCalculationInconsistency)
	assert.Empty(t, s.Rows)
}

func TestAddTaxValidation(t *testing.T) {
	s := NewSheet("CHF", 1)

	err := s.AddTax(TaxParams{Amount: 100, Rate: 0})
	assert.ErrorIs(t, err, ErrCalculationInconsistency)

	err = s.AddTax(TaxParams{Amount: -100, Rate: 0.077})
	assert.ErrorIs(t, err, ErrCalculationInconsistency)

	assert.Empty(t, s.Rows)
}

func TestFilterBy(t *testing.T) {
	s := NewSheet("CHF", 1)
	s.AddItem(ItemParams{Amount: 1000, IsTaxable: true})
	s.AddItem(ItemParams{Amount: 2000, IsTaxable: false})
	require.NoError(t, s.AddDiscount(DiscountParams{Amount: -300, DiscountID: "d1", IsTaxable: true}))

	taxable := true
	rows := s.FilterBy(RowFilter{IsTaxable: &taxable})
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1000), rows[0].Amount)
	assert.Equal(t, int64(-300), rows[1].Amount)

	rows = s.FilterBy(RowFilter{Category: CategoryItem, IsTaxable: &taxable})
	require.Len(t, rows, 1)
}

func TestTaxMath(t *testing.T) {
	// 7.7% on a 27855 net base adds 2145.
	assert.Equal(t, int64(2145), TaxOnNet(27855, 0.077))
	// The same tax extracted from the 30000 gross.
	assert.Equal(t, int64(2145), TaxInGross(30000, 0.077))
	// Rounding stays within one minor unit.
	assert.Equal(t, int64(1), TaxInGross(10, 0.077))
	assert.Equal(t, int64(0), TaxOnNet(0, 0.077))
}
