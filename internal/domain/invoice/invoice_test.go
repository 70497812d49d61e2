package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewInvoice(t *testing.T) {
	inv, err := NewInvoice(uuid.New(), 1, " B0100000001 ", 2, 3, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "B0100000001", inv.DocumentNumber)
	assert.Equal(t, InvoiceStatusIssued, inv.Status)
	assert.False(t, inv.IssueDate.IsZero())

	_, err = NewInvoice(uuid.New(), 1, "", 2, 3, time.Now())
	assert.Error(t, err)

	_, err = NewInvoice(uuid.New(), 1, "B01", 2, 0, time.Now())
	assert.Error(t, err)
}

func TestNewItem_DerivesTaxFromRate(t *testing.T) {
	item, err := NewItem(1, "Lens", d("2"), d("50"), d("10"), nil, d("18"))
	require.NoError(t, err)

	assert.Equal(t, "90", item.Subtotal.String())
	assert.Equal(t, "16.2", item.TaxAmount.String())
	assert.Equal(t, "106.2", item.Total().String())
}

func TestNewItem_ZeroRateIsUntaxed(t *testing.T) {
	item, err := NewItem(1, "Lens", d("1"), d("100"), decimal.Zero, nil, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, item.TaxAmount.IsZero())
	assert.Equal(t, "100", item.Total().String())
}

func TestNewItem_Validation(t *testing.T) {
	_, err := NewItem(1, "x", d("-1"), d("1"), decimal.Zero, nil, decimal.Zero)
	assert.Error(t, err)

	_, err = NewItem(1, "x", d("1"), d("1"), d("101"), nil, decimal.Zero)
	assert.Error(t, err)
}

func TestInvoice_RecalculateIgnoresSourceTotal(t *testing.T) {
	inv, err := NewInvoice(uuid.New(), 1, "B0100000001", 1, 1, time.Now())
	require.NoError(t, err)
	inv.Total = d("999.99")

	item1, err := NewItem(1, "a", d("2"), d("10"), d("0"), nil, d("18"))
	require.NoError(t, err)
	item2, err := NewItem(2, "b", d("3"), d("15.5"), d("20"), nil, d("18"))
	require.NoError(t, err)

	inv.AddItem(item1)
	inv.AddItem(item2)

	// item1: 20 + 3.60 ; item2: 46.5 * 0.8 = 37.2, tax 6.70 (6.696 rounded)
	expected := d("20").Add(d("3.60")).Add(d("37.2")).Add(d("6.70"))
	assert.True(t, expected.Equal(inv.Total), "total %s", inv.Total)
	assert.Equal(t, "66.5", inv.Subtotal.String())
	assert.Equal(t, "9.3", inv.DiscountTotal.String())
	assert.Equal(t, "10.3", inv.TaxTotal.String())

	sum := decimal.Zero
	for _, it := range inv.Items {
		sum = sum.Add(it.Quantity.Mul(it.UnitPrice).Mul(decimal.NewFromInt(1).Sub(it.Discount.Div(d("100")))).Add(it.TaxAmount))
	}
	assert.True(t, sum.Round(2).Equal(inv.Total))
}

func TestInvoice_SetDueDate(t *testing.T) {
	issue := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	inv, err := NewInvoice(uuid.New(), 1, "B01", 1, 1, issue)
	require.NoError(t, err)

	assert.Error(t, inv.SetDueDate(issue.AddDate(0, 0, -1)))
	require.NoError(t, inv.SetDueDate(issue.AddDate(0, 1, 0)))
	assert.NotNil(t, inv.DueDate)
}

func TestSubtypeMap_Resolve(t *testing.T) {
	m := SubtypeMap{"B01": 1, "B02": 2, "B0": 9, "E31": 31}

	tests := []struct {
		doc    string
		want   int64
		wantOK bool
	}{
		{"B0100000001", 1, true},
		{"b0200000001", 2, true},
		{"B0400000001", 9, true},
		{"E310000000001", 31, true},
		{"X0100000001", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := m.Resolve(tt.doc)
		assert.Equal(t, tt.wantOK, ok, tt.doc)
		assert.Equal(t, tt.want, got, tt.doc)
	}
}
