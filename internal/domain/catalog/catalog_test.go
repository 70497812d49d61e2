package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProduct(t *testing.T) {
	tenantID := uuid.New()

	p, err := NewProduct(tenantID, "abc-1", "Lens", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "ABC-1", p.SKU)
	assert.Equal(t, ProductStatusActive, p.Status)

	_, err = NewProduct(tenantID, "", "Lens", decimal.Zero)
	assert.Error(t, err)

	_, err = NewProduct(tenantID, "A B", "Lens", decimal.Zero)
	assert.Error(t, err)

	_, err = NewProduct(tenantID, "ABC", "Lens", decimal.NewFromInt(-1))
	assert.Error(t, err)
}

func TestNewTax(t *testing.T) {
	tenantID := uuid.New()

	tax, err := NewTax(tenantID, "ITBIS", decimal.Zero, DefaultTaxRate)
	require.NoError(t, err)
	assert.True(t, tax.Rate.Equal(decimal.NewFromInt(18)))

	tax, err = NewTax(tenantID, "ITBIS 16", decimal.NewFromInt(16), DefaultTaxRate)
	require.NoError(t, err)
	assert.True(t, tax.Rate.Equal(decimal.NewFromInt(16)))

	_, err = NewTax(tenantID, "", decimal.Zero, DefaultTaxRate)
	assert.Error(t, err)
}

func TestTax_AmountFor(t *testing.T) {
	tax := &Tax{Rate: decimal.NewFromInt(18)}
	assert.Equal(t, "18", tax.AmountFor(decimal.NewFromInt(100)).String())
	assert.Equal(t, "1.8", tax.AmountFor(decimal.NewFromInt(10)).String())
}
