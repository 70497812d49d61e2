package importapp

import (
	"context"
	"strings"
	"testing"

	"github.com/erp/importer/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func takenSKUs(skus ...string) SKUExists {
	taken := make(map[string]bool, len(skus))
	for _, s := range skus {
		taken[s] = true
	}
	return func(_ context.Context, sku string) (bool, error) {
		return taken[sku], nil
	}
}

func TestNormalizeSKU(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"1.23E+09", "1230000000"},
		{"4.5e3", "4500"},
		{" ab-12 ", "AB-12"},
		{"LEN#001/A", "LEN001A"},
		{"--x--", "X"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSKU(tt.ref))
		})
	}
}

func TestGenerateSKU(t *testing.T) {
	ctx := context.Background()

	sku, err := GenerateSKU(ctx, "1.23E+09", "Lente", takenSKUs())
	require.NoError(t, err)
	assert.Equal(t, "1230000000", sku)

	sku, err = GenerateSKU(ctx, "1.23E+09", "Lente", takenSKUs("1230000000", "1230000000-1"))
	require.NoError(t, err)
	assert.Equal(t, "1230000000-2", sku)

	sku, err = GenerateSKU(ctx, "", "Gotas Lubricantes 10ml", takenSKUs())
	require.NoError(t, err)
	assert.Equal(t, "GOTAS-LUBRICANTES-10ML", sku)
}

func TestGenerateSKU_LongNameIsTruncated(t *testing.T) {
	name := strings.Repeat("montura ", 10)

	sku, err := GenerateSKU(context.Background(), "", name, takenSKUs())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(sku), catalog.MaxSKULength)
	assert.True(t, strings.HasSuffix(sku, "..."))
	assert.NotContains(t, sku, " ")
}

func TestGenerateSKU_SuffixKeepsLengthLimit(t *testing.T) {
	ref := strings.Repeat("A", catalog.MaxSKULength)

	sku, err := GenerateSKU(context.Background(), ref, "x", takenSKUs(ref))
	require.NoError(t, err)
	assert.Len(t, sku, catalog.MaxSKULength)
	assert.True(t, strings.HasSuffix(sku, "-1"))
}

func TestGenerateSKU_Empty(t *testing.T) {
	_, err := GenerateSKU(context.Background(), "", "", takenSKUs())
	assert.Error(t, err)
}
