package importapp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/erp/importer/internal/domain/catalog"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

var scientificRef = regexp.MustCompile(`^[+-]?\d+(\.\d+)?[eE][+-]?\d+$`)

// SKUExists reports whether a SKU is already taken
type SKUExists func(ctx context.Context, sku string) (bool, error)

// GenerateSKU derives a unique SKU from a product reference, falling back
// to the product name. Spreadsheet exports turn long numeric references
// into scientific notation, so "1.23E+09" becomes "1230000000".
func GenerateSKU(ctx context.Context, ref, name string, exists SKUExists) (string, error) {
	base := baseSKU(ref, name)
	if base == "" {
		return "", fmt.Errorf("cannot derive a SKU from reference %q and name %q", ref, name)
	}

	candidate := base
	for n := 1; ; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix := fmt.Sprintf("-%d", n)
		if len(base)+len(suffix) > catalog.MaxSKULength {
			candidate = base[:catalog.MaxSKULength-len(suffix)] + suffix
		} else {
			candidate = base + suffix
		}
	}
}

// NormalizeSKU cleans a reference into SKU form without de-duplicating it
func NormalizeSKU(ref string) string {
	ref = strings.TrimSpace(ref)
	if scientificRef.MatchString(ref) {
		if d, err := decimal.NewFromString(ref); err == nil {
			ref = d.Truncate(0).String()
		}
	}

	var b strings.Builder
	for _, r := range ref {
		if catalog.IsSKURune(r) {
			b.WriteRune(r)
		}
	}
	return strings.ToUpper(strings.Trim(b.String(), "-_"))
}

// baseSKU is the SKU GenerateSKU starts from before de-duplication
func baseSKU(ref, name string) string {
	base := NormalizeSKU(ref)
	if base == "" || len(base) > catalog.MaxSKULength {
		base = skuFromName(name)
	}
	return base
}

func skuFromName(name string) string {
	s := strings.ToUpper(slug.Make(name))
	if len(s) > catalog.MaxSKULength {
		s = strings.TrimRight(s[:catalog.MaxSKULength-3], "-") + "..."
	}
	return s
}
