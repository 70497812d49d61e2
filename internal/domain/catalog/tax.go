package catalog

import (
	"strings"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is applied when an imported row names a tax without a rate
var DefaultTaxRate = decimal.NewFromInt(18)

// Tax is a named percentage applied to invoice lines
type Tax struct {
	shared.TenantEntity
	Name string
	Rate decimal.Decimal
}

// NewTax creates a new tax. A zero or negative rate is replaced by fallback.
func NewTax(tenantID uuid.UUID, name string, rate, fallback decimal.Decimal) (*Tax, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tax name cannot be empty")
	}
	if !rate.IsPositive() {
		rate = fallback
	}
	if rate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Tax rate cannot exceed 100")
	}
	return &Tax{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Name:         name,
		Rate:         rate,
	}, nil
}

// AmountFor returns the tax owed on a net amount, rounded to 2 places
func (t *Tax) AmountFor(net decimal.Decimal) decimal.Decimal {
	return net.Mul(t.Rate).Div(decimal.NewFromInt(100)).Round(2)
}
