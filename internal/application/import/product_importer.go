package importapp

import (
	"context"
	"fmt"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/contact"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
)

// ProductHandler imports the product catalog. A row whose SKU is already
// held by a product of the same name is a duplicate; a SKU held by a
// different product gets a numeric suffix instead.
type ProductHandler struct{}

// NewProductHandler creates a new ProductHandler
func NewProductHandler() *ProductHandler {
	return &ProductHandler{}
}

// Entity implements Handler
func (h *ProductHandler) Entity() bulk.ImportEntityType { return bulk.ImportEntityProducts }

// Layout implements Handler
func (h *ProductHandler) Layout() csvimport.Layout { return ProductLayout }

// Required implements Handler
func (h *ProductHandler) Required() []string { return []string{FieldName} }

// Handle implements RowHandler
func (h *ProductHandler) Handle(ctx context.Context, run *Run, repos Repositories, rec Record) RowResult {
	row := ParseProductRow(rec)
	if row.Name == "" {
		return Skip(ReasonMissingProductName, "product name is empty")
	}

	base := baseSKU(row.Ref, row.Name)
	existing, err := run.Resolver.FindProductBySKU(ctx, repos, base)
	if err != nil {
		return persistFailure("look up product", err)
	}
	if existing != nil && contact.NormalizeName(existing.Name) == contact.NormalizeName(row.Name) {
		return SkipValue(ReasonDuplicateSKU, FieldRef, base,
			fmt.Sprintf("product %q already exists (id %d)", row.Name, existing.ID))
	}

	tax, err := resolveRowTax(ctx, run, repos, row.TaxName, row.TaxRate)
	if err != nil {
		return persistFailure("resolve tax", err)
	}
	var taxID *int64
	if tax != nil {
		taxID = &tax.ID
	}

	if _, err := run.Resolver.CreateProduct(ctx, repos, row.Ref, row.Name, row.Price, taxID); err != nil {
		return persistFailure("save product", err)
	}
	return Ok()
}
