package importapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/importer/internal/domain/bulk"
	"github.com/erp/importer/internal/domain/catalog"
	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/invoice"
	"github.com/erp/importer/internal/domain/shared"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"github.com/erp/importer/internal/infrastructure/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoiceHandler imports invoices from one-row-per-item exports. Rows are
// grouped by document number over the whole file; the first row of a
// group supplies the header and every row becomes an item.
type InvoiceHandler struct {
	subtypes invoice.SubtypeMap
	groups   map[string]*invoiceGroup
	order    []string
}

type invoiceGroup struct {
	number string
	rows   []InvoiceRow
}

// NewInvoiceHandler creates a handler using the given prefix to subtype map
func NewInvoiceHandler(subtypes invoice.SubtypeMap) *InvoiceHandler {
	return &InvoiceHandler{
		subtypes: subtypes,
		groups:   make(map[string]*invoiceGroup),
	}
}

// Entity implements Handler
func (h *InvoiceHandler) Entity() bulk.ImportEntityType { return bulk.ImportEntityInvoices }

// Layout implements Handler
func (h *InvoiceHandler) Layout() csvimport.Layout { return InvoiceLayout }

// Required implements Handler
func (h *InvoiceHandler) Required() []string { return []string{FieldDocumentNumber} }

// Collect implements GroupHandler
func (h *InvoiceHandler) Collect(run *Run, rec Record) RowResult {
	row := ParseInvoiceRow(rec, run.Dates)
	if row.DocumentNumber == "" {
		return Skip(ReasonMissingDocumentNumber, "invoice line has no document number")
	}

	g, ok := h.groups[row.DocumentNumber]
	if !ok {
		g = &invoiceGroup{number: row.DocumentNumber}
		h.groups[row.DocumentNumber] = g
		h.order = append(h.order, row.DocumentNumber)
	}
	g.rows = append(g.rows, row)
	return Deferred()
}

// Units implements GroupHandler
func (h *InvoiceHandler) Units(run *Run) []Unit {
	units := make([]Unit, 0, len(h.order))
	for _, number := range h.order {
		g := h.groups[number]
		units = append(units, Unit{
			Line: g.rows[0].Line,
			Apply: func(ctx context.Context, repos Repositories) RowResult {
				return h.importGroup(ctx, run, repos, g)
			},
		})
	}
	return units
}

func (h *InvoiceHandler) importGroup(ctx context.Context, run *Run, repos Repositories, g *invoiceGroup) RowResult {
	head := g.rows[0]

	exists, err := repos.Invoices().ExistsByDocumentNumber(ctx, run.TenantID, g.number)
	if err != nil {
		return persistFailure("check document number", err)
	}
	if exists {
		return SkipValue(ReasonDuplicateDocument, FieldDocumentNumber, g.number, "invoice already imported")
	}

	subtypeID, ok := h.subtypes.Resolve(g.number)
	if !ok {
		return SkipValue(ReasonUnknownSubtype, FieldDocumentNumber, g.number, "no document subtype for this numbering prefix")
	}

	customer, res := h.resolveCustomer(ctx, run, repos, head)
	if customer == nil {
		return res
	}

	var issued time.Time
	if head.IssueDate != nil {
		issued = *head.IssueDate
	}
	inv, err := invoice.NewInvoice(run.TenantID, run.Workspace.ID, g.number, subtypeID, customer.ID, issued)
	if err != nil {
		return SkipValue(ReasonInvalidRow, FieldDocumentNumber, g.number, err.Error())
	}
	inv.CreatedBy = run.Creator.ID
	inv.Notes = head.Notes
	if head.DueDate != nil {
		if err := inv.SetDueDate(*head.DueDate); err != nil {
			logger.L(ctx).Debug("Ignoring due date", zap.String("document", g.number), zap.Error(err))
		}
	}
	if status, ok := ParseInvoiceStatus(head.Status); ok {
		if err := inv.SetStatus(status); err != nil {
			logger.L(ctx).Debug("Ignoring status", zap.String("document", g.number), zap.Error(err))
		}
	}

	for _, row := range g.rows {
		item, res := h.buildItem(ctx, run, repos, row)
		if item == nil {
			return res
		}
		inv.AddItem(item)
	}
	inv.Recalculate()

	if err := repos.Invoices().Create(ctx, inv); err != nil {
		return persistFailure("save invoice", err)
	}
	return Ok()
}

// resolveCustomer finds the invoice contact by RNC then name. A row with
// an RNC but no name takes the name from the taxpayer registry.
func (h *InvoiceHandler) resolveCustomer(ctx context.Context, run *Run, repos Repositories, head InvoiceRow) (*contact.Contact, RowResult) {
	name := head.CustomerName
	if name == "" && head.CustomerRNC != "" {
		entry, err := repos.Registry().FindByRNC(ctx, head.CustomerRNC)
		switch {
		case err == nil:
			name = entry.Name
		case errors.Is(err, shared.ErrNotFound):
			name = head.CustomerRNC
		default:
			return nil, persistFailure("look up taxpayer registry", err)
		}
	}
	if name == "" {
		return nil, SkipValue(ReasonInvalidRow, FieldCustomerName, "", "invoice has no customer")
	}

	c, _, err := run.Resolver.ResolveContact(ctx, repos, ContactQuery{
		WorkspaceID:          run.Workspace.ID,
		Name:                 name,
		IdentificationNumber: head.CustomerRNC,
		Type:                 contact.ContactTypeCustomer,
		AnyType:              true,
	})
	if err != nil {
		return nil, persistFailure("resolve customer", err)
	}
	return c, Ok()
}

func (h *InvoiceHandler) buildItem(ctx context.Context, run *Run, repos Repositories, row InvoiceRow) (*invoice.Item, RowResult) {
	name := row.Description
	if name == "" {
		name = row.ProductRef
	}
	if name == "" {
		return nil, SkipValue(ReasonInvalidRow, FieldDescription, "",
			fmt.Sprintf("line %d has no product reference or description", row.Line))
	}

	tax, err := resolveRowTax(ctx, run, repos, row.TaxName, row.TaxRate)
	if err != nil {
		return nil, persistFailure("resolve tax", err)
	}
	var (
		taxID   *int64
		taxRate = decimal.Zero
	)
	if tax != nil {
		taxID = &tax.ID
		taxRate = tax.Rate
	}

	product, _, err := run.Resolver.ResolveProduct(ctx, repos, ProductQuery{
		Ref:   row.ProductRef,
		Name:  name,
		Price: row.UnitPrice,
		TaxID: taxID,
	})
	if err != nil {
		return nil, persistFailure("resolve product", err)
	}

	item, err := invoice.NewItem(product.ID, name, row.Quantity, row.UnitPrice, row.Discount, taxID, taxRate)
	if err != nil {
		return nil, SkipValue(ReasonInvalidRow, FieldDiscount, row.Discount.String(),
			fmt.Sprintf("line %d: %v", row.Line, err))
	}
	// the source tax amount is informational; the stored rate wins
	if row.TaxAmount != nil && !row.TaxAmount.Equal(item.TaxAmount) {
		logger.L(ctx).Debug("Source tax amount differs from stored rate",
			zap.Int("line", row.Line),
			zap.String("source", row.TaxAmount.String()),
			zap.String("computed", item.TaxAmount.String()))
	}
	return item, Ok()
}

// resolveRowTax returns the tax of a row. No name and no rate means the
// line is untaxed; a rate without a name resolves a tax named after it.
func resolveRowTax(ctx context.Context, run *Run, repos Repositories, name string, rate decimal.Decimal) (*catalog.Tax, error) {
	if name == "" {
		if !rate.IsPositive() {
			return nil, nil
		}
		name = TaxNameForRate(rate)
	}
	tax, _, err := run.Resolver.ResolveTax(ctx, repos, name, rate)
	return tax, err
}

// TaxNameForRate names an unnamed tax after its rate, e.g. "ITBIS 18%"
func TaxNameForRate(rate decimal.Decimal) string {
	return fmt.Sprintf("ITBIS %s%%", rate.String())
}

// ParseInvoiceStatus maps English and Spanish status labels
func ParseInvoiceStatus(s string) (invoice.InvoiceStatus, bool) {
	switch csvimport.FoldHeader(s) {
	case "draft", "borrador":
		return invoice.InvoiceStatusDraft, true
	case "issued", "emitida", "pendiente", "pending":
		return invoice.InvoiceStatusIssued, true
	case "paid", "pagada", "pagado", "cobrada":
		return invoice.InvoiceStatusPaid, true
	case "cancelled", "canceled", "anulada", "cancelada":
		return invoice.InvoiceStatusCancelled, true
	}
	return "", false
}
