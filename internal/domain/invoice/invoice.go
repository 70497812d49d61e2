package invoice

import (
	"strings"
	"time"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the payment status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// IsValid checks if the status is valid
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusCancelled:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Invoice is a fiscal document with its line items.
// Totals are always derived from the items.
type Invoice struct {
	shared.TenantEntity
	WorkspaceID    int64
	DocumentNumber string
	SubtypeID      int64
	ContactID      int64
	IssueDate      time.Time
	DueDate        *time.Time
	Status         InvoiceStatus
	Subtotal       decimal.Decimal
	DiscountTotal  decimal.Decimal
	TaxTotal       decimal.Decimal
	Total          decimal.Decimal
	Notes          string
	CreatedBy      int64
	Items          []*Item
}

// Item is one invoice line
type Item struct {
	shared.BaseEntity
	InvoiceID   int64
	ProductID   int64
	TaxID       *int64
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal // percent
	TaxAmount   decimal.Decimal
	Subtotal    decimal.Decimal
}

// NewInvoice creates an issued invoice without items
func NewInvoice(tenantID uuid.UUID, workspaceID int64, documentNumber string, subtypeID, contactID int64, issueDate time.Time) (*Invoice, error) {
	documentNumber = strings.TrimSpace(documentNumber)
	if documentNumber == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT_NUMBER", "Document number cannot be empty")
	}
	if contactID == 0 {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Invoice requires a contact")
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	return &Invoice{
		TenantEntity:   shared.NewTenantEntity(tenantID),
		WorkspaceID:    workspaceID,
		DocumentNumber: documentNumber,
		SubtypeID:      subtypeID,
		ContactID:      contactID,
		IssueDate:      issueDate,
		Status:         InvoiceStatusIssued,
		Subtotal:       decimal.Zero,
		DiscountTotal:  decimal.Zero,
		TaxTotal:       decimal.Zero,
		Total:          decimal.Zero,
		Items:          make([]*Item, 0),
	}, nil
}

// NewItem creates an invoice line. The tax amount is always taxRate over
// the discounted line; a zero rate leaves the line untaxed.
func NewItem(productID int64, description string, quantity, unitPrice, discount decimal.Decimal, taxID *int64, taxRate decimal.Decimal) (*Item, error) {
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if discount.IsNegative() || discount.GreaterThan(hundred) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between 0 and 100")
	}

	item := &Item{
		BaseEntity:  shared.NewBaseEntity(),
		ProductID:   productID,
		TaxID:       taxID,
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Discount:    discount,
	}
	item.Subtotal = item.Net()
	item.TaxAmount = item.Subtotal.Mul(taxRate).Div(hundred).Round(2)
	return item, nil
}

// Gross returns quantity * unit price
func (i *Item) Gross() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPrice)
}

// Net returns quantity * unit price * (1 - discount/100)
func (i *Item) Net() decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(i.Discount.Div(hundred))
	return i.Gross().Mul(factor)
}

// Total returns the net line amount plus tax
func (i *Item) Total() decimal.Decimal {
	return i.Net().Add(i.TaxAmount)
}

// AddItem appends a line and recalculates totals
func (inv *Invoice) AddItem(item *Item) {
	inv.Items = append(inv.Items, item)
	inv.Recalculate()
}

// Recalculate derives subtotal, discount, tax and total from the items.
// Any total supplied by the source data is overwritten.
func (inv *Invoice) Recalculate() {
	subtotal := decimal.Zero
	discount := decimal.Zero
	tax := decimal.Zero
	total := decimal.Zero

	for _, item := range inv.Items {
		gross := item.Gross()
		net := item.Net()
		subtotal = subtotal.Add(gross)
		discount = discount.Add(gross.Sub(net))
		tax = tax.Add(item.TaxAmount)
		total = total.Add(item.Total())
	}

	inv.Subtotal = subtotal.Round(2)
	inv.DiscountTotal = discount.Round(2)
	inv.TaxTotal = tax.Round(2)
	inv.Total = total.Round(2)
	inv.UpdatedAt = time.Now()
}

// SetDueDate sets the due date, which cannot precede the issue date
func (inv *Invoice) SetDueDate(due time.Time) error {
	if due.Before(inv.IssueDate) {
		return shared.NewDomainError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}
	inv.DueDate = &due
	return nil
}

// SetStatus changes the status
func (inv *Invoice) SetStatus(status InvoiceStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Invalid invoice status: "+string(status))
	}
	inv.Status = status
	return nil
}
