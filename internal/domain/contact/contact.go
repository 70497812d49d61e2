package contact

import (
	"strings"
	"time"
	"unicode"

	"github.com/erp/importer/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContactType represents the role a contact plays for the business
type ContactType string

const (
	ContactTypeCustomer    ContactType = "customer"
	ContactTypeOptometrist ContactType = "optometrist"
	ContactTypeSupplier    ContactType = "supplier"
)

// IsValid checks if the contact type is valid
func (t ContactType) IsValid() bool {
	switch t {
	case ContactTypeCustomer, ContactTypeOptometrist, ContactTypeSupplier:
		return true
	}
	return false
}

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Contact is a customer, optometrist or supplier of a workspace
type Contact struct {
	shared.TenantEntity
	WorkspaceID          int64
	Name                 string
	IdentificationType   string
	IdentificationNumber string
	Phone                string
	Phone2               string
	Mobile               string
	Fax                  string
	Email                string
	Type                 ContactType
	Status               string
	Observations         string
	CreditLimit          decimal.Decimal
	Metadata             map[string]string
}

// NewContact creates a new active contact
func NewContact(tenantID uuid.UUID, workspaceID int64, name string, contactType ContactType) (*Contact, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Contact name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Contact name cannot exceed 200 characters")
	}
	if !contactType.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONTACT_TYPE", "Invalid contact type: "+string(contactType))
	}

	return &Contact{
		TenantEntity: shared.NewTenantEntity(tenantID),
		WorkspaceID:  workspaceID,
		Name:         name,
		Type:         contactType,
		Status:       StatusActive,
		CreditLimit:  decimal.Zero,
		Metadata:     make(map[string]string),
	}, nil
}

// SetIdentification sets the identification document of the contact
func (c *Contact) SetIdentification(idType, number string) {
	c.IdentificationType = idType
	c.IdentificationNumber = number
	c.UpdatedAt = time.Now()
}

// SetPhones sets the phone-like fields, empty values are kept empty
func (c *Contact) SetPhones(phone, phone2, mobile, fax string) {
	c.Phone = phone
	c.Phone2 = phone2
	c.Mobile = mobile
	c.Fax = fax
	c.UpdatedAt = time.Now()
}

// SetCreditLimit sets the credit limit, negative values are rejected
func (c *Contact) SetCreditLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_CREDIT_LIMIT", "Credit limit cannot be negative")
	}
	c.CreditLimit = limit
	c.UpdatedAt = time.Now()
	return nil
}

// PhoneFields returns the four phone-like values in a fixed order
func (c *Contact) PhoneFields() []string {
	return []string{c.Phone, c.Phone2, c.Mobile, c.Fax}
}

// NormalizeName lowercases the name and removes all whitespace so that
// "Juan  Perez" and "juan perez" share one key.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NormalizeEmail lowercases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PhoneDigits returns only the digits of a phone value
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
