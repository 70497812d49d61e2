package importapp

import (
	"strings"
	"time"

	"github.com/erp/importer/internal/domain/contact"
	"github.com/erp/importer/internal/domain/prescription"
	csvimport "github.com/erp/importer/internal/infrastructure/import"
	"github.com/shopspring/decimal"
)

// Record is a raw row bound to the layout of its entity type
type Record struct {
	Line   int
	row    *csvimport.Row
	mapper csvimport.RowMapper
}

// NewRecord binds a raw row to a mapper
func NewRecord(row *csvimport.Row, mapper csvimport.RowMapper) Record {
	return Record{Line: row.LineNumber, row: row, mapper: mapper}
}

// Value returns the raw cell of a logical field
func (r Record) Value(field string) string {
	v, _ := r.mapper.Value(r.row, field)
	return v
}

// Text returns the cleaned cell, empty when absent
func (r Record) Text(field string) string {
	v, _ := csvimport.CleanString(r.Value(field))
	return v
}

// Contact layout fields
const (
	FieldName                 = "name"
	FieldIdentificationNumber = "identification_number"
	FieldIdentificationType   = "identification_type"
	FieldPhone                = "phone"
	FieldPhone2               = "phone2"
	FieldMobile               = "mobile"
	FieldFax                  = "fax"
	FieldEmail                = "email"
	FieldType                 = "type"
	FieldObservations         = "observations"
	FieldCreditLimit          = "credit_limit"
)

// ContactLayout maps contact exports. Positions follow the legacy
// headerless export.
var ContactLayout = csvimport.Layout{
	{Field: FieldName, Aliases: []string{"nombre", "razon social", "cliente"}, Position: 0},
	{Field: FieldIdentificationNumber, Aliases: []string{"rnc", "cedula", "rnc/cedula", "identificacion", "documento"}, Position: 1},
	{Field: FieldPhone, Aliases: []string{"telefono", "tel", "telefono 1"}, Position: 2},
	{Field: FieldPhone2, Aliases: []string{"telefono 2", "tel 2", "telefono2"}, Position: 3},
	{Field: FieldMobile, Aliases: []string{"celular", "movil"}, Position: 4},
	{Field: FieldFax, Aliases: []string{"fax"}, Position: 5},
	{Field: FieldEmail, Aliases: []string{"correo", "e-mail", "correo electronico"}, Position: 6},
	{Field: FieldType, Aliases: []string{"tipo", "tipo contacto"}, Position: 7},
	{Field: FieldObservations, Aliases: []string{"observaciones", "notas", "notes"}, Position: 8},
	{Field: FieldCreditLimit, Aliases: []string{"limite de credito", "limite credito", "credito"}, Position: 9},
	{Field: FieldIdentificationType, Aliases: []string{"tipo identificacion", "tipo documento"}, Position: 10},
}

// ContactRow is a cleaned contact row
type ContactRow struct {
	Line                 int
	Name                 string
	IdentificationType   string
	IdentificationNumber string
	Phone                string
	Phone2               string
	Mobile               string
	Fax                  string
	Email                string
	Type                 contact.ContactType
	Observations         string
	CreditLimit          decimal.Decimal
}

// ParseContactRow cleans a contact record. Invalid phones and emails are
// dropped, never rejected.
func ParseContactRow(rec Record) ContactRow {
	row := ContactRow{
		Line:         rec.Line,
		Name:         rec.Text(FieldName),
		Type:         ParseContactType(rec.Text(FieldType)),
		Observations: rec.Text(FieldObservations),
		CreditLimit:  csvimport.CleanAmount(rec.Value(FieldCreditLimit)),
	}
	row.IdentificationNumber, _ = csvimport.CleanIdentification(rec.Value(FieldIdentificationNumber))
	row.IdentificationType = strings.ToUpper(rec.Text(FieldIdentificationType))
	if row.IdentificationType == "" && row.IdentificationNumber != "" {
		row.IdentificationType = IdentificationType(row.IdentificationNumber)
	}
	row.Phone, _ = csvimport.CleanPhone(rec.Value(FieldPhone))
	row.Phone2, _ = csvimport.CleanPhone(rec.Value(FieldPhone2))
	row.Mobile, _ = csvimport.CleanPhone(rec.Value(FieldMobile))
	row.Fax, _ = csvimport.CleanPhone(rec.Value(FieldFax))
	row.Email, _ = csvimport.CleanEmail(rec.Value(FieldEmail))
	return row
}

// ParseContactType maps English and Spanish labels, defaulting to customer
func ParseContactType(s string) contact.ContactType {
	switch csvimport.FoldHeader(s) {
	case "optometrist", "optometra", "optometrista", "doctor":
		return contact.ContactTypeOptometrist
	case "supplier", "proveedor", "suplidor":
		return contact.ContactTypeSupplier
	}
	return contact.ContactTypeCustomer
}

// Invoice layout fields
const (
	FieldDocumentNumber = "document_number"
	FieldIssueDate      = "issue_date"
	FieldDueDate        = "due_date"
	FieldCustomerRNC    = "customer_rnc"
	FieldCustomerName   = "customer_name"
	FieldProductRef     = "product_ref"
	FieldDescription    = "description"
	FieldQuantity       = "quantity"
	FieldUnitPrice      = "unit_price"
	FieldDiscount       = "discount"
	FieldTaxName        = "tax_name"
	FieldTaxRate        = "tax_rate"
	FieldTaxAmount      = "tax_amount"
	FieldStatus         = "status"
	FieldNotes          = "notes"
)

// InvoiceLayout maps invoice line exports, one row per item
var InvoiceLayout = csvimport.Layout{
	{Field: FieldDocumentNumber, Aliases: []string{"ncf", "numero", "factura", "comprobante", "no factura"}, Position: 0},
	{Field: FieldIssueDate, Aliases: []string{"fecha", "fecha emision"}, Position: 1},
	{Field: FieldDueDate, Aliases: []string{"vencimiento", "fecha vencimiento"}, Position: 2},
	{Field: FieldCustomerRNC, Aliases: []string{"rnc", "rnc cliente", "cedula"}, Position: 3},
	{Field: FieldCustomerName, Aliases: []string{"cliente", "nombre cliente", "razon social"}, Position: 4},
	{Field: FieldProductRef, Aliases: []string{"referencia", "codigo", "sku"}, Position: 5},
	{Field: FieldDescription, Aliases: []string{"descripcion", "producto", "articulo"}, Position: 6},
	{Field: FieldQuantity, Aliases: []string{"cantidad", "cant"}, Position: 7},
	{Field: FieldUnitPrice, Aliases: []string{"precio", "precio unitario"}, Position: 8},
	{Field: FieldDiscount, Aliases: []string{"descuento", "desc"}, Position: 9},
	{Field: FieldTaxName, Aliases: []string{"impuesto"}, Position: 10},
	{Field: FieldTaxRate, Aliases: []string{"tasa", "tasa impuesto"}, Position: 11},
	{Field: FieldTaxAmount, Aliases: []string{"itbis", "monto impuesto"}, Position: 12},
	{Field: FieldStatus, Aliases: []string{"estado"}, Position: 13},
	{Field: FieldNotes, Aliases: []string{"notas", "observaciones"}, Position: 14},
}

// InvoiceRow is one cleaned invoice line
type InvoiceRow struct {
	Line           int
	DocumentNumber string
	IssueDate      *time.Time
	DueDate        *time.Time
	CustomerRNC    string
	CustomerName   string
	ProductRef     string
	Description    string
	Quantity       decimal.Decimal
	UnitPrice      decimal.Decimal
	Discount       decimal.Decimal
	TaxName        string
	TaxRate        decimal.Decimal
	// TaxAmount is nil when the source leaves it out
	TaxAmount *decimal.Decimal
	Status    string
	Notes     string
}

// ParseInvoiceRow cleans an invoice record. A missing quantity counts as one.
func ParseInvoiceRow(rec Record, dates *csvimport.DateParser) InvoiceRow {
	row := InvoiceRow{
		Line:           rec.Line,
		DocumentNumber: strings.ToUpper(rec.Text(FieldDocumentNumber)),
		CustomerName:   rec.Text(FieldCustomerName),
		ProductRef:     rec.Text(FieldProductRef),
		Description:    rec.Text(FieldDescription),
		Quantity:       csvimport.CleanAmount(rec.Value(FieldQuantity)),
		UnitPrice:      csvimport.CleanAmount(rec.Value(FieldUnitPrice)),
		Discount:       csvimport.CleanAmount(rec.Value(FieldDiscount)),
		TaxName:        rec.Text(FieldTaxName),
		TaxRate:        csvimport.CleanAmount(rec.Value(FieldTaxRate)),
		Status:         rec.Text(FieldStatus),
		Notes:          rec.Text(FieldNotes),
	}
	row.CustomerRNC, _ = csvimport.CleanIdentification(rec.Value(FieldCustomerRNC))
	if row.Quantity.IsZero() {
		row.Quantity = decimal.NewFromInt(1)
	}
	if t, ok := dates.Parse(rec.Value(FieldIssueDate)); ok {
		row.IssueDate = &t
	}
	if t, ok := dates.Parse(rec.Value(FieldDueDate)); ok {
		row.DueDate = &t
	}
	if _, present := csvimport.CleanString(rec.Value(FieldTaxAmount)); present {
		amount := csvimport.CleanAmount(rec.Value(FieldTaxAmount))
		row.TaxAmount = &amount
	}
	return row
}

// Prescription layout fields
const (
	FieldExternalRef       = "external_ref"
	FieldPatientName       = "patient_name"
	FieldPatientID         = "patient_id_number"
	FieldOptometristName   = "optometrist_name"
	FieldIssuedAt          = "issued_at"
	FieldOdSphere          = "od_sphere"
	FieldOdCylinder        = "od_cylinder"
	FieldOdAxis            = "od_axis"
	FieldOdAdd             = "od_add"
	FieldOsSphere          = "os_sphere"
	FieldOsCylinder        = "os_cylinder"
	FieldOsAxis            = "os_axis"
	FieldOsAdd             = "os_add"
	FieldPupillaryDistance = "pupillary_distance"
	FieldLensType          = "lens_type"
	FieldDrops             = "drops"
	FieldFrame             = "frame"
	FieldTreatment         = "treatment"
)

// PrescriptionLayout maps optical prescription exports
var PrescriptionLayout = csvimport.Layout{
	{Field: FieldExternalRef, Aliases: []string{"numero", "receta", "no receta", "id"}, Position: 0},
	{Field: FieldPatientName, Aliases: []string{"paciente", "nombre paciente"}, Position: 1},
	{Field: FieldPatientID, Aliases: []string{"cedula", "cedula paciente"}, Position: 2},
	{Field: FieldOptometristName, Aliases: []string{"optometra", "optometrista", "doctor"}, Position: 3},
	{Field: FieldIssuedAt, Aliases: []string{"fecha"}, Position: 4},
	{Field: FieldOdSphere, Aliases: []string{"od esfera", "esfera od"}, Position: 5},
	{Field: FieldOdCylinder, Aliases: []string{"od cilindro", "cilindro od"}, Position: 6},
	{Field: FieldOdAxis, Aliases: []string{"od eje", "eje od"}, Position: 7},
	{Field: FieldOdAdd, Aliases: []string{"od adicion", "adicion od"}, Position: 8},
	{Field: FieldOsSphere, Aliases: []string{"oi esfera", "esfera oi", "os esfera"}, Position: 9},
	{Field: FieldOsCylinder, Aliases: []string{"oi cilindro", "cilindro oi", "os cilindro"}, Position: 10},
	{Field: FieldOsAxis, Aliases: []string{"oi eje", "eje oi", "os eje"}, Position: 11},
	{Field: FieldOsAdd, Aliases: []string{"oi adicion", "adicion oi", "os adicion"}, Position: 12},
	{Field: FieldPupillaryDistance, Aliases: []string{"dp", "distancia pupilar"}, Position: 13},
	{Field: FieldLensType, Aliases: []string{"tipo lente", "lente"}, Position: 14},
	{Field: FieldDrops, Aliases: []string{"gotas"}, Position: 15},
	{Field: FieldFrame, Aliases: []string{"montura", "aro"}, Position: 16},
	{Field: FieldTreatment, Aliases: []string{"tratamiento"}, Position: 17},
	{Field: FieldNotes, Aliases: []string{"observaciones", "notas"}, Position: 18},
}

// tagFields pairs each master table tag with its column
var tagFields = []struct {
	Field string
	Tag   prescription.Tag
}{
	{FieldLensType, prescription.TagLensType},
	{FieldDrops, prescription.TagDrops},
	{FieldFrame, prescription.TagFrame},
	{FieldTreatment, prescription.TagTreatment},
}

// PrescriptionRow is a cleaned prescription row
type PrescriptionRow struct {
	Line              int
	ExternalRef       string
	PatientName       string
	PatientID         string
	OptometristName   string
	IssuedAt          *time.Time
	OdSphere          *string
	OdCylinder        *string
	OdAxis            *string
	OdAdd             *string
	OsSphere          *string
	OsCylinder        *string
	OsAxis            *string
	OsAdd             *string
	PupillaryDistance *string
	// Tagged holds the master table item names keyed by tag
	Tagged map[prescription.Tag]string
	Notes  string
}

// ParsePrescriptionRow cleans a prescription record
func ParsePrescriptionRow(rec Record, dates *csvimport.DateParser) PrescriptionRow {
	refraction := func(field string) *string {
		v, ok := csvimport.CleanRefraction(rec.Value(field))
		if !ok {
			return nil
		}
		return &v
	}

	row := PrescriptionRow{
		Line:              rec.Line,
		ExternalRef:       rec.Text(FieldExternalRef),
		PatientName:       rec.Text(FieldPatientName),
		OptometristName:   rec.Text(FieldOptometristName),
		OdSphere:          refraction(FieldOdSphere),
		OdCylinder:        refraction(FieldOdCylinder),
		OdAxis:            refraction(FieldOdAxis),
		OdAdd:             refraction(FieldOdAdd),
		OsSphere:          refraction(FieldOsSphere),
		OsCylinder:        refraction(FieldOsCylinder),
		OsAxis:            refraction(FieldOsAxis),
		OsAdd:             refraction(FieldOsAdd),
		PupillaryDistance: refraction(FieldPupillaryDistance),
		Tagged:            make(map[prescription.Tag]string),
		Notes:             rec.Text(FieldNotes),
	}
	row.PatientID, _ = csvimport.CleanIdentification(rec.Value(FieldPatientID))
	if t, ok := dates.Parse(rec.Value(FieldIssuedAt)); ok {
		row.IssuedAt = &t
	}
	for _, tf := range tagFields {
		if v := rec.Text(tf.Field); v != "" {
			row.Tagged[tf.Tag] = v
		}
	}
	return row
}

// Product layout fields
const (
	FieldRef   = "ref"
	FieldPrice = "price"
)

// ProductLayout maps product catalog exports
var ProductLayout = csvimport.Layout{
	{Field: FieldRef, Aliases: []string{"referencia", "codigo", "sku", "reference"}, Position: 0},
	{Field: FieldName, Aliases: []string{"nombre", "descripcion", "producto"}, Position: 1},
	{Field: FieldPrice, Aliases: []string{"precio", "precio venta"}, Position: 2},
	{Field: FieldTaxName, Aliases: []string{"impuesto"}, Position: 3},
	{Field: FieldTaxRate, Aliases: []string{"tasa", "tasa impuesto", "itbis"}, Position: 4},
}

// ProductRow is a cleaned product row
type ProductRow struct {
	Line    int
	Ref     string
	Name    string
	Price   decimal.Decimal
	TaxName string
	TaxRate decimal.Decimal
}

// ParseProductRow cleans a product record
func ParseProductRow(rec Record) ProductRow {
	return ProductRow{
		Line:    rec.Line,
		Ref:     rec.Text(FieldRef),
		Name:    rec.Text(FieldName),
		Price:   csvimport.CleanAmount(rec.Value(FieldPrice)),
		TaxName: rec.Text(FieldTaxName),
		TaxRate: csvimport.CleanAmount(rec.Value(FieldTaxRate)),
	}
}
