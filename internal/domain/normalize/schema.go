package normalize

import (
	"strings"

	"github.com/FACorreiaa/ledger-triage/internal/domain/extract"
)

// Logical fields that only come from hints or category-specific extraction.
const (
	FieldPaymentMethod   = "payment_method"
	FieldBusinessPurpose = "business_purpose"
	FieldInvoiceNumber   = "invoice_number"
	FieldCustomer        = "customer"
	FieldMiles           = "miles"
	FieldRatePerMile     = "rate_per_mile"
	FieldFrom            = "from_location"
	FieldTo              = "to_location"
	FieldPolicyType      = "policy_type"
	FieldCoveragePeriod  = "coverage_period"
	FieldFeeType         = "fee_type"
	FieldAccount         = "account"
	FieldMarketingType   = "marketing_type"
	FieldProductLine     = "product_line"
)

const (
	PlaceholderNotSupplied = "Not supplied in image"
	PlaceholderParseError  = "Could not parse from image - manual review needed"
	PlaceholderVeryLowConf = "Low confidence extraction - needs manual review"
	PlaceholderLowConf     = "Low confidence - extracted but may be inaccurate"
	PlaceholderPoorOCR     = "OCR quality too low - field not in image or unreadable"
)

type columnMapping struct {
	field string
	owner string // category that owns the column, empty for shared columns
}

func (m columnMapping) ownedBy(category string) bool {
	return m.owner == "" || m.owner == category
}

// columnFields maps every known column name to the logical field it carries.
var columnFields = map[string]columnMapping{
	"Date":                 {field: extract.FieldDate},
	"Amount":               {field: extract.FieldAmount},
	"Vendor":               {field: extract.FieldVendor},
	"Vendor/Supplier":      {field: extract.FieldVendor},
	"Vendor/Payee":         {field: extract.FieldVendor},
	"Vendor/Provider":      {field: extract.FieldVendor},
	"Vendor/Platform":      {field: extract.FieldVendor},
	"Description":          {field: extract.FieldDescription},
	"Item/Description":     {field: extract.FieldDescription},
	"Service/Description":  {field: extract.FieldDescription},
	"Campaign/Description": {field: extract.FieldDescription},
	"Payment Method":       {field: FieldPaymentMethod},
	"Business Purpose":     {field: FieldBusinessPurpose},
	"Invoice #":            {field: FieldInvoiceNumber},
	"Customer/Source":      {field: FieldCustomer},

	"Miles":                 {field: FieldMiles, owner: "Transportation"},
	"Rate/Mile":             {field: FieldRatePerMile, owner: "Transportation"},
	"From":                  {field: FieldFrom, owner: "Transportation"},
	"To":                    {field: FieldTo, owner: "Transportation"},
	"Insurance Company":     {field: extract.FieldVendor, owner: "Insurance"},
	"Policy Type":           {field: FieldPolicyType, owner: "Insurance"},
	"Coverage Period":       {field: FieldCoveragePeriod, owner: "Insurance"},
	"Financial Institution": {field: extract.FieldVendor, owner: "Bank Fees"},
	"Fee Type":              {field: FieldFeeType, owner: "Bank Fees"},
	"Account":               {field: FieldAccount, owner: "Bank Fees"},
	"Marketing Type":        {field: FieldMarketingType, owner: "Marketing"},
	"Product Line":          {field: FieldProductLine, owner: "COGS"},
}

// explain returns the placeholder text for an empty column, given the row's confidences and flags.
func explain(r Row, column string) string {
	m, ok := columnFields[column]
	if !ok || !m.ownedBy(r.category) {
		return PlaceholderNotSupplied
	}

	var conf float64
	switch m.field {
	case extract.FieldDate:
		conf = r.conf.Date
	case extract.FieldAmount:
		conf = r.conf.Amount
	case extract.FieldVendor:
		conf = r.conf.Vendor
	default:
		return PlaceholderNotSupplied
	}

	switch {
	case hasFlagPrefix(r.flags, "parse_error:"+m.field):
		return PlaceholderParseError
	case conf > 0 && conf < 0.50:
		return PlaceholderVeryLowConf
	case contains(r.flags, "low_conf:"+m.field):
		return PlaceholderLowConf
	case r.conf.OCR < 0.50:
		return PlaceholderPoorOCR
	default:
		return PlaceholderNotSupplied
	}
}

func hasFlagPrefix(flags []string, prefix string) bool {
	for _, f := range flags {
		if strings.HasPrefix(f, prefix) {
			return true
		}
	}
	return false
}

func kindLabel(k extract.Kind) string {
	switch k {
	case extract.KindCheck:
		return "Check"
	case extract.KindStatement:
		return "Statement line"
	default:
		return "Receipt"
	}
}
