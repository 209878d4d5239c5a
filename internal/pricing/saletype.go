package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/shared"
)

// SaleType selects the commercial mode a line item is priced under.
type SaleType string

const (
	SaleTypeDirectFair  SaleType = "DIRECT_FAIR"
	SaleTypeConsignment SaleType = "CONSIGNMENT"
)

var saleTypeAliases = map[string]SaleType{
	"DIRECT_FAIR":    SaleTypeDirectFair,
	"PV":             SaleTypeDirectFair,
	"PUNTO_DE_VENTA": SaleTypeDirectFair,
	"FERIA":          SaleTypeDirectFair,
	"CONSIGNMENT":    SaleTypeConsignment,
	"CONSIGNA":       SaleTypeConsignment,
}

// ParseSaleType resolves a sale-type tag including the legacy synonyms.
func ParseSaleType(tag string) (SaleType, error) {
	if st, ok := saleTypeAliases[shared.FoldKey(tag)]; ok {
		return st, nil
	}
	return "", invalid("sale_type", tag, "unrecognized sale type")
}

// Valid reports whether st is a canonical sale type.
func (st SaleType) Valid() bool {
	return st == SaleTypeDirectFair || st == SaleTypeConsignment
}

// Field names a raw pricing input.
type Field string

const (
	FieldBasePrice             Field = "base_price"
	FieldProviderDiscount      Field = "provider_discount"
	FieldInstitutionalDiscount Field = "institutional_discount"
	FieldConsignmentDiscount   Field = "consignment_discount"
	FieldCommission            Field = "commission"
	FieldCeilingPrice          Field = "ceiling_price"
)

// FieldKind selects how a raw value is coerced.
type FieldKind int

const (
	KindMoney FieldKind = iota + 1
	KindPercent
)

// FieldSpec describes one input accepted by a sale type.
//
// A missing value takes Default. A value that is present but not numeric
// is rejected for required fields and coerced to zero for optional ones.
type FieldSpec struct {
	Field    Field
	Kind     FieldKind
	Required bool
	Default  decimal.Decimal
}

// SaleTypeConfig lists the inputs a sale type reads. Inputs not listed are ignored.
type SaleTypeConfig struct {
	SaleType SaleType
	Fields   []FieldSpec
	// MaxConsignmentDiscount caps the consignment discount fraction; zero disables the cap.
	MaxConsignmentDiscount decimal.Decimal
}

var saleTypeConfigs = map[SaleType]SaleTypeConfig{
	SaleTypeDirectFair: {
		SaleType: SaleTypeDirectFair,
		Fields: []FieldSpec{
			{Field: FieldBasePrice, Kind: KindMoney, Required: true},
			{Field: FieldProviderDiscount, Kind: KindPercent, Required: true},
			{Field: FieldInstitutionalDiscount, Kind: KindPercent, Default: decimal.RequireFromString("0.20")},
			{Field: FieldCommission, Kind: KindMoney},
			{Field: FieldCeilingPrice, Kind: KindMoney},
		},
	},
	SaleTypeConsignment: {
		SaleType: SaleTypeConsignment,
		Fields: []FieldSpec{
			{Field: FieldBasePrice, Kind: KindMoney, Required: true},
			{Field: FieldProviderDiscount, Kind: KindPercent, Required: true},
			{Field: FieldConsignmentDiscount, Kind: KindPercent, Required: true},
			{Field: FieldCommission, Kind: KindMoney},
		},
		MaxConsignmentDiscount: decimal.RequireFromString("0.50"),
	},
}

// ConfigFor returns the input configuration for st.
func ConfigFor(st SaleType) (SaleTypeConfig, error) {
	cfg, ok := saleTypeConfigs[st]
	if !ok {
		return SaleTypeConfig{}, invalid("sale_type", string(st), "unrecognized sale type")
	}
	return cfg, nil
}
