package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// RawInputs carries per-item values as the caller received them.
// Each field accepts numbers, numeric strings (optionally suffixed with "%"),
// decimal values or nil.
type RawInputs struct {
	BasePrice             any `json:"base_price,omitempty"`
	ProviderDiscount      any `json:"provider_discount,omitempty"`
	InstitutionalDiscount any `json:"institutional_discount,omitempty"`
	ConsignmentDiscount   any `json:"consignment_discount,omitempty"`
	Commission            any `json:"commission,omitempty"`
	CeilingPrice          any `json:"ceiling_price,omitempty"`
}

func (r RawInputs) value(f Field) any {
	switch f {
	case FieldBasePrice:
		return r.BasePrice
	case FieldProviderDiscount:
		return r.ProviderDiscount
	case FieldInstitutionalDiscount:
		return r.InstitutionalDiscount
	case FieldConsignmentDiscount:
		return r.ConsignmentDiscount
	case FieldCommission:
		return r.Commission
	case FieldCeilingPrice:
		return r.CeilingPrice
	}
	return nil
}

// Inputs are normalised pricing inputs. Discounts are fractions in [0, 1].
type Inputs struct {
	BasePrice             decimal.Decimal `json:"base_price"`
	ProviderDiscount      decimal.Decimal `json:"provider_discount"`
	InstitutionalDiscount decimal.Decimal `json:"institutional_discount"`
	ConsignmentDiscount   decimal.Decimal `json:"consignment_discount"`
	Commission            decimal.Decimal `json:"commission"`
	CeilingPrice          decimal.Decimal `json:"ceiling_price"`
	HasCeiling            bool            `json:"has_ceiling"`
}

func (in *Inputs) set(f Field, d decimal.Decimal) {
	switch f {
	case FieldBasePrice:
		in.BasePrice = d
	case FieldProviderDiscount:
		in.ProviderDiscount = d
	case FieldInstitutionalDiscount:
		in.InstitutionalDiscount = d
	case FieldConsignmentDiscount:
		in.ConsignmentDiscount = d
	case FieldCommission:
		in.Commission = d
	case FieldCeilingPrice:
		in.CeilingPrice = d
	}
}

// Derived holds every computed monetary field of a line item.
type Derived struct {
	SaleType                    SaleType        `json:"sale_type"`
	BasePrice                   decimal.Decimal `json:"base_price"`
	ProviderPrice               decimal.Decimal `json:"provider_price"`
	InstitutionalDiscountAmount decimal.Decimal `json:"institutional_discount_amount"`
	InstitutionalPrice          decimal.Decimal `json:"institutional_price"`
	CoordinatorPrice            decimal.Decimal `json:"coordinator_price"`
	ConsignmentPrice            decimal.Decimal `json:"consignment_price"`
	CoordinatedPrice            decimal.Decimal `json:"coordinated_price"`
	// UnitProfit is coordinator (or coordinated) price minus provider price.
	UnitProfit decimal.Decimal `json:"unit_profit"`
	// InstitutionalProfit is ceiling minus institutional price for direct sales
	// and base minus consignment price for consignment.
	InstitutionalProfit decimal.Decimal `json:"institutional_profit"`
	ROIPercent          decimal.Decimal `json:"roi_percent"`
	// ROIAmount is the legacy currency-valued ROI and always equals UnitProfit.
	ROIAmount decimal.Decimal `json:"roi_amount"`
}

// MarshalJSON renders every amount with two decimals.
func (d Derived) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SaleType                    SaleType `json:"sale_type"`
		BasePrice                   string   `json:"base_price"`
		ProviderPrice               string   `json:"provider_price"`
		InstitutionalDiscountAmount string   `json:"institutional_discount_amount"`
		InstitutionalPrice          string   `json:"institutional_price"`
		CoordinatorPrice            string   `json:"coordinator_price"`
		ConsignmentPrice            string   `json:"consignment_price"`
		CoordinatedPrice            string   `json:"coordinated_price"`
		UnitProfit                  string   `json:"unit_profit"`
		InstitutionalProfit         string   `json:"institutional_profit"`
		ROIPercent                  string   `json:"roi_percent"`
		ROIAmount                   string   `json:"roi_amount"`
	}{
		SaleType:                    d.SaleType,
		BasePrice:                   cents(d.BasePrice),
		ProviderPrice:               cents(d.ProviderPrice),
		InstitutionalDiscountAmount: cents(d.InstitutionalDiscountAmount),
		InstitutionalPrice:          cents(d.InstitutionalPrice),
		CoordinatorPrice:            cents(d.CoordinatorPrice),
		ConsignmentPrice:            cents(d.ConsignmentPrice),
		CoordinatedPrice:            cents(d.CoordinatedPrice),
		UnitProfit:                  cents(d.UnitProfit),
		InstitutionalProfit:         cents(d.InstitutionalProfit),
		ROIPercent:                  cents(d.ROIPercent),
		ROIAmount:                   cents(d.ROIAmount),
	})
}

func cents(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// NetPrice is the per-unit price that counts toward a quotation total.
func (d Derived) NetPrice() decimal.Decimal {
	if d.SaleType == SaleTypeConsignment {
		for _, candidate := range []decimal.Decimal{d.CoordinatedPrice, d.ConsignmentPrice, d.BasePrice} {
			if !candidate.IsZero() {
				return candidate
			}
		}
		return zero
	}
	return d.InstitutionalPrice
}

// SubtotalPrice is the per-unit price summed into a batch subtotal.
func (d Derived) SubtotalPrice() decimal.Decimal {
	if d.SaleType == SaleTypeConsignment {
		return d.ConsignmentPrice
	}
	return d.InstitutionalPrice
}

// Normalize runs the single coercion pass for st over raw.
func Normalize(st SaleType, raw RawInputs) (Inputs, error) {
	cfg, err := ConfigFor(st)
	if err != nil {
		return Inputs{}, err
	}
	var in Inputs
	for _, spec := range cfg.Fields {
		v := raw.value(spec.Field)
		if Absent(v) {
			in.set(spec.Field, spec.Default)
			continue
		}
		d, ok := toDecimal(v)
		if !ok {
			d = zero
		}
		switch spec.Kind {
		case KindPercent:
			d = normalizeFraction(d)
		default:
			d = nonNegative(Round2(d))
		}
		in.set(spec.Field, d)
		if spec.Field == FieldCeilingPrice {
			in.HasCeiling = true
		}
	}
	return in, nil
}

// ComputeLineItem parses the sale-type tag and computes the derived fields.
func ComputeLineItem(tag string, raw RawInputs) (Derived, error) {
	st, err := ParseSaleType(tag)
	if err != nil {
		return Derived{}, err
	}
	return Compute(st, raw)
}

// Compute normalises raw and computes the derived fields for st.
func Compute(st SaleType, raw RawInputs) (Derived, error) {
	in, err := Normalize(st, raw)
	if err != nil {
		return Derived{}, err
	}
	return ComputeNormalized(st, in)
}

// ComputeNormalized computes the derived fields from already normalised inputs.
func ComputeNormalized(st SaleType, in Inputs) (Derived, error) {
	cfg, err := ConfigFor(st)
	if err != nil {
		return Derived{}, err
	}
	if !cfg.MaxConsignmentDiscount.IsZero() && in.ConsignmentDiscount.GreaterThan(cfg.MaxConsignmentDiscount) {
		return Derived{}, invalid(string(FieldConsignmentDiscount), in.ConsignmentDiscount.Mul(hundred).String()+"%",
			"must not exceed "+cfg.MaxConsignmentDiscount.Mul(hundred).String()+"%")
	}

	base := nonNegative(Round2(in.BasePrice))
	out := Derived{
		SaleType:      st,
		BasePrice:     base,
		ProviderPrice: nonNegative(Round2(base.Mul(one.Sub(in.ProviderDiscount)))),
	}

	var margin decimal.Decimal
	switch st {
	case SaleTypeDirectFair:
		out.InstitutionalDiscountAmount = Round2(base.Mul(in.InstitutionalDiscount))
		out.InstitutionalPrice = Round2(base.Sub(out.InstitutionalDiscountAmount))
		out.CoordinatorPrice = Round2(out.InstitutionalPrice.Sub(in.Commission))
		margin = Round2(out.CoordinatorPrice.Sub(out.ProviderPrice))
		if in.HasCeiling {
			out.InstitutionalProfit = nonNegative(Round2(in.CeilingPrice.Sub(out.InstitutionalPrice)))
		}
	case SaleTypeConsignment:
		out.ConsignmentPrice = nonNegative(Round2(base.Mul(one.Sub(in.ConsignmentDiscount))))
		out.CoordinatedPrice = nonNegative(Round2(out.ConsignmentPrice.Sub(in.Commission)))
		margin = Round2(out.CoordinatedPrice.Sub(out.ProviderPrice))
		out.InstitutionalProfit = nonNegative(Round2(base.Sub(out.ConsignmentPrice)))
	}

	out.UnitProfit = nonNegative(margin)
	out.ROIAmount = out.UnitProfit
	if out.ProviderPrice.IsPositive() {
		out.ROIPercent = nonNegative(Round2(margin.Mul(hundred).Div(out.ProviderPrice)))
	}
	return out, nil
}
