// Package export renders sales reports as spreadsheets and CSV.
package export

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/sales"
)

// Sheet names used by the workbooks.
const (
	QuotationsSheet = "Cotizaciones"
	AdoptionsSheet  = "Adopciones"
)

// QuotationHeaders is the column layout of the quotation report.
var QuotationHeaders = []string{
	"EMPRESA", "NIVEL", "GRADO", "ÁREA", "SERIE", "DESCRIPCIÓN COMPLETA",
	"TIPO DE INV", "SOPORTE", "PVP 2026 CON IGV", "DESC PROVEEDOR",
	"PRECIO PROVEEDOR", "TIPO DE VENTA", "PRECIO BE", "PRECIO IE",
	"PRECIO CONSIGNA", "PRECIO COORDINADO", "PRECIO PP.FF. (FERIA -PV)",
	"DESC CONSIGNA", "COMISIÓN", "UTILIDAD IE", "ROI X PROD. (PRECIO IE)",
	"ROI X PROD. (PRECIO CONSIGNA)", "ASESOR", "INSTITUCIÓN", "FECHA",
}

// AdoptionHeaders is the column layout of the adoption report.
var AdoptionHeaders = []string{
	"N° COTIZACIÓN", "INSTITUCIÓN", "ASESOR", "LIBRO", "EMPRESA",
	"NIVEL", "GRADO", "ÁREA", "CANTIDAD ADOPTADA", "MES DE LECTURA",
}

var hundred = decimal.NewFromInt(100)

// percent renders a stored fraction as a 0-100 figure.
func percent(d decimal.Decimal) decimal.Decimal {
	return pricing.Round2(d.Mul(hundred))
}

func formatDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("02/01/2006")
}

// QuotationRecord maps a report row onto QuotationHeaders. Columns that do
// not apply to the line's sale type are nil.
func QuotationRecord(row sales.QuotationReportRow) []any {
	d := row.Derived
	var (
		institutional, coordinator, roiDirect     any
		consignment, coordinated, consignDiscount any
		roiConsignment, institutionalProfit       any
	)
	switch d.SaleType {
	case pricing.SaleTypeConsignment:
		consignment = d.ConsignmentPrice
		coordinated = d.CoordinatedPrice
		consignDiscount = percent(row.Inputs.ConsignmentDiscount)
		roiConsignment = d.ROIPercent
		institutionalProfit = d.InstitutionalProfit
	default:
		institutional = d.InstitutionalPrice
		coordinator = d.CoordinatorPrice
		roiDirect = d.ROIPercent
		if row.Inputs.HasCeiling {
			institutionalProfit = d.InstitutionalProfit
		}
	}
	return []any{
		row.Editorial, row.Level, row.Grade, row.Area, row.Series, row.ProductName,
		row.InventoryType, row.Medium, row.ListPrice, percent(row.Inputs.ProviderDiscount),
		d.ProviderPrice, string(d.SaleType), d.BasePrice, institutional,
		consignment, coordinated, coordinator,
		consignDiscount, row.Inputs.Commission, institutionalProfit, roiDirect,
		roiConsignment, row.AdvisorName, row.InstitutionName, formatDate(row.CreatedAt),
	}
}

// AdoptionRecord maps a report row onto AdoptionHeaders.
func AdoptionRecord(row sales.AdoptionReportRow) []any {
	return []any{
		row.QuotationNumber, row.InstitutionName, row.AdvisorName, row.ProductName, row.Editorial,
		row.Level, row.Grade, row.Area, row.Quantity, string(row.ReadingMonth),
	}
}

// cellValue prepares a record value for a spreadsheet cell: nil becomes an
// empty cell and negative numbers become 0.
func cellValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case decimal.Decimal:
		if x.IsNegative() {
			return 0
		}
		return x.InexactFloat64()
	case int:
		if x < 0 {
			return 0
		}
		return x
	default:
		return v
	}
}

// textValue renders a record value for CSV with the same rules as cellValue.
func textValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case decimal.Decimal:
		if x.IsNegative() {
			x = decimal.Zero
		}
		return x.StringFixed(2)
	case int:
		if x < 0 {
			x = 0
		}
		return strconv.Itoa(x)
	case string:
		return x
	default:
		return ""
	}
}
