package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/pricing"
)

// ReportFilter narrows report queries. Zero values are unbounded.
type ReportFilter struct {
	InstitutionID int64
	AdvisorID     int64
	From          time.Time
	To            time.Time
}

// QuotationReportRow is one quotation line joined with its product and header.
type QuotationReportRow struct {
	QuotationNumber string
	CreatedAt       time.Time
	InstitutionName string
	AdvisorName     string
	Editorial       string
	Level           string
	Grade           string
	Area            string
	Series          string
	ProductName     string
	InventoryType   string
	Medium          string
	ListPrice       decimal.Decimal
	Quantity        int
	Inputs          pricing.Inputs
	Derived         pricing.Derived
}

// AdoptionReportRow is one adoption line joined with its quotation and product.
type AdoptionReportRow struct {
	QuotationNumber string
	InstitutionName string
	AdvisorName     string
	ProductName     string
	Editorial       string
	Level           string
	Grade           string
	Area            string
	Quantity        int
	ReadingMonth    ReadingMonth
}

func reportWhere(filter ReportFilter, start int) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, start+len(args)-1))
	}
	if filter.InstitutionID > 0 {
		add("q.institution_id = $%d", filter.InstitutionID)
	}
	if filter.AdvisorID > 0 {
		add("q.advisor_id = $%d", filter.AdvisorID)
	}
	if !filter.From.IsZero() {
		add("q.created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("q.created_at < $%d", filter.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// QuotationReport lists every quotation line matching filter, oldest first.
func (r *Repository) QuotationReport(ctx context.Context, filter ReportFilter) ([]QuotationReportRow, error) {
	where, args := reportWhere(filter, 1)
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(q.number, ''), q.created_at, i.name, a.name,
		e.name, p.level, p.grade, p.area, p.series, p.name, p.inventory_type, p.medium, p.list_price,
		l.quantity, l.sale_type, l.base_price, l.provider_discount, l.institutional_discount,
		l.consignment_discount, l.commission, l.ceiling_price,
		l.provider_price, l.institutional_discount_amount, l.institutional_price, l.coordinator_price,
		l.consignment_price, l.coordinated_price, l.unit_profit, l.institutional_profit, l.roi_percent, l.roi_amount
		FROM quotation_lines l
		JOIN quotations q ON q.id = l.quotation_id
		JOIN institutions i ON i.id = q.institution_id
		JOIN advisors a ON a.id = q.advisor_id
		JOIN products p ON p.id = l.product_id
		JOIN editorials e ON e.id = p.editorial_id`+where+`
		ORDER BY q.created_at, q.id, l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: quotation report: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (QuotationReportRow, error) {
		var (
			out     QuotationReportRow
			ceiling decimal.NullDecimal
		)
		err := row.Scan(&out.QuotationNumber, &out.CreatedAt, &out.InstitutionName, &out.AdvisorName,
			&out.Editorial, &out.Level, &out.Grade, &out.Area, &out.Series, &out.ProductName,
			&out.InventoryType, &out.Medium, &out.ListPrice,
			&out.Quantity, &out.Derived.SaleType, &out.Inputs.BasePrice, &out.Inputs.ProviderDiscount,
			&out.Inputs.InstitutionalDiscount, &out.Inputs.ConsignmentDiscount, &out.Inputs.Commission, &ceiling,
			&out.Derived.ProviderPrice, &out.Derived.InstitutionalDiscountAmount, &out.Derived.InstitutionalPrice,
			&out.Derived.CoordinatorPrice, &out.Derived.ConsignmentPrice, &out.Derived.CoordinatedPrice,
			&out.Derived.UnitProfit, &out.Derived.InstitutionalProfit, &out.Derived.ROIPercent, &out.Derived.ROIAmount)
		if ceiling.Valid {
			out.Inputs.CeilingPrice = ceiling.Decimal
			out.Inputs.HasCeiling = true
		}
		out.Derived.BasePrice = out.Inputs.BasePrice
		return out, err
	})
}

// AdoptionReport lists every adoption line matching filter.
func (r *Repository) AdoptionReport(ctx context.Context, filter ReportFilter) ([]AdoptionReportRow, error) {
	where, args := reportWhere(filter, 1)
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(q.number, ''), i.name, a.name, p.name, e.name,
		p.level, p.grade, p.area, al.quantity, al.reading_month
		FROM adoption_lines al
		JOIN adoptions ad ON ad.id = al.adoption_id
		JOIN quotations q ON q.id = ad.quotation_id
		JOIN institutions i ON i.id = q.institution_id
		JOIN advisors a ON a.id = q.advisor_id
		JOIN products p ON p.id = al.product_id
		JOIN editorials e ON e.id = p.editorial_id`+where+`
		ORDER BY ad.id, al.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("sales: adoption report: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (AdoptionReportRow, error) {
		var out AdoptionReportRow
		err := row.Scan(&out.QuotationNumber, &out.InstitutionName, &out.AdvisorName, &out.ProductName,
			&out.Editorial, &out.Level, &out.Grade, &out.Area, &out.Quantity, &out.ReadingMonth)
		return out, err
	})
}
