// Package report renders quotation and adoption documents as PDF.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/sales"
)

const companyName = "BookExpress"

var (
	titleText  = props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}
	headerCell = props.Text{Size: 8, Style: fontstyle.Bold}
	bodyCell   = props.Text{Size: 8}
	rightCell  = props.Text{Size: 8, Align: align.Right}
	totalCell  = props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
)

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Página {current} de {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func money(d decimal.Decimal) string {
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.StringFixed(2)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

func field(label, value string) core.Col {
	return col.New(6).Add(
		text.New(label, props.Text{Size: 8, Style: fontstyle.Bold}),
		text.New(value, props.Text{Size: 9, Top: 4}),
	)
}

// QuotationPDF renders a quotation with one row per line and its total.
func QuotationPDF(q sales.Quotation) ([]byte, error) {
	m := newDocument()

	m.AddRow(12,
		text.NewCol(8, companyName+" · Cotización "+q.Number, titleText),
		text.NewCol(4, date(q.CreatedAt), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(12, field("Institución", q.InstitutionName), field("Asesor", q.AdvisorName))
	m.AddRow(12, field("Tipo de venta", saleTypeLabel(q.SaleType)), field("Estado", string(q.Status)))
	if q.Notes != "" {
		m.AddRow(10, text.NewCol(12, q.Notes, bodyCell))
	}

	m.AddRow(8,
		text.NewCol(5, "Libro", headerCell),
		text.NewCol(1, "Cant.", props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "PVP", props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Precio neto", props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, "Importe", props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))
	for _, l := range q.Lines {
		m.AddRow(7,
			text.NewCol(5, l.ProductName, bodyCell),
			text.NewCol(1, strconv.Itoa(l.Quantity), rightCell),
			text.NewCol(2, money(l.Inputs.BasePrice), rightCell),
			text.NewCol(2, money(l.Derived.NetPrice()), rightCell),
			text.NewCol(2, money(l.LineTotal()), rightCell),
		)
	}
	m.AddRow(2, line.NewCol(12))
	m.AddRow(8,
		col.New(8),
		text.NewCol(2, "Total", totalCell),
		text.NewCol(2, money(q.Total), totalCell),
	)
	if q.RejectionReason != "" {
		m.AddRow(10, text.NewCol(12, "Motivo de rechazo: "+q.RejectionReason, bodyCell))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("report: render quotation %s: %w", q.Number, err)
	}
	return doc.GetBytes(), nil
}

// AdoptionPDF renders an adoption with adopted quantities and reading months.
func AdoptionPDF(a sales.Adoption) ([]byte, error) {
	m := newDocument()

	m.AddRow(12,
		text.NewCol(8, companyName+" · Adopción "+a.QuotationNumber, titleText),
		text.NewCol(4, date(a.CreatedAt), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(12, field("Institución", a.InstitutionName), field("Asesor", a.AdvisorName))
	m.AddRow(12, field("Modalidad", a.Modality), field("Firmas", signatures(a)))

	m.AddRow(8,
		text.NewCol(7, "Libro", headerCell),
		text.NewCol(2, "Cantidad", props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(3, "Mes de lectura", props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))
	for _, l := range a.Lines {
		m.AddRow(7,
			text.NewCol(7, l.ProductName, bodyCell),
			text.NewCol(2, strconv.Itoa(l.Quantity), rightCell),
			text.NewCol(3, string(l.ReadingMonth), rightCell),
		)
	}
	m.AddRow(2, line.NewCol(12))
	m.AddRow(8,
		col.New(7),
		text.NewCol(2, strconv.Itoa(a.TotalQuantity), totalCell),
		text.NewCol(3, "unidades", props.Text{Size: 9, Align: align.Right}),
	)
	if a.Notes != "" {
		m.AddRow(10, text.NewCol(12, a.Notes, bodyCell))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("report: render adoption %d: %w", a.ID, err)
	}
	return doc.GetBytes(), nil
}

func signatures(a sales.Adoption) string {
	switch {
	case a.DirectorSigned && a.AdvisorSigned:
		return "Director y asesor"
	case a.DirectorSigned:
		return "Director"
	case a.AdvisorSigned:
		return "Asesor"
	default:
		return "Pendiente"
	}
}

func saleTypeLabel(st pricing.SaleType) string {
	switch st {
	case pricing.SaleTypeConsignment:
		return "Consigna"
	case pricing.SaleTypeDirectFair:
		return "Punto de venta / Feria"
	default:
		return string(st)
	}
}
