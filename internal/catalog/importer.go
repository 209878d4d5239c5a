package catalog

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/shared"
)

// Import column headers in their canonical order.
const (
	ColEditorial = "EDITORIAL"
	ColCode      = "CODIGO"
	ColName      = "NOMBRE"
	ColLevel     = "NIVEL"
	ColGrade     = "GRADO"
	ColArea      = "AREA"
	ColSeries    = "SERIE"
	ColType      = "TIPO"
	ColMedium    = "SOPORTE"
	ColListPrice = "PVP"
	ColDiscount  = "DESCUENTO"
)

// ImportHeaders is the header row expected on the first sheet.
var ImportHeaders = []string{
	ColEditorial, ColCode, ColName, ColLevel, ColGrade, ColArea,
	ColSeries, ColType, ColMedium, ColListPrice, ColDiscount,
}

var requiredHeaders = []string{ColEditorial, ColCode, ColName, ColListPrice}

// ParseWorkbook reads catalog rows from the first sheet of an .xlsx document.
// Rows lacking editorial or code are returned as skipped.
func ParseWorkbook(r io.Reader) ([]ImportRow, []SkippedRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: catalog: open workbook: %v", shared.ErrInvalidInput, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("%w: catalog: workbook has no sheets", shared.ErrInvalidInput)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: catalog: sheet %q is empty", shared.ErrInvalidInput, sheet)
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		key := strings.ReplaceAll(shared.FoldKey(h), "_", "")
		if _, dup := index[key]; !dup && key != "" {
			index[key] = i
		}
	}
	var missing []string
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("%w: catalog: missing columns %s", shared.ErrInvalidInput, strings.Join(missing, ", "))
	}

	var (
		parsed  []ImportRow
		skipped []SkippedRow
	)
	for n, cells := range rows[1:] {
		line := n + 2
		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(cells) {
				return ""
			}
			return strings.TrimSpace(cells[i])
		}
		if blank(cells) {
			continue
		}
		row := ImportRow{
			Line:             line,
			Editorial:        cell(ColEditorial),
			Code:             cell(ColCode),
			Name:             cell(ColName),
			Level:            strings.ToUpper(cell(ColLevel)),
			Grade:            cell(ColGrade),
			Area:             cell(ColArea),
			Series:           cell(ColSeries),
			InventoryType:    cell(ColType),
			Medium:           cell(ColMedium),
			ListPrice:        pricing.Money(cell(ColListPrice)),
			ProviderDiscount: pricing.NormalizePercent(cell(ColDiscount)),
		}
		switch {
		case row.Editorial == "":
			skipped = append(skipped, SkippedRow{Line: line, Reason: "missing editorial"})
		case row.Code == "":
			skipped = append(skipped, SkippedRow{Line: line, Reason: "missing code"})
		default:
			parsed = append(parsed, row)
		}
	}
	return parsed, skipped, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
