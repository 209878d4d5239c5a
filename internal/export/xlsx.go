package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/bookexpress/cotizador/internal/sales"
)

// XLSXContentType is the MIME type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name    string
	headers []string
	records [][]any
	width   float64
}

func quotationSheet(rows []sales.QuotationReportRow) sheet {
	records := make([][]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, QuotationRecord(row))
	}
	return sheet{name: QuotationsSheet, headers: QuotationHeaders, records: records, width: 20}
}

func adoptionSheet(rows []sales.AdoptionReportRow) sheet {
	records := make([][]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, AdoptionRecord(row))
	}
	return sheet{name: AdoptionsSheet, headers: AdoptionHeaders, records: records, width: 25}
}

// WriteQuotationsXLSX writes the quotation report workbook.
func WriteQuotationsXLSX(w io.Writer, rows []sales.QuotationReportRow) error {
	return writeWorkbook(w, quotationSheet(rows))
}

// WriteAdoptionsXLSX writes the adoption report workbook.
func WriteAdoptionsXLSX(w io.Writer, rows []sales.AdoptionReportRow) error {
	return writeWorkbook(w, adoptionSheet(rows))
}

// WriteGeneralXLSX writes both reports into one workbook.
func WriteGeneralXLSX(w io.Writer, quotations []sales.QuotationReportRow, adoptions []sales.AdoptionReportRow) error {
	q, a := quotationSheet(quotations), adoptionSheet(adoptions)
	q.width, a.width = 22, 22
	return writeWorkbook(w, q, a)
}

func writeWorkbook(w io.Writer, sheets ...sheet) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("export: add sheet %s: %w", s.name, err)
		}
		if err := writeSheet(f, s, style); err != nil {
			return fmt.Errorf("export: sheet %s: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeSheet(f *excelize.File, s sheet, headerStyle int) error {
	header := make([]any, len(s.headers))
	for i, h := range s.headers {
		header[i] = h
	}
	if err := f.SetSheetRow(s.name, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(s.headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, record := range s.records {
		cells := make([]any, len(record))
		for j, v := range record {
			cells[j] = cellValue(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(s.name, cell, &cells); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(s.headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(s.name, "A", lastCol, s.width)
}
