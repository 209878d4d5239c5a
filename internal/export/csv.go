package export

import (
	"encoding/csv"
	"io"

	"github.com/bookexpress/cotizador/internal/sales"
)

// CSVContentType is the MIME type of generated CSV files.
const CSVContentType = "text/csv; charset=utf-8"

// WriteQuotationsCSV emits the quotation report as CSV.
func WriteQuotationsCSV(w io.Writer, rows []sales.QuotationReportRow) error {
	records := make([][]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, QuotationRecord(row))
	}
	return writeCSV(w, QuotationHeaders, records)
}

// WriteAdoptionsCSV emits the adoption report as CSV.
func WriteAdoptionsCSV(w io.Writer, rows []sales.AdoptionReportRow) error {
	records := make([][]any, 0, len(rows))
	for _, row := range rows {
		records = append(records, AdoptionRecord(row))
	}
	return writeCSV(w, AdoptionHeaders, records)
}

func writeCSV(w io.Writer, headers []string, records [][]any) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return err
	}
	line := make([]string, len(headers))
	for _, record := range records {
		for i, v := range record {
			line[i] = textValue(v)
		}
		if err := writer.Write(line); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
