package perf

import (
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bookexpress/cotizador/internal/export"
	"github.com/bookexpress/cotizador/internal/pricing"
	"github.com/bookexpress/cotizador/internal/sales"
)

func batchItems(n int) []pricing.BatchItem {
	items := make([]pricing.BatchItem, n)
	for i := range items {
		items[i] = pricing.BatchItem{
			ProductID: int64(i + 1),
			Quantity:  10 + i%7,
			RawInputs: pricing.RawInputs{
				BasePrice:        fmt.Sprintf("%d.90", 50+i%40),
				ProviderDiscount: "30%",
				Commission:       "4.50",
			},
		}
	}
	return items
}

func BenchmarkComputeBatchDirect(b *testing.B) {
	items := batchItems(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pricing.ComputeBatch("FERIA", items); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComputeBatchConsignment(b *testing.B) {
	items := batchItems(200)
	for i := range items {
		items[i].ConsignmentDiscount = "0.25"
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := pricing.ComputeBatch("CONSIGNA", items); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkWriteGeneralWorkbook(b *testing.B) {
	raw := pricing.RawInputs{BasePrice: "100", ProviderDiscount: "0.30", Commission: "5"}
	inputs, err := pricing.Normalize(pricing.SaleTypeDirectFair, raw)
	if err != nil {
		b.Fatal(err)
	}
	derived, err := pricing.ComputeNormalized(pricing.SaleTypeDirectFair, inputs)
	if err != nil {
		b.Fatal(err)
	}
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	quotations := make([]sales.QuotationReportRow, 500)
	adoptions := make([]sales.AdoptionReportRow, 500)
	for i := range quotations {
		number := sales.FormatQuotationNumber(int64(i/10 + 1))
		quotations[i] = sales.QuotationReportRow{
			QuotationNumber: number,
			CreatedAt:       created,
			InstitutionName: "Colegio San Martín",
			AdvisorName:     "Ana Torres",
			Editorial:       "SANTILLANA",
			ProductName:     fmt.Sprintf("Libro %d", i),
			ListPrice:       decimal.NewFromInt(100),
			Quantity:        i % 30,
			Inputs:          inputs,
			Derived:         derived,
		}
		adoptions[i] = sales.AdoptionReportRow{
			QuotationNumber: number,
			InstitutionName: "Colegio San Martín",
			ProductName:     fmt.Sprintf("Libro %d", i),
			Quantity:        i % 30,
			ReadingMonth:    "MARZO",
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := export.WriteGeneralXLSX(io.Discard, quotations, adoptions); err != nil {
			b.Fatal(err)
		}
	}
}
