package catalog

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bookexpress/cotizador/internal/shared"
)

func workbook(t *testing.T, header []any, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func canonicalHeader() []any {
	out := make([]any, len(ImportHeaders))
	for i, h := range ImportHeaders {
		out[i] = h
	}
	return out
}

func TestParseWorkbookReadsRows(t *testing.T) {
	data := workbook(t, canonicalHeader(),
		[]any{"Santillana", "SAN-001", "Matemática 1", "primaria", "1", "Matemática", "Aprender", "LIBRO", "IMPRESO", "120.50", "36%"},
		[]any{"SM", "SM-9", "Comunicación 2", "secundaria", "2", "Comunicación", "", "", "", 80, 0.25},
	)

	rows, skipped, err := ParseWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "Santillana", first.Editorial)
	assert.Equal(t, "SAN-001", first.Code)
	assert.Equal(t, "PRIMARIA", first.Level)
	assert.True(t, first.ListPrice.Equal(decimal.RequireFromString("120.50")))
	assert.True(t, first.ProviderDiscount.Equal(decimal.RequireFromString("0.36")))

	second := rows[1]
	assert.True(t, second.ListPrice.Equal(decimal.NewFromInt(80)))
	assert.True(t, second.ProviderDiscount.Equal(decimal.RequireFromString("0.25")))
}

func TestParseWorkbookMatchesAccentedHeaders(t *testing.T) {
	header := []any{"Editorial", "Código", "Nombre", "Nivel", "Grado", "Área", "Serie", "Tipo", "Soporte", "pvp", "Descuento"}
	data := workbook(t, header, []any{"Norma", "N-1", "Ciencia", "inicial", "3", "Ciencia", "", "", "", "50", "10"})

	rows, _, err := ParseWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "N-1", rows[0].Code)
	assert.Equal(t, "Ciencia", rows[0].Area)
	assert.True(t, rows[0].ProviderDiscount.Equal(decimal.RequireFromString("0.1")))
}

func TestParseWorkbookSkipsRowsWithoutKeys(t *testing.T) {
	data := workbook(t, canonicalHeader(),
		[]any{"", "X-1", "Sin editorial"},
		[]any{"SM", "", "Sin código"},
		[]any{},
		[]any{"SM", "SM-1", "Válido", "", "", "", "", "", "", "10"},
	)

	rows, skipped, err := ParseWorkbook(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SM-1", rows[0].Code)
	assert.Equal(t, []SkippedRow{
		{Line: 2, Reason: "missing editorial"},
		{Line: 3, Reason: "missing code"},
	}, skipped)
}

func TestParseWorkbookRejectsMissingColumns(t *testing.T) {
	data := workbook(t, []any{"EDITORIAL", "NOMBRE"}, []any{"SM", "Libro"})

	_, _, err := ParseWorkbook(bytes.NewReader(data))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Contains(t, err.Error(), "CODIGO")
	assert.Contains(t, err.Error(), "PVP")
}

func TestParseWorkbookRejectsGarbage(t *testing.T) {
	_, _, err := ParseWorkbook(bytes.NewReader([]byte("not a workbook")))
	require.ErrorIs(t, err, shared.ErrInvalidInput)
}
