package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleSheet() Sheet {
	closeDate := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	withdrawn := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	return Sheet{
		Title:       "Pasantías de verano",
		Subtitle:    "ACME SA - Universidad Nacional",
		GeneratedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		Summary: []Field{
			{Label: "Proyecto", Value: "Pasantías de verano"},
			{Label: "Cierre de postulaciones", Value: closeDate},
			{Label: "Apertura de postulaciones", Value: (*time.Time)(nil)},
		},
		Tables: []Table{
			{
				Name: "Puestos",
				Columns: []Column{
					{Key: "code", Label: "Código"},
					{Key: "vacancies", Label: "Vacantes"},
					{Key: "withdrawn", Label: "Fecha de baja"},
				},
				Rows: []map[string]any{
					{"code": "P0001", "vacancies": 3, "withdrawn": (*time.Time)(nil)},
					{"code": "P0002", "vacancies": 1, "withdrawn": &withdrawn},
				},
			},
			{
				Name:    "Requisitos",
				Columns: []Column{{Key: "career_code", Label: "Carrera"}},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("pdf")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestCSVExporterWritesBlocks(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatCSV, sampleSheet()))

	// blocks have different widths and are separated by blank lines
	r := csv.NewReader(bytes.NewReader(buf.Bytes()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 10)
	assert.Equal(t, []string{"Pasantías de verano"}, records[0])
	assert.Equal(t, []string{"Cierre de postulaciones", "2025-02-15"}, records[2])
	assert.Equal(t, []string{"Apertura de postulaciones", ""}, records[3])
	assert.Equal(t, []string{"Puestos"}, records[4])
	assert.Equal(t, []string{"Código", "Vacantes", "Fecha de baja"}, records[5])
	assert.Equal(t, []string{"P0001", "3", ""}, records[6])
	assert.Equal(t, []string{"P0002", "1", "2025-01-20"}, records[7])
	assert.Equal(t, []string{"Requisitos"}, records[8])
	assert.Equal(t, []string{"Carrera"}, records[9])
}

func TestExcelExporterWritesOneSheetPerTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatXLSX, sampleSheet()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Proyecto", "Puestos", "Requisitos"}, f.GetSheetList())

	title, err := f.GetCellValue("Proyecto", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Pasantías de verano", title)

	code, err := f.GetCellValue("Puestos", "A3")
	require.NoError(t, err)
	assert.Equal(t, "P0002", code)

	header, err := f.GetCellValue("Requisitos", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Carrera", header)
}

func TestPDFGeneratorProducesDocument(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatPDF, sampleSheet()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "corto", truncate("corto", 10))
	assert.Equal(t, "Diseña...", truncate("Diseñador UX/UI", 9))
}
