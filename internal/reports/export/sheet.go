package export

import (
	"fmt"
	"io"
	"time"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates a format name. An empty name selects XLSX.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "":
		return FormatXLSX, nil
	case FormatCSV, FormatXLSX, FormatPDF:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Column describes one column of a table
type Column struct {
	Key   string
	Label string
}

// Table is a named grid of values keyed by column
type Table struct {
	Name    string
	Columns []Column
	Rows    []map[string]any
}

func (t Table) keys() []string {
	keys := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		keys[i] = c.Key
	}
	return keys
}

func (t Table) labels() []string {
	labels := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		labels[i] = c.Label
	}
	return labels
}

// Field is a labelled value of the sheet summary
type Field struct {
	Label string
	Value any
}

// Sheet is a printable snapshot: a summary block followed by tables
type Sheet struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Summary     []Field
	Tables      []Table
}

// Render writes the sheet to w in the given format
func Render(w io.Writer, format Format, sheet Sheet) error {
	switch format {
	case FormatCSV:
		return NewCSVExporter(w, DefaultCSVOptions()).WriteSheet(sheet)
	case FormatXLSX:
		exporter := NewExcelExporter(DefaultExcelOptions())
		defer exporter.Close()
		if err := exporter.WriteSheet(sheet); err != nil {
			return err
		}
		return exporter.WriteTo(w)
	case FormatPDF:
		generator := NewPDFGenerator(DefaultPDFOptions())
		if err := generator.WriteSheet(sheet); err != nil {
			return err
		}
		return generator.WriteTo(w)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}
