package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVExporter exports sheets to CSV. Each block (summary, tables) is preceded
// by a title row and followed by an empty row.
type CSVExporter struct {
	writer  *csv.Writer
	options CSVOptions
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter      rune   `json:"delimiter"`
	UseCRLF        bool   `json:"use_crlf"`
	DateFormat     string `json:"date_format"`
	NullValue      string `json:"null_value"`
	BoolTrueValue  string `json:"bool_true_value"`
	BoolFalseValue string `json:"bool_false_value"`
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:      ',',
		DateFormat:     "2006-01-02",
		NullValue:      "",
		BoolTrueValue:  "Sí",
		BoolFalseValue: "No",
	}
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	writer := csv.NewWriter(w)
	writer.Comma = options.Delimiter
	writer.UseCRLF = options.UseCRLF

	return &CSVExporter{
		writer:  writer,
		options: options,
	}
}

// WriteSheet writes the summary and every table, then flushes
func (e *CSVExporter) WriteSheet(sheet Sheet) error {
	if err := e.write([]string{sheet.Title}); err != nil {
		return err
	}
	for _, f := range sheet.Summary {
		if err := e.write([]string{f.Label, e.formatValue(f.Value)}); err != nil {
			return err
		}
	}

	for _, table := range sheet.Tables {
		if err := e.write(nil); err != nil {
			return err
		}
		if err := e.WriteTable(table); err != nil {
			return err
		}
	}
	return e.Flush()
}

// WriteTable writes the table name, its header and its rows
func (e *CSVExporter) WriteTable(table Table) error {
	if err := e.write([]string{table.Name}); err != nil {
		return err
	}
	if err := e.write(table.labels()); err != nil {
		return err
	}

	keys := table.keys()
	for _, row := range table.Rows {
		record := make([]string, len(keys))
		for i, key := range keys {
			val, ok := row[key]
			if !ok {
				record[i] = e.options.NullValue
			} else {
				record[i] = e.formatValue(val)
			}
		}
		if err := e.write(record); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes any buffered data to the underlying writer
func (e *CSVExporter) Flush() error {
	e.writer.Flush()
	return e.writer.Error()
}

func (e *CSVExporter) write(record []string) error {
	if record == nil {
		record = []string{}
	}
	if err := e.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// formatValue formats a value for CSV output
func (e *CSVExporter) formatValue(val any) string {
	if val == nil {
		return e.options.NullValue
	}

	switch v := val.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		if v {
			return e.options.BoolTrueValue
		}
		return e.options.BoolFalseValue
	case time.Time:
		if v.IsZero() {
			return e.options.NullValue
		}
		return v.Format(e.options.DateFormat)
	case *time.Time:
		if v == nil || v.IsZero() {
			return e.options.NullValue
		}
		return v.Format(e.options.DateFormat)
	default:
		return fmt.Sprintf("%v", v)
	}
}
