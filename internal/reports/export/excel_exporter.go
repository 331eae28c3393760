package export

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter exports sheets to an Excel workbook: a summary worksheet
// followed by one worksheet per table.
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions

	headerStyle int
	dataStyle   int
	dateStyle   int
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SummarySheet string             `json:"summary_sheet"`
	FreezeHeader bool               `json:"freeze_header"`
	AutoFilter   bool               `json:"auto_filter"`
	DateFormat   string             `json:"date_format"`
	HeaderStyle  *ExcelStyleConfig  `json:"header_style,omitempty"`
	DataStyle    *ExcelStyleConfig  `json:"data_style,omitempty"`
	ColumnWidths map[string]float64 `json:"column_widths,omitempty"`
	AutoWidth    bool               `json:"auto_width"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Alignment string `json:"alignment"` // left, center, right
	Border    bool   `json:"border"`
	WrapText  bool   `json:"wrap_text"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SummarySheet: "Proyecto",
		FreezeHeader: true,
		AutoFilter:   true,
		DateFormat:   "yyyy-mm-dd",
		AutoWidth:    true,
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "4472C4",
			FontColor: "FFFFFF",
			Alignment: "center",
			Border:    true,
		},
		DataStyle: &ExcelStyleConfig{
			FontSize:  11,
			Alignment: "left",
			Border:    true,
		},
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", options.SummarySheet)

	return &ExcelExporter{
		file:    file,
		options: options,
	}
}

// WriteSheet writes the summary worksheet and one worksheet per table
func (e *ExcelExporter) WriteSheet(sheet Sheet) error {
	if err := e.prepareStyles(); err != nil {
		return err
	}
	if err := e.writeSummary(sheet); err != nil {
		return err
	}
	for _, table := range sheet.Tables {
		if err := e.WriteTable(table); err != nil {
			return err
		}
	}
	e.file.SetActiveSheet(0)
	return nil
}

// WriteTable adds a worksheet named after the table
func (e *ExcelExporter) WriteTable(table Table) error {
	if err := e.prepareStyles(); err != nil {
		return err
	}
	name := table.Name
	if _, err := e.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	for i, label := range table.labels() {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := e.file.SetCellValue(name, cell, label); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}
		if e.headerStyle > 0 {
			e.file.SetCellStyle(name, cell, cell, e.headerStyle)
		}
	}

	if e.options.FreezeHeader {
		e.file.SetPanes(name, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}

	widths := make(map[int]float64)
	keys := table.keys()
	for i, label := range table.labels() {
		widths[i] = estimateCellWidth(label)
	}

	for rowIdx, row := range table.Rows {
		for colIdx, key := range keys {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			val := row[key]
			if err := e.setCellValue(name, cell, val); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			if width := estimateCellWidth(val); width > widths[colIdx] {
				widths[colIdx] = width
			}
		}
	}

	if e.options.AutoFilter && len(table.Rows) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(keys), len(table.Rows)+1)
		if err := e.file.AutoFilter(name, "A1:"+last, nil); err != nil {
			return fmt.Errorf("failed to set auto filter: %w", err)
		}
	}

	e.applyWidths(name, keys, widths)
	return nil
}

// WriteTo writes the Excel file to a writer
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	return e.file.Write(w)
}

// Close closes the Excel file
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}

func (e *ExcelExporter) writeSummary(sheet Sheet) error {
	name := e.options.SummarySheet

	e.file.SetCellValue(name, "A1", sheet.Title)
	if e.headerStyle > 0 {
		e.file.MergeCell(name, "A1", "B1")
		e.file.SetCellStyle(name, "A1", "B1", e.headerStyle)
	}
	row := 2
	if sheet.Subtitle != "" {
		e.file.SetCellValue(name, "A2", sheet.Subtitle)
		row++
	}

	widths := map[int]float64{0: 10, 1: 10}
	for _, f := range sheet.Summary {
		label, _ := excelize.CoordinatesToCellName(1, row)
		value, _ := excelize.CoordinatesToCellName(2, row)
		if err := e.file.SetCellValue(name, label, f.Label); err != nil {
			return fmt.Errorf("failed to set summary label: %w", err)
		}
		if err := e.setCellValue(name, value, f.Value); err != nil {
			return fmt.Errorf("failed to set summary value: %w", err)
		}
		widths[0] = max(widths[0], estimateCellWidth(f.Label))
		widths[1] = max(widths[1], estimateCellWidth(f.Value))
		row++
	}

	if !sheet.GeneratedAt.IsZero() {
		cell, _ := excelize.CoordinatesToCellName(1, row+1)
		e.file.SetCellValue(name, cell, "Generado: "+sheet.GeneratedAt.Format("2006-01-02 15:04"))
	}

	e.applyWidths(name, []string{"", ""}, widths)
	return nil
}

func (e *ExcelExporter) applyWidths(sheet string, keys []string, widths map[int]float64) {
	for i, key := range keys {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if width, ok := e.options.ColumnWidths[key]; ok && key != "" {
			e.file.SetColWidth(sheet, col, col, width)
			continue
		}
		if !e.options.AutoWidth {
			continue
		}
		// Min width 10, max width 50
		e.file.SetColWidth(sheet, col, col, min(max(widths[i], 10), 50))
	}
}

func (e *ExcelExporter) prepareStyles() error {
	if e.dateStyle > 0 {
		return nil
	}
	if e.options.HeaderStyle != nil {
		style, err := e.createStyle(e.options.HeaderStyle, "")
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		e.headerStyle = style
	}
	if e.options.DataStyle != nil {
		style, err := e.createStyle(e.options.DataStyle, "")
		if err != nil {
			return fmt.Errorf("failed to create data style: %w", err)
		}
		e.dataStyle = style
	}

	data := e.options.DataStyle
	if data == nil {
		data = &ExcelStyleConfig{}
	}
	style, err := e.createStyle(data, e.options.DateFormat)
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}
	e.dateStyle = style
	return nil
}

// createStyle creates an Excel style from config
func (e *ExcelExporter) createStyle(config *ExcelStyleConfig, numFmt string) (int, error) {
	style := &excelize.Style{}

	style.Font = &excelize.Font{
		Bold: config.FontBold,
		Size: float64(config.FontSize),
	}
	if config.FontColor != "" {
		style.Font.Color = config.FontColor
	}

	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}

	if config.Alignment != "" || config.WrapText {
		style.Alignment = &excelize.Alignment{
			Horizontal: config.Alignment,
			WrapText:   config.WrapText,
		}
	}

	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}

	if numFmt != "" {
		style.CustomNumFmt = &numFmt
	}

	return e.file.NewStyle(style)
}

// setCellValue sets a cell value with appropriate formatting
func (e *ExcelExporter) setCellValue(sheet, cell string, val any) error {
	style := e.dataStyle
	defer func() {
		if style > 0 {
			e.file.SetCellStyle(sheet, cell, cell, style)
		}
	}()

	switch v := val.(type) {
	case nil:
		return e.file.SetCellValue(sheet, cell, "")
	case time.Time:
		if v.IsZero() {
			return e.file.SetCellValue(sheet, cell, "")
		}
		style = e.dateStyle
		return e.file.SetCellValue(sheet, cell, v)
	case *time.Time:
		if v == nil || v.IsZero() {
			return e.file.SetCellValue(sheet, cell, "")
		}
		style = e.dateStyle
		return e.file.SetCellValue(sheet, cell, *v)
	case bool:
		if v {
			return e.file.SetCellValue(sheet, cell, "Sí")
		}
		return e.file.SetCellValue(sheet, cell, "No")
	default:
		return e.file.SetCellValue(sheet, cell, v)
	}
}

// estimateCellWidth estimates the display width of a cell value
func estimateCellWidth(val any) float64 {
	switch v := val.(type) {
	case nil:
		return 0
	case time.Time, *time.Time:
		return 12
	default:
		// Rough estimate: 1 character = 1 unit width, plus padding
		return float64(utf8.RuneCountInString(fmt.Sprintf("%v", v))) * 1.2
	}
}
