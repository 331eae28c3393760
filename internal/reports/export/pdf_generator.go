package export

import (
	"bytes"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/jung-kurt/gofpdf"
)

// PDFGenerator renders sheets as PDF documents
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
	tr      func(string) string
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string             `json:"page_size"`   // A4, Letter, Legal
	Orientation    string             `json:"orientation"` // portrait, landscape
	Author         string             `json:"author,omitempty"`
	DateFormat     string             `json:"date_format"`
	IncludePageNum bool               `json:"include_page_num"`
	HeaderColor    PDFColor           `json:"header_color"`
	AlternateRows  bool               `json:"alternate_rows"`
	AlternateColor PDFColor           `json:"alternate_color"`
	FontFamily     string             `json:"font_family"`
	FontSize       float64            `json:"font_size"`
	HeaderFontSize float64            `json:"header_font_size"`
	TitleFontSize  float64            `json:"title_font_size"`
	Margins        PDFMargins         `json:"margins"`
	ColumnWidths   map[string]float64 `json:"column_widths,omitempty"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "landscape",
		DateFormat:     "2006-01-02",
		IncludePageNum: true,
		HeaderColor:    PDFColor{R: 68, G: 114, B: 196},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontFamily:     "Arial",
		FontSize:       9,
		HeaderFontSize: 10,
		TitleFontSize:  16,
		Margins: PDFMargins{
			Left:   15,
			Right:  15,
			Top:    20,
			Bottom: 20,
		},
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(true, options.Margins.Bottom)
	if options.Author != "" {
		pdf.SetAuthor(options.Author, true)
	}

	g := &PDFGenerator{
		pdf:     pdf,
		options: options,
		// core fonts are cp1252, names and descriptions carry accents
		tr: pdf.UnicodeTranslatorFromDescriptor(""),
	}
	if options.IncludePageNum {
		pdf.SetFooterFunc(g.addFooter)
	}
	return g
}

// WriteSheet renders the title, the summary and every table
func (g *PDFGenerator) WriteSheet(sheet Sheet) error {
	g.pdf.SetTitle(sheet.Title, true)
	g.pdf.AddPage()

	g.addTitle(sheet.Title)
	if sheet.Subtitle != "" {
		g.addSubtitle(sheet.Subtitle)
	}
	if !sheet.GeneratedAt.IsZero() {
		g.addDate(sheet.GeneratedAt)
	}

	if len(sheet.Summary) > 0 {
		g.addSummary(sheet.Summary)
	}
	for _, table := range sheet.Tables {
		g.addTable(table)
	}

	return g.pdf.Error()
}

// WriteTo writes the PDF to a writer
func (g *PDFGenerator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}

// Bytes returns the PDF as bytes
func (g *PDFGenerator) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *PDFGenerator) addTitle(title string) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.tr(title), "", 1, "C", false, 0, "")
}

func (g *PDFGenerator) addSubtitle(subtitle string) {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize+2)
	g.pdf.SetTextColor(100, 100, 100)
	g.pdf.CellFormat(0, 8, g.tr(subtitle), "", 1, "C", false, 0, "")
}

func (g *PDFGenerator) addDate(at time.Time) {
	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize-1)
	g.pdf.SetTextColor(128, 128, 128)
	g.pdf.CellFormat(0, 6, "Generado: "+at.Format(g.options.DateFormat), "", 1, "R", false, 0, "")
}

func (g *PDFGenerator) addFooter() {
	g.pdf.SetY(-15)
	g.pdf.SetFont(g.options.FontFamily, "I", 8)
	g.pdf.SetTextColor(128, 128, 128)
	g.pdf.CellFormat(0, 10, g.tr(fmt.Sprintf("Página %d", g.pdf.PageNo())), "", 0, "C", false, 0, "")
}

func (g *PDFGenerator) addSummary(fields []Field) {
	g.pdf.Ln(6)
	labelWidth := 0.0
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
	for _, f := range fields {
		labelWidth = max(labelWidth, g.pdf.GetStringWidth(g.tr(f.Label))+6)
	}

	for _, f := range fields {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
		g.pdf.SetTextColor(0, 0, 0)
		g.pdf.CellFormat(labelWidth, 6, g.tr(f.Label)+":", "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		g.pdf.MultiCell(0, 6, g.tr(g.formatValue(f.Value)), "", "L", false)
	}
}

func (g *PDFGenerator) addTable(table Table) {
	g.pdf.Ln(8)
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+2)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 8, g.tr(table.Name), "", 1, "L", false, 0, "")

	if len(table.Rows) == 0 {
		g.pdf.SetFont(g.options.FontFamily, "I", g.options.FontSize)
		g.pdf.CellFormat(0, 6, "Sin registros", "", 1, "L", false, 0, "")
		return
	}

	widths := g.calculateColumnWidths(table)
	labels := table.labels()
	g.addTableHeader(labels, widths)

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)
	_, pageHeight := g.pdf.GetPageSize()
	for i, row := range table.Rows {
		if g.pdf.GetY()+7 > pageHeight-g.options.Margins.Bottom {
			g.pdf.AddPage()
			g.addTableHeader(labels, widths)
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
			g.pdf.SetTextColor(0, 0, 0)
		}

		if g.options.AlternateRows && i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		for j, col := range table.Columns {
			val := truncate(g.formatValue(row[col.Key]), int(widths[j]/1.8))
			g.pdf.CellFormat(widths[j], 7, g.tr(val), "1", 0, "L", true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

func (g *PDFGenerator) addTableHeader(labels []string, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)

	for i, label := range labels {
		g.pdf.CellFormat(widths[i], 8, g.tr(label), "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

// calculateColumnWidths sizes columns to their content, scaled down to the page
func (g *PDFGenerator) calculateColumnWidths(table Table) []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	available := pageWidth - g.options.Margins.Left - g.options.Margins.Right

	widths := make([]float64, len(table.Columns))
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	for i, col := range table.Columns {
		if w, ok := g.options.ColumnWidths[col.Key]; ok {
			widths[i] = w
			continue
		}
		widths[i] = g.pdf.GetStringWidth(g.tr(col.Label)) + 4
	}

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	for _, row := range table.Rows {
		for i, col := range table.Columns {
			if _, fixed := g.options.ColumnWidths[col.Key]; fixed {
				continue
			}
			widths[i] = max(widths[i], g.pdf.GetStringWidth(g.tr(g.formatValue(row[col.Key])))+4)
		}
	}

	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total > available {
		scale := available / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

// formatValue formats a value for display
func (g *PDFGenerator) formatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(g.options.DateFormat)
	case *time.Time:
		if v == nil || v.IsZero() {
			return ""
		}
		return v.Format(g.options.DateFormat)
	case bool:
		if v {
			return "Sí"
		}
		return "No"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func truncate(s string, maxChars int) string {
	if maxChars < 4 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxChars-3]) + "..."
}
