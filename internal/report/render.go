package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"koabot/internal/quantity"
)

const (
	marginLeft   = 15.0
	marginTop    = 20.0
	marginBottom = 20.0
	rowHeight    = 6.0
)

type column struct {
	title string
	width float64
	right bool
}

var (
	receptionColumns = []column{
		{"Fecha", 22, false}, {"Proveedor", 35, false}, {"Ref", 22, false},
		{"Producto", 55, false}, {"Cantidad", 24, true}, {"Unidad", 22, false},
	}
	wastageColumns = []column{
		{"Fecha", 22, false}, {"Ref", 22, false}, {"Producto", 52, false},
		{"Cantidad", 22, true}, {"Unidad", 18, false}, {"Motivo", 44, false},
	}
	productionColumns = []column{
		{"Fecha", 20, false}, {"Lote", 32, false}, {"Ref", 20, false}, {"Producto", 42, false},
		{"Cantidad", 20, true}, {"Unidad", 16, false}, {"Producido por", 30, false},
	}
)

// Render writes w as an A4 PDF.
func Render(out io.Writer, w *Weekly) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginLeft)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetTitle("Reporte Semanal", true)
	pdf.SetCreator("koabot", true)
	pdf.SetCreationDate(w.GeneratedAt)

	// Core fonts are cp1252; translate accents and ñ.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	r := &renderer{pdf: pdf, tr: tr}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(102, 102, 102)
		footer := fmt.Sprintf("Generado el %s · página %d", formatDateTime(w.GeneratedAt), pdf.PageNo())
		pdf.CellFormat(0, 5, tr(footer), "T", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(0, 9, "Reporte Semanal", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(102, 102, 102)
	pdf.CellFormat(0, 6, formatDay(w.From)+" - "+formatDay(w.To), "B", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := make([][]string, 0, len(w.Receptions))
	for _, row := range w.Receptions {
		rows = append(rows, []string{
			formatDate(row.OccurredAt), row.Supplier, row.Ref, row.Product,
			quantity.Format(row.Quantity), row.Unit.String(),
		})
	}
	r.section("Recepción", receptionColumns, rows, w.ReceptionTotals, "No hay datos de recepción en este período")

	rows = make([][]string, 0, len(w.Wastages))
	for _, row := range w.Wastages {
		rows = append(rows, []string{
			formatDate(row.OccurredAt), row.Ref, row.Product,
			quantity.Format(row.Quantity), row.Unit.String(), row.Reason,
		})
	}
	r.section("Merma", wastageColumns, rows, w.WastageTotals, "No hay datos de merma en este período")

	rows = make([][]string, 0, len(w.Productions))
	for _, row := range w.Productions {
		rows = append(rows, []string{
			formatDate(row.OccurredAt), row.BatchName, row.Ref, row.Product,
			quantity.Format(row.Quantity), row.Unit.String(), row.ProducedBy,
		})
	}
	r.section("Producción", productionColumns, rows, w.ProductionTotals, "No hay datos de producción en este período")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return pdf.Output(out)
}

// Bytes renders w into memory.
func Bytes(w *Weekly) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (r *renderer) section(title string, cols []column, rows [][]string, totals []UnitTotal, empty string) {
	pdf := r.pdf

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(51, 51, 51)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, r.tr(title), "L", 1, "L", true, 0, "")
	pdf.Ln(2)

	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(153, 153, 153)
		pdf.CellFormat(0, 14, r.tr(empty), "", 1, "C", false, 0, "")
		pdf.Ln(4)
		return
	}

	r.header(cols)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(51, 51, 51)
	for i, row := range rows {
		_, pageH := pdf.GetPageSize()
		if pdf.GetY()+rowHeight > pageH-marginBottom {
			pdf.AddPage()
			r.header(cols)
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(51, 51, 51)
		}
		fill := i%2 == 1
		pdf.SetFillColor(249, 249, 249)
		for j, c := range cols {
			align := "L"
			if c.right {
				align = "R"
			}
			pdf.CellFormat(c.width, rowHeight, r.fit(row[j], c.width-2), "B", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(totals) > 0 {
		parts := make([]string, 0, len(totals))
		for _, t := range totals {
			parts = append(parts, t.Quantity.String()+" "+t.Unit.String())
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, rowHeight, r.tr("Total: "+strings.Join(parts, " · ")), "", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func (r *renderer) header(cols []column) {
	pdf := r.pdf
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(51, 51, 51)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, r.tr(c.title), "", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
}

// fit translates s and shortens it with an ellipsis until it fits width.
func (r *renderer) fit(s string, width float64) string {
	out := r.tr(s)
	if r.pdf.GetStringWidth(out) <= width {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		out = r.tr(string(runes) + "...")
		if r.pdf.GetStringWidth(out) <= width {
			return out
		}
	}
	return ""
}

func formatDate(t time.Time) string {
	return t.UTC().Format("02/01/2006")
}

func formatDateTime(t time.Time) string {
	return t.UTC().Format("02/01/2006 15:04")
}

// formatDay rewrites YYYY-MM-DD as DD/MM/YYYY, leaving other input as is.
func formatDay(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return formatDate(t)
}
