package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"example.com/trcgate/internal/can"
	"example.com/trcgate/internal/common"
)

type PDFOptions struct {
	Lang Language
	// ManifestDigest is printed with a QR code when set.
	ManifestDigest string
	// FontPath is a UTF-8 TrueType font. Required for LangChinese; the
	// built-in Helvetica is used otherwise.
	FontPath string
}

type pdfDoc struct {
	pdf  *gofpdf.Fpdf
	tr   Translator
	font string
	text func(string) string
}

// SaveSummaryPDF renders sum into a PDF document at out.
func SaveSummaryPDF(sum Summary, out string, opts PDFOptions) error {
	doc, err := newPDFDoc(opts)
	if err != nil {
		return err
	}
	pdf := doc.pdf
	pdf.AddPage()

	doc.title(doc.tr.T("title"))
	doc.addSummarySection(sum)
	doc.addIDSection(sum.IDs)
	doc.addSignalSection(sum.Signals)
	if err := doc.addManifestSection(opts.ManifestDigest); err != nil {
		return err
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return common.WriteFileAtomic(out, func(w io.Writer) error {
		return pdf.Output(w)
	})
}

func newPDFDoc(opts PDFOptions) (*pdfDoc, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("CAN Trace Conversion Report", true)
	pdf.SetAuthor("trcctl", false)
	pdf.SetCreator("trcctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)

	doc := &pdfDoc{pdf: pdf, tr: NewTranslator(opts.Lang)}
	if err := doc.tr.Lang().CheckFont(opts.FontPath); err != nil {
		return nil, err
	}
	if opts.FontPath != "" {
		pdf.AddUTF8Font("report", "", opts.FontPath)
		pdf.AddUTF8Font("report", "B", opts.FontPath)
		if pdf.Err() {
			return nil, fmt.Errorf("report: font %s: %w", opts.FontPath, pdf.Error())
		}
		doc.font = "report"
		doc.text = func(s string) string { return s }
		return doc, nil
	}
	doc.font = "Helvetica"
	doc.text = pdf.UnicodeTranslatorFromDescriptor("")
	return doc, nil
}

func (d *pdfDoc) setFont(style string, size float64) {
	d.pdf.SetFont(d.font, style, size)
}

func (d *pdfDoc) title(title string) {
	d.setFont("B", 18)
	d.pdf.Cell(0, 10, d.text(title))
	d.pdf.Ln(12)
}

func (d *pdfDoc) heading(key string) {
	d.setFont("B", 12)
	d.pdf.Cell(0, 8, d.text(d.tr.T(key)))
	d.pdf.Ln(9)
}

func (d *pdfDoc) addSummarySection(sum Summary) {
	d.heading("section.summary")
	d.setFont("", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "label.input", value: emptyFallback(sum.Input, "-")},
		{label: "label.generated", value: sum.GeneratedAt.Format(time.RFC3339)},
		{label: "label.frames", value: strconv.Itoa(sum.Frames)},
		{label: "label.skipped", value: strconv.FormatInt(sum.Skipped, 10)},
		{label: "label.degraded", value: strconv.FormatInt(sum.Degraded, 10)},
		{label: "label.timeRange", value: timeRange(sum)},
	}
	for _, item := range items {
		d.pdf.CellFormat(50, 6, d.text(d.tr.T(item.label)), "", 0, "L", false, 0, "")
		d.pdf.CellFormat(0, 6, d.text(item.value), "", 1, "L", false, 0, "")
	}
	d.pdf.Ln(4)
}

func timeRange(sum Summary) string {
	if sum.Frames == 0 {
		return "-"
	}
	return can.FormatTimeMs(int64(sum.FirstTimeMs)) + " - " + can.FormatTimeMs(int64(sum.LastTimeMs))
}

func (d *pdfDoc) addIDSection(ids []IDCount) {
	d.heading("section.ids")
	if len(ids) == 0 {
		d.setFont("", 11)
		d.pdf.MultiCell(0, 6, d.text(d.tr.T("msg.noFrames")), "", "L", false)
		d.pdf.Ln(4)
		return
	}
	widths := []float64{40, 30}
	d.tableHeader(widths, "col.id", "col.count")
	d.setFont("", 9)
	for _, id := range ids {
		d.renderTableRow(widths, []string{id.ID, strconv.Itoa(id.Frames)}, 5)
	}
	d.pdf.Ln(4)
}

func (d *pdfDoc) addSignalSection(signals []SignalStats) {
	if len(signals) == 0 {
		return
	}
	d.heading("section.signals")
	widths := []float64{44, 20, 16, 25, 25, 25, 25}
	d.tableHeader(widths, "col.signal", "col.available", "col.missing", "col.min", "col.max", "col.mean", "col.stddev")
	d.setFont("", 9)
	for _, s := range signals {
		values := []string{s.Name, strconv.Itoa(s.Available), strconv.Itoa(s.Missing), "-", "-", "-", "-"}
		if s.Available > 0 {
			values[3] = statText(s.Min)
			values[4] = statText(s.Max)
			values[5] = statText(s.Mean)
			values[6] = statText(s.StdDev)
		}
		d.renderTableRow(widths, values, 5)
	}
	d.pdf.Ln(4)
}

func statText(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}

func (d *pdfDoc) addManifestSection(digest string) error {
	d.heading("section.manifest")
	d.setFont("", 10)
	digest = strings.TrimSpace(digest)
	if digest == "" {
		d.pdf.MultiCell(0, 6, d.text(d.tr.T("msg.noManifest")), "", "L", false)
		return nil
	}
	d.pdf.MultiCell(0, 6, d.text(d.tr.T("label.digest")+": "+digest), "", "L", false)
	png, err := DigestQR(digest, 0)
	if err != nil {
		return err
	}
	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	d.pdf.RegisterImageOptionsReader("manifest-qr", opt, bytes.NewReader(png))
	d.pdf.ImageOptions("manifest-qr", d.pdf.GetX(), d.pdf.GetY()+2, 35, 35, true, opt, 0, "")
	return nil
}

func (d *pdfDoc) tableHeader(widths []float64, keys ...string) {
	d.pdf.SetFillColor(240, 240, 240)
	d.setFont("B", 10)
	for i, k := range keys {
		d.pdf.CellFormat(widths[i], 7, d.text(d.tr.T(k)), "1", 0, "L", true, 0, "")
	}
	d.pdf.Ln(-1)
}

func (d *pdfDoc) renderTableRow(widths []float64, values []string, lineHeight float64) {
	pdf := d.pdf
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := d.text(emptyFallback(strings.TrimSpace(val), "-"))
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
