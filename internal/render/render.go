// Package render produces the tabular PDF reports the UI stores through the
// pdf:save channel.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pdf/fpdf"
)

// ErrUnsupportedImage is returned when Report.Image is neither PNG nor JPEG.
var ErrUnsupportedImage = errors.New("auxiliary image must be PNG or JPEG")

const (
	pageWidth  = 190.0
	lineHeight = 6.0
	imageName  = "auxiliary"
)

// Report is a titled table with an optional chart image rendered below it.
type Report struct {
	Title    string
	Subtitle string
	Columns  []string
	Rows     [][]string
	// Image holds PNG or JPEG bytes.
	Image []byte
	// Generated stamps the footer and the document properties. Zero means now.
	Generated time.Time
}

// HasAuxiliaryImage reports whether the rendered document embeds Image.
func (r Report) HasAuxiliaryImage() bool {
	return len(r.Image) > 0
}

// Render lays out r on A4 portrait pages and returns the PDF bytes.
func Render(r Report) ([]byte, error) {
	generated := r.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(r.Title, true)
	pdf.SetCreator("AgroGestión", true)
	pdf.SetCreationDate(generated)

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s · página %d", generated.Format("02/01/2006 15:04"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(r.Title), "", 1, "L", false, 0, "")
	if r.Subtitle != "" {
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, tr(r.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	writeTable(pdf, tr, r.Columns, r.Rows)

	if r.HasAuxiliaryImage() {
		if err := writeImage(pdf, r.Image); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render report %q: %w", r.Title, err)
	}
	return buf.Bytes(), nil
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, columns []string, rows [][]string) {
	if len(columns) == 0 {
		return
	}

	width := pageWidth / float64(len(columns))

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(46, 125, 50)
		pdf.SetTextColor(255, 255, 255)
		for _, col := range columns {
			pdf.CellFormat(width, lineHeight+1, tr(col), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", 9)
	}

	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	for i, row := range rows {
		if pdf.GetY()+lineHeight > pageHeight-bottom-5 {
			pdf.AddPage()
			header()
		}

		fill := i%2 == 1
		pdf.SetFillColor(241, 248, 233)
		for c := range columns {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			pdf.CellFormat(width, lineHeight, tr(cell), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func writeImage(pdf *fpdf.Fpdf, img []byte) error {
	var imageType string
	switch http.DetectContentType(img) {
	case "image/png":
		imageType = "PNG"
	case "image/jpeg":
		imageType = "JPG"
	default:
		return ErrUnsupportedImage
	}

	opts := fpdf.ImageOptions{ImageType: imageType, ReadDpi: true}
	info := pdf.RegisterImageOptionsReader(imageName, opts, bytes.NewReader(img))
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("register auxiliary image: %w", err)
	}

	w, h := info.Extent()
	if w > pageWidth {
		h = h * pageWidth / w
		w = pageWidth
	}

	pdf.Ln(6)
	pdf.ImageOptions(imageName, 10, pdf.GetY(), w, h, true, opts, 0, "")
	return pdf.Error()
}
