package render_test

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/agrogestion/internal/render"
)

func chart(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	for x := range 120 {
		for y := range 60 {
			if y > 60-x/2 {
				img.Set(x, y, color.RGBA{46, 125, 50, 255})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pageCount(t *testing.T, pdf []byte) int {
	t.Helper()
	n, err := api.PageCount(bytes.NewReader(pdf), nil)
	if err != nil {
		t.Fatalf("pdfcpu could not read rendered report: %v", err)
	}
	return n
}

func TestRender(t *testing.T) {
	generated := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		report    render.Report
		wantImage bool
		wantPages int
	}{
		{
			name: "table only",
			report: render.Report{
				Title:     "Inventario de insumos",
				Subtitle:  "Depósito central",
				Columns:   []string{"Producto", "Cantidad", "Unidad"},
				Rows:      [][]string{{"Glifosato", "120", "L"}, {"Urea", "3000", "kg"}},
				Generated: generated,
			},
			wantPages: 1,
		},
		{
			name: "with chart",
			report: render.Report{
				Title:     "Cosecha por lote",
				Columns:   []string{"Lote", "Toneladas"},
				Rows:      [][]string{{"Lote 4", "120"}},
				Image:     chart(t),
				Generated: generated,
			},
			wantImage: true,
			wantPages: 1,
		},
		{
			name: "rows overflow onto a second page",
			report: render.Report{
				Title:     "Fumigaciones",
				Columns:   []string{"Fecha", "Campo", "Producto"},
				Rows:      manyRows(60),
				Generated: generated,
			},
			wantPages: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf, err := render.Render(tt.report)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
				t.Errorf("output is not a PDF: %q", pdf[:min(len(pdf), 8)])
			}
			if tt.report.HasAuxiliaryImage() != tt.wantImage {
				t.Errorf("HasAuxiliaryImage: got %v", tt.report.HasAuxiliaryImage())
			}
			if got := pageCount(t, pdf); got != tt.wantPages {
				t.Errorf("pages: got %d, want %d", got, tt.wantPages)
			}
		})
	}
}

func TestRenderRejectsUnknownImage(t *testing.T) {
	_, err := render.Render(render.Report{
		Title:   "Compras",
		Columns: []string{"Proveedor"},
		Image:   []byte("GIF89a not really"),
	})
	if !errors.Is(err, render.ErrUnsupportedImage) {
		t.Errorf("Render() error = %v, want ErrUnsupportedImage", err)
	}
}

func manyRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("%02d/03/2026", i%28+1), fmt.Sprintf("Campo %d", i), "Clorpirifos"}
	}
	return rows
}
