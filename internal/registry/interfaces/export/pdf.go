package export

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	registry "utility-registry/internal/registry/domain"
)

const (
	pdfFontFamily  = "registry"
	pdfLineHeight  = 6.0
	pdfHeadingSize = 14.0
	pdfBodySize    = 12.0
)

// DejaVu Sans Condensed, as distributed with gofpdf. Covers Cyrillic.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	embeddedRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	embeddedBold []byte
)

// PDFRenderer writes registries as A4 PDF documents.
type PDFRenderer struct {
	fontRegular string
	fontBold    string
}

// NewPDFRenderer constructs a renderer. regular and bold are optional UTF-8 TTF
// font paths that replace the embedded DejaVu faces.
func NewPDFRenderer(regular, bold string) *PDFRenderer {
	return &PDFRenderer{fontRegular: regular, fontBold: bold}
}

// Format returns "pdf".
func (r *PDFRenderer) Format() string { return FormatPDF }

// Render writes report to path.
func (r *PDFRenderer) Render(ctx context.Context, report registry.RegistryReport, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return errors.New("pdf renderer: empty path")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(report.Title, true)
	pdf.SetAuthor("utility-registry", true)
	r.setupFonts(pdf)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf renderer: fonts: %w", err)
	}
	pdf.AddPage()

	for _, p := range report.Paragraphs() {
		if p.Text == "" {
			pdf.Ln(pdfLineHeight / 2)
			continue
		}
		style, size := "", pdfBodySize
		if p.Bold {
			style = "B"
		}
		if p.Heading {
			size = pdfHeadingSize
		}
		pdf.SetFont(pdfFontFamily, style, size)
		text := strings.ReplaceAll(p.Text, "\t", "    ")
		if p.Centered {
			for _, line := range strings.Split(text, "\n") {
				pdf.CellFormat(0, pdfLineHeight+1, line, "", 1, "C", false, 0, "")
			}
			continue
		}
		pdf.MultiCell(0, pdfLineHeight, text, "", "L", false)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("pdf renderer: write %s: %w", path, err)
	}
	return nil
}

func (r *PDFRenderer) setupFonts(pdf *gofpdf.Fpdf) {
	if r.fontRegular == "" {
		pdf.AddUTF8FontFromBytes(pdfFontFamily, "", embeddedRegular)
		pdf.AddUTF8FontFromBytes(pdfFontFamily, "B", embeddedBold)
		return
	}
	bold := r.fontBold
	if bold == "" {
		bold = r.fontRegular
	}
	pdf.AddUTF8Font(pdfFontFamily, "", r.fontRegular)
	pdf.AddUTF8Font(pdfFontFamily, "B", bold)
}
