package export

import (
	"fmt"
	"strings"

	"utility-registry/internal/registry/application"
)

const (
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Options configures renderer construction.
type Options struct {
	PDFFontRegular string
	PDFFontBold    string
}

// NewRenderer returns the renderer for format; an empty format means xlsx.
func NewRenderer(format string, opts Options) (application.DocumentRenderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatXLSX:
		return NewXLSXRenderer(), nil
	case FormatPDF:
		return NewPDFRenderer(opts.PDFFontRegular, opts.PDFFontBold), nil
	default:
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
}
