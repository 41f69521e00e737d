package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	registry "utility-registry/internal/registry/domain"
)

const xlsxSheet = "Реестр"

// XLSXRenderer writes registries as single-sheet workbooks, one paragraph per row.
type XLSXRenderer struct{}

// NewXLSXRenderer constructs a renderer.
func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

// Format returns "xlsx".
func (r *XLSXRenderer) Format() string { return FormatXLSX }

// Render writes report to path.
func (r *XLSXRenderer) Render(ctx context.Context, report registry.RegistryReport, path string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if path == "" {
		return errors.New("xlsx renderer: empty path")
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("xlsx renderer: sheet: %w", err)
	}
	_ = f.SetColWidth(xlsxSheet, "A", "A", 100)
	_ = f.SetDocProps(&excelize.DocProperties{Title: report.Title, Creator: "utility-registry"})

	headingStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("xlsx renderer: style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("xlsx renderer: style: %w", err)
	}

	for i, p := range report.Paragraphs() {
		cell := fmt.Sprintf("A%d", i+1)
		if p.Text == "" {
			continue
		}
		if err := f.SetCellStr(xlsxSheet, cell, p.Text); err != nil {
			return fmt.Errorf("xlsx renderer: %s: %w", cell, err)
		}
		switch {
		case p.Heading:
			_ = f.SetCellStyle(xlsxSheet, cell, cell, headingStyle)
		case p.Bold || p.Centered:
			_ = f.SetCellStyle(xlsxSheet, cell, cell, headerStyle)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx renderer: write %s: %w", path, err)
	}
	return nil
}
