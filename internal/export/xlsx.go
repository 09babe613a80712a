package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

const (
	// XLSXFileName is the suggested attachment name for a workbook export.
	XLSXFileName = "keyword_analysis_export.xlsx"
	// XLSXContentType is the MIME type of a workbook export.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	// SheetName names the single worksheet of a workbook export.
	SheetName = "Analysis"
)

// WriteXLSX writes a workbook with one sheet holding the Header row and one row
// per record. Boolean columns are stored as spreadsheet booleans.
func WriteXLSX(w io.Writer, records []keyword.AnalyzedKeyword) error {
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	if err := wb.SetSheetName(wb.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := wb.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, k := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		row := []any{k.Original(), k.Cluster(), k.IsEnglish(), k.IsBrand(), string(k.Intent())}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := wb.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
