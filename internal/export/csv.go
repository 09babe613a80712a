// Package export writes classified keywords as CSV or Excel workbooks.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

// FileName is the suggested attachment name for a CSV export.
const FileName = "keyword_analysis_export.csv"

// ContentType is the MIME type of a CSV export.
const ContentType = "text/csv; charset=utf-8"

// Header lists the export columns in order.
var Header = []string{"original", "cluster", "isEnglish", "isBrand", "intent"}

// WriteCSV writes a header row followed by one row per record.
// The output starts with a UTF-8 BOM when bom is set so spreadsheet tools detect the encoding.
func WriteCSV(w io.Writer, records []keyword.AnalyzedKeyword, bom bool) error {
	if bom {
		if _, err := io.WriteString(w, "\uFEFF"); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(Header))
	for i, k := range records {
		row[0] = k.Original()
		row[1] = k.Cluster()
		row[2] = strconv.FormatBool(k.IsEnglish())
		row[3] = strconv.FormatBool(k.IsBrand())
		row[4] = string(k.Intent())
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
