// Package ingest turns uploaded keyword files into a flat keyword list.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kailas-cloud/keywordsense/internal/domain"
)

// Format is the layout of uploaded keyword data.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
	FormatXLSX Format = "xlsx"
)

// XLSXContentType is the MIME type of an Office Open XML workbook.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// FormatFromContentType maps a request content type to a Format.
// Unknown types are reported as false.
func FormatFromContentType(contentType string) (Format, bool) {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", false
	}
	switch mt {
	case "text/csv", "application/csv", "text/tab-separated-values":
		return FormatCSV, true
	case "text/plain":
		return FormatText, true
	case XLSXContentType:
		return FormatXLSX, true
	}
	return "", false
}

// Parse reads keywords from r in the given format.
// The first cell of each row is the keyword; cells are trimmed and blank rows skipped.
// Workbooks are read from their first sheet.
// An input with no keywords yields an empty slice and no error.
func Parse(r io.Reader, f Format) ([]string, error) {
	if f == FormatXLSX {
		return parseXLSX(r)
	}
	br := bufio.NewReader(r)
	if err := skipBOM(br); err != nil {
		return nil, err
	}
	switch f {
	case FormatCSV:
		return parseCSV(br)
	case FormatText:
		return parseText(br)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", domain.ErrInvalidInput, f)
}

func skipBOM(br *bufio.Reader) error {
	head, err := br.Peek(len(utf8BOM))
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return nil
}

func parseCSV(br *bufio.Reader) ([]string, error) {
	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	if sniffTab(br) {
		cr.Comma = '\t'
	}

	var out []string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		if len(row) == 0 {
			continue
		}
		if kw := strings.TrimSpace(row[0]); kw != "" {
			out = append(out, kw)
		}
	}
}

// sniffTab reports whether the first line is tab-separated rather than comma-separated.
func sniffTab(br *bufio.Reader) bool {
	head, _ := br.Peek(br.Buffered())
	if len(head) == 0 {
		head, _ = br.Peek(512)
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	return bytes.IndexByte(head, '\t') >= 0 && bytes.IndexByte(head, ',') < 0
}

func parseText(br *bufio.Reader) ([]string, error) {
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var out []string
	for sc.Scan() {
		if kw := strings.TrimSpace(sc.Text()); kw != "" {
			out = append(out, kw)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	return out, nil
}

func parseXLSX(r io.Reader) ([]string, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %w", domain.ErrInvalidInput, err)
	}
	defer func() { _ = wb.Close() }()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", domain.ErrInvalidInput, sheets[0], err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		cols, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("%w: read row: %w", domain.ErrInvalidInput, err)
		}
		if len(cols) == 0 {
			continue
		}
		if kw := strings.TrimSpace(cols[0]); kw != "" {
			out = append(out, kw)
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %w", domain.ErrInvalidInput, sheets[0], err)
	}
	return out, nil
}

// Clean trims every keyword and drops blanks, keeping order.
func Clean(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
