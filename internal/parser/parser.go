package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrPageOutOfRange    = errors.New("page out of range")
)

// PageOutOfRangeError carries the valid maximum for a bad page request.
type PageOutOfRangeError struct {
	Page  int
	Total int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range (max page: %d)", e.Page, e.Total)
}

func (e *PageOutOfRangeError) Unwrap() error { return ErrPageOutOfRange }

// IsSupported reports whether filePath has one of the allowed extensions.
func IsSupported(filePath string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return slices.ContainsFunc(allowed, func(a string) bool {
		return strings.ToLower(a) == ext
	})
}

// ExtractPages returns the plain text of every page of the document. Sheets
// count as pages for spreadsheets; a DOCX file is a single page and a text
// file is split on form feeds.
func ExtractPages(filePath string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath)
	case ".docx":
		return parseDOCX(filePath)
	case ".xlsx", ".xlsm":
		return parseSpreadsheet(filePath)
	case ".txt":
		return parseText(filePath)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

// JoinPages joins the non-empty pages with blank lines.
func JoinPages(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, page := range pages {
		if page = strings.TrimSpace(page); page != "" {
			kept = append(kept, page)
		}
	}
	return strings.Join(kept, "\n\n")
}

// ExtractPage returns the trimmed text of a single 1-based page and the total
// page count. An out-of-range page returns a *PageOutOfRangeError.
func ExtractPage(filePath string, page int) (string, int, error) {
	if strings.ToLower(filepath.Ext(filePath)) == ".pdf" {
		return extractPDFPage(filePath, page)
	}
	pages, err := ExtractPages(filePath)
	if err != nil {
		return "", 0, err
	}
	if page < 1 || page > len(pages) {
		return "", len(pages), &PageOutOfRangeError{Page: page, Total: len(pages)}
	}
	return strings.TrimSpace(pages[page-1]), len(pages), nil
}

func openPDF(filePath string) (*os.File, *pdf.Reader, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, reader, nil
}

func parsePDF(filePath string) ([]string, error) {
	f, reader, err := openPDF(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		text, err := pdfPageText(reader, i)
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractPDFPage(filePath string, page int) (string, int, error) {
	f, reader, err := openPDF(filePath)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	total := reader.NumPage()
	if page < 1 || page > total {
		return "", total, &PageOutOfRangeError{Page: page, Total: total}
	}
	text, err := pdfPageText(reader, page)
	if err != nil {
		return "", total, err
	}
	return strings.TrimSpace(text), total, nil
}

func pdfPageText(reader *pdf.Reader, i int) (string, error) {
	page := reader.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func parseDOCX(filePath string) ([]string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	return []string{extractTextFromXML(content, "w:t", "</w:p>")}, nil
}

// parseSpreadsheet reads workbooks with excelize and retries with tealeg/xlsx
// for files excelize rejects.
func parseSpreadsheet(filePath string) ([]string, error) {
	pages, err := parseExcelize(filePath)
	if err == nil {
		return pages, nil
	}
	log.Debug().Err(err).Str("file", filePath).Msg("excelize failed, retrying with xlsx")
	return parseXLSX(filePath)
}

func parseXLSX(filePath string) ([]string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []string
	for _, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			text.WriteString(strings.Join(cells, "\t") + "\n")
		}
		pages = append(pages, text.String())
	}
	return pages, nil
}

func parseExcelize(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, err
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheetName))
		for _, row := range rows {
			text.WriteString(strings.Join(row, "\t") + "\n")
		}
		pages = append(pages, text.String())
	}
	return pages, nil
}

func parseText(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), "\f"), nil
}

// extractTextFromXML collects the text of every <tag> element, starting a new
// line at each breakAfter marker.
func extractTextFromXML(xmlContent, tag, breakAfter string) string {
	var text strings.Builder
	open := "<" + tag
	closing := "</" + tag + ">"
	for _, block := range strings.SplitAfter(xmlContent, breakAfter) {
		var line strings.Builder
		rest := block
		for {
			start := strings.Index(rest, open)
			if start < 0 {
				break
			}
			rest = rest[start+len(open):]
			// skip <w:tab/>, <w:tbl> and other tags sharing the prefix
			if rest == "" || (rest[0] != '>' && rest[0] != ' ') {
				continue
			}
			gt := strings.IndexByte(rest, '>')
			end := strings.Index(rest, closing)
			if gt < 0 || end < 0 || end < gt {
				continue
			}
			line.WriteString(rest[gt+1 : end])
			rest = rest[end+len(closing):]
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			text.WriteString(s + "\n")
		}
	}
	return strings.TrimSpace(text.String())
}
