// =============================================================================
// Bank Download Aggregator - CSV Parser Module
// =============================================================================
//
// This module turns one bank CSV export into a table. Bank downloads are not
// uniform, so parsing is deliberately forgiving:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Non UTF-8 encodings (Windows-1252, ISO-8859-1, UTF-16)
//   - A UTF-8 byte order mark
//   - Trailing delimiters at the end of every line
//   - Account metadata lines above the real header
//
// TWO-ATTEMPT PARSING:
//   1. Parse with the first row as the header.
//   2. If that fails structurally (a data row is wider than the header, or
//      the tokenizer rejects the text), drop the lines above the fallback
//      header row (row 3 by default) and parse again.
//   A file that is empty, or fails both attempts, is reported with ErrEmpty
//   or ErrUnparseable so the caller can skip it.
//
// =============================================================================

package csvparser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/ginjaninja78/bank-download-aggregator/internal/config"
	"github.com/ginjaninja78/bank-download-aggregator/internal/frames"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrEmpty means the file holds no header or no data rows.
var ErrEmpty = errors.New("csv file has no data")

// ErrUnparseable means neither header row produced a consistent table.
var ErrUnparseable = errors.New("csv file could not be parsed")

// StructureError reports a data row wider than the header.
type StructureError struct {
	Line     int
	Expected int
	Got      int
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("expected %d fields in line %d, saw %d", e.Expected, e.Line, e.Got)
}

// IsSkippable reports whether err is a per-file parse failure rather than an
// I/O or configuration problem.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrEmpty) || errors.Is(err, ErrUnparseable)
}

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed CSV file.
type CSVData struct {
	// Frame holds the parsed rows; every column is a string series.
	Frame dataframe.DataFrame

	// Headers contains the cleaned column headers.
	Headers []string

	// HeaderRow is the 1-indexed row the headers were read from.
	HeaderRow int

	// SourceFile is the path to the source CSV file.
	SourceFile string

	// RowCount is the number of data rows (excluding headers).
	RowCount int
}

// UsedFallback reports whether the header came from the fallback row.
func (d *CSVData) UsedFallback() bool {
	return d.HeaderRow > 1
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads and parses a CSV file. Failing to read the file is an I/O
// error and is returned unwrapped by the skippable sentinels.
func ParseFile(filePath string, settings config.CSVSettings) (*CSVData, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	csvData, err := Parse(data, settings)
	if err != nil {
		return nil, err
	}
	csvData.SourceFile = filePath
	return csvData, nil
}

// Parse decodes raw file content into a table using the two-attempt strategy.
func Parse(data []byte, settings config.CSVSettings) (*CSVData, error) {
	enc, err := LookupEncoding(settings.Encoding)
	if err != nil {
		return nil, err
	}

	text, err := decode(data, enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	if strings.TrimSpace(text) == "" {
		return nil, ErrEmpty
	}

	csvData, firstErr := parseWithHeaderAt(text, 1, settings)
	if firstErr == nil {
		return csvData, nil
	}
	if errors.Is(firstErr, ErrEmpty) {
		return nil, firstErr
	}

	fallbackRow := settings.FallbackHeaderRow
	if fallbackRow < 2 {
		fallbackRow = 3
	}

	csvData, secondErr := parseWithHeaderAt(text, fallbackRow, settings)
	if secondErr == nil {
		return csvData, nil
	}
	if errors.Is(secondErr, ErrEmpty) {
		return nil, secondErr
	}

	return nil, fmt.Errorf("%w: header row 1: %v; header row %d: %v",
		ErrUnparseable, firstErr, fallbackRow, secondErr)
}

// parseWithHeaderAt treats the given 1-indexed record as the header and
// everything after it as data.
func parseWithHeaderAt(text string, headerRow int, settings config.CSVSettings) (*CSVData, error) {
	body, skippedLines := skipRecords(text, headerRow-1, settings)

	reader := csv.NewReader(strings.NewReader(body))
	configureReader(reader, settings)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	header = cleanHeaders(header)

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if isRowEmpty(row) {
			continue
		}

		row, err = fitRow(row, len(header))
		if err != nil {
			line, _ := reader.FieldPos(0)
			var structErr *StructureError
			if errors.As(err, &structErr) {
				structErr.Line = line + skippedLines
			}
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	df, err := frames.New(header, rows)
	if err != nil {
		return nil, err
	}

	return &CSVData{
		Frame:     df,
		Headers:   header,
		HeaderRow: headerRow,
		RowCount:  len(rows),
	}, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Row widths are checked against the header in fitRow.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = settings.UseLazyQuotes()
}

// fitRow pads a short row with empty cells. A wider row is a structural
// error unless the surplus cells are all empty (trailing delimiters).
func fitRow(row []string, width int) ([]string, error) {
	if len(row) == width {
		return row, nil
	}
	if len(row) < width {
		padded := make([]string, width)
		copy(padded, row)
		return padded, nil
	}
	for _, cell := range row[width:] {
		if strings.TrimSpace(cell) != "" {
			return nil, &StructureError{Expected: width, Got: len(row)}
		}
	}
	return row[:width], nil
}

// cleanHeaders trims header names, names blank columns Column_N, and
// suffixes repeated names with .1, .2, ... so every column is addressable.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	used := make(map[string]bool, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		name := header
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", header, n)
		}
		used[name] = true
		cleaned[i] = name
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// skipRecords drops the first n CSV records of text and returns the rest
// together with the number of physical lines dropped. A quoted cell that
// spans lines counts as one record. Blank lines are not records. Metadata
// that does not tokenize as CSV is skipped line by line instead.
func skipRecords(text string, n int, settings config.CSVSettings) (string, int) {
	if n <= 0 {
		return text, 0
	}

	reader := csv.NewReader(strings.NewReader(text))
	configureReader(reader, settings)

	for i := 0; i < n; i++ {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				return "", strings.Count(text, "\n")
			}
			return dropLines(text, n), n
		}
	}

	offset := int(reader.InputOffset())
	return text[offset:], strings.Count(text[:offset], "\n")
}

// dropLines removes the first n physical lines of text.
func dropLines(text string, n int) string {
	for i := 0; i < n; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return ""
		}
		text = text[idx+1:]
	}
	return text
}

// =============================================================================
// ENCODING
// =============================================================================

// LookupEncoding maps a configured encoding name to a decoder. A nil
// encoding means UTF-8.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252, nil
	case "ISO-8859-1", "LATIN-1", "LATIN1":
		return charmap.ISO8859_1, nil
	case "UTF-16", "UTF-16LE":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "UTF-16BE":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// decode converts data to UTF-8 text and strips a UTF-8 byte order mark.
func decode(data []byte, enc encoding.Encoding) (string, error) {
	if enc != nil {
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("failed to decode: %w", err)
		}
		data = decoded
	}
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))), nil
}
