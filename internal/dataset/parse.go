package dataset

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"

	"github.com/csvchat/csvchat/internal/domain"
)

// typeSampleSize bounds how many non-empty values are inspected per column
// when inferring types.
const typeSampleSize = 200

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser turns uploaded delimited-text payloads into Datasets.
type Parser struct {
	MaxBytes int
}

// NewParser creates a parser that rejects payloads larger than maxBytes.
func NewParser(maxBytes int) *Parser {
	return &Parser{MaxBytes: maxBytes}
}

// Parse parses a CSV payload into a Dataset. declaredEncoding optionally
// names the payload encoding used when the bytes are not valid UTF-8; when
// empty, Shift-JIS is tried as the fallback.
func (p *Parser) Parse(raw []byte, declaredEncoding string) (*Dataset, error) {
	if p.MaxBytes > 0 && len(raw) > p.MaxBytes {
		return nil, domain.NewError(domain.CodePayloadTooLarge,
			"file size exceeds maximum allowed size (%d bytes)", p.MaxBytes)
	}

	text, err := decode(raw, declaredEncoding)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(text))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, domain.WrapError(domain.CodeMalformedInput, err, "could not parse CSV payload")
	}
	if len(records) == 0 {
		return nil, domain.NewError(domain.CodeMalformedInput, "payload has no header row")
	}

	header := records[0]
	for _, name := range header {
		if strings.TrimSpace(name) == "" {
			return nil, domain.NewError(domain.CodeMalformedInput, "header contains an empty column name")
		}
	}

	rows := records[1:]
	cols := make([]Column, len(header))
	for i, name := range header {
		cols[i] = Column{Name: name, Type: inferColumnType(rows, i)}
	}

	return New(cols, rows), nil
}

// decode normalizes the payload to UTF-8. UTF-8 is preferred; otherwise the
// declared encoding is used, with Shift-JIS as the fallback since exported
// spreadsheets commonly carry it.
func decode(raw []byte, declared string) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	enc := encodingByName(declared)
	if enc == nil && declared != "" {
		return "", domain.NewError(domain.CodeEncodingError, "unsupported encoding %q", declared)
	}
	if enc == nil {
		enc = japanese.ShiftJIS
	}

	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil || bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", domain.NewError(domain.CodeEncodingError, "payload is not valid UTF-8 and could not be decoded")
	}
	return string(decoded), nil
}

func encodingByName(name string) encoding.Encoding {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "-")) {
	case "", "utf-8", "utf8":
		return nil
	case "shift-jis", "shiftjis", "sjis":
		return japanese.ShiftJIS
	case "euc-jp", "eucjp":
		return japanese.EUCJP
	case "iso-8859-1", "latin-1", "latin1":
		return charmap.ISO8859_1
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	default:
		return nil
	}
}

var temporalLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006年01月02日",
	"2006年1月2日",
}

// inferColumnType samples non-empty values of one column. Precedence:
// boolean, numeric, temporal, text. An all-empty column is text.
func inferColumnType(rows [][]string, col int) ColumnType {
	sampled := 0
	isBool, isNum, isTime := true, true, true
	for _, row := range rows {
		if sampled >= typeSampleSize {
			break
		}
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		sampled++
		if isBool && !parsesAsBool(v) {
			isBool = false
		}
		if isNum {
			if _, ok := parseNumber(v); !ok {
				isNum = false
			}
		}
		if isTime && !parsesAsTime(v) {
			isTime = false
		}
		if !isBool && !isNum && !isTime {
			return TypeText
		}
	}
	if sampled == 0 {
		return TypeText
	}
	switch {
	case isBool:
		return TypeBoolean
	case isNum:
		return TypeNumeric
	case isTime:
		return TypeTemporal
	default:
		return TypeText
	}
}

func parsesAsBool(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false":
		return true
	}
	return false
}

func parsesAsTime(v string) bool {
	for _, layout := range temporalLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true
		}
	}
	return false
}

// ParseTime parses a temporal cell value, for callers that need ordering.
func ParseTime(v string) (time.Time, bool) {
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatNumber renders a numeric result the way tool output is shown to the
// planner: integral values without a decimal point.
func FormatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
