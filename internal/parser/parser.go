// Package parser turns raw bank statement exports (CSV, OFX, QIF) into
// normalized bank transaction candidates. Parsers never fail the whole
// batch for one malformed record: bad lines are reported as positional
// error strings and parsing continues.
package parser

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/model"
)

// StatementParser converts one raw statement export into transaction
// candidates plus positional error strings for malformed records.
type StatementParser interface {
	Parse(raw []byte, accountID, companyID string) ([]model.BankTransaction, []string)
}

// ForFile selects a parser for a statement file. The extension decides
// when recognized; otherwise the content is sniffed for OFX or QIF
// markers, falling back to CSV for anything text-like with a delimiter.
func ForFile(path string, raw []byte) (StatementParser, model.ImportSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVParser(), model.SourceCSV, nil
	case ".ofx", ".qfx":
		return NewOFXParser(), model.SourceOFX, nil
	case ".qif":
		return NewQIFParser(), model.SourceQIF, nil
	}

	content := string(raw)
	upper := strings.ToUpper(content)
	switch {
	case strings.Contains(upper, "<OFX") || strings.Contains(upper, "<STMTTRN"):
		return NewOFXParser(), model.SourceOFX, nil
	case strings.HasPrefix(strings.TrimSpace(content), "!"):
		return NewQIFParser(), model.SourceQIF, nil
	case strings.ContainsAny(content, ",;"):
		return NewCSVParser(), model.SourceCSV, nil
	}
	return nil, "", fmt.Errorf("%s: %w", filepath.Base(path), common.ErrUnsupportedFormat)
}

// dateFormats accepted for CSV statement dates, tried in order.
var dateFormats = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2/1/2006",
	"2006-1-2",
	"2-1-2006",
}

// parseDate resolves a statement date in DD/MM/YYYY, YYYY-MM-DD or
// DD-MM-YYYY form. Returns an error for anything else.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// parseAmount normalizes a statement amount. A comma is the decimal
// separator only when no dot follows it; otherwise commas are thousands
// separators. Everything except digits, '.' and '-' is then stripped
// (currency symbols, spaces, remaining separators).
func parseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma > lastDot:
		head := strings.NewReplacer(".", "", ",", "").Replace(cleaned[:lastComma])
		cleaned = head + "." + cleaned[lastComma+1:]
	case lastComma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}
	var b strings.Builder
	for _, r := range cleaned {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	amount, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount: %q", s)
	}
	return amount, nil
}
