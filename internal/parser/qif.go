package parser

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/petrel-io/ledgermatch/internal/model"
)

// QIFParser parses Quicken Interchange Format exports: one field per line,
// keyed by a single-character code, records terminated by '^'.
type QIFParser struct{}

// NewQIFParser creates a new QIF parser.
func NewQIFParser() *QIFParser {
	return &QIFParser{}
}

type qifRecord struct {
	date        time.Time
	description string
	reference   string
	raw         []string
	amount      float64
	hasDate     bool
	hasAmount   bool
}

// Parse converts raw QIF bytes into bank transaction candidates. A record
// lacking its date or amount at the '^' terminator is discarded silently.
func (p *QIFParser) Parse(raw []byte, accountID, companyID string) ([]model.BankTransaction, []string) {
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	var transactions []model.BankTransaction
	var errs []string

	var current qifRecord
	seenTypeHeader := false
	dropped := 0

	flush := func() {
		if current.hasDate && current.hasAmount {
			transactions = append(transactions, p.emit(current, accountID, companyID))
		} else if len(current.raw) > 0 {
			dropped++
		}
		current = qifRecord{}
	}

	for lineNo, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		// Header lines: parsing starts at the first !Type: section.
		if strings.HasPrefix(line, "!") {
			if strings.HasPrefix(line, "!Type:") {
				seenTypeHeader = true
			}
			continue
		}
		if !seenTypeHeader {
			continue
		}

		code := line[0]
		value := strings.TrimSpace(line[1:])
		if code != '^' {
			current.raw = append(current.raw, line)
		}

		switch code {
		case 'D':
			date, err := parseQIFDate(value)
			if err != nil {
				errs = append(errs, fmt.Sprintf("line %d: %v", lineNo+1, err))
				continue
			}
			current.date = date
			current.hasDate = true
		case 'T', 'U':
			amount, err := parseQIFAmount(value)
			if err != nil {
				errs = append(errs, fmt.Sprintf("line %d: %v", lineNo+1, err))
				continue
			}
			current.amount = amount
			current.hasAmount = true
		case 'P':
			if value != "" {
				current.description = value
			}
		case 'L':
			// Some exports put the payee on the category line.
			if current.description == "" {
				current.description = value
			}
		case 'M':
			if current.description != "" {
				current.description = current.description + " - " + value
			} else {
				current.description = value
			}
		case 'N':
			current.reference = value
		case 'C':
			// Cleared status, ignored.
		case '^':
			flush()
		}
	}

	// Flush a trailing record when the file does not end with '^'.
	flush()

	if dropped > 0 {
		slog.Warn("Discarded incomplete QIF records", "count", dropped)
	}

	return transactions, errs
}

func (p *QIFParser) emit(rec qifRecord, accountID, companyID string) model.BankTransaction {
	description := strings.TrimSpace(rec.description)
	if description == "" {
		description = defaultDescription
	}
	return model.BankTransaction{
		AccountID:   accountID,
		CompanyID:   companyID,
		Date:        rec.date,
		Amount:      rec.amount,
		Description: description,
		Reference:   rec.reference,
		Source:      model.SourceQIF,
		RawPayload:  strings.Join(rec.raw, "\n"),
	}
}

// parseQIFAmount handles the T/U amount line. Parenthesized values are
// negative; otherwise the usual separator normalization applies.
func parseQIFAmount(value string) (float64, error) {
	negative := strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")")
	cleaned := strings.Trim(value, "()")
	amount, err := parseAmount(cleaned)
	if err != nil {
		return 0, err
	}
	if negative && amount > 0 {
		amount = -amount
	}
	return amount, nil
}

// parseQIFDate handles YYYYMMDD and slash-separated dates. When slash
// components are ambiguous the day/month order is assumed (European
// convention). Two-digit years pivot at 50: above is 19xx, otherwise 20xx.
func parseQIFDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)

	if len(trimmed) == 8 && isDigits(trimmed) {
		return time.Parse("20060102", trimmed)
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid QIF date: %q", value)
	}

	first, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	second, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	yearPart := strings.TrimSpace(parts[2])
	if err1 != nil || err2 != nil {
		return time.Time{}, fmt.Errorf("invalid QIF date: %q", value)
	}

	var day, month int
	switch {
	case first > 12:
		day, month = first, second
	case second > 12:
		month, day = first, second
	default:
		// Ambiguous: assume day/month.
		day, month = first, second
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid QIF date: %q", value)
	}
	if len(yearPart) == 2 {
		if year > 50 {
			year += 1900
		} else {
			year += 2000
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid QIF date: %q", value)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
