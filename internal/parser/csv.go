package parser

import (
	"fmt"
	"math"
	"strings"

	"github.com/petrel-io/ledgermatch/internal/common"
	"github.com/petrel-io/ledgermatch/internal/model"
)

// defaultDescription is used when a row carries no description column.
const defaultDescription = "Imported transaction"

// ColumnMapping assigns statement roles to CSV column indexes. A value of
// -1 means the role is absent. Debit and Credit cover exports that split
// the amount into two columns; they are consulted only when Amount is -1.
type ColumnMapping struct {
	Date        int
	Amount      int
	Debit       int
	Credit      int
	Description int
	Reference   int
}

// CSVParser parses delimited bank exports with a header row. Comma and
// semicolon delimiters are both recognized.
type CSVParser struct {
	// Mapping overrides header auto-detection when non-nil.
	Mapping *ColumnMapping
}

// NewCSVParser creates a CSV parser that auto-detects column roles from
// the header row.
func NewCSVParser() *CSVParser {
	return &CSVParser{}
}

// Parse converts raw CSV bytes into bank transaction candidates. Every
// malformed line is recorded as an error string keyed by its line number;
// it never aborts the rest of the batch.
func (p *CSVParser) Parse(raw []byte, accountID, companyID string) ([]model.BankTransaction, []string) {
	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, []string{common.ErrEmptyFile.Error()}
	}

	// French bank exports often use semicolons instead of commas.
	delim := byte(',')
	if !strings.Contains(lines[0], ",") && strings.Contains(lines[0], ";") {
		delim = ';'
	}

	headers := splitCSVLine(lines[0], delim)
	mapping := p.Mapping
	if mapping == nil {
		detected := detectMapping(headers)
		mapping = &detected
	}
	if mapping.Date < 0 || (mapping.Amount < 0 && mapping.Debit < 0 && mapping.Credit < 0) {
		return nil, []string{"could not locate date and amount columns in header"}
	}

	var transactions []model.BankTransaction
	var errs []string

	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		values := splitCSVLine(line, delim)
		// Truncated trailing lines are skipped without an error.
		if len(values) < len(headers)/2 {
			continue
		}

		txn, err := p.parseRow(values, mapping, accountID, companyID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("line %d: %v", i+2, err))
			continue
		}
		txn.RawPayload = line
		transactions = append(transactions, txn)
	}

	return transactions, errs
}

func (p *CSVParser) parseRow(values []string, mapping *ColumnMapping, accountID, companyID string) (model.BankTransaction, error) {
	dateStr := fieldAt(values, mapping.Date)
	if dateStr == "" {
		return model.BankTransaction{}, fmt.Errorf("missing date")
	}

	date, err := parseDate(dateStr)
	if err != nil {
		return model.BankTransaction{}, err
	}
	amount, err := resolveAmount(values, mapping)
	if err != nil {
		return model.BankTransaction{}, err
	}

	description := fieldAt(values, mapping.Description)
	if description == "" {
		description = defaultDescription
	}

	return model.BankTransaction{
		AccountID:   accountID,
		CompanyID:   companyID,
		Date:        date,
		Amount:      amount,
		Description: description,
		Reference:   fieldAt(values, mapping.Reference),
		Source:      model.SourceCSV,
	}, nil
}

// resolveAmount reads the single amount column, or nets separate debit
// and credit columns when the export splits them. Debits subtract and
// credits add regardless of the sign the bank printed.
func resolveAmount(values []string, mapping *ColumnMapping) (float64, error) {
	if mapping.Amount >= 0 {
		s := fieldAt(values, mapping.Amount)
		if s == "" {
			return 0, fmt.Errorf("missing amount")
		}
		return parseAmount(s)
	}

	debitStr := fieldAt(values, mapping.Debit)
	creditStr := fieldAt(values, mapping.Credit)
	if debitStr == "" && creditStr == "" {
		return 0, fmt.Errorf("missing amount")
	}

	var amount float64
	if creditStr != "" {
		credit, err := parseAmount(creditStr)
		if err != nil {
			return 0, err
		}
		amount += math.Abs(credit)
	}
	if debitStr != "" {
		debit, err := parseAmount(debitStr)
		if err != nil {
			return 0, err
		}
		amount -= math.Abs(debit)
	}
	return amount, nil
}

// fieldAt returns the trimmed value at idx, or "" when idx is out of range
// or the role is unmapped.
func fieldAt(values []string, idx int) string {
	if idx < 0 || idx >= len(values) {
		return ""
	}
	return strings.TrimSpace(values[idx])
}

// detectMapping resolves column roles from header text using
// case-insensitive substring matches. French and English bank export
// headers are both recognized.
func detectMapping(headers []string) ColumnMapping {
	mapping := ColumnMapping{Date: -1, Amount: -1, Debit: -1, Credit: -1, Description: -1, Reference: -1}
	for i, header := range headers {
		lower := strings.ToLower(header)
		switch {
		case mapping.Date < 0 && (strings.Contains(lower, "date") || strings.Contains(lower, "jour")):
			mapping.Date = i
		case mapping.Amount < 0 && (strings.Contains(lower, "montant") || strings.Contains(lower, "amount")):
			mapping.Amount = i
		case mapping.Debit < 0 && (strings.Contains(lower, "débit") || strings.Contains(lower, "debit")):
			mapping.Debit = i
		case mapping.Credit < 0 && (strings.Contains(lower, "crédit") || strings.Contains(lower, "credit")):
			mapping.Credit = i
		case mapping.Description < 0 && (strings.Contains(lower, "libellé") || strings.Contains(lower, "description") ||
			strings.Contains(lower, "memo")):
			mapping.Description = i
		case mapping.Reference < 0 && (strings.Contains(lower, "référence") || strings.Contains(lower, "ref") ||
			strings.Contains(lower, "numéro")):
			mapping.Reference = i
		}
	}
	return mapping
}

// splitCSVLine splits one delimited line, honoring double quotes around
// fields with embedded delimiters. Doubled quotes inside a quoted field
// collapse to a literal quote.
func splitCSVLine(line string, delim byte) []string {
	var result []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == delim && !inQuotes:
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	result = append(result, strings.TrimSpace(current.String()))
	return result
}
