package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/petrel-io/ledgermatch/internal/model"
)

// OFXParser parses OFX/QFX statement files. Files with a full OFX envelope
// go through the strict ofxgo parser; bare SGML fragments fall back to
// STMTTRN tag scanning so partial exports still import.
type OFXParser struct{}

// NewOFXParser creates a new OFX parser.
func NewOFXParser() *OFXParser {
	return &OFXParser{}
}

var (
	stmtTrnRegex = regexp.MustCompile(`(?is)<STMTTRN>(.*?)</STMTTRN>`)
	ofxTagRegex  = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{"TRNAMT", "DTPOSTED", "FITID", "MEMO", "NAME"} {
		ofxTagRegex[tag] = regexp.MustCompile(`(?i)<` + tag + `>([^<\r\n]*)`)
	}
}

// Parse converts raw OFX bytes into bank transaction candidates. A STMTTRN
// block missing both its date and amount is dropped silently; no partial
// transaction is ever emitted.
func (p *OFXParser) Parse(raw []byte, accountID, companyID string) ([]model.BankTransaction, []string) {
	content := strings.TrimLeft(string(raw), " \t\r\n")

	if resp, err := ofxgo.ParseResponse(strings.NewReader(content)); err == nil {
		return p.fromResponse(resp, content, accountID, companyID), nil
	}

	return p.scanBlocks(content, accountID, companyID), nil
}

// fromResponse converts a fully parsed OFX response. The source STMTTRN
// blocks are paired back with the parsed transactions by position, so
// each candidate keeps its raw snapshot.
func (p *OFXParser) fromResponse(resp *ofxgo.Response, content, accountID, companyID string) []model.BankTransaction {
	var transactions []model.BankTransaction
	blocks := stmtTrnRegex.FindAllString(content, -1)

	emit := func(ofxTx ofxgo.Transaction) {
		transactions = append(transactions, p.convert(ofxTx, accountID, companyID, rawBlock(blocks, len(transactions), ofxTx)))
	}

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, ofxTx := range stmt.BankTranList.Transactions {
			emit(ofxTx)
		}
	}
	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		for _, ofxTx := range stmt.BankTranList.Transactions {
			emit(ofxTx)
		}
	}

	slog.Info("Parsed OFX envelope",
		"total_transactions", len(transactions))

	return transactions
}

func (p *OFXParser) convert(ofxTx ofxgo.Transaction, accountID, companyID, raw string) model.BankTransaction {
	amount, _ := ofxTx.TrnAmt.Float64()

	description := strings.TrimSpace(string(ofxTx.Memo))
	if description == "" {
		description = strings.TrimSpace(string(ofxTx.Name))
	}

	return model.BankTransaction{
		AccountID:   accountID,
		CompanyID:   companyID,
		Date:        ofxTx.DtPosted.Time,
		Amount:      amount,
		Description: description,
		Reference:   string(ofxTx.FiTID),
		Source:      model.SourceOFX,
		RawPayload:  raw,
	}
}

// rawBlock returns the source block for the idx-th transaction. ofxgo
// preserves document order, so blocks line up by position; when they do
// not, the snapshot is rebuilt from the parsed fields.
func rawBlock(blocks []string, idx int, ofxTx ofxgo.Transaction) string {
	if idx < len(blocks) {
		return blocks[idx]
	}
	return fmt.Sprintf("<STMTTRN><DTPOSTED>%s<TRNAMT>%s<FITID>%s<NAME>%s<MEMO>%s</STMTTRN>",
		ofxTx.DtPosted.Format("20060102"), ofxTx.TrnAmt.String(),
		ofxTx.FiTID, ofxTx.Name, ofxTx.Memo)
}

// scanBlocks extracts STMTTRN blocks by tag scanning, the lenient path for
// exports that are not a conforming OFX document.
func (p *OFXParser) scanBlocks(content, accountID, companyID string) []model.BankTransaction {
	var transactions []model.BankTransaction
	dropped := 0

	for _, match := range stmtTrnRegex.FindAllStringSubmatch(content, -1) {
		block := match[1]

		dtPosted := extractOFXTag(block, "DTPOSTED")
		trnAmt := extractOFXTag(block, "TRNAMT")
		if dtPosted == "" || trnAmt == "" {
			dropped++
			continue
		}

		date, err := parseOFXDate(dtPosted)
		if err != nil {
			dropped++
			continue
		}
		amount, err := parseAmount(trnAmt)
		if err != nil {
			dropped++
			continue
		}

		description := extractOFXTag(block, "MEMO")
		if description == "" {
			description = extractOFXTag(block, "NAME")
		}

		transactions = append(transactions, model.BankTransaction{
			AccountID:   accountID,
			CompanyID:   companyID,
			Date:        date,
			Amount:      amount,
			Description: strings.TrimSpace(description),
			Reference:   extractOFXTag(block, "FITID"),
			Source:      model.SourceOFX,
			RawPayload:  match[0],
		})
	}

	if dropped > 0 {
		slog.Warn("Dropped incomplete STMTTRN blocks", "count", dropped)
	}

	return transactions
}

// extractOFXTag reads the value following an SGML-style tag. OFX values run
// to the next tag or end of line; there is no closing tag in SGML exports.
func extractOFXTag(block, tag string) string {
	re, ok := ofxTagRegex[tag]
	if !ok {
		return ""
	}
	m := re.FindStringSubmatch(block)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// parseOFXDate reads a YYYYMMDD[HHMMSS] date tag, using only the first
// eight characters.
func parseOFXDate(s string) (time.Time, error) {
	if len(s) > 8 {
		s = s[:8]
	}
	return time.Parse("20060102", s)
}
