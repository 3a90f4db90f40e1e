// Package model defines the core data structures for the ledgermatch application.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// ImportSource identifies the provenance of an imported bank transaction.
type ImportSource string

// Import source constants.
const (
	SourceCSV ImportSource = "csv"
	SourceOFX ImportSource = "ofx"
	SourceQIF ImportSource = "qif"
	SourceAPI ImportSource = "api"
)

// BankTransaction represents one line of an imported bank statement.
// Amount is signed: negative for debits/outflows, positive for credits/inflows.
type BankTransaction struct {
	Date        time.Time    `json:"transaction_date"`
	ValueDate   *time.Time   `json:"value_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	ID          string       `json:"id"`
	AccountID   string       `json:"bank_account_id"`
	CompanyID   string       `json:"company_id"`
	Currency    string       `json:"currency"`
	Description string       `json:"description"`
	Reference   string       `json:"reference,omitempty"`
	Category    string       `json:"category,omitempty"`
	Source      ImportSource `json:"import_source"`
	RawPayload  string       `json:"raw_payload,omitempty"`
	Amount      float64      `json:"amount"`
	Reconciled  bool         `json:"is_reconciled"`
}

// GenerateHash creates a stable hash over the fields the importer
// deduplicates on: account, date, amount, description.
func (t *BankTransaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%.2f:%s",
		t.AccountID,
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.Description)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
