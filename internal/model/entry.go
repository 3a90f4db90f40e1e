package model

import "time"

// AccountingEntry represents one ledger-side record eligible for reconciliation.
// Debit and Credit are non-negative and mutually exclusive; Amount carries the
// net signed value used for comparison against bank transactions.
type AccountingEntry struct {
	Date              time.Time `json:"entry_date"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ID                string    `json:"id"`
	CompanyID         string    `json:"company_id"`
	AccountCode       string    `json:"account_code"`
	Description       string    `json:"description"`
	Reference         string    `json:"reference,omitempty"`
	JournalEntryID    string    `json:"journal_entry_id,omitempty"`
	BankTransactionID string    `json:"bank_transaction_id,omitempty"`
	Amount            float64   `json:"amount"`
	Debit             float64   `json:"debit"`
	Credit            float64   `json:"credit"`
	Reconciled        bool      `json:"is_reconciled"`
}

// NetAmount returns the signed amount used for matching. Entries created
// with an explicit Amount keep it; otherwise the debit/credit split is
// collapsed into the same sign convention as bank transactions.
func (e *AccountingEntry) NetAmount() float64 {
	if e.Amount != 0 {
		return e.Amount
	}
	return e.Debit - e.Credit
}
