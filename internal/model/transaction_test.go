package model

import (
	"testing"
	"time"
)

func TestBankTransaction_GenerateHash(t *testing.T) {
	base := BankTransaction{
		AccountID:   "acc1",
		Date:        time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		Amount:      -250.50,
		Description: "PAYMENT TO SUPPLIER ABC",
	}

	tests := []struct {
		name     string
		mutate   func(*BankTransaction)
		wantSame bool
	}{
		{"identical fields", func(*BankTransaction) {}, true},
		{"time of day is ignored", func(txn *BankTransaction) {
			txn.Date = time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)
		}, true},
		{"id does not participate", func(txn *BankTransaction) {
			txn.ID = "different-id"
		}, true},
		{"different account", func(txn *BankTransaction) {
			txn.AccountID = "acc2"
		}, false},
		{"different date", func(txn *BankTransaction) {
			txn.Date = txn.Date.AddDate(0, 0, 1)
		}, false},
		{"different amount", func(txn *BankTransaction) {
			txn.Amount = -250.51
		}, false},
		{"different description", func(txn *BankTransaction) {
			txn.Description = "PAYMENT TO SUPPLIER XYZ"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.mutate(&other)

			if same := base.GenerateHash() == other.GenerateHash(); same != tt.wantSame {
				t.Errorf("Hash equality = %v, want %v", same, tt.wantSame)
			}
		})
	}
}

func TestAccountingEntry_NetAmount(t *testing.T) {
	tests := []struct {
		name  string
		entry AccountingEntry
		want  float64
	}{
		{"explicit amount wins", AccountingEntry{Amount: -100, Debit: 50, Credit: 0}, -100},
		{"debit minus credit", AccountingEntry{Debit: 250.50}, 250.50},
		{"credit side is negative", AccountingEntry{Credit: 99.99}, -99.99},
		{"all zero", AccountingEntry{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.NetAmount(); got != tt.want {
				t.Errorf("NetAmount() = %v, want %v", got, tt.want)
			}
		})
	}
}
