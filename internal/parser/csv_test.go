package parser

import (
	"testing"
	"time"

	"github.com/petrel-io/ledgermatch/internal/model"
)

func TestCSVParser_FrenchHeaders(t *testing.T) {
	raw := []byte("Date,Montant,Libellé,Référence\n" +
		`15/01/2024,-250.50,"PAYMENT TO SUPPLIER ABC",REF123` + "\n")

	parser := NewCSVParser()
	transactions, errs := parser.Parse(raw, "acc1", "co1")

	if len(errs) != 0 {
		t.Fatalf("Unexpected parse errors: %v", errs)
	}
	if len(transactions) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(transactions))
	}

	txn := transactions[0]
	want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	if !txn.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", txn.Date, want)
	}
	if txn.Amount != -250.50 {
		t.Errorf("Amount = %v, want -250.50", txn.Amount)
	}
	if txn.Description != "PAYMENT TO SUPPLIER ABC" {
		t.Errorf("Description = %q", txn.Description)
	}
	if txn.Reference != "REF123" {
		t.Errorf("Reference = %q, want REF123", txn.Reference)
	}
	if txn.Source != model.SourceCSV {
		t.Errorf("Source = %q, want csv", txn.Source)
	}
	if txn.AccountID != "acc1" || txn.CompanyID != "co1" {
		t.Errorf("Account/company = %q/%q", txn.AccountID, txn.CompanyID)
	}
}

func TestCSVParser_Parse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantCount int
		wantErrs  int
		check     func(t *testing.T, txns []model.BankTransaction)
	}{
		{
			name: "semicolon delimited export",
			raw: "Date;Montant;Libellé\n" +
				"15/01/2024;-42,10;CB CARREFOUR\n",
			wantCount: 1,
			check: func(t *testing.T, txns []model.BankTransaction) {
				if txns[0].Amount != -42.10 {
					t.Errorf("Amount = %v, want -42.10", txns[0].Amount)
				}
				if txns[0].Description != "CB CARREFOUR" {
					t.Errorf("Description = %q", txns[0].Description)
				}
			},
		},
		{
			name: "english headers with comma decimals",
			raw: "Transaction Date,Amount,Description,Ref\n" +
				"2024-02-01,\"1 234,56\",SALARY FEBRUARY,PAY-02\n",
			wantCount: 1,
			check: func(t *testing.T, txns []model.BankTransaction) {
				if txns[0].Amount != 1234.56 {
					t.Errorf("Amount = %v, want 1234.56", txns[0].Amount)
				}
			},
		},
		{
			name: "split debit and credit columns",
			raw: "Date;Débit;Crédit;Libellé\n" +
				"15/01/2024;42,10;;CB CARREFOUR\n" +
				"20/01/2024;;1500,00;VIREMENT SALAIRE\n",
			wantCount: 2,
			check: func(t *testing.T, txns []model.BankTransaction) {
				if txns[0].Amount != -42.10 {
					t.Errorf("Debit amount = %v, want -42.10", txns[0].Amount)
				}
				if txns[1].Amount != 1500.00 {
					t.Errorf("Credit amount = %v, want 1500.00", txns[1].Amount)
				}
			},
		},
		{
			name: "split columns with both empty reported as error",
			raw: "Date,Debit,Credit,Description\n" +
				"15/01/2024,,,NO AMOUNT\n" +
				"16/01/2024,5.00,,GOOD\n",
			wantCount: 1,
			wantErrs:  1,
			check: func(t *testing.T, txns []model.BankTransaction) {
				if txns[0].Amount != -5.00 {
					t.Errorf("Amount = %v, want -5.00", txns[0].Amount)
				}
			},
		},
		{
			name: "debit only column counts negative",
			raw: "Date;Débit;Libellé\n" +
				"15/01/2024;9,99;PRELEVEMENT EDF\n",
			wantCount: 1,
			check: func(t *testing.T, txns []model.BankTransaction) {
				if txns[0].Amount != -9.99 {
					t.Errorf("Amount = %v, want -9.99", txns[0].Amount)
				}
			},
		},
		{
			name: "quoted field with embedded comma and doubled quote",
			raw: "Date,Amount,Description\n" +
				`01/03/2024,-12.00,"CAFE ""LE MARAIS"", PARIS"` + "\n",
			wantCount: 1,
			check: func(t *testing.T, txns []model.BankTransaction) {
				if txns[0].Description != `CAFE "LE MARAIS", PARIS` {
					t.Errorf("Description = %q", txns[0].Description)
				}
			},
		},
		{
			name: "missing description falls back to default",
			raw: "Date,Amount\n" +
				"02/03/2024,-5.00\n",
			wantCount: 1,
			check: func(t *testing.T, txns []model.BankTransaction) {
				if txns[0].Description != "Imported transaction" {
					t.Errorf("Description = %q", txns[0].Description)
				}
			},
		},
		{
			name: "bad date reported with line number, batch continues",
			raw: "Date,Amount,Description\n" +
				"not-a-date,-5.00,BROKEN\n" +
				"02/03/2024,-5.00,GOOD\n",
			wantCount: 1,
			wantErrs:  1,
		},
		{
			name: "truncated trailing line skipped silently",
			raw: "Date,Amount,Description,Ref\n" +
				"02/03/2024,-5.00,GOOD,R1\n" +
				"02/03\n",
			wantCount: 1,
		},
		{
			name:      "header only yields nothing",
			raw:       "Date,Amount,Description\n",
			wantCount: 0,
		},
		{
			name:      "empty file reports an error",
			raw:       "",
			wantCount: 0,
			wantErrs:  1,
		},
		{
			name: "headers without date or amount column",
			raw: "Foo,Bar\n" +
				"a,b\n",
			wantCount: 0,
			wantErrs:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, errs := NewCSVParser().Parse([]byte(tt.raw), "acc1", "co1")
			if len(txns) != tt.wantCount {
				t.Fatalf("Got %d transactions, want %d (errs: %v)", len(txns), tt.wantCount, errs)
			}
			if len(errs) != tt.wantErrs {
				t.Fatalf("Got %d errors, want %d: %v", len(errs), tt.wantErrs, errs)
			}
			if tt.check != nil {
				tt.check(t, txns)
			}
		})
	}
}

func TestCSVParser_ExplicitMapping(t *testing.T) {
	raw := []byte("A,B,C\n" +
		"PAY,10/04/2024,-42.00\n")

	parser := &CSVParser{Mapping: &ColumnMapping{Date: 1, Amount: 2, Description: 0, Reference: -1}}
	txns, errs := parser.Parse(raw, "acc1", "co1")

	if len(errs) != 0 || len(txns) != 1 {
		t.Fatalf("Got %d transactions, %v errors", len(txns), errs)
	}
	if txns[0].Description != "PAY" || txns[0].Amount != -42.00 {
		t.Errorf("Unexpected transaction %+v", txns[0])
	}
}
