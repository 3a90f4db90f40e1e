package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrel-io/ledgermatch/internal/service"
)

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show reconciliation progress",
		RunE:  runSummary,
	}

	cmd.Flags().StringP("account", "a", "", "restrict to one bank account")
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	accountID, _ := cmd.Flags().GetString("account")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	if err := application.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	scope := service.SummaryScope{
		CompanyID: application.cfg.CompanyID,
		AccountID: accountID,
	}
	if fromStr != "" {
		from, parseErr := time.Parse("2006-01-02", fromStr)
		if parseErr != nil {
			return fmt.Errorf("invalid --from date: %w", parseErr)
		}
		scope.From = &from
	}
	if toStr != "" {
		to, parseErr := time.Parse("2006-01-02", toStr)
		if parseErr != nil {
			return fmt.Errorf("invalid --to date: %w", parseErr)
		}
		scope.To = &to
	}

	summary, err := application.controller.Summarize(ctx, scope)
	if err != nil {
		return fmt.Errorf("failed to compute summary: %w", err)
	}

	fmt.Printf("Bank transactions:   %d (%d matched, %d open)\n",
		summary.TotalBankTransactions, summary.Matched, summary.UnmatchedBank)
	fmt.Printf("Accounting entries:  %d (%d open)\n",
		summary.TotalAccountingEntries, summary.UnmatchedAccounting)
	fmt.Printf("Reconciliation rate: %.1f%%\n", summary.Rate)
	fmt.Printf("Amount matched:      %.2f\n", summary.AmountMatched)
	fmt.Printf("Amount outstanding:  %.2f\n", summary.AmountUnmatched)
	return nil
}
