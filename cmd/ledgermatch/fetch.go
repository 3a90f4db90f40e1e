package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrel-io/ledgermatch/internal/feed"
	"github.com/petrel-io/ledgermatch/internal/importer"
)

func fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch transactions from the configured Plaid feed",
		Long: `Pull transactions from Plaid and run them through the same
deduplicating import path as file-based statements.

Requires plaid.client_id, plaid.secret, plaid.environment and
plaid.access_token in the configuration.`,
		RunE: runFetch,
	}

	cmd.Flags().StringP("account", "a", "", "bank account identifier (empty fetches all linked accounts)")
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD, default 30 days ago)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD, default today)")

	return cmd
}

func runFetch(cmd *cobra.Command, _ []string) error {
	accountID, _ := cmd.Flags().GetString("account")
	fromStr, _ := cmd.Flags().GetString("from")
	toStr, _ := cmd.Flags().GetString("to")

	to := time.Now()
	from := to.AddDate(0, 0, -30)
	var err error
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			return fmt.Errorf("invalid --from date: %w", err)
		}
	}
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return fmt.Errorf("invalid --to date: %w", err)
		}
	}

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	if err := application.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	plaidFeed, err := feed.NewPlaidFeed(application.cfg.Plaid)
	if err != nil {
		return err
	}

	candidates, err := plaidFeed.FetchTransactions(ctx, accountID, from, to)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	if len(candidates) == 0 {
		fmt.Println("No transactions in range")
		return nil
	}

	report, err := importer.New(application.store).ImportBatch(ctx, candidates, accountID, application.cfg.CompanyID)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Fetched %d transactions: %d imported, %d duplicates skipped, %d errors\n",
		len(candidates), report.Imported, report.Skipped, report.ErrorCount)
	return nil
}
