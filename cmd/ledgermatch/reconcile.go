package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrel-io/ledgermatch/internal/model"
)

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a matching pass and auto-validate unambiguous matches",
		Long: `Match unreconciled bank transactions against unreconciled accounting
entries. Matches with high confidence and a single candidate entry are
validated automatically; everything else is listed for review.`,
		RunE: runReconcile,
	}

	cmd.Flags().StringP("account", "a", "", "restrict the pass to one bank account")
	cmd.Flags().Bool("rescore", false, "order suggestions by the additive 0-100 score instead of confidence")

	return cmd
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	accountID, _ := cmd.Flags().GetString("account")
	rescore, _ := cmd.Flags().GetBool("rescore")

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := cmd.Context()
	if err := application.store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	result, err := application.controller.Reconcile(ctx, application.cfg.CompanyID, accountID)
	if err != nil {
		return fmt.Errorf("reconciliation pass failed: %w", err)
	}

	fmt.Printf("Processed %d transactions, %d matches, %d auto-validated\n",
		result.Processed, len(result.Matches), result.AutoValidated)
	if len(result.Matches) > 0 {
		parts := make([]string, 0, len(result.Stats.ByType))
		for _, mt := range []model.MatchType{model.MatchExact, model.MatchFuzzy, model.MatchManual} {
			if n := result.Stats.ByType[mt]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s=%d", mt, n))
			}
		}
		fmt.Printf("Average confidence %.2f (%s)\n",
			result.Stats.AverageConfidence, strings.Join(parts, ", "))
	}

	matches := result.Matches
	if rescore {
		matches = make([]model.ReconciliationMatch, len(result.Matches))
		copy(matches, result.Matches)
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})
	}

	for _, match := range matches {
		entryIDs := make([]string, 0, len(match.Entries))
		for _, entry := range match.Entries {
			entryIDs = append(entryIDs, entry.ID)
		}
		fmt.Printf("  %s  %-8s conf=%.2f score=%3d  [%s]  -> %s\n",
			match.Transaction.ID,
			match.Type,
			match.Confidence,
			match.Score,
			strings.Join(match.Criteria, ","),
			strings.Join(entryIDs, ", "))
	}

	return nil
}
