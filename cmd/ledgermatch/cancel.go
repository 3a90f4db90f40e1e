package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrel-io/ledgermatch/internal/common"
)

func cancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <bank-transaction-id>",
		Short: "Revert a validated match back to unreconciled",
		Args:  cobra.ExactArgs(1),
		RunE:  runCancel,
	}

	cmd.Flags().String("user", "", "user recorded in the audit log")

	return cmd
}

func runCancel(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.controller.Cancel(cmd.Context(), args[0], userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NewUserError("no such bank transaction", err)
		}
		return err
	}

	fmt.Printf("Cancelled reconciliation of %s\n", args[0])
	return nil
}
