package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrel-io/ledgermatch/internal/common"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <bank-transaction-id> <accounting-entry-id>",
		Short: "Confirm a match between a bank transaction and an accounting entry",
		Args:  cobra.ExactArgs(2),
		RunE:  runValidate,
	}

	cmd.Flags().String("user", "", "user recorded in the audit log")

	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	userID, _ := cmd.Flags().GetString("user")

	application, err := newApp()
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.controller.Validate(cmd.Context(), args[0], args[1], userID); err != nil {
		switch {
		case errors.Is(err, common.ErrAlreadyReconciled):
			return common.NewUserError("one of the records is already reconciled elsewhere; cancel that match first", err)
		case errors.Is(err, common.ErrNotFound):
			return common.NewUserError("no such bank transaction or accounting entry", err)
		}
		return err
	}

	fmt.Printf("Validated %s against %s\n", args[0], args[1])
	return nil
}
