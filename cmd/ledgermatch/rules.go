package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petrel-io/ledgermatch/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage reconciliation rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesAddCmd())
	cmd.AddCommand(rulesToggleCmd("enable", true))
	cmd.AddCommand(rulesToggleCmd("disable", false))
	cmd.AddCommand(rulesDeleteCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules for the configured company",
		RunE: func(cmd *cobra.Command, _ []string) error {
			all, _ := cmd.Flags().GetBool("all")

			application, err := newApp()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx := cmd.Context()
			if err := application.store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}

			rules, err := application.store.ListRules(ctx, application.cfg.CompanyID, !all)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				fmt.Println("No rules defined")
				return nil
			}

			for _, rule := range rules {
				state := "active"
				if !rule.Active {
					state = "inactive"
				}
				fmt.Printf("%s  %-8s prio=%-3d %s (%d conditions)\n",
					rule.ID, state, rule.Priority, rule.Name, len(rule.Conditions))
			}
			return nil
		},
	}
	cmd.Flags().Bool("all", false, "include inactive rules")
	return cmd
}

func rulesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <rule.json>",
		Short: "Create a rule from a JSON definition",
		Long: `Create a rule from a JSON file. Example definition:

  {
    "name": "supplier-abc",
    "priority": 10,
    "is_active": true,
    "conditions": [
      {"field": "description", "operator": "contains", "value": "SUPPLIER ABC"}
    ],
    "action": {"type": "match"}
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read rule file: %w", err)
			}

			var rule model.ReconciliationRule
			if err := json.Unmarshal(raw, &rule); err != nil {
				return fmt.Errorf("invalid rule definition: %w", err)
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

			if rule.CompanyID == "" {
				rule.CompanyID = application.cfg.CompanyID
			}
			if err := application.store.CreateRule(ctx, &rule); err != nil {
				return err
			}
			fmt.Printf("Created rule %s (%s)\n", rule.ID, rule.Name)
			return nil
		},
	}
}

func rulesToggleCmd(verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <rule-id>",
		Short: capitalize(verb) + " a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}
			defer application.Close()

			ctx := cmd.Context()
			rule, err := application.store.GetRule(ctx, args[0])
			if err != nil {
				return err
			}
			rule.Active = active
			if err := application.store.UpdateRule(ctx, rule); err != nil {
				return err
			}
			fmt.Printf("Rule %s is now %sd\n", rule.ID, verb)
			return nil
		},
	}
}

func rulesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApp()
			if err != nil {
				return err
			}
			defer application.Close()

			if err := application.store.DeleteRule(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted rule %s\n", args[0])
			return nil
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
