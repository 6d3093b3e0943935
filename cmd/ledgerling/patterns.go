package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledgerling/ledgerling/internal/service"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage payee patterns",
	}

	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsShowCmd())
	cmd.AddCommand(patternsDeleteCmd())

	return cmd
}

func patternsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payee patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			tenantID, err := requireTenant()
			if err != nil {
				return err
			}

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			search, _ := cmd.Flags().GetString("search")
			recurringOnly, _ := cmd.Flags().GetBool("recurring")
			limit, _ := cmd.Flags().GetInt("limit")

			patterns, err := a.db.Patterns().FindByTenant(ctx, tenantID, service.PatternFilter{
				Search:        search,
				RecurringOnly: recurringOnly,
				Limit:         limit,
			})
			if err != nil {
				return err
			}

			if len(patterns) == 0 {
				fmt.Println("No patterns found.")
				return nil
			}

			for _, p := range patterns {
				marker := " "
				if p.IsRecurring {
					marker = "R"
				}
				fmt.Printf("%s %-30s %-6s %-30s matches %-4d boost %.0f\n",
					marker, p.CanonicalName, p.AccountCode, p.AccountName, p.MatchCount, p.ConfidenceBoost)
			}
			return nil
		},
	}

	cmd.Flags().String("search", "", "Filter by canonical name substring")
	cmd.Flags().Bool("recurring", false, "Only recurring patterns")
	cmd.Flags().Int("limit", 0, "Maximum number of patterns to list")

	return cmd
}

func patternsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <canonical-name>",
		Short: "Show one payee pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tenantID, err := requireTenant()
			if err != nil {
				return err
			}

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.db.Patterns().FindByPayeeName(ctx, tenantID, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Pattern:    %s\n", p.CanonicalName)
			fmt.Printf("Account:    %s %s\n", p.AccountCode, p.AccountName)
			fmt.Printf("Matches:    %d\n", p.MatchCount)
			fmt.Printf("Boost:      %.0f\n", p.ConfidenceBoost)
			if len(p.Aliases) > 0 {
				fmt.Printf("Aliases:    %s\n", strings.Join(p.Aliases, ", "))
			}
			if p.IsRecurring && p.ExpectedAmount != nil {
				tolerance := "0"
				if p.AmountTolerance != nil {
					tolerance = p.AmountTolerance.String()
				}
				fmt.Printf("Recurring:  expected %s, tolerance %s\n", p.ExpectedAmount.String(), tolerance)
			}
			return nil
		},
	}
}

func patternsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pattern-id>",
		Short: "Delete a payee pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tenantID, err := requireTenant()
			if err != nil {
				return err
			}

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.db.Patterns().Delete(ctx, tenantID, args[0]); err != nil {
				return err
			}
			fmt.Println("Pattern deleted.")
			return nil
		},
	}
}
