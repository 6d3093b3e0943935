package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/engine"
)

func correctCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <transaction-id>",
		Short: "Correct a categorization",
		Long: `Apply a user correction to a transaction's categorization.

A plain correction replaces the categorization with one account. Splits divide
the transaction across accounts; the amounts must sum to the transaction total.

Examples:
  ledgerling correct --tenant acme txn-123 --account 5100 --name "Groceries & Consumables"
  ledgerling correct --tenant acme txn-123 --split 5100:30000 --split 5200:19999`,
		Args: cobra.ExactArgs(1),
		RunE: runCorrect,
	}

	cmd.Flags().String("account", "", "Account code to assign")
	cmd.Flags().String("name", "", "Account name to assign")
	cmd.Flags().String("reason", "", "Reason for the correction")
	cmd.Flags().StringSlice("split", nil, "Split component as account:amount (minor units), repeatable")
	cmd.Flags().Bool("no-learn", false, "Apply the correction without updating payee patterns")
	_ = viper.BindPFlag("correct.no_learn", cmd.Flags().Lookup("no-learn"))

	return cmd
}

func runCorrect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tenantID, err := requireTenant()
	if err != nil {
		return err
	}

	account, _ := cmd.Flags().GetString("account")
	name, _ := cmd.Flags().GetString("name")
	reason, _ := cmd.Flags().GetString("reason")
	splitSpecs, _ := cmd.Flags().GetStringSlice("split")

	splits, err := parseSplits(splitSpecs)
	if err != nil {
		return err
	}
	if account == "" && len(splits) == 0 {
		return fmt.Errorf("either --account or --split is required")
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	created, err := a.engine.UpdateCategorization(ctx, args[0], tenantID, engine.Correction{
		AccountCode:      account,
		AccountName:      name,
		Reasoning:        reason,
		Splits:           splits,
		SuppressLearning: viper.GetBool("correct.no_learn"),
	})
	if err != nil {
		var conflictErr *common.ConflictError
		if errors.As(err, &conflictErr) {
			c := conflictErr.Conflict
			fmt.Printf("Correction applied, but pattern learning was skipped:\n")
			fmt.Printf("  %q is established on account %s %s (%d matches)\n",
				c.PayeeName, c.ExistingAccountCode, c.ExistingAccountName, c.MatchCount)
			fmt.Printf("  Re-run with --no-learn to silence this, or correct more transactions\n")
			fmt.Printf("  to %s to override the pattern.\n", c.ProposedAccountCode)
			return nil
		}
		return err
	}

	for _, cat := range created {
		if cat.IsSplit && cat.SplitAmount != nil {
			fmt.Printf("%s  %s %s  amount %s\n", cat.TransactionID, cat.AccountCode, cat.AccountName, cat.SplitAmount.String())
		} else {
			fmt.Printf("%s  %s %s\n", cat.TransactionID, cat.AccountCode, cat.AccountName)
		}
	}

	return nil
}

func parseSplits(specs []string) ([]engine.Split, error) {
	var splits []engine.Split
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid split %q, expected account:amount", spec)
		}
		amount, err := decimal.NewFromString(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid split amount in %q: %w", spec, err)
		}
		splits = append(splits, engine.Split{
			AccountCode: parts[0],
			Amount:      amount,
		})
	}
	return splits, nil
}
