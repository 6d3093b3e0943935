package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
)

func reviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Work the review queue",
	}

	cmd.AddCommand(reviewListCmd())
	cmd.AddCommand(reviewApproveCmd())
	cmd.AddCommand(reviewSimilarCmd())

	return cmd
}

func reviewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions waiting for review",
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

			limit, _ := cmd.Flags().GetInt("limit")

			txns, err := a.db.Transactions().FindByTenant(ctx, tenantID, service.TransactionFilter{Limit: limit})
			if err != nil {
				return err
			}

			count := 0
			for _, txn := range txns {
				if txn.Status != model.StatusReviewRequired {
					continue
				}
				count++
				fmt.Printf("%s  %s  %-40s %s\n",
					txn.ID, txn.Date.Format("2006-01-02"), txn.Description, txn.Amount.String())

				cats, catErr := a.db.Categorizations().FindByTransaction(ctx, txn.ID)
				if catErr != nil {
					return catErr
				}
				for _, cat := range cats {
					fmt.Printf("    suggested %s %s  confidence %.0f  %s\n",
						cat.AccountCode, cat.AccountName, cat.Confidence, cat.Reasoning)
				}
			}
			if count == 0 {
				fmt.Println("Review queue is empty.")
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 0, "Maximum number of transactions to scan")

	return cmd
}

func reviewApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve <transaction-id>",
		Short: "Accept the suggested categorization for a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if _, err := requireTenant(); err != nil {
				return err
			}

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			cats, err := a.db.Categorizations().FindByTransaction(ctx, args[0])
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				return fmt.Errorf("transaction %s has no categorization to approve", args[0])
			}

			for _, cat := range cats {
				if err := a.db.Categorizations().Review(ctx, cat.ID); err != nil {
					return err
				}
			}
			if err := a.db.Transactions().UpdateStatus(ctx, args[0], model.StatusCategorized); err != nil {
				return err
			}

			fmt.Printf("Approved %s %s for %s\n", cats[0].AccountCode, cats[0].AccountName, args[0])
			return nil
		},
	}
}

func reviewSimilarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similar <description>",
		Short: "Show how similar transactions were categorized",
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

			limit, _ := cmd.Flags().GetInt("limit")

			cats, err := a.db.Categorizations().FindSimilarByDescription(ctx, tenantID, args[0], limit)
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Println("No similar categorizations found.")
				return nil
			}

			for _, cat := range cats {
				fmt.Printf("%s  %s %s  confidence %.0f  source %s\n",
					cat.TransactionID, cat.AccountCode, cat.AccountName, cat.Confidence, cat.Source)
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 10, "Maximum number of matches")

	return cmd
}
