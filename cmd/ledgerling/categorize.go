package main

import (
	"fmt"
	"log/slog"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledgerling/ledgerling/internal/engine"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize [transaction-id...]",
		Short: "Categorize transactions",
		Long: `Categorize one or more transactions.

With transaction ids, only those are processed. With --pending, all of the
tenant's pending transactions are processed as a batch.

Examples:
  ledgerling categorize --tenant acme txn-123
  ledgerling categorize --tenant acme --pending`,
		RunE: runCategorize,
	}

	cmd.Flags().Bool("pending", false, "Categorize all pending transactions for the tenant")
	cmd.Flags().Int("limit", 0, "Maximum number of pending transactions to process (0 = no limit)")
	_ = viper.BindPFlag("categorize.pending", cmd.Flags().Lookup("pending"))
	_ = viper.BindPFlag("categorize.limit", cmd.Flags().Lookup("limit"))

	return cmd
}

func runCategorize(cmd *cobra.Command, args []string) error {
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

	ids := args
	if viper.GetBool("categorize.pending") {
		if len(ids) > 0 {
			return fmt.Errorf("--pending cannot be combined with explicit transaction ids")
		}
		ids, err = pendingTransactionIDs(cmd, a, tenantID)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No pending transactions.")
			return nil
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("no transaction ids given (or use --pending)")
	}

	if len(ids) == 1 {
		cat, catErr := a.engine.CategorizeTransaction(ctx, ids[0], tenantID)
		if catErr != nil {
			return catErr
		}
		fmt.Printf("%s  %s %s  confidence %.0f  source %s\n",
			cat.TransactionID, cat.AccountCode, cat.AccountName, cat.Confidence, cat.Source)
		return nil
	}

	bar := progressbar.NewOptions(len(ids),
		progressbar.OptionSetDescription("Categorizing"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	result, err := a.engine.CategorizeBatch(ctx, tenantID, ids, func(engine.BatchItem) {
		_ = bar.Add(1)
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()

	for _, item := range result.Items {
		if item.Status == model.StatusFailed {
			slog.Warn("Transaction failed", "transaction_id", item.TransactionID, "error", item.Error)
		}
	}

	fmt.Printf("Processed %d transactions: %d categorized, %d for review, %d failed\n",
		result.Total, result.Categorized, result.ReviewRequired, result.Failed)
	fmt.Printf("Average confidence %.1f, pattern match rate %.0f%%\n",
		result.AverageConfidence, result.PatternMatchRate*100)

	return nil
}

func pendingTransactionIDs(cmd *cobra.Command, a *app, tenantID string) ([]string, error) {
	txns, err := a.db.Transactions().FindByTenant(cmd.Context(), tenantID, service.TransactionFilter{
		Limit: viper.GetInt("categorize.limit"),
	})
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, txn := range txns {
		if txn.Status == model.StatusPending || txn.Status == "" {
			ids = append(ids, txn.ID)
		}
	}
	return ids, nil
}
