package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func accuracyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accuracy",
		Short: "Report categorization accuracy per source",
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

			report, err := a.db.Metrics().Report(ctx, tenantID)
			if err != nil {
				return err
			}
			if len(report) == 0 {
				fmt.Println("No accuracy data recorded yet.")
				return nil
			}

			fmt.Printf("%-15s %12s %12s %10s\n", "SOURCE", "CATEGORIZED", "CORRECTED", "ACCURACY")
			for _, row := range report {
				fmt.Printf("%-15s %12d %12d %9.1f%%\n",
					row.Source, row.Categorized, row.Corrected, row.AccuracyRate*100)
			}
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openStorage(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStorage(db)

			fmt.Println("Database is up to date.")
			return nil
		},
	}
}
