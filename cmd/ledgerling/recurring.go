package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Detect and mark recurring payments",
	}

	cmd.AddCommand(recurringDetectCmd())
	cmd.AddCommand(recurringMarkCmd())

	return cmd
}

func recurringDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <payee-name>",
		Short: "Analyze a payee's payment history for a recurring schedule",
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

			info, err := a.learner.DetectRecurring(ctx, tenantID, args[0])
			if err != nil {
				return err
			}

			if !info.IsRecurring {
				fmt.Printf("%s does not look recurring (%d occurrences)\n", info.PayeeName, info.Occurrences)
				return nil
			}

			fmt.Printf("Payee:      %s\n", info.PayeeName)
			fmt.Printf("Frequency:  %s\n", info.Frequency)
			fmt.Printf("Interval:   %.1f days (stddev %.1f)\n", info.MeanIntervalDays, info.StdDevDays)
			fmt.Printf("Average:    %s\n", info.AverageAmount.String())
			fmt.Printf("Seen:       %d times, last on %s\n", info.Occurrences, info.LastDate.Format("2006-01-02"))
			return nil
		},
	}
}

func recurringMarkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark <payee-name>",
		Short: "Mark a payee's pattern as recurring with its expected amount",
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

			info, err := a.learner.MarkRecurring(ctx, tenantID, args[0])
			if err != nil {
				return err
			}
			if !info.IsRecurring {
				return fmt.Errorf("%s does not look recurring (%d occurrences); nothing marked",
					info.PayeeName, info.Occurrences)
			}

			fmt.Printf("Marked %s as %s recurring, expected amount %s\n",
				info.PayeeName, info.Frequency, info.AverageAmount.String())
			return nil
		},
	}
}
