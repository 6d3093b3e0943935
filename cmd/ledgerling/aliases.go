package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerling/ledgerling/internal/alias"
)

func aliasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aliases",
		Short: "Manage payee aliases",
		Long: `Manage the alternate spellings that resolve to a canonical payee.

Banks render the same payee many ways; aliases map those renderings onto one
pattern so corrections accumulate instead of fragmenting.`,
	}

	cmd.AddCommand(aliasesListCmd())
	cmd.AddCommand(aliasesAddCmd())
	cmd.AddCommand(aliasesDeleteCmd())
	cmd.AddCommand(aliasesSuggestCmd())

	return cmd
}

func aliasesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <canonical-name>",
		Short: "List aliases for a canonical payee",
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

			entries, err := a.aliases.Aliases(ctx, tenantID, args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No aliases.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %s\n", e.ID, e.Alias)
			}
			return nil
		},
	}
}

func aliasesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <alias> <canonical-name>",
		Short: "Attach an alias to a canonical payee",
		Args:  cobra.ExactArgs(2),
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

			pattern, err := a.aliases.Create(ctx, tenantID, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Alias attached to %q (%d aliases)\n", pattern.CanonicalName, len(pattern.Aliases))
			return nil
		},
	}
}

func aliasesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <alias-id>",
		Short: "Remove an alias by its id",
		Long:  `Remove an alias. The id is the pattern-id:alias form printed by "aliases list".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			tenantID, err := requireTenant()
			if err != nil {
				return err
			}

			id, err := alias.ParseID(args[0])
			if err != nil {
				return err
			}

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.aliases.Delete(ctx, tenantID, id); err != nil {
				return err
			}
			fmt.Println("Alias removed.")
			return nil
		},
	}
}

func aliasesSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest aliases from similar pattern names",
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

			suggestions, err := a.variations.SuggestAliases(ctx, tenantID, limit, a.cfg.SuggestionConfidenceFloor)
			if err != nil {
				return err
			}
			if len(suggestions) == 0 {
				fmt.Println("No alias suggestions.")
				return nil
			}

			for _, s := range suggestions {
				fmt.Printf("%-30s -> %-30s confidence %.0f  %s\n",
					s.PayeeName, s.SuggestedCanonical, s.Confidence, s.Reason)
			}
			fmt.Println("\nAttach one with: ledgerling aliases add <alias> <canonical-name>")
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of suggestions")

	return cmd
}
