package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
)

func newTokensCommand(open appOpener) *cobra.Command {
	var (
		email  string
		credit int
	)

	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Show a user's token balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				user, err := lookupUser(ctx, a, email)
				if err != nil {
					return err
				}
				if credit < 0 {
					return fmt.Errorf("--credit must not be negative")
				}
				if credit > 0 {
					if err := a.Subscriptions.CreditTokens(ctx, user.ID, credit); err != nil {
						return err
					}
				}
				info, err := a.Workflow.GetTokenInfo(ctx, user.ID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User's email address")
	cmd.Flags().IntVar(&credit, "credit", 0, "Top up the balance by this many tokens first")
	return cmd
}
