package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

func newActivateCommand(open appOpener) *cobra.Command {
	var (
		email     string
		plan      string
		paymentID string
	)

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Activate a paid plan for a confirmed payment",
		Long:  `Record a confirmed payment and move the user to the plan. Replaying the same payment id is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				user, err := lookupUser(ctx, a, email)
				if err != nil {
					return err
				}
				already, sub, err := a.Subscriptions.ActivateSubscription(ctx, user.ID, models.PlanType(plan), paymentID)
				if err != nil {
					return err
				}
				if already {
					fmt.Fprintf(cmd.OutOrStdout(), "payment %s already applied (subscription %s)\n", paymentID, sub.ID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now on %s until %s\n", user.Email, sub.PlanType, sub.EndDate.Format("2006-01-02"))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User's email address")
	cmd.Flags().StringVar(&plan, "plan", "", "Plan to activate (standard, premium)")
	cmd.Flags().StringVar(&paymentID, "payment-id", "", "Gateway payment id")
	return cmd
}
