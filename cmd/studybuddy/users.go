package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

func newUsersCommand(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage user accounts",
	}

	var req models.RegisterRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a user with the trial grant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				user, _, err := a.Accounts.Register(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with %d tokens\n", user.Email, user.ID, user.TokensRemaining)
				return nil
			})
		},
	}
	create.Flags().StringVar(&req.FullName, "name", "", "Full name")
	create.Flags().StringVar(&req.Email, "email", "", "Email address")
	create.Flags().StringVar(&req.Password, "password", "", "Password (8-72 characters)")

	cmd.AddCommand(create)
	return cmd
}
