package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
)

func newCleanupCommand(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Expire stale cache entries and lapsed subscriptions once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				report, err := a.Janitor.RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d documents, expired %d subscriptions\n",
					report.DocumentsDeleted, report.SubscriptionsExpired)
				return nil
			})
		},
	}
}
