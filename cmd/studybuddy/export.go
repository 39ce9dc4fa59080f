package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

func newExportCommand(open appOpener) *cobra.Command {
	var (
		email  string
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export <result-id>",
		Short: "Export a stored study pack, charging the plan's export cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid result id: %w", err)
			}
			f, err := services.ParseExportFormat(format)
			if err != nil {
				return err
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				user, err := lookupUser(ctx, a, email)
				if err != nil {
					return err
				}
				file, err := a.Exports.Export(ctx, user.ID, id, f)
				if err != nil {
					return err
				}
				if out == "" {
					out = file.Filename
				}
				if err := os.WriteFile(out, file.Body, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d tokens charged)\n", out, file.TokensCharged)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Owner's email address")
	cmd.Flags().StringVar(&format, "format", "markdown", "Export format (markdown, html)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: derived from the document name)")
	return cmd
}
