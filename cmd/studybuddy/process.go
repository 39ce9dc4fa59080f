package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

func newProcessCommand(open appOpener) *cobra.Command {
	var (
		email    string
		level    string
		role     string
		language string
		markdown bool
	)

	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Generate a study pack for a document",
		Long:  `Run an upload through the full pipeline on behalf of a user: validation, cache lookup, generation and token deduction.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, open, func(ctx context.Context, a *app.App) error {
				user, err := lookupUser(ctx, a, email)
				if err != nil {
					return err
				}
				res, err := a.Workflow.ProcessUpload(ctx, services.UploadRequest{
					UserID:   user.ID,
					Filename: filepath.Base(args[0]),
					Data:     data,
					Level:    models.Level(level),
					Role:     models.Role(role),
					Language: language,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if markdown {
					fmt.Fprint(out, services.RenderStudyPackMarkdown(filepath.Base(args[0]), res.Content.Artifacts))
					return nil
				}
				return printJSON(out, res)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Owner's email address")
	cmd.Flags().StringVar(&level, "level", "", "Education level (elementary, middle_school, high_school, university, exam_prep)")
	cmd.Flags().StringVar(&role, "role", "", "Audience role (student, teacher)")
	cmd.Flags().StringVar(&language, "language", "", "Output language (default English)")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print the study pack as markdown instead of JSON")
	return cmd
}
