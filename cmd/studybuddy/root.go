package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
	"github.com/tigerfox1974/StudyBuddy/internal/config"
	"github.com/tigerfox1974/StudyBuddy/internal/logger"
	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

type appOpener func(ctx context.Context) (*app.App, error)

// openApp builds the services from the environment. Progress goes to the log
// rather than Redis so the CLI never needs a running broker.
func openApp(ctx context.Context) (*app.App, error) {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	log := logger.Get()
	return app.New(ctx, cfg, log, app.Options{
		Progress:  services.NewLogPublisher(log),
		SkipRedis: true,
	})
}

func newRootCommand(open appOpener) *cobra.Command {
	root := &cobra.Command{
		Use:           "studybuddy",
		Short:         "StudyBuddy operator tools",
		Long:          `Create users, process documents, inspect token balances and run cache maintenance against the configured store.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newUsersCommand(open),
		newProcessCommand(open),
		newTokensCommand(open),
		newActivateCommand(open),
		newExportCommand(open),
		newCleanupCommand(open),
	)
	return root
}

// withApp opens the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, open appOpener, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func lookupUser(ctx context.Context, a *app.App, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("--email is required")
	}
	user, err := a.Store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return user, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
