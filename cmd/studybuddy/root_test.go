package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tigerfox1974/StudyBuddy/internal/app"
	"github.com/tigerfox1974/StudyBuddy/internal/config"
	"github.com/tigerfox1974/StudyBuddy/internal/services"
)

func testOpener(t *testing.T) appOpener {
	t.Helper()
	cfg := &config.Config{
		DBDriver:           "sqlite",
		SQLitePath:         filepath.Join(t.TempDir(), "cli.db"),
		JWTSecret:          "cli-secret",
		AccessTokenTTL:     time.Hour,
		LLMProvider:        "demo",
		LLMConcurrency:     2,
		MaxUploadMB:        5,
		MaxInputTokens:     12000,
		UploadDir:          t.TempDir(),
		CacheRetentionDays: 30,
		JanitorInterval:    time.Hour,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, cfg, log, app.Options{Progress: services.NopPublisher{}, SkipRedis: true})
	}
}

func run(t *testing.T, open appOpener, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_EndToEnd(t *testing.T) {
	open := testOpener(t)

	out, err := run(t, open, "users", "create", "--name", "Cli User", "--email", "cli@example.com", "--password", "cli-password")
	if err != nil {
		t.Fatalf("users create: %v", err)
	}
	if !strings.Contains(out, "with 10 tokens") {
		t.Fatalf("users create output %q", out)
	}

	doc := filepath.Join(t.TempDir(), "history.txt")
	if err := os.WriteFile(doc, []byte("The printing press spread literacy across Europe in the fifteenth and sixteenth centuries."), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err = run(t, open, "process", doc, "--email", "cli@example.com", "--markdown")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !strings.Contains(out, "# history.txt") || !strings.Contains(out, "## Flashcards") {
		t.Fatalf("process output missing sections:\n%s", out)
	}

	out, err = run(t, open, "tokens", "--email", "cli@example.com", "--credit", "4")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	if !strings.Contains(out, `"tokens_remaining": 11`) {
		t.Fatalf("tokens output %q", out)
	}

	out, err = run(t, open, "activate", "--email", "cli@example.com", "--plan", "premium", "--payment-id", "pay_cli")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !strings.Contains(out, "is now on premium") {
		t.Fatalf("activate output %q", out)
	}
	out, err = run(t, open, "activate", "--email", "cli@example.com", "--plan", "premium", "--payment-id", "pay_cli")
	if err != nil || !strings.Contains(out, "already applied") {
		t.Fatalf("activate replay: %q, %v", out, err)
	}

	out, err = run(t, open, "cleanup")
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if !strings.Contains(out, "deleted 0 documents, expired 0 subscriptions") {
		t.Fatalf("cleanup output %q", out)
	}
}

func TestCLI_Errors(t *testing.T) {
	open := testOpener(t)

	if _, err := run(t, open, "tokens"); err == nil {
		t.Fatal("tokens without --email should fail")
	}
	if _, err := run(t, open, "tokens", "--email", "nobody@example.com"); err == nil {
		t.Fatal("tokens for an unknown user should fail")
	}
	if _, err := run(t, open, "process"); err == nil {
		t.Fatal("process without a file should fail")
	}
	if _, err := run(t, open, "export", "not-a-uuid", "--email", "x@example.com"); err == nil {
		t.Fatal("export with a bad id should fail")
	}
}
