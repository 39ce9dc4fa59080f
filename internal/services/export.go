package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/repository"
)

type ExportFormat string

const (
	ExportMarkdown ExportFormat = "markdown"
	ExportHTML     ExportFormat = "html"
)

// ParseExportFormat accepts "markdown", "md" and "html". Empty means markdown.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return ExportMarkdown, nil
	case "html":
		return ExportHTML, nil
	}
	return "", &ValidationError{Fields: map[string]string{"format": "must be one of [markdown html]"}}
}

type ExportFile struct {
	Filename      string
	ContentType   string
	Body          []byte
	TokensCharged int
}

// ExportService renders a stored study pack and charges the plan's export cost.
type ExportService struct {
	store  repository.Store
	ledger *TokenLedger
	md     goldmark.Markdown
	policy *bluemonday.Policy
	log    *slog.Logger
}

func NewExportService(store repository.Store, ledger *TokenLedger, log *slog.Logger) *ExportService {
	if log == nil {
		log = slog.Default()
	}
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
			extension.Linkify,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithXHTML(),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("id").Matching(bluemonday.SpaceSeparatedTokens).OnElements("h1", "h2", "h3", "h4", "h5", "h6")

	return &ExportService{store: store, ledger: ledger, md: md, policy: policy, log: log}
}

// Export renders content for its owner and deducts the export cost in the same
// transaction that re-checks the balance.
func (s *ExportService) Export(ctx context.Context, userID, contentID uuid.UUID, format ExportFormat) (*ExportFile, error) {
	content, err := s.store.GetGeneratedContent(ctx, contentID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && (content.Document == nil || content.Document.UserID != userID)) {
		return nil, &NotFoundError{Message: "Result not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	file, err := s.render(content, format)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(q repository.Queries) error {
		user, err := q.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		check, err := checkExport(ctx, q, s.ledger, user)
		if err != nil {
			return err
		}
		if !check.Allowed {
			return &QuotaExceededError{
				Reason:    QuotaTokens,
				Message:   check.Message,
				Required:  check.Cost,
				Available: user.TokensRemaining,
			}
		}
		if check.Cost == 0 {
			return nil
		}
		s.ledger.Deduct(user, check.Cost)
		file.TokensCharged = check.Cost
		return q.UpdateTokenAccount(ctx, user)
	})
	if err != nil {
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			return nil, quotaErr
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &NotFoundError{Message: "User not found"}
		}
		return nil, &CommitError{Err: err}
	}

	s.log.Info("study pack exported", "user_id", userID, "content_id", contentID, "format", format, "tokens_charged", file.TokensCharged)
	return file, nil
}

func (s *ExportService) render(content *models.GeneratedContent, format ExportFormat) (*ExportFile, error) {
	title := "Study pack"
	base := "study-pack"
	if content.Document != nil && content.Document.Filename != "" {
		name := strings.TrimSuffix(content.Document.Filename, filepath.Ext(content.Document.Filename))
		title = "Study pack: " + name
		base = safeFilename(name) + "-study-pack"
	}
	md := RenderStudyPackMarkdown(title, content.Artifacts)

	switch format {
	case ExportHTML:
		var buf bytes.Buffer
		if err := s.md.Convert([]byte(md), &buf); err != nil {
			return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
		}
		body := s.policy.Sanitize(buf.String())
		page := "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>" +
			html.EscapeString(title) + "</title>\n</head>\n<body>\n" + body + "</body>\n</html>\n"
		return &ExportFile{Filename: base + ".html", ContentType: "text/html; charset=utf-8", Body: []byte(page)}, nil
	default:
		return &ExportFile{Filename: base + ".md", ContentType: "text/markdown; charset=utf-8", Body: []byte(md)}, nil
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeFilename(name string) string {
	name = strings.Trim(unsafeFilenameChars.ReplaceAllString(name, "-"), "-.")
	if name == "" {
		return "document"
	}
	return name
}

var optionLetters = []string{"A", "B", "C", "D", "E", "F"}

func optionLetter(i int) string {
	if i >= 0 && i < len(optionLetters) {
		return optionLetters[i]
	}
	return fmt.Sprintf("%d", i+1)
}

// RenderStudyPackMarkdown lays out a study pack with an answer after each question.
func RenderStudyPackMarkdown(title string, a models.Artifacts) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)

	if strings.TrimSpace(a.Summary) != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(strings.TrimSpace(a.Summary))
		b.WriteString("\n\n")
	}

	if len(a.MultipleChoice) > 0 {
		b.WriteString("## Multiple choice\n\n")
		for i, q := range a.MultipleChoice {
			fmt.Fprintf(&b, "%d. **%s**\n", i+1, q.Question)
			for j, opt := range q.Options {
				fmt.Fprintf(&b, "   - %s) %s\n", optionLetter(j), opt)
			}
			if q.CorrectAnswer >= 0 && q.CorrectAnswer < len(q.Options) {
				fmt.Fprintf(&b, "\n   *Answer: %s) %s*", optionLetter(q.CorrectAnswer), q.Options[q.CorrectAnswer])
			}
			if q.Explanation != "" {
				fmt.Fprintf(&b, " %s", q.Explanation)
			}
			b.WriteString("\n\n")
		}
	}

	if len(a.ShortAnswer) > 0 {
		b.WriteString("## Short answer\n\n")
		for i, q := range a.ShortAnswer {
			fmt.Fprintf(&b, "%d. **%s**\n\n   *Answer:* %s\n", i+1, q.Question, q.Answer)
			if len(q.Alternatives) > 0 {
				fmt.Fprintf(&b, "   *Also accepted:* %s\n", strings.Join(q.Alternatives, "; "))
			}
			b.WriteString("\n")
		}
	}

	if len(a.FillBlank) > 0 {
		b.WriteString("## Fill in the blank\n\n")
		for i, q := range a.FillBlank {
			fmt.Fprintf(&b, "%d. %s\n", i+1, strings.ReplaceAll(q.Question, "_____", `\_\_\_\_\_`))
			if len(q.Options) > 0 {
				fmt.Fprintf(&b, "   Options: %s\n", strings.Join(q.Options, ", "))
			}
			fmt.Fprintf(&b, "\n   *Answer:* %s\n\n", q.Answer)
		}
	}

	if len(a.TrueFalse) > 0 {
		b.WriteString("## True or false\n\n")
		for i, q := range a.TrueFalse {
			verdict := "False"
			if q.IsTrue {
				verdict = "True"
			}
			fmt.Fprintf(&b, "%d. %s\n\n   *%s.* %s\n\n", i+1, q.Statement, verdict, q.Explanation)
		}
	}

	if len(a.Flashcards) > 0 {
		b.WriteString("## Flashcards\n\n")
		b.WriteString("| Front | Back |\n|---|---|\n")
		for _, c := range a.Flashcards {
			fmt.Fprintf(&b, "| %s | %s |\n", tableCell(c.Front), tableCell(c.Back))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
