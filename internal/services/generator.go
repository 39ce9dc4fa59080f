package services

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tigerfox1974/StudyBuddy/internal/ai"
	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

const (
	summaryTemperature   float32 = 0.5
	questionTemperature  float32 = 0.7
	flashcardTemperature float32 = 0.6
)

type GenerateRequest struct {
	Text     string
	Level    models.Level
	Role     models.Role
	Language string
}

type GenerationResult struct {
	Artifacts models.Artifacts
	Model     string
}

// Generator turns extracted text into a full study pack.
type Generator struct {
	provider ai.Provider
	shuffle  Shuffler
	log      *slog.Logger
}

func NewGenerator(provider ai.Provider, log *slog.Logger) *Generator {
	if log == nil {
		log = slog.Default()
	}
	return &Generator{provider: provider, shuffle: rand.Shuffle, log: log}
}

// WithShuffler replaces the option shuffler. Tests use it for deterministic output.
func (g *Generator) WithShuffler(s Shuffler) *Generator {
	g.shuffle = s
	return g
}

func (g *Generator) Model() string { return g.provider.Model() }

// Generate runs the six artifact calls concurrently. The first provider error
// cancels the others and is returned as a *GenerationError; parse problems only
// mark the artifact degraded.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*GenerationResult, error) {
	cfg := LevelConfigFor(req.Level)
	in := PromptInput{Text: req.Text, Level: cfg, Role: req.Role, Language: req.Language}

	var (
		out      models.Artifacts
		mu       sync.Mutex
		degraded = map[models.ArtifactKind]bool{}
	)
	markDegraded := func(kind models.ArtifactKind, err error) {
		g.log.Warn("artifact degraded", "artifact", kind, "error", err)
		mu.Lock()
		degraded[kind] = true
		mu.Unlock()
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		raw, err := g.complete(ctx, models.ArtifactSummary, buildSummaryPrompt(in), summaryTemperature, 0)
		if err != nil {
			return err
		}
		out.Summary = raw
		return nil
	})

	questionIn := in
	questionIn.Count = cfg.QuestionsPerType

	eg.Go(func() error {
		raw, err := g.complete(ctx, models.ArtifactMultipleChoice, buildMultipleChoicePrompt(questionIn), questionTemperature, questionIn.Count)
		if err != nil {
			return err
		}
		res := parseMultipleChoice(raw)
		if res.Degraded {
			markDegraded(models.ArtifactMultipleChoice, res.Err)
		} else {
			shuffleMultipleChoice(res.Records, g.shuffle)
		}
		out.MultipleChoice = res.Records
		return nil
	})

	eg.Go(func() error {
		raw, err := g.complete(ctx, models.ArtifactShortAnswer, buildShortAnswerPrompt(questionIn), questionTemperature, questionIn.Count)
		if err != nil {
			return err
		}
		res := parseShortAnswer(raw)
		if res.Degraded {
			markDegraded(models.ArtifactShortAnswer, res.Err)
		}
		out.ShortAnswer = res.Records
		return nil
	})

	eg.Go(func() error {
		raw, err := g.complete(ctx, models.ArtifactFillBlank, buildFillBlankPrompt(questionIn), questionTemperature, questionIn.Count)
		if err != nil {
			return err
		}
		res := parseFillBlank(raw)
		if res.Degraded {
			markDegraded(models.ArtifactFillBlank, res.Err)
		} else {
			shuffleFillBlank(res.Records, g.shuffle)
		}
		out.FillBlank = res.Records
		return nil
	})

	eg.Go(func() error {
		raw, err := g.complete(ctx, models.ArtifactTrueFalse, buildTrueFalsePrompt(questionIn), questionTemperature, questionIn.Count)
		if err != nil {
			return err
		}
		res := parseTrueFalse(raw)
		if res.Degraded {
			markDegraded(models.ArtifactTrueFalse, res.Err)
		}
		out.TrueFalse = res.Records
		return nil
	})

	cardIn := in
	cardIn.Count = cfg.FlashcardCount()

	eg.Go(func() error {
		raw, err := g.complete(ctx, models.ArtifactFlashcards, buildFlashcardPrompt(cardIn), flashcardTemperature, cardIn.Count)
		if err != nil {
			return err
		}
		res := parseFlashcards(raw)
		if res.Degraded {
			markDegraded(models.ArtifactFlashcards, res.Err)
		}
		out.Flashcards = res.Records
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// keep a stable order for storage and display
	for _, kind := range []models.ArtifactKind{
		models.ArtifactMultipleChoice, models.ArtifactShortAnswer, models.ArtifactFillBlank,
		models.ArtifactTrueFalse, models.ArtifactFlashcards,
	} {
		if degraded[kind] {
			out.Degraded = append(out.Degraded, kind)
		}
	}

	return &GenerationResult{Artifacts: out, Model: g.provider.Model()}, nil
}

func (g *Generator) complete(ctx context.Context, kind models.ArtifactKind, prompt string, temp float32, count int) (string, error) {
	raw, err := g.provider.Complete(ctx, ai.Request{
		Kind:        kind,
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: temp,
		Count:       count,
	})
	if err != nil {
		return "", &GenerationError{Artifact: kind, Err: err}
	}
	return raw, nil
}
