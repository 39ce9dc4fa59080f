package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

const DemoModelName = "demo"

// DemoProvider returns deterministic canned content shaped like real model output.
// It never touches the network.
type DemoProvider struct{}

func NewDemoProvider() *DemoProvider { return &DemoProvider{} }

func (d *DemoProvider) Model() string { return DemoModelName }

func (d *DemoProvider) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	n := req.Count
	if n < 1 {
		n = 1
	}

	var payload any
	switch req.Kind {
	case models.ArtifactSummary:
		return demoSummary, nil
	case models.ArtifactMultipleChoice:
		items := make([]models.MultipleChoiceQuestion, n)
		for i := range items {
			items[i] = models.MultipleChoiceQuestion{
				Question:      fmt.Sprintf("Demo question %d: which concept does the document explain?", i+1),
				Options:       []string{"Concept A", "Concept B", "Concept C", "Concept D"},
				CorrectAnswer: i % 4,
				Explanation:   "Demo mode is active. Configure an LLM provider for real questions.",
			}
		}
		payload = items
	case models.ArtifactShortAnswer:
		items := make([]models.ShortAnswerQuestion, n)
		for i := range items {
			items[i] = models.ShortAnswerQuestion{
				Question:     fmt.Sprintf("Demo short-answer question %d: what is the main idea of section %d?", i+1, i+1),
				Answer:       "The section introduces the core concept with an example.",
				Alternatives: []string{"It explains the core concept using an example."},
			}
		}
		payload = items
	case models.ArtifactFillBlank:
		items := make([]models.FillBlankQuestion, n)
		for i := range items {
			items[i] = models.FillBlankQuestion{
				Question: fmt.Sprintf("Demo sentence %d: the key term of this part is _____.", i+1),
				Answer:   "concept",
				Options:  []string{"concept", "example", "summary", "outline"},
			}
		}
		payload = items
	case models.ArtifactTrueFalse:
		items := make([]models.TrueFalseQuestion, n)
		for i := range items {
			items[i] = models.TrueFalseQuestion{
				Statement:   fmt.Sprintf("Demo statement %d is supported by the document.", i+1),
				IsTrue:      i%2 == 0,
				Explanation: "This is demo content.",
			}
		}
		payload = items
	case models.ArtifactFlashcards:
		items := make([]models.Flashcard, n)
		for i := range items {
			items[i] = models.Flashcard{
				Front: fmt.Sprintf("Why does demo concept %d matter?", i+1),
				Back:  "It links the main idea to a practical example, which makes it easier to remember and apply.",
			}
		}
		payload = items
	default:
		return "", fmt.Errorf("demo provider: unknown artifact kind %q", req.Kind)
	}

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return "```json\n" + string(b) + "\n```", nil
}

const demoSummary = `## Document Overview

This document covers the following main topics:

- **Topic one**: introduction and basic concepts
- **Topic two**: detailed explanations and examples
- **Topic three**: practical applications
- **Topic four**: conclusions and recommendations

## Key Points

The material gives learners the foundations needed to understand the subject.`
