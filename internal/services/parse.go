package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

// ParseResult is either the parsed records or, when Degraded is set, exactly
// one fallback record describing what went wrong.
type ParseResult[T any] struct {
	Records  []T
	Degraded bool
	Err      error
}

var errEmptyArray = errors.New("model returned no usable records")

const rawPreviewLen = 300

// cleanJSONResponse strips markdown fences. If the result still is not an
// array, it falls back to the outermost [...] span.
func cleanJSONResponse(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "[") {
		return text
	}
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

func preview(raw string) string {
	raw = strings.TrimSpace(raw)
	if len([]rune(raw)) <= rawPreviewLen {
		return raw
	}
	return string([]rune(raw)[:rawPreviewLen]) + "..."
}

func failureNote(raw string, err error) string {
	if strings.TrimSpace(raw) == "" {
		return fmt.Sprintf("Could not read the generated content (%v).", err)
	}
	return fmt.Sprintf("Could not read the generated content (%v). Raw response: %s", err, preview(raw))
}

// parseRecords decodes a JSON array, keeps the records valid reports true for
// and degrades to fallback when nothing usable is left.
func parseRecords[T any](raw string, valid func(*T) bool, fallback func(raw string, err error) T) ParseResult[T] {
	var records []T
	if err := json.Unmarshal([]byte(cleanJSONResponse(raw)), &records); err != nil {
		return ParseResult[T]{Records: []T{fallback(raw, err)}, Degraded: true, Err: err}
	}

	kept := records[:0]
	for i := range records {
		if valid(&records[i]) {
			kept = append(kept, records[i])
		}
	}
	if len(kept) == 0 {
		return ParseResult[T]{Records: []T{fallback(raw, errEmptyArray)}, Degraded: true, Err: errEmptyArray}
	}
	return ParseResult[T]{Records: kept}
}

func parseMultipleChoice(raw string) ParseResult[models.MultipleChoiceQuestion] {
	return parseRecords(raw, func(q *models.MultipleChoiceQuestion) bool {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) < 2 {
			return false
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			q.CorrectAnswer = 0
		}
		return true
	}, func(raw string, err error) models.MultipleChoiceQuestion {
		return models.MultipleChoiceQuestion{
			Question:      "An error occurred while generating this question.",
			Options:       []string{"Please try again", "-", "-", "-"},
			CorrectAnswer: 0,
			Explanation:   failureNote(raw, err),
		}
	})
}

func parseShortAnswer(raw string) ParseResult[models.ShortAnswerQuestion] {
	return parseRecords(raw, func(q *models.ShortAnswerQuestion) bool {
		if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Answer) == "" {
			return false
		}
		if len(q.Alternatives) > 2 {
			q.Alternatives = q.Alternatives[:2]
		}
		return true
	}, func(raw string, err error) models.ShortAnswerQuestion {
		return models.ShortAnswerQuestion{
			Question: "An error occurred while generating this question.",
			Answer:   failureNote(raw, err),
		}
	})
}

func parseFillBlank(raw string) ParseResult[models.FillBlankQuestion] {
	return parseRecords(raw, func(q *models.FillBlankQuestion) bool {
		if strings.TrimSpace(q.Question) == "" || strings.TrimSpace(q.Answer) == "" {
			return false
		}
		q.Options = ensureOption(q.Options, q.Answer)
		return true
	}, func(raw string, err error) models.FillBlankQuestion {
		return models.FillBlankQuestion{
			Question: failureNote(raw, err) + " Please _____ later.",
			Answer:   "retry",
			Options:  []string{"retry", "-", "-", "-"},
		}
	})
}

func parseTrueFalse(raw string) ParseResult[models.TrueFalseQuestion] {
	return parseRecords(raw, func(q *models.TrueFalseQuestion) bool {
		return strings.TrimSpace(q.Statement) != ""
	}, func(raw string, err error) models.TrueFalseQuestion {
		return models.TrueFalseQuestion{
			Statement:   "An error occurred while generating this statement.",
			IsTrue:      false,
			Explanation: failureNote(raw, err),
		}
	})
}

func parseFlashcards(raw string) ParseResult[models.Flashcard] {
	return parseRecords(raw, func(c *models.Flashcard) bool {
		return strings.TrimSpace(c.Front) != "" && strings.TrimSpace(c.Back) != ""
	}, func(raw string, err error) models.Flashcard {
		return models.Flashcard{
			Front: "An error occurred while generating flashcards.",
			Back:  failureNote(raw, err),
		}
	})
}

// ensureOption makes sure answer is one of options, replacing the last
// distractor when the list is already full.
func ensureOption(options []string, answer string) []string {
	for _, o := range options {
		if o == answer {
			return options
		}
	}
	if len(options) < 4 {
		return append(options, answer)
	}
	out := append([]string(nil), options...)
	out[len(out)-1] = answer
	return out
}

// Shuffler has the signature of rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// shuffleMultipleChoice permutes each question's options and remaps CorrectAnswer.
func shuffleMultipleChoice(questions []models.MultipleChoiceQuestion, shuffle Shuffler) {
	for i := range questions {
		q := &questions[i]
		order := make([]int, len(q.Options))
		for j := range order {
			order[j] = j
		}
		shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })

		opts := make([]string, len(order))
		correct := q.CorrectAnswer
		for j, from := range order {
			opts[j] = q.Options[from]
			if from == q.CorrectAnswer {
				correct = j
			}
		}
		q.Options = opts
		q.CorrectAnswer = correct
	}
}

// shuffleFillBlank permutes each question's options. The answer text stays in the list.
func shuffleFillBlank(questions []models.FillBlankQuestion, shuffle Shuffler) {
	for i := range questions {
		opts := questions[i].Options
		shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
	}
}
