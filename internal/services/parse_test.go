package services

import (
	"strings"
	"testing"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain array", `[{"a":1}]`, `[{"a":1}]`},
		{"json fence", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"leading prose", "Here are your questions:\n[1, 2]\nGood luck!", `[1, 2]`},
		{"no array", "sorry, I cannot help", "sorry, I cannot help"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanJSONResponse(tc.raw); got != tc.want {
				t.Fatalf("cleanJSONResponse() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseMultipleChoice(t *testing.T) {
	raw := "```json\n" + `[
		{"question": "Q1", "options": ["a","b","c","d"], "correct_answer": 2, "explanation": "because"},
		{"question": "", "options": ["a","b"], "correct_answer": 0},
		{"question": "Q3", "options": ["a","b","c","d"], "correct_answer": 9}
	]` + "\n```"

	res := parseMultipleChoice(raw)
	if res.Degraded {
		t.Fatalf("expected a clean parse, got err %v", res.Err)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected the blank question to be dropped, got %d records", len(res.Records))
	}
	if res.Records[1].CorrectAnswer != 0 {
		t.Fatalf("expected out-of-range answer to be reset to 0, got %d", res.Records[1].CorrectAnswer)
	}
}

func TestParse_DegradesWithOneFallbackRecord(t *testing.T) {
	bad := "the model wandered off"

	mc := parseMultipleChoice(bad)
	if !mc.Degraded || len(mc.Records) != 1 || len(mc.Records[0].Options) != 4 {
		t.Fatalf("unexpected multiple choice fallback: %+v", mc)
	}
	if !strings.Contains(mc.Records[0].Explanation, bad) {
		t.Fatalf("expected raw response in the explanation, got %q", mc.Records[0].Explanation)
	}

	sa := parseShortAnswer(bad)
	if !sa.Degraded || len(sa.Records) != 1 || sa.Records[0].Answer == "" {
		t.Fatalf("unexpected short answer fallback: %+v", sa)
	}

	fb := parseFillBlank(bad)
	if !fb.Degraded || len(fb.Records) != 1 {
		t.Fatalf("unexpected fill blank fallback: %+v", fb)
	}
	if !strings.Contains(fb.Records[0].Question, "_____") || !contains(fb.Records[0].Options, fb.Records[0].Answer) {
		t.Fatalf("fill blank fallback must stay well-formed: %+v", fb.Records[0])
	}

	tf := parseTrueFalse(bad)
	if !tf.Degraded || len(tf.Records) != 1 || tf.Records[0].Statement == "" {
		t.Fatalf("unexpected true/false fallback: %+v", tf)
	}

	fc := parseFlashcards(bad)
	if !fc.Degraded || len(fc.Records) != 1 || fc.Records[0].Front == "" || fc.Records[0].Back == "" {
		t.Fatalf("unexpected flashcard fallback: %+v", fc)
	}
}

func TestParse_EmptyArrayDegrades(t *testing.T) {
	res := parseTrueFalse("[]")
	if !res.Degraded || len(res.Records) != 1 {
		t.Fatalf("expected empty array to degrade, got %+v", res)
	}
	if res.Err != errEmptyArray {
		t.Fatalf("expected errEmptyArray, got %v", res.Err)
	}
}

func TestParseFillBlank_AddsMissingAnswerToOptions(t *testing.T) {
	raw := `[{"question": "The sun is a _____.", "answer": "star", "options": ["planet", "moon", "comet", "asteroid"]}]`
	res := parseFillBlank(raw)
	if res.Degraded {
		t.Fatalf("unexpected degradation: %v", res.Err)
	}
	q := res.Records[0]
	if len(q.Options) != 4 || !contains(q.Options, "star") {
		t.Fatalf("expected answer to replace the last distractor, got %v", q.Options)
	}
}

func TestParseShortAnswer_CapsAlternatives(t *testing.T) {
	raw := `[{"question": "Why?", "answer": "Because.", "alternatives": ["a", "b", "c"]}]`
	res := parseShortAnswer(raw)
	if len(res.Records[0].Alternatives) != 2 {
		t.Fatalf("expected at most 2 alternatives, got %v", res.Records[0].Alternatives)
	}
}

// reverse is a deterministic stand-in for rand.Shuffle.
func reverse(n int, swap func(i, j int)) {
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		swap(i, j)
	}
}

func TestShuffleMultipleChoice_RemapsAnswer(t *testing.T) {
	qs := []models.MultipleChoiceQuestion{
		{Question: "Q", Options: []string{"right", "w1", "w2", "w3"}, CorrectAnswer: 0},
		{Question: "Q", Options: []string{"w1", "w2", "right", "w3"}, CorrectAnswer: 2},
	}
	shuffleMultipleChoice(qs, reverse)

	for i, q := range qs {
		if q.Options[q.CorrectAnswer] != "right" {
			t.Fatalf("question %d: correct answer points at %q", i, q.Options[q.CorrectAnswer])
		}
	}
	if qs[0].CorrectAnswer != 3 || qs[1].CorrectAnswer != 1 {
		t.Fatalf("unexpected remapped indexes: %d, %d", qs[0].CorrectAnswer, qs[1].CorrectAnswer)
	}
}

func TestShuffleFillBlank_KeepsAnswer(t *testing.T) {
	qs := []models.FillBlankQuestion{{Question: "_____", Answer: "x", Options: []string{"x", "y", "z", "w"}}}
	shuffleFillBlank(qs, reverse)
	if qs[0].Options[3] != "x" || !contains(qs[0].Options, qs[0].Answer) {
		t.Fatalf("unexpected options after shuffle: %v", qs[0].Options)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
