package services

import (
	"fmt"
	"strings"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

const systemPrompt = "You are an educational assistant. You produce accurate, well-structured summaries, questions and flashcards from the source material you are given. Never invent facts that are not supported by the source."

const defaultLanguage = "English"

// PromptInput is everything a prompt needs; nothing is read from ambient state.
type PromptInput struct {
	Text     string
	Level    LevelConfig
	Role     models.Role
	Language string
	Count    int
}

func (in PromptInput) language() string {
	if strings.TrimSpace(in.Language) == "" {
		return defaultLanguage
	}
	return in.Language
}

func writeAudience(b *strings.Builder, in PromptInput) {
	if in.Role == models.RoleTeacher {
		fmt.Fprintf(b, "Audience: a teacher preparing a class for %s students (%s).\n", in.Level.Name, in.Level.AgeRange)
	} else {
		fmt.Fprintf(b, "Audience: %s students (%s).\n", in.Level.Name, in.Level.AgeRange)
	}
	if in.Level.SimpleLanguage() {
		b.WriteString("Use simple, clear language with short sentences.\n")
	} else {
		b.WriteString("Use precise, academic language and go into detail.\n")
	}
	fmt.Fprintf(b, "Write all content in %s.\n\n", in.language())
}

func writeSource(b *strings.Builder, text string) {
	b.WriteString("Source text:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n\n")
}

const jsonOnly = "Respond with the JSON array only. Do not add any commentary before or after it."

func buildSummaryPrompt(in PromptInput) string {
	var b strings.Builder

	// Layer 1: task
	b.WriteString("Summarise the source text below so the audience can study from it.\n\n")

	// Layer 2: audience
	writeAudience(&b, in)

	// Layer 3: rules
	b.WriteString("Rules:\n")
	b.WriteString("1. Cover the main topics, important concepts and key points.\n")
	b.WriteString("2. Use markdown headings (##) and sub-headings, and bullet lists (-).\n")
	b.WriteString("3. Put important terms in **bold**.\n")
	b.WriteString("4. Leave a blank line between sections.\n")
	if in.Role == models.RoleTeacher {
		b.WriteString("5. End with a short section of suggested talking points for the lesson.\n")
	}
	b.WriteString("\n")

	// Layer 4: source
	writeSource(&b, in.Text)

	b.WriteString("Return the structured markdown summary only.")
	return b.String()
}

func buildMultipleChoicePrompt(in PromptInput) string {
	var b strings.Builder
	split := SplitDifficulty(in.Count, in.Level.Difficulty)

	fmt.Fprintf(&b, "Write %d multiple-choice questions about the source text below.\n\n", in.Count)
	writeAudience(&b, in)

	b.WriteString("Difficulty mix:\n")
	fmt.Fprintf(&b, "- simple (recall): %d\n", split.Simple)
	fmt.Fprintf(&b, "- medium (understanding): %d\n", split.Medium)
	fmt.Fprintf(&b, "- advanced (application/analysis): %d\n", split.Advanced)
	fmt.Fprintf(&b, "- academic (evaluation/synthesis): %d\n\n", split.Academic)

	b.WriteString("Rules:\n")
	b.WriteString("1. Every question has exactly 4 options and exactly one correct answer.\n")
	b.WriteString("2. correct_answer is the 0-based index of the correct option.\n")
	b.WriteString("3. Distractors must be plausible, not obviously wrong.\n")
	b.WriteString("4. Give a short explanation of why the answer is correct.\n")
	b.WriteString("5. Set difficulty to one of: simple, medium, advanced, academic.\n\n")

	b.WriteString("JSON format:\n")
	b.WriteString(`[{"question": "...", "options": ["...", "...", "...", "..."], "correct_answer": 0, "explanation": "...", "difficulty": "medium"}]`)
	b.WriteString("\n\n")

	writeSource(&b, in.Text)
	b.WriteString(jsonOnly)
	return b.String()
}

func buildShortAnswerPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write %d short-answer questions about the source text below.\n\n", in.Count)
	writeAudience(&b, in)

	b.WriteString("Rules:\n")
	b.WriteString("1. Questions are open-ended and check understanding, not word-for-word recall.\n")
	fmt.Fprintf(&b, "2. Each model answer is at most %d words.\n", in.Level.MaxShortAnswerWords)
	b.WriteString("3. Give up to 2 alternative phrasings that should also be accepted.\n\n")

	b.WriteString("JSON format:\n")
	b.WriteString(`[{"question": "...", "answer": "...", "alternatives": ["...", "..."]}]`)
	b.WriteString("\n\n")

	writeSource(&b, in.Text)
	b.WriteString(jsonOnly)
	return b.String()
}

func buildFillBlankPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write %d fill-in-the-blank questions about the source text below.\n\n", in.Count)
	writeAudience(&b, in)

	b.WriteString("Rules:\n")
	b.WriteString("1. Blank out a key concept, not a filler word. Mark the blank with _____.\n")
	b.WriteString("2. Give the correct answer and 3 plausible but wrong options.\n")
	b.WriteString("3. options holds all 4 choices and includes the correct answer.\n\n")

	b.WriteString("JSON format:\n")
	b.WriteString(`[{"question": "Sentence with a _____ in it.", "answer": "word", "options": ["word", "...", "...", "..."]}]`)
	b.WriteString("\n\n")

	writeSource(&b, in.Text)
	b.WriteString(jsonOnly)
	return b.String()
}

func buildTrueFalsePrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write %d true/false statements about the source text below.\n\n", in.Count)
	writeAudience(&b, in)

	b.WriteString("Rules:\n")
	b.WriteString("1. Every statement must be decidable from the source text.\n")
	b.WriteString("2. Make roughly half of the statements true and half false.\n")
	b.WriteString("3. Explain why each statement is true or false.\n\n")

	b.WriteString("JSON format:\n")
	b.WriteString(`[{"statement": "...", "is_true": true, "explanation": "..."}]`)
	b.WriteString("\n\n")

	writeSource(&b, in.Text)
	b.WriteString(jsonOnly)
	return b.String()
}

func buildFlashcardPrompt(in PromptInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write %d study flashcards about the source text below.\n\n", in.Count)
	writeAudience(&b, in)

	b.WriteString("Rules:\n")
	b.WriteString("1. The front asks a teaching-style question (why, how, what happens if), not just a term.\n")
	b.WriteString("2. The back gives a substantive explanation in 1-3 sentences, not a bare definition.\n")
	b.WriteString("3. Cover different concepts; do not repeat cards.\n\n")

	b.WriteString("JSON format:\n")
	b.WriteString(`[{"front": "...", "back": "..."}]`)
	b.WriteString("\n\n")

	writeSource(&b, in.Text)
	b.WriteString(jsonOnly)
	return b.String()
}
