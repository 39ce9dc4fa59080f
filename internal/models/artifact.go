package models

type ArtifactKind string

const (
	ArtifactSummary        ArtifactKind = "summary"
	ArtifactMultipleChoice ArtifactKind = "multiple_choice"
	ArtifactShortAnswer    ArtifactKind = "short_answer"
	ArtifactFillBlank      ArtifactKind = "fill_blank"
	ArtifactTrueFalse      ArtifactKind = "true_false"
	ArtifactFlashcards     ArtifactKind = "flashcards"
)

// QuestionKinds are the billable question types, in display order.
var QuestionKinds = []ArtifactKind{
	ArtifactMultipleChoice,
	ArtifactShortAnswer,
	ArtifactFillBlank,
	ArtifactTrueFalse,
}

// Artifacts is the full study pack produced for one document.
type Artifacts struct {
	Summary        string                   `json:"summary"`
	MultipleChoice []MultipleChoiceQuestion `json:"multiple_choice"`
	ShortAnswer    []ShortAnswerQuestion    `json:"short_answer"`
	FillBlank      []FillBlankQuestion      `json:"fill_blank"`
	TrueFalse      []TrueFalseQuestion      `json:"true_false"`
	Flashcards     []Flashcard              `json:"flashcards"`

	// Degraded lists artifacts whose model output could not be parsed and
	// hold a single fallback record instead.
	Degraded []ArtifactKind `json:"degraded,omitempty"`
}

type MultipleChoiceQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Difficulty    string   `json:"difficulty,omitempty"`
}

type ShortAnswerQuestion struct {
	Question     string   `json:"question"`
	Answer       string   `json:"answer"`
	Alternatives []string `json:"alternatives,omitempty"`
}

type FillBlankQuestion struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Options  []string `json:"options"`
}

type TrueFalseQuestion struct {
	Statement   string `json:"statement"`
	IsTrue      bool   `json:"is_true"`
	Explanation string `json:"explanation"`
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// TrimInfo records how many questions of one type were generated and how many are shown.
type TrimInfo struct {
	Generated int `json:"generated"`
	Shown     int `json:"shown"`
	Limit     int `json:"limit"`
}
