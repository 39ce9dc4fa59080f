package services

import "github.com/tigerfox1974/StudyBuddy/internal/models"

// DifficultyMix is a percentage split used for multiple-choice questions.
type DifficultyMix struct {
	Simple   int
	Medium   int
	Advanced int
	Academic int
}

type DifficultySplit struct {
	Simple   int
	Medium   int
	Advanced int
	Academic int
}

func (s DifficultySplit) Total() int {
	return s.Simple + s.Medium + s.Advanced + s.Academic
}

type LevelConfig struct {
	Level               models.Level
	Name                string
	AgeRange            string
	QuestionsPerType    int
	MaxShortAnswerWords int
	Difficulty          DifficultyMix
}

// FlashcardCount is twice the per-type question count.
func (c LevelConfig) FlashcardCount() int {
	return c.QuestionsPerType * 2
}

// Simple wording for younger audiences, academic wording otherwise.
func (c LevelConfig) SimpleLanguage() bool {
	return c.Level == models.LevelElementary || c.Level == models.LevelMiddleSchool
}

var levelConfigs = map[models.Level]LevelConfig{
	models.LevelElementary: {
		Level: models.LevelElementary, Name: "Elementary School", AgeRange: "ages 7-11",
		QuestionsPerType: 5, MaxShortAnswerWords: 15,
		Difficulty: DifficultyMix{Simple: 60, Medium: 40},
	},
	models.LevelMiddleSchool: {
		Level: models.LevelMiddleSchool, Name: "Middle School", AgeRange: "ages 11-14",
		QuestionsPerType: 8, MaxShortAnswerWords: 25,
		Difficulty: DifficultyMix{Simple: 40, Medium: 40, Advanced: 20},
	},
	models.LevelHighSchool: {
		Level: models.LevelHighSchool, Name: "High School", AgeRange: "ages 14-18",
		QuestionsPerType: 10, MaxShortAnswerWords: 40,
		Difficulty: DifficultyMix{Simple: 20, Medium: 40, Advanced: 30, Academic: 10},
	},
	models.LevelUniversity: {
		Level: models.LevelUniversity, Name: "University", AgeRange: "ages 18+",
		QuestionsPerType: 12, MaxShortAnswerWords: 60,
		Difficulty: DifficultyMix{Simple: 10, Medium: 30, Advanced: 40, Academic: 20},
	},
	models.LevelExamPrep: {
		Level: models.LevelExamPrep, Name: "Exam Preparation", AgeRange: "ages 16+",
		QuestionsPerType: 15, MaxShortAnswerWords: 50,
		Difficulty: DifficultyMix{Simple: 10, Medium: 30, Advanced: 40, Academic: 20},
	},
}

// LevelConfigFor falls back to high school for unknown levels.
func LevelConfigFor(level models.Level) LevelConfig {
	if cfg, ok := levelConfigs[level]; ok {
		return cfg
	}
	return levelConfigs[models.LevelHighSchool]
}

// SplitDifficulty divides total by mix, rounding each tier down. The remainder
// goes to the highest tier with a non-zero share, so the parts always sum to total.
func SplitDifficulty(total int, mix DifficultyMix) DifficultySplit {
	if total <= 0 {
		return DifficultySplit{}
	}

	s := DifficultySplit{
		Simple:   total * mix.Simple / 100,
		Medium:   total * mix.Medium / 100,
		Advanced: total * mix.Advanced / 100,
		Academic: total * mix.Academic / 100,
	}

	rem := total - s.Total()
	switch {
	case rem <= 0:
	case mix.Academic > 0:
		s.Academic += rem
	case mix.Advanced > 0:
		s.Advanced += rem
	case mix.Medium > 0:
		s.Medium += rem
	default:
		s.Simple += rem
	}
	return s
}
