package services

import (
	"testing"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

func TestSplitDifficulty(t *testing.T) {
	tests := []struct {
		level models.Level
		total int
		want  DifficultySplit
	}{
		{models.LevelElementary, 5, DifficultySplit{Simple: 3, Medium: 2}},
		{models.LevelMiddleSchool, 8, DifficultySplit{Simple: 3, Medium: 3, Advanced: 2}},
		{models.LevelHighSchool, 10, DifficultySplit{Simple: 2, Medium: 4, Advanced: 3, Academic: 1}},
		{models.LevelUniversity, 12, DifficultySplit{Simple: 1, Medium: 3, Advanced: 4, Academic: 4}},
		{models.LevelExamPrep, 15, DifficultySplit{Simple: 1, Medium: 4, Advanced: 6, Academic: 4}},
	}

	for _, tc := range tests {
		t.Run(string(tc.level), func(t *testing.T) {
			got := SplitDifficulty(tc.total, LevelConfigFor(tc.level).Difficulty)
			if got != tc.want {
				t.Fatalf("SplitDifficulty(%d) = %+v, want %+v", tc.total, got, tc.want)
			}
		})
	}
}

func TestSplitDifficulty_AlwaysSumsToTotal(t *testing.T) {
	for _, cfg := range levelConfigs {
		for total := 0; total <= 40; total++ {
			if got := SplitDifficulty(total, cfg.Difficulty).Total(); got != total {
				t.Fatalf("%s: split of %d sums to %d", cfg.Level, total, got)
			}
		}
	}
}

func TestLevelConfigFor_FallsBackToHighSchool(t *testing.T) {
	cfg := LevelConfigFor("kindergarten")
	if cfg.Level != models.LevelHighSchool {
		t.Fatalf("expected high_school fallback, got %s", cfg.Level)
	}
	if cfg.FlashcardCount() != 20 {
		t.Fatalf("expected 20 flashcards for high school, got %d", cfg.FlashcardCount())
	}
}
