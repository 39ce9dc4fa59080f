package ai

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

func TestDemoProvider_ShapesMatchRequestedCount(t *testing.T) {
	d := NewDemoProvider()
	ctx := context.Background()

	tests := []struct {
		kind  models.ArtifactKind
		count int
		dest  func() any
	}{
		{models.ArtifactMultipleChoice, 5, func() any { return &[]models.MultipleChoiceQuestion{} }},
		{models.ArtifactShortAnswer, 3, func() any { return &[]models.ShortAnswerQuestion{} }},
		{models.ArtifactFillBlank, 4, func() any { return &[]models.FillBlankQuestion{} }},
		{models.ArtifactTrueFalse, 6, func() any { return &[]models.TrueFalseQuestion{} }},
		{models.ArtifactFlashcards, 10, func() any { return &[]models.Flashcard{} }},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			raw, err := d.Complete(ctx, Request{Kind: tc.kind, Count: tc.count})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.HasPrefix(raw, "```json") {
				t.Fatalf("expected fenced JSON like a real model, got %q", raw[:20])
			}

			body := strings.TrimSuffix(strings.TrimPrefix(raw, "```json\n"), "\n```")
			dest := tc.dest()
			if err := json.Unmarshal([]byte(body), dest); err != nil {
				t.Fatalf("demo output is not valid JSON: %v", err)
			}

			var got int
			switch v := dest.(type) {
			case *[]models.MultipleChoiceQuestion:
				got = len(*v)
			case *[]models.ShortAnswerQuestion:
				got = len(*v)
			case *[]models.FillBlankQuestion:
				got = len(*v)
			case *[]models.TrueFalseQuestion:
				got = len(*v)
			case *[]models.Flashcard:
				got = len(*v)
			}
			if got != tc.count {
				t.Errorf("expected %d records, got %d", tc.count, got)
			}
		})
	}
}

func TestDemoProvider_SummaryIsMarkdown(t *testing.T) {
	raw, err := NewDemoProvider().Complete(context.Background(), Request{Kind: models.ArtifactSummary})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(raw, "## ") {
		t.Errorf("expected markdown heading, got %q", raw)
	}
}

func TestDemoProvider_Deterministic(t *testing.T) {
	d := NewDemoProvider()
	req := Request{Kind: models.ArtifactMultipleChoice, Count: 3}
	a, _ := d.Complete(context.Background(), req)
	b, _ := d.Complete(context.Background(), req)
	if a != b {
		t.Error("expected identical output for identical requests")
	}
}

func TestDemoProvider_RespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDemoProvider().Complete(ctx, Request{Kind: models.ArtifactSummary}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestRateLimiter_BlocksUntilRelease(t *testing.T) {
	rl := newRateLimiter(1, 0)
	if err := rl.acquire(context.Background()); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.acquire(ctx); err == nil {
		t.Fatal("expected second acquire to fail while the only slot is held")
	}

	rl.release()
	if err := rl.acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestRateLimiter_CallContext(t *testing.T) {
	tests := []struct {
		name         string
		callTimeout  time.Duration
		wantDeadline bool
	}{
		{"no timeout", 0, false},
		{"per call timeout", 50 * time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := newRateLimiter(2, tt.callTimeout)

			// each call gets its own deadline, measured from when it starts
			first, cancelFirst := rl.callContext(context.Background())
			defer cancelFirst()
			time.Sleep(20 * time.Millisecond)
			second, cancelSecond := rl.callContext(context.Background())
			defer cancelSecond()

			d1, ok1 := first.Deadline()
			d2, ok2 := second.Deadline()
			if ok1 != tt.wantDeadline || ok2 != tt.wantDeadline {
				t.Fatalf("deadline set = %v/%v, want %v", ok1, ok2, tt.wantDeadline)
			}
			if tt.wantDeadline && !d2.After(d1) {
				t.Errorf("second deadline %v should be later than first %v", d2, d1)
			}
		})
	}
}
