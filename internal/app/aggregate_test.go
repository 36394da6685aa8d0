package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"classquiz-service/internal/app"
	"classquiz-service/internal/domain"
	"classquiz-service/internal/infra/memory"
)

func testQuestions() []domain.Question {
	return []domain.Question{
		{Topic: "Business Plan", Text: "alpha?", Options: "A) x|B) y", CorrectAnswer: "A", SkillTag: "Finanzplanung"},
		{Topic: "Business Plan", Text: "beta?", Options: "A) x|B) y", CorrectAnswer: "B", SkillTag: "Finanzplanung"},
		{Topic: "Business Plan", Text: "gamma?", Options: "A) x|B) y", CorrectAnswer: "A", SkillTag: "Marktanalyse"},
	}
}

func TestAggregateEmptySession(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(testQuestions())
	agg := app.NewAggregator(store, store)

	id, _ := store.CreateSession(ctx, "teacher", "Business Plan", "Basics")
	results, err := agg.Aggregate(ctx, id)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if results.ParticipantCount != 0 || results.OverallSuccessRate != 0 {
		t.Fatalf("expected zero stats, got %+v", results)
	}
	if results.SkillBreakdown == nil || len(results.SkillBreakdown) != 0 {
		t.Fatalf("expected empty non-nil breakdown, got %#v", results.SkillBreakdown)
	}
}

func TestAggregateUnknownSession(t *testing.T) {
	store := memory.NewStore(nil)
	agg := app.NewAggregator(store, store)
	if _, err := agg.Aggregate(context.Background(), 7); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAggregateRates(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(testQuestions())
	agg := app.NewAggregator(store, store)
	id, _ := store.CreateSession(ctx, "teacher", "Business Plan", "Basics")

	now := time.Now()
	save := func(student string, questionID int64, correct bool) {
		t.Helper()
		err := store.SaveAnswer(ctx, &domain.AnswerRecord{
			SessionID:  id,
			StudentID:  student,
			QuestionID: questionID,
			IsCorrect:  correct,
			AnsweredAt: now,
		})
		if err != nil {
			t.Fatalf("save answer: %v", err)
		}
	}

	// Finanzplanung: 3 of 4 correct. Marktanalyse: 0 of 2 correct.
	save("s1", 1, true)
	save("s1", 2, true)
	save("s1", 3, false)
	save("s2", 1, true)
	save("s2", 2, false)
	save("s2", 3, false)

	results, err := agg.Aggregate(ctx, id)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if results.ParticipantCount != 2 {
		t.Fatalf("expected 2 participants, got %d", results.ParticipantCount)
	}
	if results.OverallSuccessRate != 50.0 {
		t.Fatalf("expected overall 50.0, got %v", results.OverallSuccessRate)
	}
	if len(results.SkillBreakdown) != 2 {
		t.Fatalf("expected 2 skills, got %d", len(results.SkillBreakdown))
	}
	fin, markt := results.SkillBreakdown[0], results.SkillBreakdown[1]
	if fin.SkillTag != "Finanzplanung" || fin.SuccessRate != 75.0 || fin.TotalAnswers != 4 {
		t.Fatalf("unexpected Finanzplanung stat: %+v", fin)
	}
	if markt.SkillTag != "Marktanalyse" || markt.SuccessRate != 0.0 || markt.TotalAnswers != 2 {
		t.Fatalf("unexpected Marktanalyse stat: %+v", markt)
	}

	// The aggregate payload carries skill tags only, never question text.
	raw, err := json.Marshal(results)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, text := range []string{"alpha?", "beta?", "gamma?"} {
		if strings.Contains(string(raw), text) {
			t.Fatalf("aggregate payload leaked question text %q", text)
		}
	}
}

func TestRound1(t *testing.T) {
	cases := map[float64]float64{
		66.666666: 66.7,
		33.333333: 33.3,
		100.0:     100.0,
		0.05:      0.1,
	}
	for in, want := range cases {
		if got := app.Round1(in); got != want {
			t.Errorf("Round1(%v) = %v, want %v", in, got, want)
		}
	}
}
