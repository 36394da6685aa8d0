package bunstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"classquiz-service/internal/domain"
	"classquiz-service/internal/infra/bunstore/migrations"
	"github.com/uptrace/bun/migrate"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "quiz.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db)
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.CreateSession(ctx, "teacher", migrations.SeedTopic, "Basics")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected autoincremented id")
	}

	session, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session == nil || !session.IsActive || session.Topic != migrations.SeedTopic {
		t.Fatalf("unexpected session: %+v", session)
	}

	if err := store.CloseSession(ctx, id); err != nil {
		t.Fatalf("close session: %v", err)
	}
	session, _ = store.GetSession(ctx, id)
	if session.IsActive {
		t.Fatalf("expected inactive session after close")
	}

	missing, err := store.GetSession(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing session, got %v %v", missing, err)
	}
}

func TestListSessionsByTeacherOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first, _ := store.CreateSession(ctx, "teacher", migrations.SeedTopic, "A")
	second, _ := store.CreateSession(ctx, "teacher", migrations.SeedTopic, "B")
	if _, err := store.CreateSession(ctx, "other", migrations.SeedTopic, "C"); err != nil {
		t.Fatalf("create session: %v", err)
	}

	sessions, err := store.ListSessionsByTeacher(ctx, "teacher")
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != second || sessions[1].ID != first {
		t.Fatalf("expected newest first, got %d then %d", sessions[0].ID, sessions[1].ID)
	}
}

func TestSeededQuestions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	questions, err := store.QuestionsByTopic(ctx, migrations.SeedTopic)
	if err != nil {
		t.Fatalf("questions by topic: %v", err)
	}
	if len(questions) != 5 {
		t.Fatalf("expected 5 seeded questions, got %d", len(questions))
	}

	set, err := store.LoadQuestionSet(ctx, migrations.SeedTopic)
	if err != nil {
		t.Fatalf("load question set: %v", err)
	}
	if len(set.Questions) != 5 || len(set.Answers) != 5 {
		t.Fatalf("unexpected set sizes: %d questions, %d answers", len(set.Questions), len(set.Answers))
	}
	for _, q := range set.Questions {
		if len(q.Options) != 4 {
			t.Fatalf("expected 4 parsed options for question %d, got %d", q.ID, len(q.Options))
		}
	}

	letter, err := store.CorrectAnswer(ctx, questions[0].ID)
	if err != nil || letter != "C" {
		t.Fatalf("expected correct answer C for first seed question, got %q err=%v", letter, err)
	}
}

func TestSaveAnswersIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	id, _ := store.CreateSession(ctx, "teacher", migrations.SeedTopic, "Basics")
	questions, _ := store.QuestionsByTopic(ctx, migrations.SeedTopic)

	now := time.Now()
	recs := make([]domain.AnswerRecord, 0, len(questions))
	for i, q := range questions {
		recs = append(recs, domain.AnswerRecord{
			SessionID:      id,
			StudentID:      "stu-1",
			QuestionID:     q.ID,
			SelectedAnswer: q.CorrectAnswer,
			IsCorrect:      i < 3,
			AnsweredAt:     now,
		})
	}
	if err := store.SaveAnswers(ctx, recs); err != nil {
		t.Fatalf("save answers: %v", err)
	}
	// A retried batch hits the conflict clause row by row and writes nothing.
	if err := store.SaveAnswers(ctx, recs); err != nil {
		t.Fatalf("retried save answers: %v", err)
	}

	done, err := store.HasStudentCompleted(ctx, id, "stu-1")
	if err != nil || !done {
		t.Fatalf("expected completed student, done=%v err=%v", done, err)
	}

	stats, err := store.SkillStatistics(ctx, id)
	if err != nil {
		t.Fatalf("skill statistics: %v", err)
	}
	total := 0
	for _, stat := range stats {
		total += stat.TotalAnswers
	}
	if total != len(questions) {
		t.Fatalf("expected %d rows after retry, got %d", len(questions), total)
	}

	participants, err := store.CountDistinctParticipants(ctx, id)
	if err != nil || participants != 1 {
		t.Fatalf("expected 1 participant, got %d err=%v", participants, err)
	}
}

func TestSkillStatisticsGrouping(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	id, _ := store.CreateSession(ctx, "teacher", migrations.SeedTopic, "Basics")
	questions, _ := store.QuestionsByTopic(ctx, migrations.SeedTopic)

	// Two students on the first question's skill: one right, one wrong.
	recs := []domain.AnswerRecord{
		{SessionID: id, StudentID: "s1", QuestionID: questions[0].ID, SelectedAnswer: "C", IsCorrect: true, AnsweredAt: time.Now()},
		{SessionID: id, StudentID: "s2", QuestionID: questions[0].ID, SelectedAnswer: "A", IsCorrect: false, AnsweredAt: time.Now()},
	}
	if err := store.SaveAnswers(ctx, recs); err != nil {
		t.Fatalf("save answers: %v", err)
	}

	stats, err := store.SkillStatistics(ctx, id)
	if err != nil {
		t.Fatalf("skill statistics: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected a single skill group, got %d", len(stats))
	}
	stat := stats[0]
	if stat.SkillTag != questions[0].SkillTag || stat.TotalAnswers != 2 || stat.CorrectAnswers != 1 || stat.SuccessRate != 50.0 {
		t.Fatalf("unexpected stat: %+v", stat)
	}
}

func TestAuthenticateSeededUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	user, err := store.AuthenticateUser(ctx, "teacher", "demo123")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user == nil || user.Role != "teacher" {
		t.Fatalf("expected seeded teacher user, got %+v", user)
	}
	if user, _ := store.AuthenticateUser(ctx, "teacher", "wrong"); user != nil {
		t.Fatalf("expected nil user for wrong password")
	}
}
