package redis

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"classquiz-service/internal/domain"
	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

type countingLoader struct {
	set   domain.QuestionSet
	loads int32
}

func (l *countingLoader) LoadQuestionSet(_ context.Context, topic string) (domain.QuestionSet, error) {
	atomic.AddInt32(&l.loads, 1)
	return l.set, nil
}

func testLoader() *countingLoader {
	return &countingLoader{
		set: domain.QuestionSet{
			Topic: "Business Plan",
			Questions: []domain.StudentQuestion{
				{ID: 1, Text: "q1", Options: []domain.Option{{Letter: "A", Text: "x"}, {Letter: "B", Text: "y"}}, SkillTag: "Finanzplanung"},
				{ID: 2, Text: "q2", Options: []domain.Option{{Letter: "A", Text: "x"}, {Letter: "B", Text: "y"}}, SkillTag: "Marktanalyse"},
			},
			Answers: map[int64]string{1: "A", 2: "B"},
		},
	}
}

func newTestCache(t *testing.T, loader QuestionLoader, ttl time.Duration) (*QuestionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQuestionCache(client, loader, ttl), mr
}

func TestQuestionCacheFillsAndServesFromRedis(t *testing.T) {
	ctx := context.Background()
	loader := testLoader()
	cache, mr := newTestCache(t, loader, time.Minute)

	for i := 0; i < 3; i++ {
		set, err := cache.QuestionSet(ctx, "Business Plan")
		if err != nil {
			t.Fatalf("question set: %v", err)
		}
		if len(set.Questions) != 2 || set.Answers[2] != "B" {
			t.Fatalf("unexpected set: %+v", set)
		}
	}
	if loads := atomic.LoadInt32(&loader.loads); loads != 1 {
		t.Fatalf("expected a single loader hit, got %d", loads)
	}

	if !mr.Exists("questions:Business Plan:students") {
		t.Fatalf("expected students key in redis")
	}
	if !mr.Exists("questions:Business Plan:answers") {
		t.Fatalf("expected answers key in redis")
	}
}

func TestStudentsKeyCarriesNoAnswers(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t, testLoader(), time.Minute)

	if _, err := cache.QuestionSet(ctx, "Business Plan"); err != nil {
		t.Fatalf("question set: %v", err)
	}
	raw, err := mr.Get("questions:Business Plan:students")
	if err != nil {
		t.Fatalf("read students key: %v", err)
	}
	if strings.Contains(strings.ToLower(raw), "correct") {
		t.Fatalf("students key leaked answer data:\n%s", raw)
	}

	letter := mr.HGet("questions:Business Plan:answers", "1")
	if letter != "A" {
		t.Fatalf("expected answer hash entry A for question 1, got %q", letter)
	}
}

func TestQuestionCacheReloadsAfterExpiry(t *testing.T) {
	ctx := context.Background()
	loader := testLoader()
	cache, mr := newTestCache(t, loader, time.Minute)

	if _, err := cache.QuestionSet(ctx, "Business Plan"); err != nil {
		t.Fatalf("question set: %v", err)
	}
	// miniredis only expires on explicit time travel.
	mr.FastForward(2 * time.Minute)
	if _, err := cache.QuestionSet(ctx, "Business Plan"); err != nil {
		t.Fatalf("question set after expiry: %v", err)
	}
	if loads := atomic.LoadInt32(&loader.loads); loads != 2 {
		t.Fatalf("expected a reload after expiry, got %d loads", loads)
	}
}
