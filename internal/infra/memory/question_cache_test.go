package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"classquiz-service/internal/domain"
)

type countingLoader struct {
	store *Store
	loads int32
}

func (l *countingLoader) LoadQuestionSet(ctx context.Context, topic string) (domain.QuestionSet, error) {
	atomic.AddInt32(&l.loads, 1)
	return l.store.LoadQuestionSet(ctx, topic)
}

func TestQuestionCacheHitsLoaderOnce(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{store: NewStore(seedQuestions())}
	cache := NewQuestionCache(loader, time.Minute)

	for i := 0; i < 5; i++ {
		set, err := cache.QuestionSet(ctx, "Business Plan")
		if err != nil {
			t.Fatalf("question set: %v", err)
		}
		if len(set.Questions) != 2 {
			t.Fatalf("expected 2 questions, got %d", len(set.Questions))
		}
	}
	if loads := atomic.LoadInt32(&loader.loads); loads != 1 {
		t.Fatalf("expected a single loader hit, got %d", loads)
	}
}

func TestQuestionCacheConcurrentFill(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{store: NewStore(seedQuestions())}
	cache := NewQuestionCache(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.QuestionSet(ctx, "Business Plan"); err != nil {
				t.Errorf("question set: %v", err)
			}
		}()
	}
	wg.Wait()

	if loads := atomic.LoadInt32(&loader.loads); loads != 1 {
		t.Fatalf("expected singleflight to collapse loads to 1, got %d", loads)
	}
}

func TestQuestionCacheExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{store: NewStore(seedQuestions())}
	cache := NewQuestionCache(loader, 50*time.Millisecond)

	if _, err := cache.QuestionSet(ctx, "Business Plan"); err != nil {
		t.Fatalf("question set: %v", err)
	}
	// TTL plus the 10% jitter ceiling.
	time.Sleep(60 * time.Millisecond)
	if _, err := cache.QuestionSet(ctx, "Business Plan"); err != nil {
		t.Fatalf("question set after expiry: %v", err)
	}
	if loads := atomic.LoadInt32(&loader.loads); loads != 2 {
		t.Fatalf("expected a reload after expiry, got %d loads", loads)
	}
}
