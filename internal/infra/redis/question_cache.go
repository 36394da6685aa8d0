package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"classquiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches a topic's question set from the backing store.
type QuestionLoader interface {
	LoadQuestionSet(ctx context.Context, topic string) (domain.QuestionSet, error)
}

// QuestionCache caches question sets in Redis and falls back to a loader on
// cache miss. Layout per topic:
//
//	SET  questions:{topic}:students  <JSON of the student-facing questions>
//	HSET questions:{topic}:answers   {questionID} {correct letter}
//
// The student view and the answer hash are kept apart so the key that a
// client-facing cache consumer would read never contains a correct answer.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) QuestionSet(ctx context.Context, topic string) (domain.QuestionSet, error) {
	if set, ok := c.fromCache(ctx, topic); ok {
		return set, nil
	}

	result, err, _ := c.sf.Do(topic, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if set, ok := c.fromCache(ctx, topic); ok {
			return set, nil
		}

		set, err := c.loader.LoadQuestionSet(ctx, topic)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		data, err := json.Marshal(set.Questions)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		ttl := c.ttlWithJitter()
		pipe := c.client.Pipeline()
		pipe.Set(ctx, c.studentsKey(topic), data, ttl)
		for questionID, letter := range set.Answers {
			pipe.HSet(ctx, c.answersKey(topic), strconv.FormatInt(questionID, 10), letter)
		}
		if ttl > 0 {
			pipe.Expire(ctx, c.answersKey(topic), ttl)
		}
		_, _ = pipe.Exec(ctx)

		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (c *QuestionCache) fromCache(ctx context.Context, topic string) (domain.QuestionSet, bool) {
	data, err := c.client.Get(ctx, c.studentsKey(topic)).Bytes()
	if err != nil || len(data) == 0 {
		return domain.QuestionSet{}, false
	}
	answers, err := c.client.HGetAll(ctx, c.answersKey(topic)).Result()
	if err != nil || len(answers) == 0 {
		return domain.QuestionSet{}, false
	}

	var questions []domain.StudentQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return domain.QuestionSet{}, false
	}
	set := domain.QuestionSet{
		Topic:     topic,
		Questions: questions,
		Answers:   make(map[int64]string, len(answers)),
	}
	for id, letter := range answers {
		questionID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			continue
		}
		set.Answers[questionID] = letter
	}
	return set, true
}

func (c *QuestionCache) studentsKey(topic string) string {
	return "questions:" + topic + ":students"
}

func (c *QuestionCache) answersKey(topic string) string {
	return "questions:" + topic + ":answers"
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
