package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quiz-sync-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ViewLoader produces the simplified quiz on a cache miss.
type ViewLoader interface {
	LoadView(ctx context.Context, quizID string) (domain.QuizView, error)
}

// QuizViewCache caches client-safe quiz views as JSON under quiz:<quizId> and
// falls back to the loader on a miss. Only the simplified form is ever
// cached; correct-answer ids never reach Redis through this path.
type QuizViewCache struct {
	client *redis.Client
	loader ViewLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewQuizViewCache(client *redis.Client, loader ViewLoader, ttl time.Duration) *QuizViewCache {
	return &QuizViewCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *QuizViewCache) GetView(ctx context.Context, quizID string) (domain.QuizView, error) {
	raw, err := c.client.Get(ctx, c.key(quizID)).Result()
	if err == nil {
		var view domain.QuizView
		if err := json.Unmarshal([]byte(raw), &view); err == nil {
			return view, nil
		}
		// Unreadable entry: fall through and rebuild it from the loader.
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check the cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, c.key(quizID)).Result()
		if err == nil {
			var view domain.QuizView
			if err := json.Unmarshal([]byte(raw), &view); err == nil {
				return view, nil
			}
		}

		view, err := c.loader.LoadView(ctx, quizID)
		if err != nil {
			return domain.QuizView{}, err
		}
		_ = c.set(ctx, view)
		return view, nil
	})
	if err != nil {
		return domain.QuizView{}, err
	}
	return result.(domain.QuizView), nil
}

func (c *QuizViewCache) PutView(ctx context.Context, view domain.QuizView) error {
	return c.set(ctx, view)
}

func (c *QuizViewCache) set(ctx context.Context, view domain.QuizView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(view.ID), data, c.ttlWithJitter()).Err()
}

func (c *QuizViewCache) key(quizID string) string {
	return "quiz:" + quizID
}

func (c *QuizViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// The package-level source is safe for the concurrent set paths.
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
