package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-sync-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// ViewLoader produces the simplified quiz on a cache miss.
type ViewLoader interface {
	LoadView(ctx context.Context, quizID string) (domain.QuizView, error)
}

// QuizViewCache caches quiz views with TTL to avoid repeated store hits.
type QuizViewCache struct {
	loader ViewLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedView
}

type cachedView struct {
	view      domain.QuizView
	expiresAt time.Time
}

func NewQuizViewCache(loader ViewLoader, ttl time.Duration) *QuizViewCache {
	return &QuizViewCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedView),
	}
}

func (c *QuizViewCache) GetView(ctx context.Context, quizID string) (domain.QuizView, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.view, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.view, nil
		}
		c.mu.RUnlock()

		view, err := c.loader.LoadView(ctx, quizID)
		if err != nil {
			return domain.QuizView{}, err
		}
		c.store(view, now)
		return view, nil
	})
	if err != nil {
		return domain.QuizView{}, err
	}
	return result.(domain.QuizView), nil
}

func (c *QuizViewCache) PutView(_ context.Context, view domain.QuizView) error {
	c.store(view, c.clock())
	return nil
}

func (c *QuizViewCache) store(view domain.QuizView, now time.Time) {
	c.mu.Lock()
	c.cache[view.ID] = cachedView{view: view, expiresAt: now.Add(c.ttlWithJitter())}
	c.mu.Unlock()
}

func (c *QuizViewCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
