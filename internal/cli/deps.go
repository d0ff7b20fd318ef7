package cli

import (
	"context"
	"time"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/config"
	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/infra/memory"
	pgstore "quiz-sync-service/internal/infra/postgres"
	redisinfra "quiz-sync-service/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
)

// deps bundles the infrastructure a command assembled from config. Every
// piece falls back to its in-memory twin when the backing service is not
// configured, so a bare `quiz-sync api` still runs.
type deps struct {
	redis *redis.Client
	pool  *pgxpool.Pool
	store app.QuizStore
	bus   interface {
		Publish(ctx context.Context, topic, key string, payload []byte) error
		Consume(ctx context.Context, topic, group string, handler func(context.Context, []byte) error) error
	}
	cache    app.ViewCache
	presence app.Presence
	guard    app.AnswerGuard
}

func buildDeps(ctx context.Context, cfg config.Config) (*deps, error) {
	d := &deps{}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		d.pool = pool
		d.store = pgstore.NewQuizStore(pool)
	} else {
		d.store = memory.NewQuizStore(sampleQuizzes())
	}

	partitions := cfg.Bus.Partitions
	block := config.TTLDuration(cfg.Bus.Block, 5*time.Second)
	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	viewer := app.NewQuizViewer(d.store)

	if d.redis != nil {
		d.bus = redisinfra.NewBus(d.redis, partitions, block)
		d.cache = redisinfra.NewQuizViewCache(d.redis, viewer, cacheTTL)
		d.presence = redisinfra.NewPresence(d.redis)
		d.guard = redisinfra.NewAnswerLog(d.redis, 24*time.Hour)
	} else {
		d.bus = memory.NewBus(partitions)
		d.cache = memory.NewQuizViewCache(viewer, cacheTTL)
		d.presence = memory.NewPresence()
		d.guard = memory.NewAnswerLog()
	}

	if !cfg.AnswerOnceEnabled() {
		d.guard = nil
	}
	return d, nil
}

func (d *deps) close() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.redis != nil {
		_ = d.redis.Close()
	}
}

// sampleQuizzes backs store-less runs; swap in Postgres for anything real.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Answers: []domain.Answer{
						{ID: "a1", Text: "3"},
						{ID: "a2", Text: "4"},
						{ID: "a3", Text: "5"},
					},
					CorrectAnswerID: "a2",
				},
			},
		},
	}
}
