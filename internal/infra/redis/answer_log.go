package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// AnswerLog records already-answered (quizId, userId, questionId) tuples in a
// Redis set, one set per (quiz, user). SADD's return value makes the
// check-and-record atomic, so concurrent redeliveries of the same submission
// cannot both pass the guard.
type AnswerLog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAnswerLog(client *redis.Client, ttl time.Duration) *AnswerLog {
	return &AnswerLog{client: client, ttl: ttl}
}

func (l *AnswerLog) FirstAnswer(ctx context.Context, quizID, userID, questionID string) (bool, error) {
	key := "answered:" + quizID + ":" + userID
	added, err := l.client.SAdd(ctx, key, questionID).Result()
	if err != nil {
		return false, err
	}
	if l.ttl > 0 {
		_ = l.client.Expire(ctx, key, l.ttl).Err()
	}
	return added == 1, nil
}
