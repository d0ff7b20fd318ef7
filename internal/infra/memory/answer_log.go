package memory

import (
	"context"
	"sync"
)

// AnswerLog is the in-memory twin of the Redis answered-set guard.
type AnswerLog struct {
	mu       sync.Mutex
	answered map[string]map[string]struct{} // quizID+"\x00"+userID -> questionIDs
}

func NewAnswerLog() *AnswerLog {
	return &AnswerLog{answered: make(map[string]map[string]struct{})}
}

func (l *AnswerLog) FirstAnswer(_ context.Context, quizID, userID, questionID string) (bool, error) {
	key := quizID + "\x00" + userID
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.answered[key] == nil {
		l.answered[key] = make(map[string]struct{})
	}
	if _, ok := l.answered[key][questionID]; ok {
		return false, nil
	}
	l.answered[key][questionID] = struct{}{}
	return true, nil
}
