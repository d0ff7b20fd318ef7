package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-sync-service/internal/domain"
)

// QuizStore is an in-memory twin of the Postgres quiz store, used by tests
// and by commands running without a database.
type QuizStore struct {
	mu           sync.RWMutex
	quizzes      map[string]domain.Quiz
	participants map[string]map[string]int // quizID -> userID -> score
}

func NewQuizStore(seed map[string]domain.Quiz) *QuizStore {
	store := &QuizStore{
		quizzes:      make(map[string]domain.Quiz),
		participants: make(map[string]map[string]int),
	}
	for id, quiz := range seed {
		store.quizzes[id] = quiz
		store.participants[id] = make(map[string]int)
	}
	return store
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = quiz
	if s.participants[quiz.ID] == nil {
		s.participants[quiz.ID] = make(map[string]int)
	}
	return nil
}

func (s *QuizStore) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quizzes := make([]domain.Quiz, 0, len(s.quizzes))
	for _, quiz := range s.quizzes {
		quizzes = append(quizzes, quiz)
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

func (s *QuizStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *QuizStore) AddParticipant(_ context.Context, quizID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	if s.participants[quizID] == nil {
		s.participants[quizID] = make(map[string]int)
	}
	// Re-joining keeps the accumulated score.
	if _, ok := s.participants[quizID][userID]; !ok {
		s.participants[quizID][userID] = 0
	}
	return nil
}

func (s *QuizStore) RemoveParticipant(_ context.Context, quizID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants[quizID], userID)
	return nil
}

func (s *QuizStore) Participants(_ context.Context, quizID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return nil, domain.ErrQuizNotFound
	}
	participants := make([]domain.Participant, 0, len(s.participants[quizID]))
	for userID, score := range s.participants[quizID] {
		participants = append(participants, domain.Participant{UserID: userID, Score: score})
	}
	sort.Slice(participants, func(i, j int) bool { return participants[i].UserID < participants[j].UserID })
	return participants, nil
}

func (s *QuizStore) QuizzesWithParticipant(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var quizIDs []string
	for quizID, members := range s.participants {
		if _, ok := members[userID]; ok {
			quizIDs = append(quizIDs, quizID)
		}
	}
	sort.Strings(quizIDs)
	return quizIDs, nil
}

func (s *QuizStore) IncrementScore(_ context.Context, quizID, userID string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.participants[quizID]
	if !ok {
		return 0, false, nil
	}
	if _, ok := members[userID]; !ok {
		return 0, false, nil
	}
	members[userID]++
	return members[userID], true, nil
}
