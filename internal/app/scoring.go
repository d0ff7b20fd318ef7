package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"quiz-sync-service/internal/domain"
)

// AnswerGuard remembers which questions a user already answered. The bus is
// at-least-once, so without it a redelivered submission double-increments the
// score.
type AnswerGuard interface {
	// FirstAnswer records (quizID, userID, questionID) and reports whether
	// the tuple was seen for the first time.
	FirstAnswer(ctx context.Context, quizID, userID, questionID string) (bool, error)
}

// ScoringEngine consumes submission events, evaluates them against the quiz
// definition, applies conditional score increments, and emits notifications.
// A nil guard disables the answer-once policy; the engine then scores every
// delivery, duplicates included.
type ScoringEngine struct {
	store QuizStore
	bus   Publisher
	guard AnswerGuard
}

func NewScoringEngine(store QuizStore, bus Publisher, guard AnswerGuard) *ScoringEngine {
	return &ScoringEngine{store: store, bus: bus, guard: guard}
}

// HandleSubmission processes one submission event to completion. A nil return
// means processed (scored, incorrect, or dropped); a non-nil return is an
// infrastructure failure and kills the consuming process.
func (e *ScoringEngine) HandleSubmission(ctx context.Context, payload []byte) error {
	var event domain.SubmissionEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("scorer: drop malformed submission: %v", err)
		return nil
	}
	if err := event.Validate(); err != nil {
		log.Printf("scorer: drop submission: %v", err)
		return nil
	}

	quiz, err := e.store.GetQuiz(ctx, event.QuizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		log.Printf("scorer: drop submission for unknown quiz %s", event.QuizID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load quiz %s: %w", event.QuizID, err)
	}

	question := quiz.FindQuestion(event.QuestionID)
	if question == nil {
		log.Printf("scorer: drop submission for unknown question %s in quiz %s", event.QuestionID, event.QuizID)
		return nil
	}

	if question.CorrectAnswerID != event.AnswerID {
		// Processed, but nothing changes and nothing is emitted.
		return nil
	}

	if e.guard != nil {
		first, err := e.guard.FirstAnswer(ctx, event.QuizID, event.UserID, event.QuestionID)
		if err != nil {
			return fmt.Errorf("answer guard: %w", err)
		}
		if !first {
			log.Printf("scorer: drop duplicate answer by %s for question %s", event.UserID, event.QuestionID)
			return nil
		}
	}

	score, ok, err := e.store.IncrementScore(ctx, event.QuizID, event.UserID)
	if err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	if !ok {
		// User left before scoring completed; drop silently.
		return nil
	}

	note, err := json.Marshal(domain.NotificationEvent{
		UserID: event.UserID,
		QuizID: event.QuizID,
		Score:  score,
	})
	if err != nil {
		return err
	}
	if err := e.bus.Publish(ctx, domain.TopicNotification, event.QuizID, note); err != nil {
		return fmt.Errorf("publish %s: %w", domain.TopicNotification, err)
	}
	return nil
}
