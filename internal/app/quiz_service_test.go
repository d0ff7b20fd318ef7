package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/infra/memory"
)

func newTestService(store *memory.QuizStore, bus app.Publisher) *app.QuizService {
	cache := memory.NewQuizViewCache(app.NewQuizViewer(store), 5*time.Minute)
	return app.NewQuizService(store, cache, bus)
}

func TestJoinMintsUserAndAnnounces(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	bus := &recordingBus{}
	service := newTestService(store, bus)

	userID, view, err := service.Join(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if userID == "" {
		t.Fatalf("expected generated userId")
	}
	if view.ID != "quiz-1" || len(view.Questions) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}

	participants, err := store.Participants(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(participants) != 1 || participants[0].UserID != userID || participants[0].Score != 0 {
		t.Fatalf("expected fresh participant with score 0, got %+v", participants)
	}

	joined := bus.topic(domain.TopicJoined)
	if len(joined) != 1 {
		t.Fatalf("expected 1 joined event, got %d", len(joined))
	}
	var event domain.JoinedEvent
	if err := json.Unmarshal(joined[0], &event); err != nil {
		t.Fatalf("unmarshal joined event: %v", err)
	}
	if event.QuizID != "quiz-1" || event.UserID != userID {
		t.Fatalf("unexpected joined event %+v", event)
	}
}

func TestJoinUnknownQuiz(t *testing.T) {
	service := newTestService(newSeededStore(t), &recordingBus{})
	if _, _, err := service.Join(context.Background(), "quiz-404"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

func TestSubmitAcknowledgesWithoutScoring(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t, "u1")
	bus := &recordingBus{}
	service := newTestService(store, bus)

	err := service.SubmitAnswer(ctx, domain.SubmissionEvent{
		UserID:     "u1",
		QuizID:     "quiz-1",
		QuestionID: "q1",
		AnswerID:   "a2",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Intake only publishes; the score is untouched until the scorer runs.
	assertScore(t, store, "quiz-1", "u1", 0)
	if len(bus.topic(domain.TopicSubmitted)) != 1 {
		t.Fatalf("expected 1 submission event")
	}
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	service := newTestService(newSeededStore(t), &recordingBus{})
	err := service.SubmitAnswer(context.Background(), domain.SubmissionEvent{QuizID: "quiz-1"})
	if !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected missing field error, got %v", err)
	}
}

func TestSubmitPublishFailurePropagates(t *testing.T) {
	bus := &recordingBus{err: errors.New("broker down")}
	service := newTestService(newSeededStore(t, "u1"), bus)
	err := service.SubmitAnswer(context.Background(), domain.SubmissionEvent{
		UserID:     "u1",
		QuizID:     "quiz-1",
		QuestionID: "q1",
		AnswerID:   "a2",
	})
	if err == nil {
		t.Fatalf("expected publish failure to surface")
	}
}

func TestCreateQuizAssignsIDsAndStripsView(t *testing.T) {
	ctx := context.Background()
	store := newSeededStore(t)
	service := newTestService(store, &recordingBus{})

	view, err := service.CreateQuiz(ctx, domain.Quiz{
		Title: "Capitals",
		Questions: []domain.Question{
			{
				Prompt: "Capital of France?",
				Answers: []domain.Answer{
					{ID: "a1", Text: "Paris"},
					{ID: "a2", Text: "Lyon"},
				},
				CorrectAnswerID: "a1",
			},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if view.ID == "" || view.Questions[0].ID == "" {
		t.Fatalf("expected generated ids, got %+v", view)
	}

	// The view must never leak correctness.
	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal view: %v", err)
	}
	if strings.Contains(string(raw), "correctAnswerId") {
		t.Fatalf("view leaks correct answer id: %s", raw)
	}

	if _, err := service.CreateQuiz(ctx, domain.Quiz{}); !errors.Is(err, domain.ErrMissingField) {
		t.Fatalf("expected missing title error, got %v", err)
	}
}
