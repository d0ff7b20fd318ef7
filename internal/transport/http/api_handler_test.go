package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
	"quiz-sync-service/internal/infra/memory"
)

func newAPITestServer(t *testing.T) (*httptest.Server, *memory.QuizStore) {
	t.Helper()
	store := memory.NewQuizStore(map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					ID:              "q1",
					Prompt:          "What is 2 + 2?",
					Answers:         []domain.Answer{{ID: "a1", Text: "3"}, {ID: "a2", Text: "4"}},
					CorrectAnswerID: "a2",
				},
			},
		},
	})
	cache := memory.NewQuizViewCache(app.NewQuizViewer(store), time.Minute)
	service := app.NewQuizService(store, cache, memory.NewBus(1))

	mux := http.NewServeMux()
	NewAPIHandler(service).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

func TestJoinThenSubmitAcknowledges(t *testing.T) {
	server, store := newAPITestServer(t)

	resp, err := http.Post(server.URL+"/quizzes/quiz-1/join", "application/json", nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status %d", resp.StatusCode)
	}
	var joined struct {
		UserID string          `json:"userId"`
		Quiz   domain.QuizView `json:"quiz"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&joined); err != nil {
		t.Fatalf("decode join response: %v", err)
	}
	if joined.UserID == "" || joined.Quiz.ID != "quiz-1" {
		t.Fatalf("unexpected join response %+v", joined)
	}

	body, _ := json.Marshal(map[string]string{
		"userId":     joined.UserID,
		"questionId": "q1",
		"answerId":   "a2",
	})
	resp, err = http.Post(server.URL+"/quizzes/quiz-1/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status %d", resp.StatusCode)
	}
	var ack struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Message != "submission received" {
		t.Fatalf("expected receipt acknowledgment, got %q", ack.Message)
	}

	// Intake never scores; the ack means received, not evaluated.
	participants, err := store.Participants(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(participants) != 1 || participants[0].Score != 0 {
		t.Fatalf("expected unscored participant, got %+v", participants)
	}
}

func TestGetQuizHidesCorrectAnswers(t *testing.T) {
	server, _ := newAPITestServer(t)

	resp, err := http.Get(server.URL + "/quizzes/quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status %d", resp.StatusCode)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	if strings.Contains(buf.String(), "correctAnswerId") {
		t.Fatalf("quiz view leaks correctness: %s", buf.String())
	}
}

func TestUnknownQuizIs404(t *testing.T) {
	server, _ := newAPITestServer(t)

	resp, err := http.Get(server.URL + "/quizzes/quiz-404")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	resp, err = http.Post(server.URL+"/quizzes/quiz-404/join", "application/json", nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected join 404, got %d", resp.StatusCode)
	}
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	server, _ := newAPITestServer(t)

	body, _ := json.Marshal(map[string]string{"questionId": "q1"})
	resp, err := http.Post(server.URL+"/quizzes/quiz-1/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateAndListQuizzes(t *testing.T) {
	server, _ := newAPITestServer(t)

	body, _ := json.Marshal(map[string]any{
		"title": "Capitals",
		"questions": []map[string]any{
			{
				"prompt": "Capital of France?",
				"answers": []map[string]any{
					{"id": "a1", "text": "Paris", "isCorrect": true},
					{"id": "a2", "text": "Lyon"},
				},
			},
		},
	})
	resp, err := http.Post(server.URL+"/quizzes", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/quizzes")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	var views []domain.QuizView
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 quizzes, got %d", len(views))
	}
}
