package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-sync-service/internal/app"
	"quiz-sync-service/internal/domain"
)

// APIHandler exposes the synchronous request surface: quiz CRUD, join, and
// submission intake.
type APIHandler struct {
	service *app.QuizService
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service}
}

func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /quizzes", h.createQuiz)
	mux.HandleFunc("GET /quizzes", h.listQuizzes)
	mux.HandleFunc("GET /quizzes/{id}", h.getQuiz)
	mux.HandleFunc("POST /quizzes/{id}/join", h.joinQuiz)
	mux.HandleFunc("POST /quizzes/{id}/submit", h.submitAnswer)
}

type createQuizRequest struct {
	Title     string `json:"title"`
	Questions []struct {
		ID      string `json:"id"`
		Prompt  string `json:"prompt"`
		Media   string `json:"media"`
		Answers []struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			IsCorrect bool   `json:"isCorrect"`
		} `json:"answers"`
	} `json:"questions"`
}

type joinResponse struct {
	UserID string          `json:"userId"`
	Quiz   domain.QuizView `json:"quiz"`
}

type submitRequest struct {
	UserID     string `json:"userId"`
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

type submitResponse struct {
	Message    string                 `json:"message"`
	Submission domain.SubmissionEvent `json:"submission"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *APIHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quiz := domain.Quiz{Title: req.Title}
	for _, q := range req.Questions {
		question := domain.Question{ID: q.ID, Prompt: q.Prompt, Media: q.Media}
		for _, a := range q.Answers {
			question.Answers = append(question.Answers, domain.Answer{ID: a.ID, Text: a.Text})
			if a.IsCorrect {
				question.CorrectAnswerID = a.ID
			}
		}
		quiz.Questions = append(quiz.Questions, question)
	}

	view, err := h.service.CreateQuiz(r.Context(), quiz)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *APIHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListQuizzes(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *APIHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetQuiz(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *APIHandler) joinQuiz(w http.ResponseWriter, r *http.Request) {
	userID, view, err := h.service.Join(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{UserID: userID, Quiz: view})
}

// submitAnswer acknowledges receipt only; scoring happens asynchronously
// behind the bus.
func (h *APIHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	submission := domain.SubmissionEvent{
		UserID:     req.UserID,
		QuizID:     r.PathValue("id"),
		QuestionID: req.QuestionID,
		AnswerID:   req.AnswerID,
	}
	if err := h.service.SubmitAnswer(r.Context(), submission); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submitResponse{
		Message:    "submission received",
		Submission: submission,
	})
}

func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound):
		writeError(w, http.StatusNotFound, "quiz not found")
	case errors.Is(err, domain.ErrMissingField):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("api: %v", err)
		writeError(w, http.StatusBadGateway, "temporarily unavailable")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
