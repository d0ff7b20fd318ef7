package app

import (
	"context"
	"encoding/json"
	"fmt"

	"quiz-sync-service/internal/domain"

	"github.com/google/uuid"
)

// QuizStore abstracts the document store holding quiz definitions and the
// participant sets (Postgres, in-memory, etc).
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	AddParticipant(ctx context.Context, quizID, userID string) error
	RemoveParticipant(ctx context.Context, quizID, userID string) error
	Participants(ctx context.Context, quizID string) ([]domain.Participant, error)
	QuizzesWithParticipant(ctx context.Context, userID string) ([]string, error)
	// IncrementScore bumps the participant's score by one with a conditional
	// update keyed by (quizID, userID). ok is false when no participant
	// matched, which is not an error: the user may have left already.
	IncrementScore(ctx context.Context, quizID, userID string) (score int, ok bool, err error)
}

// Publisher publishes an event payload to a bus topic. Events sharing a key
// land on the same partition and keep their relative order.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
}

// ViewCache fronts the quiz store with client-safe quiz views.
type ViewCache interface {
	GetView(ctx context.Context, quizID string) (domain.QuizView, error)
	PutView(ctx context.Context, view domain.QuizView) error
}

// QuizService covers the synchronous request surface: quiz CRUD, join, and
// submission intake. Intake only publishes; it never scores.
type QuizService struct {
	store QuizStore
	cache ViewCache
	bus   Publisher
	newID func() string
}

func NewQuizService(store QuizStore, cache ViewCache, bus Publisher) *QuizService {
	return &QuizService{store: store, cache: cache, bus: bus, newID: uuid.NewString}
}

// CreateQuiz stores a new quiz and warms the view cache.
func (s *QuizService) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.QuizView, error) {
	if quiz.Title == "" {
		return domain.QuizView{}, fmt.Errorf("%w: title", domain.ErrMissingField)
	}
	if quiz.ID == "" {
		quiz.ID = s.newID()
	}
	for i := range quiz.Questions {
		if quiz.Questions[i].ID == "" {
			quiz.Questions[i].ID = s.newID()
		}
	}
	if err := s.store.CreateQuiz(ctx, quiz); err != nil {
		return domain.QuizView{}, err
	}
	view := quiz.View()
	if err := s.cache.PutView(ctx, view); err != nil {
		return domain.QuizView{}, fmt.Errorf("cache quiz view: %w", err)
	}
	return view, nil
}

// ListQuizzes returns client-safe views of every stored quiz.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizView, error) {
	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.QuizView, 0, len(quizzes))
	for _, quiz := range quizzes {
		views = append(views, quiz.View())
	}
	return views, nil
}

// GetQuiz returns the simplified quiz, cache-first.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.QuizView, error) {
	return s.cache.GetView(ctx, quizID)
}

// Join mints a fresh userId, adds it to the quiz's participant set, refreshes
// the cached view, and announces the join on the bus.
func (s *QuizService) Join(ctx context.Context, quizID string) (string, domain.QuizView, error) {
	userID := s.newID()
	if err := s.store.AddParticipant(ctx, quizID, userID); err != nil {
		return "", domain.QuizView{}, err
	}

	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return "", domain.QuizView{}, err
	}
	view := quiz.View()
	if err := s.cache.PutView(ctx, view); err != nil {
		return "", domain.QuizView{}, fmt.Errorf("cache quiz view: %w", err)
	}

	payload, err := json.Marshal(domain.JoinedEvent{QuizID: quizID, UserID: userID})
	if err != nil {
		return "", domain.QuizView{}, err
	}
	if err := s.bus.Publish(ctx, domain.TopicJoined, quizID, payload); err != nil {
		return "", domain.QuizView{}, fmt.Errorf("publish %s: %w", domain.TopicJoined, err)
	}
	return userID, view, nil
}

// SubmitAnswer acknowledges receipt of a submission. It performs no
// correctness check and no retry: a publish failure surfaces to the caller.
func (s *QuizService) SubmitAnswer(ctx context.Context, submission domain.SubmissionEvent) error {
	if err := submission.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(submission)
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, domain.TopicSubmitted, submission.QuizID, payload); err != nil {
		return fmt.Errorf("publish %s: %w", domain.TopicSubmitted, err)
	}
	return nil
}

// QuizViewer adapts the quiz store to the view caches' loader interfaces.
type QuizViewer struct {
	store QuizStore
}

func NewQuizViewer(store QuizStore) *QuizViewer {
	return &QuizViewer{store: store}
}

func (v *QuizViewer) LoadView(ctx context.Context, quizID string) (domain.QuizView, error) {
	quiz, err := v.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizView{}, err
	}
	return quiz.View(), nil
}
