package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-sync-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizStore persists quiz documents as JSONB and participant scores in a
// relational table so score updates can be a single conditional UPDATE.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		quiz.ID, data)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	return nil
}

func (s *QuizStore) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM quizzes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *QuizStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) AddParticipant(ctx context.Context, quizID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO participants (quiz_id, user_id, score)
		 SELECT $1, $2, 0 WHERE EXISTS (SELECT 1 FROM quizzes WHERE id=$1)
		 ON CONFLICT (quiz_id, user_id) DO NOTHING`,
		quizID, userID)
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the quiz does not exist or the user already joined; only the
		// former is an error.
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id=$1)`, quizID).Scan(&exists); err != nil {
			return fmt.Errorf("check quiz: %w", err)
		}
		if !exists {
			return domain.ErrQuizNotFound
		}
	}
	return nil
}

func (s *QuizStore) RemoveParticipant(ctx context.Context, quizID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM participants WHERE quiz_id=$1 AND user_id=$2`, quizID, userID)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	return nil
}

func (s *QuizStore) Participants(ctx context.Context, quizID string) ([]domain.Participant, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE id=$1)`, quizID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check quiz: %w", err)
	}
	if !exists {
		return nil, domain.ErrQuizNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT user_id, score FROM participants WHERE quiz_id=$1 ORDER BY user_id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]domain.Participant, 0)
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.UserID, &p.Score); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (s *QuizStore) QuizzesWithParticipant(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT quiz_id FROM participants WHERE user_id=$1 ORDER BY quiz_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("find quizzes: %w", err)
	}
	defer rows.Close()

	var quizIDs []string
	for rows.Next() {
		var quizID string
		if err := rows.Scan(&quizID); err != nil {
			return nil, fmt.Errorf("scan quiz id: %w", err)
		}
		quizIDs = append(quizIDs, quizID)
	}
	return quizIDs, rows.Err()
}

// IncrementScore is a single conditional UPDATE keyed by (quizID, userID), so
// concurrent increments for different users on the same quiz never lose
// updates. No matching row means the user already left; that is ok=false,
// not an error.
func (s *QuizStore) IncrementScore(ctx context.Context, quizID, userID string) (int, bool, error) {
	var score int
	err := s.pool.QueryRow(ctx,
		`UPDATE participants SET score = score + 1
		 WHERE quiz_id=$1 AND user_id=$2 RETURNING score`,
		quizID, userID).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("increment score: %w", err)
	}
	return score, true, nil
}
