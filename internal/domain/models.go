package domain

// Answer is a selectable option shown to clients. Correctness lives on the
// owning Question, never on the Answer itself, so a serialized Answer is
// always safe to hand out.
type Answer struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question models an MCQ question with exactly one correct answer.
type Question struct {
	ID              string   `json:"id"`
	Prompt          string   `json:"prompt"`
	Answers         []Answer `json:"answers"`
	CorrectAnswerID string   `json:"correctAnswerId"`
	Media           string   `json:"media,omitempty"`
}

// Quiz is the full definition as the scoring engine sees it, including the
// correct-answer ids. Only the quiz store and the scorer ever hold this form.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// Participant ties a join-time generated userId to its score within one quiz.
type Participant struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

// QuestionView is a Question with the correct-answer id stripped.
type QuestionView struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Answers []Answer `json:"answers"`
	Media   string   `json:"media,omitempty"`
}

// QuizView is the simplified quiz served to clients and cached under
// quiz:<quizId>. It never carries correctness flags.
type QuizView struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Questions []QuestionView `json:"questions"`
}

// View strips everything a client must not see.
func (q Quiz) View() QuizView {
	questions := make([]QuestionView, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, QuestionView{
			ID:      question.ID,
			Prompt:  question.Prompt,
			Answers: question.Answers,
			Media:   question.Media,
		})
	}
	return QuizView{ID: q.ID, Title: q.Title, Questions: questions}
}

// FindQuestion returns the question with the given id, or nil.
func (q Quiz) FindQuestion(questionID string) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return &q.Questions[i]
		}
	}
	return nil
}
