package domain

import "fmt"

// Bus topics. Events for one quiz share a partition key (the quizId), so the
// bus keeps them in order relative to each other.
const (
	// TopicJoined carries informational join announcements; nothing consumes
	// it inside the pipeline today.
	TopicJoined = "quiz.joined"
	// TopicSubmitted carries answer submissions from intake to the scorer.
	TopicSubmitted = "quiz.submitted"
	// TopicNotification carries score updates from the scorer to the gateway.
	TopicNotification = "quiz.notification"
)

// SubmissionEvent is one answer submission in flight between intake and the
// scoring engine. Transient, never persisted beyond the bus.
type SubmissionEvent struct {
	UserID     string `json:"userId"`
	QuizID     string `json:"quizId"`
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId"`
}

func (e SubmissionEvent) Validate() error {
	switch {
	case e.UserID == "":
		return fmt.Errorf("%w: userId", ErrMissingField)
	case e.QuizID == "":
		return fmt.Errorf("%w: quizId", ErrMissingField)
	case e.QuestionID == "":
		return fmt.Errorf("%w: questionId", ErrMissingField)
	case e.AnswerID == "":
		return fmt.Errorf("%w: answerId", ErrMissingField)
	}
	return nil
}

// NotificationEvent announces a participant's new score after a successful
// increment.
type NotificationEvent struct {
	UserID string `json:"userId"`
	QuizID string `json:"quizId"`
	Score  int    `json:"score"`
}

func (e NotificationEvent) Validate() error {
	switch {
	case e.UserID == "":
		return fmt.Errorf("%w: userId", ErrMissingField)
	case e.QuizID == "":
		return fmt.Errorf("%w: quizId", ErrMissingField)
	}
	return nil
}

// JoinedEvent announces that a freshly minted user joined a quiz.
type JoinedEvent struct {
	QuizID string `json:"quizId"`
	UserID string `json:"userId"`
}

func (e JoinedEvent) Validate() error {
	switch {
	case e.QuizID == "":
		return fmt.Errorf("%w: quizId", ErrMissingField)
	case e.UserID == "":
		return fmt.Errorf("%w: userId", ErrMissingField)
	}
	return nil
}
