package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz could not be loaded from the store.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrParticipantNotFound is returned when a user acts on a quiz it never joined.
	ErrParticipantNotFound = errors.New("participant not found in quiz")
	// ErrMissingField marks an event or request that lacks a required field.
	ErrMissingField = errors.New("missing required field")
)
