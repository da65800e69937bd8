package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizEmpty indicates loaded quiz content carries no questions.
	ErrQuizEmpty = errors.New("quiz has no questions")
	// ErrSessionNotFound is returned when no open session matches the id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionFinished rejects answer submissions after the final question.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrEmptyAnswer rejects blank submissions before they reach the session.
	ErrEmptyAnswer = errors.New("answer must not be empty")
)
