package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are shared by the
// orchestrators, the storage adapters and the transports.
// -----------------------------------------------------------------------------

// Content errors
var (
	ErrSubtopicNotFound  = errors.New("subtopic not found")
	ErrFeedbackNotFound  = errors.New("feedback record not found")
	ErrInvalidAIResponse = errors.New("invalid AI response")
	ErrNoQuestions       = errors.New("no questions generated")
)

// Question validation errors
var (
	ErrQuestionWithoutText    = errors.New("question has no text")
	ErrQuestionWithoutOptions = errors.New("question has no options")
	ErrCorrectOptionCount     = errors.New("question must have exactly one correct option")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)
