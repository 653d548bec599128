package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a test-taking session does not exist.
	ErrSessionNotFound = errors.New("test session not found")
	// ErrTestNotFound indicates the test content could not be loaded.
	ErrTestNotFound = errors.New("test not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrChoiceNotFound indicates a submitted choice ID is invalid.
	ErrChoiceNotFound = errors.New("choice not found")
	// ErrSessionAlreadyResolved is returned when an answer arrives after the session resolved its result.
	ErrSessionAlreadyResolved = errors.New("session already resolved")
	// ErrSessionCompleted is returned when an answer arrives after completion was signalled.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrPersistenceWriteFailed wraps failed vote commits and session stores.
	ErrPersistenceWriteFailed = errors.New("persistence write failed")
	// ErrMalformedMatchCondition marks a result whose conditions can never be evaluated.
	ErrMalformedMatchCondition = errors.New("malformed match condition")
	// ErrNotBalanceQuestion is returned when a question does not have exactly two choices.
	ErrNotBalanceQuestion = errors.New("not a balance question")
	// ErrTallyNotLoaded is returned when voting on a question whose tally was never fetched.
	ErrTallyNotLoaded = errors.New("vote tally not loaded")
	// ErrWrongTestKind is returned when an operation does not apply to the test's kind.
	ErrWrongTestKind = errors.New("operation not supported for test kind")
)
