package session

import "errors"

var (
	// ErrInvalidTransition is returned for an operation the current state does
	// not allow. The state is left unchanged.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrUnauthorized is returned by Start when the gate refuses the caller.
	ErrUnauthorized = errors.New("not authorized to start session")
	// ErrEmptyAnswer is returned by SubmitAnswer for blank text.
	ErrEmptyAnswer = errors.New("answer is empty")
	// ErrEngineClosed is returned by every operation after Close.
	ErrEngineClosed = errors.New("session engine closed")
)
