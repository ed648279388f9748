package services

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers branch on these with
// errors.Is and translate them via UserMessage.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmptyTranscription = errors.New("no speech detected")
	ErrTimeout            = errors.New("operation timed out")
	ErrSubprocess         = errors.New("assistant process failed")
	ErrNoPendingChange    = errors.New("no pending change")
	ErrVersionControl     = errors.New("version control operation failed")
	ErrSessionNotFound    = errors.New("session not found")
)

// UserMessage maps any error to a short message safe to show a chat user.
// Internal detail stays in the logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthorized):
		return "You are not authorized to use this bot."
	case errors.Is(err, ErrEmptyTranscription):
		return "I couldn't hear anything in that voice message. Please try again."
	case errors.Is(err, ErrInvalidInput):
		return fmt.Sprintf("Invalid input: %v", err)
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "The operation timed out. Try a smaller request."
	case errors.Is(err, ErrNoPendingChange):
		return "There is no pending change to decide on."
	case errors.Is(err, ErrSessionNotFound):
		return "That session does not exist."
	case errors.Is(err, ErrVersionControl):
		return "A git operation failed. Check the repository state."
	case errors.Is(err, ErrSubprocess):
		return "The assistant failed to complete the request."
	default:
		return "Something went wrong. Please try again."
	}
}
