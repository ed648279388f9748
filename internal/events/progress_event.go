package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventToolUse EventType = "tool_use"
	EventInfo    EventType = "info"
	EventError   EventType = "error"
	EventDone    EventType = "done"
)

// ProgressEvent is one step of a running assistant execution, surfaced to
// the user as a rolling status message.
type ProgressEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	UserID    int64     `json:"userId"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(eventType EventType, userID int64, message string) ProgressEvent {
	return ProgressEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewToolUse records one tool invocation by the assistant.
func NewToolUse(userID int64, message string) ProgressEvent {
	return newEvent(EventToolUse, userID, message)
}

// NewInfo records an informational step.
func NewInfo(userID int64, message string) ProgressEvent {
	return newEvent(EventInfo, userID, message)
}

// NewError records a failed step.
func NewError(userID int64, message string) ProgressEvent {
	return newEvent(EventError, userID, message)
}

// NewDone marks the end of an execution.
func NewDone(userID int64, message string) ProgressEvent {
	return newEvent(EventDone, userID, message)
}
