package events

import (
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/google/uuid"
)

// EventType represents different types of notification events
type EventType string

const (
	// User-facing toast messages
	EventToast EventType = "ui.toast"

	// Editor events
	EventQuizSaved EventType = "quiz.saved"

	// Attempt events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventAttemptExpired   EventType = "attempt.expired"

	// Grading events
	EventAttemptGraded EventType = "attempt.graded"

	// Session events
	EventSessionExpired EventType = "session.expired"
)

const (
	eventSource  = "portfolio-quiz"
	eventVersion = "1.0"
)

// Level is the severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// NotificationEvent is the base event structure for all notification events
type NotificationEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type ToastEvent struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

type QuizSavedEvent struct {
	ClassCode string        `json:"class_code"`
	QuizID    models.FlexID `json:"quiz_id"`
	Title     string        `json:"title"`
	Created   bool          `json:"created"`
}

type AttemptEvent struct {
	ClassCode string        `json:"class_code"`
	QuizID    models.FlexID `json:"quiz_id"`
	AttemptID models.FlexID `json:"attempt_id"`
	AttemptNo *int          `json:"attempt_no,omitempty"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Score     *float64      `json:"score,omitempty"`
	// Automatic is set when the submit was forced by the countdown.
	Automatic bool `json:"automatic,omitempty"`
}

type AttemptGradedEvent struct {
	ClassCode string        `json:"class_code"`
	QuizID    models.FlexID `json:"quiz_id"`
	AttemptID models.FlexID `json:"attempt_id"`
	Score     float64       `json:"score"`
	Annotated int           `json:"annotated_questions"`
}

type SessionExpiredEvent struct {
	Reason string `json:"reason"`
}

// NewNotificationEvent stamps a payload with id, time and source.
func NewNotificationEvent(eventType EventType, at time.Time, data interface{}) *NotificationEvent {
	return &NotificationEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: at,
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewToastEvent(level Level, message string, at time.Time) *NotificationEvent {
	return NewNotificationEvent(EventToast, at, ToastEvent{Level: level, Message: message})
}

func GenerateEventID() string {
	return uuid.NewString()
}
