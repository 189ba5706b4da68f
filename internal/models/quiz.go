package models

import (
	"encoding/json"
	"time"
)

const (
	DefaultQuizTitle       = "Untitled Quiz"
	DefaultAttemptsAllowed = 1
)

type Page struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions" validate:"dive"`
}

// Clone deep-copies the page and its questions.
func (p Page) Clone() Page {
	out := p
	out.Questions = make([]Question, len(p.Questions))
	for i, q := range p.Questions {
		out.Questions[i] = q.Clone()
	}
	return out
}

// Quiz is the editor's draft. TimeLimitSeconds is nil when the quiz is untimed.
type Quiz struct {
	ID               FlexID `json:"id,omitempty"`
	Title            string `json:"title"`
	Pages            []Page `json:"pages"`
	AttemptsAllowed  int    `json:"attemptsAllowed"`
	TimeLimitSeconds *int   `json:"timeLimitSeconds"`
}

// PagesDocument is the persisted "questions" column: {"pages": [...]}.
type PagesDocument struct {
	Pages []Page `json:"pages" validate:"required,min=1,dive"`
}

// QuizMeta is the server-side view of a quiz returned by the read endpoint.
// Questions is kept raw because the backend stores it either as an embedded
// document or as a JSON-encoded string.
type QuizMeta struct {
	ID                FlexID          `json:"id"`
	Title             string          `json:"title"`
	Questions         json.RawMessage `json:"questions"`
	AttemptsAllowed   int             `json:"attempts_allowed"`
	AttemptsRemaining *int            `json:"attempts_remaining,omitempty"`
	TimeLimitSeconds  *int            `json:"time_limit_seconds"`
	StartTime         *time.Time      `json:"start_time,omitempty"`
	EndTime           *time.Time      `json:"end_time,omitempty"`
}

type QuizResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Quiz    *QuizMeta `json:"quiz,omitempty"`
}

type QuizListResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Quizzes []QuizMeta `json:"quizzes"`
}

// SaveQuizRequest is the create/update payload.
type SaveQuizRequest struct {
	Title            string        `json:"title" validate:"required,max=200"`
	Questions        PagesDocument `json:"questions"`
	AttemptsAllowed  int           `json:"attemptsAllowed" validate:"min=1"`
	StartTime        *time.Time    `json:"startTime"`
	EndTime          *time.Time    `json:"endTime"`
	TimeLimitSeconds *int          `json:"timeLimitSeconds" validate:"omitempty,min=1"`
}

type SaveQuizResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	QuizID  FlexID `json:"quizId,omitempty"`
}
