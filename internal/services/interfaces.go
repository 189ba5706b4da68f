package services

import (
	"context"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
)

// EditorBackend is the part of the backend API the quiz editor uses.
// *client.Client implements it.
type EditorBackend interface {
	GetQuiz(ctx context.Context, classCode string, quizID models.FlexID) (*models.QuizMeta, error)
	CreateQuiz(ctx context.Context, classCode string, req *models.SaveQuizRequest) (*models.SaveQuizResponse, error)
	UpdateQuiz(ctx context.Context, classCode string, quizID models.FlexID, req *models.SaveQuizRequest) (*models.SaveQuizResponse, error)
}

type AttemptBackend interface {
	GetQuiz(ctx context.Context, classCode string, quizID models.FlexID) (*models.QuizMeta, error)
	StartAttempt(ctx context.Context, classCode string, quizID models.FlexID) (*models.StartAttemptResponse, error)
	SubmitAttempt(ctx context.Context, classCode string, quizID models.FlexID, req *models.SubmitAttemptRequest) (*models.SubmitAttemptResponse, error)
}

type GradingBackend interface {
	ListAttempts(ctx context.Context, classCode string, quizID models.FlexID, filter models.AttemptFilter) ([]models.AttemptSummary, error)
	GradeAttempt(ctx context.Context, classCode string, quizID, attemptID models.FlexID, req *models.GradeRequest) error
}

// SessionContext is what controllers need from the session: the bound
// classroom and a way to end the session on a 401. *session.Provider
// implements it.
type SessionContext interface {
	ClassCode() string
	Expire(ctx context.Context, reason string)
}

// Prompt identifies an irreversible action awaiting the user's yes/no.
type Prompt string

const (
	PromptStartAttempt  Prompt = "start_attempt"
	PromptSubmitAttempt Prompt = "submit_attempt"
)

// Confirmer asks the user to confirm an irreversible action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) bool
}

type ConfirmFunc func(ctx context.Context, prompt Prompt) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt Prompt) bool {
	return f(ctx, prompt)
}

// AlwaysConfirm accepts every prompt.
var AlwaysConfirm = ConfirmFunc(func(context.Context, Prompt) bool { return true })
