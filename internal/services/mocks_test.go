package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/portfolio-quiz/internal/events"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/stretchr/testify/mock"
	"k8s.io/utils/clock"
)

// MockBackend is a mock implementation of the editor, attempt and grading backends
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetQuiz(ctx context.Context, classCode string, quizID models.FlexID) (*models.QuizMeta, error) {
	args := m.Called(ctx, classCode, quizID)
	meta, _ := args.Get(0).(*models.QuizMeta)
	return meta, args.Error(1)
}

func (m *MockBackend) CreateQuiz(ctx context.Context, classCode string, req *models.SaveQuizRequest) (*models.SaveQuizResponse, error) {
	args := m.Called(ctx, classCode, req)
	resp, _ := args.Get(0).(*models.SaveQuizResponse)
	return resp, args.Error(1)
}

func (m *MockBackend) UpdateQuiz(ctx context.Context, classCode string, quizID models.FlexID, req *models.SaveQuizRequest) (*models.SaveQuizResponse, error) {
	args := m.Called(ctx, classCode, quizID, req)
	resp, _ := args.Get(0).(*models.SaveQuizResponse)
	return resp, args.Error(1)
}

func (m *MockBackend) StartAttempt(ctx context.Context, classCode string, quizID models.FlexID) (*models.StartAttemptResponse, error) {
	args := m.Called(ctx, classCode, quizID)
	resp, _ := args.Get(0).(*models.StartAttemptResponse)
	return resp, args.Error(1)
}

func (m *MockBackend) SubmitAttempt(ctx context.Context, classCode string, quizID models.FlexID, req *models.SubmitAttemptRequest) (*models.SubmitAttemptResponse, error) {
	args := m.Called(ctx, classCode, quizID, req)
	resp, _ := args.Get(0).(*models.SubmitAttemptResponse)
	return resp, args.Error(1)
}

func (m *MockBackend) ListAttempts(ctx context.Context, classCode string, quizID models.FlexID, filter models.AttemptFilter) ([]models.AttemptSummary, error) {
	args := m.Called(ctx, classCode, quizID, filter)
	attempts, _ := args.Get(0).([]models.AttemptSummary)
	return attempts, args.Error(1)
}

func (m *MockBackend) GradeAttempt(ctx context.Context, classCode string, quizID, attemptID models.FlexID, req *models.GradeRequest) error {
	args := m.Called(ctx, classCode, quizID, attemptID, req)
	return args.Error(0)
}

// MockSession serves a fixed classroom and records expiries.
type MockSession struct {
	mock.Mock
	classCode string
}

func (m *MockSession) ClassCode() string {
	return m.classCode
}

func (m *MockSession) Expire(ctx context.Context, reason string) {
	m.Called(ctx, reason)
}

func newTestNotifier(t *testing.T, c clock.PassiveClock) (*events.Notifier, *events.MockEventPublisher) {
	t.Helper()
	pub := events.NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return events.NewNotifier(pub, c, utils.NewDiscardLogger()), pub
}

func toastMessages(pub *events.MockEventPublisher) []string {
	var out []string
	for _, t := range pub.Toasts() {
		out = append(out, t.Message)
	}
	return out
}
