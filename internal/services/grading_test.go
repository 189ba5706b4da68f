package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/client"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
)

type gradingFixture struct {
	console *GradingConsole
	backend *MockBackend
	sess    *MockSession
	clock   *clocktesting.FakePassiveClock
	toasts  func() []string
}

func newGradingFixture(t *testing.T) *gradingFixture {
	t.Helper()
	clk := clocktesting.NewFakePassiveClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	backend := &MockBackend{}
	sess := &MockSession{classCode: "7B"}
	notifier, pub := newTestNotifier(t, clk)
	console := NewGradingConsole(backend, sess, notifier, clk, time.Second, utils.NewDiscardLogger())
	t.Cleanup(console.Close)
	return &gradingFixture{
		console: console,
		backend: backend,
		sess:    sess,
		clock:   clk,
		toasts:  func() []string { return toastMessages(pub) },
	}
}

func sampleAttempts() []models.AttemptSummary {
	submitted := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	return []models.AttemptSummary{
		{
			ID:              "a1",
			StudentID:       "s1",
			StudentName:     "Ana Lima",
			StudentUsername: "ana",
			AttemptNo:       1,
			Status:          models.AttemptNeedsGrading,
			Score:           ptr.To(72.5),
			Answers:         models.Answers{"q1": models.TextAnswer("Mitochondria")},
			Grading:         models.Grading{"q1": {Points: ptr.To(2.0), Feedback: "ok"}},
			Comment:         "previous comment",
			SubmittedAt:     &submitted,
		},
		{ID: "a2", StudentID: "s2", StudentUsername: "bo", AttemptNo: 2, Status: models.AttemptNeedsGrading},
	}
}

func TestGrading_LoadAndOpen(t *testing.T) {
	f := newGradingFixture(t)
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts(), nil).Once()

	assert.Equal(t, GradingLoading, f.console.State())
	require.NoError(t, f.console.Load(context.Background(), "5"))
	assert.Equal(t, GradingLoaded, f.console.State())
	assert.Len(t, f.console.Attempts(), 2)

	assert.ErrorIs(t, f.console.Open("zz"), ErrAttemptNotListed)
	require.NoError(t, f.console.Open("a1"))
	rec := f.console.Selected()
	require.NotNil(t, rec)
	assert.Equal(t, ptr.To(72.5), rec.Score)
	assert.Equal(t, "ok", rec.PerQuestion["q1"].Feedback)
	assert.Empty(t, rec.Comment, "the comment box starts empty")

	rec.PerQuestion["q1"] = models.QuestionGrade{Feedback: "mutated"}
	assert.Equal(t, "ok", f.console.Selected().PerQuestion["q1"].Feedback, "Selected returns a copy")

	f.console.CloseDetail()
	assert.Nil(t, f.console.Selected())
	assert.ErrorIs(t, f.console.SaveGrade(context.Background()), ErrNoSelection)
}

func TestGrading_ScoreOutOfRangeSendsNoPatch(t *testing.T) {
	f := newGradingFixture(t)
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts(), nil).Once()
	require.NoError(t, f.console.Load(context.Background(), "5"))
	require.NoError(t, f.console.Open("a2"))

	for _, input := range []string{"150", "-1", "", "abc", "NaN"} {
		require.NoError(t, f.console.SetScoreInput(input))
		err := f.console.SaveGrade(context.Background())
		require.Error(t, err, "input %q", input)
		assert.True(t, IsValidation(err), "input %q", input)
		assert.Equal(t, MsgScoreRange, UserMessage(err, ""))
	}

	assert.Equal(t, []string{MsgScoreRange, MsgScoreRange, MsgScoreRange, MsgScoreRange, MsgScoreRange}, f.toasts())
	assert.NotNil(t, f.console.Selected(), "the detail stays open")
	assert.False(t, f.console.Saving())
	f.backend.AssertNotCalled(t, "GradeAttempt", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGrading_SaveGradeRefreshes(t *testing.T) {
	ctx := context.Background()
	f := newGradingFixture(t)
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts(), nil).Once()
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts()[1:], nil).Once()
	f.backend.On("GradeAttempt", mock.Anything, "7B", models.FlexID("5"), models.FlexID("a1"), mock.MatchedBy(func(req *models.GradeRequest) bool {
		return req.Score == 100 &&
			req.Comment == "Great work" &&
			len(req.Grading) == 2 &&
			req.Grading["q2"].Feedback == "precise"
	})).Return(nil).Once()

	require.NoError(t, f.console.Load(ctx, "5"))
	require.NoError(t, f.console.Open("a1"))
	require.NoError(t, f.console.SetScore(100))
	require.NoError(t, f.console.Annotate("q2", ptr.To(3.0), "precise"))
	require.NoError(t, f.console.Annotate("q3", nil, ""))
	require.NoError(t, f.console.SetComment("Great work"))

	require.NoError(t, f.console.SaveGrade(ctx))
	assert.Nil(t, f.console.Selected())
	assert.Equal(t, []string{MsgGraded}, f.toasts())
	require.Len(t, f.console.Attempts(), 1)
	assert.Equal(t, models.FlexID("a2"), f.console.Attempts()[0].ID)
	f.backend.AssertExpectations(t)
}

func TestGrading_SaveGradeFailure(t *testing.T) {
	ctx := context.Background()
	f := newGradingFixture(t)
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts(), nil).Once()
	f.backend.On("GradeAttempt", mock.Anything, "7B", models.FlexID("5"), models.FlexID("a1"), mock.Anything).
		Return(&client.APIError{Status: 409}).Once()

	require.NoError(t, f.console.Load(ctx, "5"))
	require.NoError(t, f.console.Open("a1"))
	assert.Error(t, f.console.SaveGrade(ctx))
	assert.Equal(t, []string{MsgGradeFailed}, f.toasts())
	assert.NotNil(t, f.console.Selected())
	assert.False(t, f.console.Saving())
	f.backend.AssertNumberOfCalls(t, "ListAttempts", 1)
}

func TestGrading_SecondSaveWhileInFlight(t *testing.T) {
	ctx := context.Background()
	f := newGradingFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})

	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts(), nil).Once()
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts()[1:], nil).Once()
	f.backend.On("GradeAttempt", mock.Anything, "7B", models.FlexID("5"), models.FlexID("a1"), mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).Once()

	require.NoError(t, f.console.Load(ctx, "5"))
	require.NoError(t, f.console.Open("a1"))
	require.NoError(t, f.console.SetScore(80))

	first := make(chan error, 1)
	go func() { first <- f.console.SaveGrade(ctx) }()
	<-started

	assert.True(t, f.console.Saving())
	assert.ErrorIs(t, f.console.SaveGrade(ctx), ErrInFlight)

	close(release)
	select {
	case err := <-first:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("save did not finish")
	}
	assert.False(t, f.console.Saving())
	f.backend.AssertNumberOfCalls(t, "GradeAttempt", 1)
}

func TestGrading_OnFocusIsThrottled(t *testing.T) {
	ctx := context.Background()
	f := newGradingFixture(t)
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts(), nil)

	require.NoError(t, f.console.Load(ctx, "5"))

	fetched, err := f.console.OnFocus(ctx)
	require.NoError(t, err)
	assert.True(t, fetched)

	fetched, err = f.console.OnFocus(ctx)
	require.NoError(t, err)
	assert.False(t, fetched)

	f.clock.SetTime(f.clock.Now().Add(500 * time.Millisecond))
	fetched, _ = f.console.OnFocus(ctx)
	assert.False(t, fetched)

	f.clock.SetTime(f.clock.Now().Add(500 * time.Millisecond))
	fetched, _ = f.console.OnFocus(ctx)
	assert.True(t, fetched)

	f.backend.AssertNumberOfCalls(t, "ListAttempts", 3)
}

func TestGrading_NewerRefreshCancelsInFlight(t *testing.T) {
	ctx := context.Background()
	f := newGradingFixture(t)
	started := make(chan struct{})

	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts(), nil).Once()

	first := make(chan error, 1)
	go func() { first <- f.console.Load(ctx, "5") }()
	<-started

	require.NoError(t, f.console.Refresh(ctx))
	select {
	case err := <-first:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded refresh was not cancelled")
	}

	assert.Equal(t, GradingLoaded, f.console.State())
	assert.Len(t, f.console.Attempts(), 2)
	assert.Empty(t, f.toasts(), "cancellation is silent")
}

func TestGrading_SetFilter(t *testing.T) {
	ctx := context.Background()
	f := newGradingFixture(t)
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID(""), models.FilterCompleted).
		Return([]models.AttemptSummary{}, nil).Once()

	err := f.console.SetFilter(ctx, "graded")
	assert.True(t, IsValidation(err))
	assert.Equal(t, models.FilterNeedsGrading, f.console.Filter())

	require.NoError(t, f.console.SetFilter(ctx, models.FilterCompleted))
	assert.Equal(t, models.FilterCompleted, f.console.Filter())
	f.backend.AssertExpectations(t)
}

func TestGrading_LoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		expires bool
	}{
		{name: "transport", err: fmt.Errorf("list: %w", client.ErrTransport), message: MsgServerError},
		{name: "business without message", err: &client.APIError{Status: 500}, message: MsgAttemptsFailed},
		{name: "business with message", err: &client.APIError{Status: 403, Message: "Teachers only"}, message: "Teachers only"},
		{name: "session expired", err: client.ErrSessionExpired, message: MsgSessionExpired, expires: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGradingFixture(t)
			f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
				Return(nil, tt.err).Once()
			if tt.expires {
				f.sess.On("Expire", mock.Anything, "unauthorized").Once()
			}

			assert.ErrorIs(t, f.console.Load(context.Background(), "5"), tt.err)
			assert.Equal(t, GradingError, f.console.State())
			assert.Equal(t, tt.message, f.console.LastError())
			assert.Equal(t, []string{tt.message}, f.toasts())
			f.sess.AssertExpectations(t)
		})
	}
}

func TestGrading_NoClassroom(t *testing.T) {
	f := newGradingFixture(t)
	f.sess.classCode = ""
	assert.ErrorIs(t, f.console.Load(context.Background(), "5"), ErrNoClassroom)
	f.backend.AssertNotCalled(t, "ListAttempts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGrading_ExportXLSX(t *testing.T) {
	f := newGradingFixture(t)
	f.backend.On("ListAttempts", mock.Anything, "7B", models.FlexID("5"), models.FilterNeedsGrading).
		Return(sampleAttempts(), nil).Once()
	require.NoError(t, f.console.Load(context.Background(), "5"))

	var buf bytes.Buffer
	require.NoError(t, f.console.ExportXLSX(&buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Attempts")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeaders, rows[0])
	assert.Equal(t, []string{"a1", "Ana Lima", "ana", "1", "needs_grading", "72.5", "2025-03-01T08:30:00Z", "previous comment"}, rows[1])
	require.GreaterOrEqual(t, len(rows[2]), 5)
	assert.Equal(t, []string{"a2", "bo", "bo", "2", "needs_grading"}, rows[2][:5])
}
