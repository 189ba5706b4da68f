package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/client"
	"github.com/SAP-F-2025/portfolio-quiz/internal/events"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
	"k8s.io/utils/ptr"
)

const onePageQuiz = `{"pages":[{"id":"p1","title":"Page 1","questions":[
	{"id":"q1","type":"multiple_choice","text":"2+2?","options":["3","4"],"correctAnswer":"1"},
	{"id":"q2","type":"multiple_choice","text":"3+3?","options":["6","7"],"correctAnswer":"0"}]}]}`

const twoPageQuiz = `{"pages":[
	{"id":"p1","title":"Page 1","questions":[{"id":"q1","type":"short_answer","text":"Name a prime","sentenceLimit":1,"correctAnswer":""}]},
	{"id":"p2","title":"Page 2","questions":[{"id":"q2","type":"checkboxes","text":"Pick evens","options":["1","2","3","4"],"correctAnswer":[1,3]}]}]}`

type attemptFixture struct {
	session *AttemptSession
	backend *MockBackend
	sess    *MockSession
	clock   *clocktesting.FakeClock
	pub     *events.MockEventPublisher
	prompts *promptLog
}

type promptLog struct {
	mu      sync.Mutex
	answer  bool
	prompts []Prompt
}

func (p *promptLog) Confirm(_ context.Context, prompt Prompt) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return p.answer
}

func quizMeta(doc string, limit *int, remaining int) *models.QuizMeta {
	return &models.QuizMeta{
		ID:                "5",
		Title:             "Arithmetic",
		Questions:         json.RawMessage(doc),
		AttemptsAllowed:   1,
		AttemptsRemaining: ptr.To(remaining),
		TimeLimitSeconds:  limit,
	}
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	clk := clocktesting.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	backend := &MockBackend{}
	sess := &MockSession{classCode: "7B"}
	notifier, pub := newTestNotifier(t, clk)
	prompts := &promptLog{answer: true}
	s := NewAttemptSession(backend, sess, prompts, notifier, clk, 500*time.Millisecond, utils.NewDiscardLogger())
	t.Cleanup(s.Close)
	return &attemptFixture{session: s, backend: backend, sess: sess, clock: clk, pub: pub, prompts: prompts}
}

func (f *attemptFixture) toasts() []string {
	return toastMessages(f.pub)
}

func TestAttempt_AutoSubmitsWhenTimeRunsOut(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)

	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, ptr.To(60), 1), nil).Once()
	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, ptr.To(60), 0), nil)
	f.backend.On("StartAttempt", mock.Anything, "7B", models.FlexID("5")).
		Return(&models.StartAttemptResponse{Success: true, AttemptID: "a1", AttemptNo: ptr.To(1)}, nil).Once()
	f.backend.On("SubmitAttempt", mock.Anything, "7B", models.FlexID("5"), mock.MatchedBy(func(req *models.SubmitAttemptRequest) bool {
		return req.AttemptID == "a1" && req.Answers["q1"].Text == "1"
	})).Return(&models.SubmitAttemptResponse{Success: true, Score: ptr.To(50.0)}, nil).Once()

	require.NoError(t, f.session.Load(ctx, "5"))
	assert.Equal(t, AttemptNotStarted, f.session.State())
	assert.Equal(t, NoCountdown, f.session.Countdown())

	require.NoError(t, f.session.Start(ctx))
	assert.Equal(t, AttemptInProgress, f.session.State())
	assert.Equal(t, ptr.To(0), f.session.AttemptsRemaining(), "metadata is re-read after starting")
	assert.Equal(t, "1:00", f.session.Countdown())
	require.NoError(t, f.session.SetAnswer("q1", models.ChoiceAnswer(1)))

	f.clock.Step(30 * time.Second)
	assert.Equal(t, "0:30", f.session.Countdown())
	assert.Equal(t, AttemptInProgress, f.session.State())

	f.clock.Step(30 * time.Second)
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{MsgTimeExpired, MsgSubmitted}, f.toasts())
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, AttemptAutoSubmitted, f.session.State())
	assert.Equal(t, ptr.To(50.0), f.session.Score())
	assert.ErrorIs(t, f.session.SetAnswer("q2", models.ChoiceAnswer(0)), ErrNoActiveAttempt)
	f.backend.AssertExpectations(t)
}

func TestAttempt_AutoSubmitFailureStillEndsAttempt(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)
	expires := f.clock.Now().Add(10 * time.Second)

	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, nil, 1), nil)
	f.backend.On("StartAttempt", mock.Anything, "7B", models.FlexID("5")).
		Return(&models.StartAttemptResponse{Success: true, AttemptID: "a1", ExpiresAt: &expires}, nil).Once()
	f.backend.On("SubmitAttempt", mock.Anything, "7B", models.FlexID("5"), mock.Anything).
		Return(nil, fmt.Errorf("submit: %w", client.ErrTransport)).Once()

	require.NoError(t, f.session.Load(ctx, "5"))
	require.NoError(t, f.session.Start(ctx))
	assert.Equal(t, "0:10", f.session.Countdown(), "countdown follows the server expiry")

	f.clock.Step(10 * time.Second)
	require.Eventually(t, func() bool {
		return f.session.State() == AttemptAutoSubmitted
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return len(f.toasts()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{MsgTimeExpired, MsgSubmitServerErr}, f.toasts())
	assert.Nil(t, f.session.Score())
	assert.ErrorIs(t, f.session.SetAnswer("q1", models.ChoiceAnswer(0)), ErrNoActiveAttempt)
}

func TestAttempt_StartIsNoOpWhileAttemptHeld(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)

	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, nil, 1), nil)
	f.backend.On("StartAttempt", mock.Anything, "7B", models.FlexID("5")).
		Return(&models.StartAttemptResponse{Success: true, AttemptID: "a1"}, nil).Once()

	require.NoError(t, f.session.Load(ctx, "5"))
	require.NoError(t, f.session.Start(ctx))
	require.NoError(t, f.session.Start(ctx))

	f.backend.AssertNumberOfCalls(t, "StartAttempt", 1)
	assert.Equal(t, models.FlexID("a1"), f.session.AttemptID())
	assert.Equal(t, []Prompt{PromptStartAttempt}, f.prompts.prompts)
	assert.Equal(t, NoCountdown, f.session.Countdown(), "untimed quizzes have no countdown")
}

func TestAttempt_StartRejected(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)

	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, nil, 1), nil).Once()
	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, nil, 0), nil).Once()
	f.backend.On("StartAttempt", mock.Anything, "7B", models.FlexID("5")).
		Return(nil, &client.APIError{Status: 409, Message: "No attempts remaining"}).Once()

	require.NoError(t, f.session.Load(ctx, "5"))
	err := f.session.Start(ctx)
	assert.True(t, IsBusiness(err))
	assert.Equal(t, AttemptNotStarted, f.session.State())
	assert.False(t, f.session.Starting())
	assert.Equal(t, ptr.To(0), f.session.AttemptsRemaining())
	assert.Equal(t, []string{"No attempts remaining"}, f.toasts())
	f.backend.AssertExpectations(t)
}

func TestAttempt_StartNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)
	f.prompts.answer = false
	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, nil, 1), nil).Once()

	require.NoError(t, f.session.Load(ctx, "5"))
	assert.ErrorIs(t, f.session.Start(ctx), ErrNotConfirmed)
	assert.Equal(t, AttemptNotStarted, f.session.State())
	f.backend.AssertNotCalled(t, "StartAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttempt_StartSessionExpired(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)
	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, nil, 1), nil).Once()
	f.backend.On("StartAttempt", mock.Anything, "7B", models.FlexID("5")).Return(nil, client.ErrSessionExpired).Once()
	f.sess.On("Expire", mock.Anything, "unauthorized").Once()

	require.NoError(t, f.session.Load(ctx, "5"))
	assert.ErrorIs(t, f.session.Start(ctx), client.ErrSessionExpired)
	assert.Equal(t, []string{MsgSessionExpired}, f.toasts())
	f.sess.AssertExpectations(t)
	f.backend.AssertNumberOfCalls(t, "GetQuiz", 1)
}

func TestAttempt_NavigateAnswerAndSubmit(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)

	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(twoPageQuiz, nil, 1), nil)
	f.backend.On("StartAttempt", mock.Anything, "7B", models.FlexID("5")).
		Return(&models.StartAttemptResponse{Success: true, AttemptID: "a7"}, nil).Once()
	f.backend.On("SubmitAttempt", mock.Anything, "7B", models.FlexID("5"), mock.MatchedBy(func(req *models.SubmitAttemptRequest) bool {
		return req.Answers["q1"].Text == "7" &&
			assert.ObjectsAreEqual([]int{1, 3}, req.Answers["q2"].Indices())
	})).Return(&models.SubmitAttemptResponse{Success: true, Score: ptr.To(100.0)}, nil).Once()

	assert.ErrorIs(t, f.session.Submit(ctx), ErrNoActiveAttempt)

	require.NoError(t, f.session.Load(ctx, "5"))
	require.NoError(t, f.session.Start(ctx))
	assert.Equal(t, 2, f.session.PageCount())

	require.NoError(t, f.session.SetAnswer("q1", models.TextAnswer("7")))
	require.NoError(t, f.session.ToggleCheckbox("q2", 3), "answers are keyed by question, not page")
	assert.ErrorIs(t, f.session.ToggleCheckbox("q1", 0), ErrUnknownQuestion)
	assert.ErrorIs(t, f.session.SetAnswer("nope", models.TextAnswer("x")), ErrUnknownQuestion)

	assert.ErrorIs(t, f.session.Submit(ctx), ErrNotOnLastPage)
	assert.False(t, f.session.Prev())
	require.True(t, f.session.Next())
	assert.False(t, f.session.Next())
	require.NoError(t, f.session.ToggleCheckbox("q2", 1))
	require.NoError(t, f.session.ToggleCheckbox("q2", 0))
	require.NoError(t, f.session.ToggleCheckbox("q2", 0))
	require.True(t, f.session.Prev())
	require.True(t, f.session.Next())
	assert.Equal(t, models.TextAnswer("7"), f.session.Answers()["q1"], "navigation keeps answers")

	page, ok := f.session.CurrentPage()
	require.True(t, ok)
	assert.Equal(t, "p2", page.ID)
	assert.True(t, f.session.IsLastPage())

	require.NoError(t, f.session.Submit(ctx))
	assert.Equal(t, AttemptSubmitted, f.session.State())
	assert.Equal(t, ptr.To(100.0), f.session.Score())
	assert.Equal(t, []Prompt{PromptStartAttempt, PromptSubmitAttempt}, f.prompts.prompts)
	assert.Equal(t, []string{MsgNoActiveAttempt, MsgSubmitted}, f.toasts())

	published := f.pub.GetPublishedEvents()
	var types []events.EventType
	for _, e := range published {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, events.EventAttemptStarted)
	assert.Contains(t, types, events.EventAttemptSubmitted)
	f.backend.AssertExpectations(t)
}

func TestAttempt_ManualSubmitFailureKeepsAttempt(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)

	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("5")).Return(quizMeta(onePageQuiz, nil, 1), nil)
	f.backend.On("StartAttempt", mock.Anything, "7B", models.FlexID("5")).
		Return(&models.StartAttemptResponse{Success: true, AttemptID: "a1"}, nil).Once()
	f.backend.On("SubmitAttempt", mock.Anything, "7B", models.FlexID("5"), mock.Anything).
		Return(nil, &client.APIError{Status: 500}).Once()

	require.NoError(t, f.session.Load(ctx, "5"))
	require.NoError(t, f.session.Start(ctx))
	require.NoError(t, f.session.SetAnswer("q1", models.ChoiceAnswer(1)))

	assert.Error(t, f.session.Submit(ctx))
	assert.Equal(t, AttemptInProgress, f.session.State())
	assert.False(t, f.session.Submitting())
	assert.Equal(t, []string{MsgSubmitFailed}, f.toasts())
	assert.Equal(t, models.ChoiceAnswer(1), f.session.Answers()["q1"])
}

func TestAttempt_LoadError(t *testing.T) {
	ctx := context.Background()
	f := newAttemptFixture(t)
	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("404")).
		Return(nil, &client.APIError{Status: 404, Message: "Quiz not found"}).Once()
	f.backend.On("GetQuiz", mock.Anything, "7B", models.FlexID("6")).
		Return(quizMeta(`{"pages": 3}`, nil, 1), nil).Once()

	assert.Error(t, f.session.Load(ctx, "404"))
	assert.Equal(t, AttemptLoadError, f.session.State())
	assert.ErrorIs(t, f.session.Start(ctx), ErrQuizNotLoaded)

	assert.Error(t, f.session.Load(ctx, "6"))
	assert.Equal(t, AttemptLoadError, f.session.State())
	assert.Equal(t, []string{"Quiz not found", MsgLoadFailed}, f.toasts())
}

func TestFormatRemaining(t *testing.T) {
	d := func(v time.Duration) *time.Duration { return &v }

	assert.Equal(t, NoCountdown, FormatRemaining(nil))
	assert.Equal(t, "0:00", FormatRemaining(d(0)))
	assert.Equal(t, "0:00", FormatRemaining(d(-time.Second)))
	assert.Equal(t, "0:01", FormatRemaining(d(time.Millisecond)))
	assert.Equal(t, "1:00", FormatRemaining(d(59200*time.Millisecond)))
	assert.Equal(t, "1:01", FormatRemaining(d(61*time.Second)))
	assert.Equal(t, "10:00", FormatRemaining(d(10*time.Minute)))
}
