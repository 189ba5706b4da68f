package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/events"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/quiz"
	"github.com/SAP-F-2025/portfolio-quiz/internal/session"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"k8s.io/utils/clock"
)

type AttemptState string

const (
	AttemptNotStarted    AttemptState = "not-started"
	AttemptInProgress    AttemptState = "in-progress"
	AttemptSubmitted     AttemptState = "submitted"
	AttemptAutoSubmitted AttemptState = "expired-auto-submitted"
	AttemptLoadError     AttemptState = "load-error"
)

const DefaultAttemptTick = 500 * time.Millisecond

// NoCountdown is shown while no timer is running.
const NoCountdown = "—"

// AttemptSession is one student's view of one quiz: loading it, starting an
// attempt, answering across pages and submitting, either by hand or when
// the countdown runs out.
type AttemptSession struct {
	mu        sync.Mutex
	backend   AttemptBackend
	session   SessionContext
	confirmer Confirmer
	notifier  *events.Notifier
	clock     clock.WithTicker
	tick      time.Duration
	log       *ServiceLogger

	classCode string
	quizID    models.FlexID
	meta      *models.QuizMeta
	pages     []models.Page

	state      AttemptState
	page       int
	attempt    *models.Attempt
	expiresAt  *time.Time
	locked     bool
	score      *float64
	starting   bool
	submitting bool

	stopCountdown context.CancelFunc
}

func NewAttemptSession(backend AttemptBackend, sess SessionContext, confirmer Confirmer, notifier *events.Notifier, clk clock.WithTicker, tick time.Duration, logger utils.Logger) *AttemptSession {
	if confirmer == nil {
		confirmer = AlwaysConfirm
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	if tick <= 0 {
		tick = DefaultAttemptTick
	}
	return &AttemptSession{
		backend:   backend,
		session:   sess,
		confirmer: confirmer,
		notifier:  notifier,
		clock:     clk,
		tick:      tick,
		log:       NewServiceLogger(logger, LogConfig{Service: "portfolio-quiz", Component: "AttemptSession"}),
		state:     AttemptNotStarted,
	}
}

// ===== LOADING =====

// Load fetches the quiz. Any failure moves the session to load-error.
func (s *AttemptSession) Load(ctx context.Context, quizID models.FlexID) (err error) {
	op := s.log.WithOperation(ctx, "LoadQuiz")
	defer func() { op.LogResult(quizID.String(), "quiz", err) }()

	classCode := s.session.ClassCode()
	if classCode == "" {
		s.setState(AttemptLoadError)
		s.notifier.Error(ctx, MsgNoClassroom)
		return ErrNoClassroom
	}

	meta, err := s.backend.GetQuiz(ctx, classCode, quizID)
	if err != nil {
		s.setState(AttemptLoadError)
		s.fail(ctx, err, MsgLoadFailed, MsgServerError)
		return err
	}
	pages, err := quiz.ParsePages(meta.Questions)
	if err != nil {
		s.setState(AttemptLoadError)
		s.notifier.Error(ctx, MsgLoadFailed)
		return fmt.Errorf("quiz %s: %w", quizID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.classCode = classCode
	s.quizID = quizID
	s.meta = meta
	s.pages = pages
	s.page = 0
	if s.state == AttemptLoadError {
		s.state = AttemptNotStarted
	}
	return nil
}

// refreshMeta re-reads attempts remaining after the server changed them.
// Failures keep the previous metadata.
func (s *AttemptSession) refreshMeta(ctx context.Context) {
	s.mu.Lock()
	classCode, quizID := s.classCode, s.quizID
	s.mu.Unlock()

	meta, err := s.backend.GetQuiz(ctx, classCode, quizID)
	if err != nil {
		s.log.logger.WarnContext(ctx, "quiz metadata refresh failed", "quiz_id", quizID, "error", err)
		if IsSessionExpired(err) {
			s.session.Expire(ctx, session.ReasonUnauthorized)
		}
		return
	}
	s.mu.Lock()
	s.meta = meta
	s.mu.Unlock()
}

// ===== START =====

// Start asks for confirmation and starts a new attempt. It is a no-op while
// an attempt is held or a start is already in flight.
func (s *AttemptSession) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	switch {
	case s.meta == nil:
		s.mu.Unlock()
		return ErrQuizNotLoaded
	case s.attempt != nil || s.starting:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if !s.confirmer.Confirm(ctx, PromptStartAttempt) {
		return ErrNotConfirmed
	}

	s.mu.Lock()
	if s.attempt != nil || s.starting {
		s.mu.Unlock()
		return nil
	}
	s.starting = true
	classCode, quizID := s.classCode, s.quizID
	s.mu.Unlock()

	op := s.log.WithOperation(ctx, "StartAttempt")
	defer func() { op.LogResult(quizID.String(), "attempt", err) }()

	resp, err := s.backend.StartAttempt(ctx, classCode, quizID)
	if err == nil && resp.AttemptID.IsZero() {
		err = fmt.Errorf("start attempt: response carried no attempt id")
	}
	if !IsSessionExpired(err) {
		s.refreshMeta(ctx)
	}

	s.mu.Lock()
	s.starting = false
	if err != nil {
		s.mu.Unlock()
		s.fail(ctx, err, MsgStartFailed, MsgStartServerError)
		return err
	}

	now := s.clock.Now()
	s.attempt = &models.Attempt{
		AttemptID: resp.AttemptID,
		AttemptNo: resp.AttemptNo,
		ExpiresAt: resp.ExpiresAt,
		Answers:   models.Answers{},
	}
	s.expiresAt = resp.ExpiresAt
	if s.expiresAt == nil && s.meta.TimeLimitSeconds != nil && *s.meta.TimeLimitSeconds > 0 {
		exp := now.Add(time.Duration(*s.meta.TimeLimitSeconds) * time.Second)
		s.expiresAt = &exp
	}
	s.locked = false
	s.score = nil
	s.page = 0
	s.state = AttemptInProgress
	if s.expiresAt != nil {
		s.armCountdown(ctx, resp.AttemptID)
	}
	attemptEvent := s.eventLocked(false)
	s.mu.Unlock()

	s.notifier.Emit(ctx, events.EventAttemptStarted, attemptEvent)
	return nil
}

// ===== COUNTDOWN =====

// armCountdown starts the ticker goroutine. Callers hold s.mu.
func (s *AttemptSession) armCountdown(ctx context.Context, attemptID models.FlexID) {
	tickCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ticker := s.clock.NewTicker(s.tick)
	s.stopCountdown = cancel

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C():
				if s.expireIfDue(tickCtx, attemptID) {
					return
				}
			}
		}
	}()
}

// expireIfDue locks the answers and auto-submits once the deadline passes.
// The submit runs detached from tickCtx so Close cannot abort it.
func (s *AttemptSession) expireIfDue(tickCtx context.Context, attemptID models.FlexID) bool {
	s.mu.Lock()
	if s.attempt == nil || s.attempt.AttemptID != attemptID {
		s.mu.Unlock()
		return true
	}
	if s.expiresAt == nil || s.clock.Now().Before(*s.expiresAt) {
		s.mu.Unlock()
		return false
	}
	s.locked = true
	s.mu.Unlock()

	ctx := context.WithoutCancel(tickCtx)
	s.notifier.Info(ctx, MsgTimeExpired)
	s.submit(ctx, true)
	return true
}

func (s *AttemptSession) stopCountdownLocked() {
	if s.stopCountdown != nil {
		s.stopCountdown()
		s.stopCountdown = nil
	}
}

// Close stops the countdown. An auto-submit already under way completes.
func (s *AttemptSession) Close() {
	s.mu.Lock()
	s.stopCountdownLocked()
	s.mu.Unlock()
}

// TimeLeft is the remaining time, or false when the attempt is untimed or
// there is no attempt.
func (s *AttemptSession) TimeLeft() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil || s.expiresAt == nil {
		return 0, false
	}
	left := s.expiresAt.Sub(s.clock.Now())
	if left < 0 {
		left = 0
	}
	return left, true
}

// Countdown renders TimeLeft for display.
func (s *AttemptSession) Countdown() string {
	left, ok := s.TimeLeft()
	if !ok {
		return FormatRemaining(nil)
	}
	return FormatRemaining(&left)
}

// FormatRemaining renders m:ss, rounding partial seconds up so the display
// reaches 0:00 only when time is really up.
func FormatRemaining(d *time.Duration) string {
	if d == nil {
		return NoCountdown
	}
	total := int(math.Ceil(float64(*d) / float64(time.Second)))
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// ===== SUBMIT =====

// Submit asks for confirmation and submits from the last page.
func (s *AttemptSession) Submit(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.attempt == nil:
		s.mu.Unlock()
		s.notifier.Error(ctx, MsgNoActiveAttempt)
		return ErrNoActiveAttempt
	case s.submitting:
		s.mu.Unlock()
		return ErrInFlight
	case s.locked:
		s.mu.Unlock()
		return ErrAttemptFinished
	case s.page != len(s.pages)-1:
		s.mu.Unlock()
		return ErrNotOnLastPage
	}
	s.mu.Unlock()

	if !s.confirmer.Confirm(ctx, PromptSubmitAttempt) {
		return ErrNotConfirmed
	}
	return s.submit(ctx, false)
}

// submit sends the held answers. automatic marks the expiry path: the
// attempt ends locally whatever the outcome and failures only notify.
func (s *AttemptSession) submit(ctx context.Context, automatic bool) (err error) {
	s.mu.Lock()
	if s.attempt == nil || s.submitting {
		s.mu.Unlock()
		return ErrNoActiveAttempt
	}
	s.submitting = true
	classCode, quizID := s.classCode, s.quizID
	req := &models.SubmitAttemptRequest{
		AttemptID: s.attempt.AttemptID,
		Answers:   s.attempt.Answers.Clone(),
	}
	s.mu.Unlock()

	operation := "SubmitAttempt"
	if automatic {
		operation = "AutoSubmitAttempt"
	}
	op := s.log.WithOperation(ctx, operation)
	defer func() { op.LogResult(req.AttemptID.String(), "attempt", err) }()

	resp, err := s.backend.SubmitAttempt(ctx, classCode, quizID, req)

	s.mu.Lock()
	s.submitting = false
	if err != nil && !automatic {
		if !s.locked {
			s.mu.Unlock()
			s.fail(ctx, err, MsgSubmitFailed, MsgSubmitServerErr)
			return err
		}
		// the countdown ran out while this submit was in flight
		automatic = true
	}

	s.stopCountdownLocked()
	s.state = AttemptSubmitted
	eventType := events.EventAttemptSubmitted
	if automatic {
		s.state = AttemptAutoSubmitted
		eventType = events.EventAttemptExpired
	}
	if err == nil {
		s.score = resp.Score
	}
	attemptEvent := s.eventLocked(automatic)
	s.attempt = nil
	s.locked = true
	s.mu.Unlock()

	if err != nil {
		s.fail(ctx, err, MsgSubmitFailed, MsgSubmitServerErr)
		return err
	}
	s.notifier.Success(ctx, MsgSubmitted)
	s.notifier.Emit(ctx, eventType, attemptEvent)
	s.refreshMeta(ctx)
	return nil
}

func (s *AttemptSession) eventLocked(automatic bool) events.AttemptEvent {
	e := events.AttemptEvent{
		ClassCode: s.classCode,
		QuizID:    s.quizID,
		ExpiresAt: s.expiresAt,
		Score:     s.score,
		Automatic: automatic,
	}
	if s.attempt != nil {
		e.AttemptID = s.attempt.AttemptID
		e.AttemptNo = s.attempt.AttemptNo
	}
	return e
}

func (s *AttemptSession) fail(ctx context.Context, err error, failure, serverError string) {
	if IsSessionExpired(err) {
		s.session.Expire(ctx, session.ReasonUnauthorized)
	}
	s.notifier.Error(ctx, describe(err, failure, serverError))
}

// ===== ANSWERS =====

func (s *AttemptSession) editableLocked() error {
	if s.attempt == nil {
		return ErrNoActiveAttempt
	}
	if s.locked {
		return ErrAttemptFinished
	}
	return nil
}

// SetAnswer records an answer for any question of the quiz, whatever page
// is displayed.
func (s *AttemptSession) SetAnswer(questionID string, value models.AnswerValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	if _, ok := quiz.FindQuestion(s.pages, questionID); !ok {
		return ErrUnknownQuestion
	}
	s.attempt.Answers[questionID] = value
	return nil
}

// ToggleCheckbox adds or removes one option index from a checkbox answer.
func (s *AttemptSession) ToggleCheckbox(questionID string, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	q, ok := quiz.FindQuestion(s.pages, questionID)
	if !ok || q.Type != models.Checkboxes || option < 0 || option >= len(q.Options) {
		return ErrUnknownQuestion
	}
	s.attempt.Answers[questionID] = s.attempt.Answers[questionID].Toggle(strconv.Itoa(option))
	return nil
}

func (s *AttemptSession) Answers() models.Answers {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return models.Answers{}
	}
	return s.attempt.Answers.Clone()
}

// ===== NAVIGATION =====

func (s *AttemptSession) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page >= len(s.pages)-1 {
		return false
	}
	s.page++
	return true
}

func (s *AttemptSession) Prev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page == 0 {
		return false
	}
	s.page--
	return true
}

func (s *AttemptSession) PageIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (s *AttemptSession) PageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

func (s *AttemptSession) CurrentPage() (models.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page >= len(s.pages) {
		return models.Page{}, false
	}
	return s.pages[s.page].Clone(), true
}

func (s *AttemptSession) IsLastPage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page == len(s.pages)-1
}

// ===== STATUS =====

func (s *AttemptSession) setState(state AttemptState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *AttemptSession) State() AttemptState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *AttemptSession) Starting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starting
}

func (s *AttemptSession) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Score is the score returned by the last submit, if any.
func (s *AttemptSession) Score() *float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

func (s *AttemptSession) AttemptID() models.FlexID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempt == nil {
		return ""
	}
	return s.attempt.AttemptID
}

// AttemptsRemaining is taken from the latest quiz metadata.
func (s *AttemptSession) AttemptsRemaining() *int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return nil
	}
	return s.meta.AttemptsRemaining
}

func (s *AttemptSession) Meta() *models.QuizMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta == nil {
		return nil
	}
	meta := *s.meta
	return &meta
}
