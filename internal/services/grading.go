package services

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/events"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/session"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/SAP-F-2025/portfolio-quiz/internal/validator"
	"golang.org/x/time/rate"
	"k8s.io/utils/clock"
)

type GradingState string

const (
	GradingLoading GradingState = "loading"
	GradingLoaded  GradingState = "loaded"
	GradingError   GradingState = "error"
)

const DefaultRefreshThrottle = time.Second

// GradingConsole lists a quiz's attempts for a teacher and grades the one
// that is open.
type GradingConsole struct {
	mu        sync.Mutex
	backend   GradingBackend
	session   SessionContext
	notifier  *events.Notifier
	validator *validator.Validator
	clock     clock.PassiveClock
	limiter   *rate.Limiter
	log       *ServiceLogger

	classCode string
	quizID    models.FlexID
	filter    models.AttemptFilter
	state     GradingState
	attempts  []models.AttemptSummary
	lastError string

	seq    uint64
	cancel context.CancelFunc

	selected   *models.GradingRecord
	scoreInput string
	saving     bool
}

func NewGradingConsole(backend GradingBackend, sess SessionContext, notifier *events.Notifier, clk clock.PassiveClock, throttle time.Duration, logger utils.Logger) *GradingConsole {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if throttle <= 0 {
		throttle = DefaultRefreshThrottle
	}
	return &GradingConsole{
		backend:   backend,
		session:   sess,
		notifier:  notifier,
		validator: validator.New(),
		clock:     clk,
		limiter:   rate.NewLimiter(rate.Every(throttle), 1),
		log:       NewServiceLogger(logger, LogConfig{Service: "portfolio-quiz", Component: "GradingConsole"}),
		filter:    models.FilterNeedsGrading,
		state:     GradingLoading,
	}
}

// ===== LIST =====

// Load binds the console to a quiz and fetches its attempts.
func (g *GradingConsole) Load(ctx context.Context, quizID models.FlexID) error {
	g.mu.Lock()
	g.quizID = quizID
	g.selected = nil
	g.mu.Unlock()
	return g.Refresh(ctx)
}

// OnFocus refreshes at most once per throttle interval. It reports whether
// a request was made.
func (g *GradingConsole) OnFocus(ctx context.Context) (bool, error) {
	if !g.limiter.AllowN(g.clock.Now(), 1) {
		return false, nil
	}
	return true, g.Refresh(ctx)
}

// SetFilter changes the status filter and reloads right away.
func (g *GradingConsole) SetFilter(ctx context.Context, filter models.AttemptFilter) error {
	if err := g.validator.Var("status", string(filter), "attempt_filter"); err != nil {
		return err
	}
	g.mu.Lock()
	g.filter = filter
	g.mu.Unlock()
	return g.Refresh(ctx)
}

// Refresh reloads the list. A newer refresh cancels one still in flight;
// the superseded call returns context.Canceled and changes nothing.
func (g *GradingConsole) Refresh(ctx context.Context) (err error) {
	classCode := g.session.ClassCode()
	if classCode == "" {
		g.notifier.Error(ctx, MsgNoClassroom)
		return ErrNoClassroom
	}

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.seq++
	seq := g.seq
	reqCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.classCode = classCode
	quizID, filter := g.quizID, g.filter
	g.state = GradingLoading
	g.mu.Unlock()
	defer cancel()

	op := g.log.WithOperation(ctx, "ListAttempts")
	defer func() { op.LogResult(quizID.String(), "quiz", err) }()

	attempts, err := g.backend.ListAttempts(reqCtx, classCode, quizID, filter)

	g.mu.Lock()
	if seq != g.seq {
		g.mu.Unlock()
		if err == nil {
			err = context.Canceled
		}
		return err
	}
	g.cancel = nil
	if IsCancelled(err) {
		g.mu.Unlock()
		return err
	}
	if err != nil {
		g.state = GradingError
		g.lastError = describe(err, MsgAttemptsFailed, MsgServerError)
		g.mu.Unlock()
		g.fail(ctx, err, MsgAttemptsFailed, MsgServerError)
		return err
	}
	g.state = GradingLoaded
	g.lastError = ""
	g.attempts = attempts
	g.mu.Unlock()
	return nil
}

func (g *GradingConsole) fail(ctx context.Context, err error, failure, serverError string) {
	if IsSessionExpired(err) {
		g.session.Expire(ctx, session.ReasonUnauthorized)
	}
	g.notifier.Error(ctx, describe(err, failure, serverError))
}

// ===== DETAIL =====

// Open selects an attempt from the current list, prefilling the score and
// per-question grading. The overall comment starts empty.
func (g *GradingConsole) Open(attemptID models.FlexID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range g.attempts {
		if a.ID != attemptID {
			continue
		}
		g.selected = &models.GradingRecord{
			AttemptID:   a.ID,
			StudentID:   a.StudentID,
			Answers:     a.Answers.Clone(),
			Score:       a.Score,
			PerQuestion: a.Grading.Clone(),
		}
		g.scoreInput = ""
		if a.Score != nil {
			g.scoreInput = strconv.FormatFloat(*a.Score, 'f', -1, 64)
		}
		return nil
	}
	return ErrAttemptNotListed
}

func (g *GradingConsole) CloseDetail() {
	g.mu.Lock()
	g.selected = nil
	g.scoreInput = ""
	g.mu.Unlock()
}

// Selected returns a copy of the open record.
func (g *GradingConsole) Selected() *models.GradingRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.selected == nil {
		return nil
	}
	rec := *g.selected
	rec.Answers = g.selected.Answers.Clone()
	rec.PerQuestion = g.selected.PerQuestion.Clone()
	return &rec
}

// SetScoreInput stores the raw score field; it is checked on save.
func (g *GradingConsole) SetScoreInput(s string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.selected == nil {
		return ErrNoSelection
	}
	g.scoreInput = s
	return nil
}

func (g *GradingConsole) SetScore(score float64) error {
	return g.SetScoreInput(strconv.FormatFloat(score, 'f', -1, 64))
}

// Annotate sets one question's points and feedback. Nil points with empty
// feedback removes the annotation.
func (g *GradingConsole) Annotate(questionID string, points *float64, feedback string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.selected == nil {
		return ErrNoSelection
	}
	if g.selected.PerQuestion == nil {
		g.selected.PerQuestion = models.Grading{}
	}
	if points == nil && feedback == "" {
		delete(g.selected.PerQuestion, questionID)
		return nil
	}
	g.selected.PerQuestion[questionID] = models.QuestionGrade{Points: points, Feedback: feedback}
	return nil
}

func (g *GradingConsole) SetComment(comment string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.selected == nil {
		return ErrNoSelection
	}
	g.selected.Comment = comment
	return nil
}

// ===== SAVE =====

// parseScore rejects blank and out-of-range input rather than clamping it.
func (g *GradingConsole) parseScore(input string) (float64, error) {
	score, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
	if err != nil || math.IsNaN(score) {
		return 0, scoreRangeError(input)
	}
	if err := g.validator.Var("score", score, "min=0,max=100"); err != nil {
		return 0, scoreRangeError(input)
	}
	return score, nil
}

// SaveGrade patches the open attempt, then closes it and reloads the list.
func (g *GradingConsole) SaveGrade(ctx context.Context) (err error) {
	g.mu.Lock()
	if g.selected == nil {
		g.mu.Unlock()
		return ErrNoSelection
	}
	if g.saving {
		g.mu.Unlock()
		return ErrInFlight
	}
	rec := *g.selected
	input := g.scoreInput
	classCode, quizID := g.classCode, g.quizID
	g.saving = true
	g.mu.Unlock()

	op := g.log.WithOperation(ctx, "GradeAttempt")
	defer func() { op.LogResult(rec.AttemptID.String(), "attempt", err) }()

	score, err := g.parseScore(input)
	if err != nil {
		g.finishSave(false)
		g.notifier.Error(ctx, MsgScoreRange)
		return err
	}
	if classCode == "" {
		classCode = g.session.ClassCode()
	}
	if classCode == "" {
		g.finishSave(false)
		g.notifier.Error(ctx, MsgNoClassroom)
		return ErrNoClassroom
	}

	req := &models.GradeRequest{Score: score, Grading: rec.PerQuestion.Clone(), Comment: rec.Comment}
	if err := g.validator.ValidateStruct(req); err != nil {
		g.finishSave(false)
		g.notifier.Error(ctx, MsgScoreRange)
		return scoreRangeError(input)
	}

	err = g.backend.GradeAttempt(ctx, classCode, quizID, rec.AttemptID, req)
	g.finishSave(err == nil)

	if err != nil {
		g.fail(ctx, err, MsgGradeFailed, MsgServerError)
		return err
	}

	g.notifier.Success(ctx, MsgGraded)
	g.notifier.Emit(ctx, events.EventAttemptGraded, events.AttemptGradedEvent{
		ClassCode: classCode,
		QuizID:    quizID,
		AttemptID: rec.AttemptID,
		Score:     score,
		Annotated: len(req.Grading),
	})
	if err := g.Refresh(ctx); err != nil && !IsCancelled(err) {
		g.log.logger.WarnContext(ctx, "refresh after grading failed", "error", err)
	}
	return nil
}

func (g *GradingConsole) finishSave(saved bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saving = false
	if saved {
		g.selected = nil
		g.scoreInput = ""
	}
}

// ===== STATUS =====

func (g *GradingConsole) State() GradingState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *GradingConsole) Filter() models.AttemptFilter {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filter
}

func (g *GradingConsole) Attempts() []models.AttemptSummary {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.AttemptSummary(nil), g.attempts...)
}

// LastError is the message shown in the error state.
func (g *GradingConsole) LastError() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastError
}

func (g *GradingConsole) Saving() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saving
}

// Close cancels any list request still in flight.
func (g *GradingConsole) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}
