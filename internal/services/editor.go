package services

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/events"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/quiz"
	"github.com/SAP-F-2025/portfolio-quiz/internal/session"
	"github.com/SAP-F-2025/portfolio-quiz/internal/utils"
	"github.com/SAP-F-2025/portfolio-quiz/internal/validator"
)

type EditorState string

const (
	EditorDraftEmpty   EditorState = "draft-empty"
	EditorDraftEditing EditorState = "draft-editing"
	EditorSaving       EditorState = "saving"
	EditorSaved        EditorState = "saved"
	EditorSaveFailed   EditorState = "save-failed"
)

// Editor owns one quiz draft. All methods are safe for concurrent use; the
// draft is only ever replaced, never mutated in place.
type Editor struct {
	mu        sync.Mutex
	backend   EditorBackend
	session   SessionContext
	notifier  *events.Notifier
	validator *validator.Validator
	log       *ServiceLogger

	state          EditorState
	draft          models.Quiz
	attemptsInput  string
	timeLimitInput string
	startTime      *time.Time
	endTime        *time.Time

	hydratedID   models.FlexID
	revision     int
	onTransition func(from, to EditorState)
}

func NewEditor(backend EditorBackend, sess SessionContext, notifier *events.Notifier, logger utils.Logger) *Editor {
	return &Editor{
		backend:       backend,
		session:       sess,
		notifier:      notifier,
		validator:     validator.New(),
		log:           NewServiceLogger(logger, LogConfig{Service: "portfolio-quiz", Component: "QuizEditor"}),
		state:         EditorDraftEmpty,
		draft:         quiz.NewQuiz(),
		attemptsInput: strconv.Itoa(models.DefaultAttemptsAllowed),
	}
}

// OnTransition registers a hook called after every state change. fn runs
// with the editor locked and must not call back into it.
func (e *Editor) OnTransition(fn func(from, to EditorState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTransition = fn
}

func (e *Editor) transition(to EditorState) {
	from := e.state
	if from == to {
		return
	}
	e.state = to
	if e.onTransition != nil {
		e.onTransition(from, to)
	}
}

func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Draft returns a copy of the current draft.
func (e *Editor) Draft() models.Quiz {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.draft
	out.Pages = make([]models.Page, len(e.draft.Pages))
	for i, p := range e.draft.Pages {
		out.Pages[i] = p.Clone()
	}
	return out
}

// Revision counts edits since the editor was created.
func (e *Editor) Revision() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

func (e *Editor) AttemptsInput() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attemptsInput
}

func (e *Editor) TimeLimitInput() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeLimitInput
}

// Hydrate replaces the draft with a saved quiz. It does nothing when the
// same quiz id was already hydrated so live edits survive a re-render.
func (e *Editor) Hydrate(meta models.QuizMeta) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !meta.ID.IsZero() && meta.ID == e.hydratedID {
		return false, nil
	}
	q, err := quiz.QuizFromMeta(meta)
	if err != nil {
		return false, err
	}

	e.draft = q
	e.hydratedID = meta.ID
	e.attemptsInput = strconv.Itoa(q.AttemptsAllowed)
	e.timeLimitInput = ""
	if q.TimeLimitSeconds != nil {
		e.timeLimitInput = strconv.Itoa(int(math.Ceil(float64(*q.TimeLimitSeconds) / 60)))
	}
	e.startTime = meta.StartTime
	e.endTime = meta.EndTime
	e.transition(EditorDraftEditing)
	return true, nil
}

// Load fetches a saved quiz from the bound classroom and hydrates it.
func (e *Editor) Load(ctx context.Context, quizID models.FlexID) (err error) {
	op := e.log.WithOperation(ctx, "LoadQuiz")
	defer func() { op.LogResult(quizID.String(), "quiz", err) }()

	classCode := e.session.ClassCode()
	if classCode == "" {
		e.notifier.Error(ctx, MsgNoClassroom)
		return ErrNoClassroom
	}

	meta, err := e.backend.GetQuiz(ctx, classCode, quizID)
	if err != nil {
		e.fail(ctx, err, MsgLoadFailed, MsgServerError)
		return err
	}
	_, err = e.Hydrate(*meta)
	return err
}

// ===== DRAFT EDITS =====

// edit applies fn to the draft. Edits made while a save is in flight are
// kept and picked up by the next save.
func (e *Editor) edit(fn func(models.Quiz) models.Quiz) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = fn(e.draft)
	e.revision++
	if e.state != EditorSaving {
		e.transition(EditorDraftEditing)
	}
}

func (e *Editor) SetTitle(title string) {
	e.edit(func(q models.Quiz) models.Quiz { return quiz.RenameTitle(q, title) })
}

func (e *Editor) AddPage() {
	e.edit(quiz.AddPage)
}

func (e *Editor) RenamePage(pageID, title string) {
	e.edit(func(q models.Quiz) models.Quiz { return quiz.RenamePageTitle(q, pageID, title) })
}

func (e *Editor) AddQuestion(pageID string, t models.QuestionType) {
	e.edit(func(q models.Quiz) models.Quiz { return quiz.AddQuestion(q, pageID, t) })
}

func (e *Editor) UpdateQuestion(pageID, questionID string, fn func(models.Question) models.Question) {
	e.edit(func(q models.Quiz) models.Quiz { return quiz.UpdateQuestion(q, pageID, questionID, fn) })
}

func (e *Editor) ChangeQuestionType(pageID, questionID string, t models.QuestionType) {
	e.UpdateQuestion(pageID, questionID, func(q models.Question) models.Question {
		return quiz.ChangeType(q, t)
	})
}

// Drag applies a finished drag gesture. Rejected drags leave the draft and
// the revision untouched.
func (e *Editor) Drag(result quiz.DragResult) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	pages, ok := quiz.Apply(e.draft.Pages, result)
	if !ok {
		return false
	}
	e.draft.Pages = pages
	e.revision++
	if e.state != EditorSaving {
		e.transition(EditorDraftEditing)
	}
	return true
}

// SetAttemptsInput stores the raw "attempts allowed" field.
func (e *Editor) SetAttemptsInput(s string) {
	e.mu.Lock()
	e.attemptsInput = s
	e.mu.Unlock()
	e.edit(func(q models.Quiz) models.Quiz { return q })
}

// SetTimeLimitInput stores the raw "time limit (minutes)" field.
func (e *Editor) SetTimeLimitInput(s string) {
	e.mu.Lock()
	e.timeLimitInput = s
	e.mu.Unlock()
	e.edit(func(q models.Quiz) models.Quiz { return q })
}

func (e *Editor) SetSchedule(start, end *time.Time) {
	e.mu.Lock()
	e.startTime, e.endTime = start, end
	e.mu.Unlock()
	e.edit(func(q models.Quiz) models.Quiz { return q })
}

// ===== SAVE =====

// NormalizeAttempts reads a leading integer and falls back to 1 for blank,
// invalid or non-positive input.
func NormalizeAttempts(s string) int {
	n, ok := leadingInt(s)
	if !ok || n < models.DefaultAttemptsAllowed {
		return models.DefaultAttemptsAllowed
	}
	return n
}

// NormalizeTimeLimit converts free-text minutes into seconds. Blank,
// invalid and non-positive input means untimed.
func NormalizeTimeLimit(minutes string) *int {
	m, err := strconv.ParseFloat(strings.TrimSpace(minutes), 64)
	if err != nil || math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return nil
	}
	seconds := int(math.Round(m * 60))
	if seconds < 1 {
		return nil
	}
	return &seconds
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	return n, err == nil
}

func (e *Editor) buildRequest() *models.SaveQuizRequest {
	title := strings.TrimSpace(e.draft.Title)
	if title == "" {
		title = models.DefaultQuizTitle
	}
	pages := make([]models.Page, len(e.draft.Pages))
	for i, p := range e.draft.Pages {
		pages[i] = p.Clone()
	}
	return &models.SaveQuizRequest{
		Title:            title,
		Questions:        models.PagesDocument{Pages: pages},
		AttemptsAllowed:  NormalizeAttempts(e.attemptsInput),
		StartTime:        e.startTime,
		EndTime:          e.endTime,
		TimeLimitSeconds: NormalizeTimeLimit(e.timeLimitInput),
	}
}

// Save creates the quiz when it has no id yet and updates it otherwise.
// On failure the draft is kept and the editor returns to draft-editing.
func (e *Editor) Save(ctx context.Context) (err error) {
	op := e.log.WithOperation(ctx, "SaveQuiz")

	e.mu.Lock()
	quizID := e.draft.ID
	defer func() { op.LogResult(quizID.String(), "quiz", err) }()

	if e.state == EditorSaving {
		e.mu.Unlock()
		return ErrInFlight
	}
	classCode := e.session.ClassCode()
	if classCode == "" {
		e.mu.Unlock()
		e.notifier.Error(ctx, MsgNoClassroom)
		return ErrNoClassroom
	}
	req := e.buildRequest()
	if err := e.validator.ValidateSaveRequest(req); err != nil {
		e.mu.Unlock()
		var ve ValidationErrors
		if errors.As(err, &ve) {
			e.notifier.Error(ctx, "Validation failed: "+ve.First())
		}
		return err
	}
	revision := e.revision
	e.transition(EditorSaving)
	e.mu.Unlock()

	creating := quizID.IsZero()
	var resp *models.SaveQuizResponse
	if creating {
		resp, err = e.backend.CreateQuiz(ctx, classCode, req)
	} else {
		resp, err = e.backend.UpdateQuiz(ctx, classCode, quizID, req)
	}

	e.mu.Lock()
	if err != nil {
		e.transition(EditorSaveFailed)
		e.transition(EditorDraftEditing)
		e.mu.Unlock()
		e.fail(ctx, err, MsgSaveFailed, MsgSaveServerError)
		return err
	}

	if creating && resp != nil && !resp.QuizID.IsZero() {
		quizID = resp.QuizID
		e.draft.ID = quizID
		e.hydratedID = quizID
	}
	e.transition(EditorSaved)
	if e.revision != revision {
		e.transition(EditorDraftEditing)
	}
	e.mu.Unlock()

	message := MsgQuizUpdated
	if creating {
		message = MsgQuizCreated
	}
	e.notifier.Success(ctx, message)
	e.notifier.Emit(ctx, events.EventQuizSaved, events.QuizSavedEvent{
		ClassCode: classCode,
		QuizID:    quizID,
		Title:     req.Title,
		Created:   creating,
	})
	return nil
}

// fail reports a backend failure. A 401 ends the session instead of showing
// the generic text.
func (e *Editor) fail(ctx context.Context, err error, failure, serverError string) {
	if IsSessionExpired(err) {
		e.session.Expire(ctx, session.ReasonUnauthorized)
	}
	e.notifier.Error(ctx, describe(err, failure, serverError))
}
