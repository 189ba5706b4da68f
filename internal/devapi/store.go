package devapi

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"k8s.io/utils/clock"
)

var (
	errQuizNotFound       = errors.New("Quiz not found")
	errAttemptNotFound    = errors.New("Attempt not found")
	errNoAttemptsLeft     = errors.New("No attempts remaining")
	errAttemptNotActive   = errors.New("Attempt is not in progress")
	errAttemptNotGradable = errors.New("Attempt has not been submitted")
)

type quizRecord struct {
	id        int
	classCode string
	req       models.SaveQuizRequest
}

type attemptRecord struct {
	id          int
	quizID      int
	student     Student
	attemptNo   int
	status      models.AttemptStatus
	expiresAt   *time.Time
	answers     models.Answers
	score       *float64
	grading     models.Grading
	comment     string
	submittedAt *time.Time
}

// Student identifies the caller of student-facing endpoints.
type Student struct {
	ID       string
	Name     string
	Username string
}

// store keeps every quiz and attempt in memory.
type store struct {
	mu       sync.RWMutex
	clock    clock.PassiveClock
	quizzes  map[int]*quizRecord
	attempts map[int]*attemptRecord
	nextQuiz int
	nextAtt  int

	stringDocuments bool
}

func newStore(c clock.PassiveClock) *store {
	return &store{
		clock:    c,
		quizzes:  map[int]*quizRecord{},
		attempts: map[int]*attemptRecord{},
	}
}

func idLess(a, b models.FlexID) bool {
	ai, _ := strconv.Atoi(a.String())
	bi, _ := strconv.Atoi(b.String())
	return ai < bi
}

func parseID(s string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	return id, err == nil && id > 0
}

func (s *store) createQuiz(classCode string, req models.SaveQuizRequest) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuiz++
	s.quizzes[s.nextQuiz] = &quizRecord{id: s.nextQuiz, classCode: classCode, req: req}
	return s.nextQuiz
}

func (s *store) updateQuiz(classCode string, id int, req models.SaveQuizRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok || q.classCode != classCode {
		return errQuizNotFound
	}
	q.req = req
	return nil
}

func (s *store) quiz(classCode string, id int) (*quizRecord, error) {
	q, ok := s.quizzes[id]
	if !ok || q.classCode != classCode {
		return nil, errQuizNotFound
	}
	return q, nil
}

// meta renders the server view of a quiz for one student.
func (s *store) meta(classCode string, id int, studentID string) (models.QuizMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, err := s.quiz(classCode, id)
	if err != nil {
		return models.QuizMeta{}, err
	}
	return s.metaLocked(q, studentID), nil
}

func (s *store) metaLocked(q *quizRecord, studentID string) models.QuizMeta {
	encode := encodeDocument
	if s.stringDocuments {
		encode = encodeDocumentAsString
	}
	doc, _ := encode(q.req.Questions)
	remaining := q.req.AttemptsAllowed - s.usedAttemptsLocked(q.id, studentID)
	if remaining < 0 {
		remaining = 0
	}
	return models.QuizMeta{
		ID:                models.FlexID(strconv.Itoa(q.id)),
		Title:             q.req.Title,
		Questions:         doc,
		AttemptsAllowed:   q.req.AttemptsAllowed,
		AttemptsRemaining: &remaining,
		TimeLimitSeconds:  q.req.TimeLimitSeconds,
		StartTime:         q.req.StartTime,
		EndTime:           q.req.EndTime,
	}
}

func (s *store) listQuizzes(classCode, studentID string) []models.QuizMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.QuizMeta, 0)
	for _, q := range s.quizzes {
		if q.classCode == classCode {
			out = append(out, s.metaLocked(q, studentID))
		}
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (s *store) usedAttemptsLocked(quizID int, studentID string) int {
	n := 0
	for _, a := range s.attempts {
		if a.quizID == quizID && a.student.ID == studentID {
			n++
		}
	}
	return n
}

// startAttempt resumes the student's open attempt or opens a new one,
// consuming one allowed attempt.
func (s *store) startAttempt(classCode string, quizID int, student Student) (*attemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.quiz(classCode, quizID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for _, a := range s.attempts {
		if a.quizID == quizID && a.student.ID == student.ID && a.status == models.AttemptInProgress {
			if a.expiresAt == nil || now.Before(*a.expiresAt) {
				copied := *a
				return &copied, nil
			}
		}
	}

	used := s.usedAttemptsLocked(quizID, student.ID)
	if used >= q.req.AttemptsAllowed {
		return nil, errNoAttemptsLeft
	}

	s.nextAtt++
	a := &attemptRecord{
		id:        s.nextAtt,
		quizID:    quizID,
		student:   student,
		attemptNo: used + 1,
		status:    models.AttemptInProgress,
		answers:   models.Answers{},
	}
	if q.req.TimeLimitSeconds != nil && *q.req.TimeLimitSeconds > 0 {
		exp := now.Add(time.Duration(*q.req.TimeLimitSeconds) * time.Second)
		a.expiresAt = &exp
	}
	s.attempts[a.id] = a
	copied := *a
	return &copied, nil
}

func (s *store) submitAttempt(classCode string, quizID, attemptID int, studentID string, answers models.Answers) (*attemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, err := s.quiz(classCode, quizID)
	if err != nil {
		return nil, err
	}
	a, ok := s.attempts[attemptID]
	if !ok || a.quizID != quizID || a.student.ID != studentID {
		return nil, errAttemptNotFound
	}
	if a.status != models.AttemptInProgress {
		return nil, errAttemptNotActive
	}

	now := s.clock.Now()
	a.answers = answers.Clone()
	a.submittedAt = &now
	score, needsManual := autograde(q.req.Questions.Pages, answers)
	a.score = &score
	a.status = models.AttemptCompleted
	if needsManual {
		a.status = models.AttemptNeedsGrading
	}
	copied := *a
	return &copied, nil
}

func (s *store) listAttempts(classCode string, quizID int, filter models.AttemptFilter) ([]models.AttemptSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, err := s.quiz(classCode, quizID); err != nil {
		return nil, err
	}
	out := make([]models.AttemptSummary, 0)
	for _, a := range s.attempts {
		if a.quizID != quizID || !filter.Matches(a.status) {
			continue
		}
		out = append(out, a.summary())
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out, nil
}

func (s *store) gradeAttempt(classCode string, quizID, attemptID int, req models.GradeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.quiz(classCode, quizID); err != nil {
		return err
	}
	a, ok := s.attempts[attemptID]
	if !ok || a.quizID != quizID {
		return errAttemptNotFound
	}
	if a.status == models.AttemptInProgress {
		return errAttemptNotGradable
	}
	score := req.Score
	a.score = &score
	a.grading = req.Grading.Clone()
	a.comment = req.Comment
	a.status = models.AttemptCompleted
	return nil
}

func (a *attemptRecord) summary() models.AttemptSummary {
	return models.AttemptSummary{
		ID:              models.FlexID(strconv.Itoa(a.id)),
		StudentID:       models.FlexID(a.student.ID),
		StudentName:     a.student.Name,
		StudentUsername: a.student.Username,
		AttemptNo:       a.attemptNo,
		Status:          a.status,
		Score:           a.score,
		Answers:         a.answers.Clone(),
		Grading:         a.grading,
		Comment:         a.comment,
		SubmittedAt:     a.submittedAt,
	}
}
