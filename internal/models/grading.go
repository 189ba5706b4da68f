package models

import "time"

type AttemptStatus string

const (
	AttemptInProgress   AttemptStatus = "in_progress"
	AttemptNeedsGrading AttemptStatus = "needs_grading"
	AttemptCompleted    AttemptStatus = "completed"
)

// AttemptFilter narrows the grading console list.
type AttemptFilter string

const (
	FilterNeedsGrading AttemptFilter = "needs_grading"
	FilterInProgress   AttemptFilter = "in_progress"
	FilterCompleted    AttemptFilter = "completed"
	FilterAll          AttemptFilter = "all"
)

var AttemptFilters = []AttemptFilter{FilterNeedsGrading, FilterInProgress, FilterCompleted, FilterAll}

func (f AttemptFilter) Valid() bool {
	for _, v := range AttemptFilters {
		if f == v {
			return true
		}
	}
	return false
}

// Matches reports whether an attempt with the given status passes the filter.
func (f AttemptFilter) Matches(s AttemptStatus) bool {
	return f == FilterAll || string(f) == string(s)
}

const (
	MinScore = 0
	MaxScore = 100
)

// QuestionGrade is the per-question annotation a teacher may leave.
type QuestionGrade struct {
	Points   *float64 `json:"points"`
	Feedback string   `json:"feedback"`
}

type Grading map[string]QuestionGrade

func (g Grading) Clone() Grading {
	out := make(Grading, len(g))
	for k, v := range g {
		out[k] = v
	}
	return out
}

// AttemptSummary is one row of the grading console list.
type AttemptSummary struct {
	ID              FlexID        `json:"id"`
	StudentID       FlexID        `json:"student_id"`
	StudentName     string        `json:"student_name,omitempty"`
	StudentUsername string        `json:"student_username,omitempty"`
	AttemptNo       int           `json:"attempt_no"`
	Status          AttemptStatus `json:"status"`
	Score           *float64      `json:"score"`
	Answers         Answers       `json:"answers"`
	Grading         Grading       `json:"grading,omitempty"`
	Comment         string        `json:"comment,omitempty"`
	SubmittedAt     *time.Time    `json:"submitted_at,omitempty"`
}

// DisplayName prefers the full name, then the username, then the id.
func (s AttemptSummary) DisplayName() string {
	switch {
	case s.StudentName != "":
		return s.StudentName
	case s.StudentUsername != "":
		return s.StudentUsername
	}
	return s.StudentID.String()
}

type AttemptListResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Attempts []AttemptSummary `json:"attempts"`
}

// GradingRecord is the attempt the console currently has open.
type GradingRecord struct {
	AttemptID   FlexID
	StudentID   FlexID
	Answers     Answers
	Score       *float64
	PerQuestion Grading
	Comment     string
}

type GradeRequest struct {
	Score   float64 `json:"score" validate:"min=0,max=100"`
	Grading Grading `json:"grading"`
	Comment string  `json:"comment"`
}
