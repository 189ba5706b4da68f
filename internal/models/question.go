package models

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	Checkboxes     QuestionType = "checkboxes"
	ShortAnswer    QuestionType = "short_answer"
	Paragraph      QuestionType = "paragraph"
)

// QuestionTypes lists every supported variant in display order.
var QuestionTypes = []QuestionType{MultipleChoice, ShortAnswer, Paragraph, Checkboxes}

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, Checkboxes, ShortAnswer, Paragraph:
		return true
	}
	return false
}

// HasOptions reports whether the variant carries an option list.
func (t QuestionType) HasOptions() bool {
	return t == MultipleChoice || t == Checkboxes
}

const (
	DefaultQuestionText = "New question"
	DefaultOptionCount  = 4

	ShortAnswerMinSentences = 1
	ShortAnswerMaxSentences = 3
	ParagraphMinSentences   = 3
)

// Question is a tagged union keyed by Type. Only the fields belonging to the
// active variant are meaningful:
//
//	multiple_choice: Options, Correct
//	checkboxes:      Options, CorrectSet
//	short_answer:    SentenceLimit, ExpectedAnswer
//	paragraph:       SentenceLimit, ExpectedAnswer
type Question struct {
	ID   string
	Type QuestionType `json:"type" validate:"question_type"`
	Text string

	Options    []string
	Correct    *int
	CorrectSet []int

	SentenceLimit  int
	ExpectedAnswer string
}

// Clone returns a deep copy so callers can mutate option and correctness
// slices without aliasing the original.
func (q Question) Clone() Question {
	out := q
	if q.Options != nil {
		out.Options = append([]string(nil), q.Options...)
	}
	if q.CorrectSet != nil {
		out.CorrectSet = append([]int(nil), q.CorrectSet...)
	}
	if q.Correct != nil {
		c := *q.Correct
		out.Correct = &c
	}
	return out
}

// IsCorrectOption reports whether option index i is marked correct.
func (q Question) IsCorrectOption(i int) bool {
	switch q.Type {
	case MultipleChoice:
		return q.Correct != nil && *q.Correct == i
	case Checkboxes:
		for _, c := range q.CorrectSet {
			if c == i {
				return true
			}
		}
	}
	return false
}

// questionWire is the persisted document shape shared with the backend.
type questionWire struct {
	ID            string          `json:"id"`
	Type          QuestionType    `json:"type"`
	Text          string          `json:"text"`
	Options       []string        `json:"options,omitempty"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
	SentenceLimit json.RawMessage `json:"sentenceLimit,omitempty"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	w := questionWire{ID: q.ID, Type: q.Type, Text: q.Text}

	var (
		correct any
		err     error
	)
	switch q.Type {
	case MultipleChoice:
		w.Options = nonNilOptions(q.Options)
		if q.Correct != nil {
			correct = strconv.Itoa(*q.Correct)
		}
	case Checkboxes:
		w.Options = nonNilOptions(q.Options)
		set := q.CorrectSet
		if set == nil {
			set = []int{}
		}
		correct = set
	case ShortAnswer, Paragraph:
		w.SentenceLimit, err = json.Marshal(q.SentenceLimit)
		if err != nil {
			return nil, err
		}
		correct = q.ExpectedAnswer
	default:
		return nil, fmt.Errorf("unsupported question type %q", q.Type)
	}

	w.CorrectAnswer, err = json.Marshal(correct)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("question %q: unsupported type %q", w.ID, w.Type)
	}

	out := Question{ID: w.ID, Type: w.Type, Text: w.Text}
	switch w.Type {
	case MultipleChoice:
		out.Options = nonNilOptions(w.Options)
		if idx, ok := decodeIndex(w.CorrectAnswer); ok && idx >= 0 && idx < len(out.Options) {
			out.Correct = &idx
		}
	case Checkboxes:
		out.Options = nonNilOptions(w.Options)
		out.CorrectSet = NormalizeIndexSet(decodeIndexList(w.CorrectAnswer), len(out.Options))
	case ShortAnswer, Paragraph:
		limit, ok := decodeIndex(w.SentenceLimit)
		if !ok {
			limit = 0
		}
		out.SentenceLimit = ClampSentenceLimit(w.Type, limit)
		out.ExpectedAnswer = decodeText(w.CorrectAnswer)
	}

	*q = out
	return nil
}

// ClampSentenceLimit applies the per-variant sentence bounds. Non-text
// variants always yield zero.
func ClampSentenceLimit(t QuestionType, n int) int {
	switch t {
	case ShortAnswer:
		if n < ShortAnswerMinSentences {
			return ShortAnswerMinSentences
		}
		if n > ShortAnswerMaxSentences {
			return ShortAnswerMaxSentences
		}
		return n
	case Paragraph:
		if n < ParagraphMinSentences {
			return ParagraphMinSentences
		}
		return n
	}
	return 0
}

// NormalizeIndexSet drops out-of-range and duplicate indices and sorts the
// remainder ascending.
func NormalizeIndexSet(indices []int, optionCount int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= optionCount {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

func nonNilOptions(opts []string) []string {
	if opts == nil {
		return []string{}
	}
	return opts
}

// decodeIndex accepts a JSON number or a numeric string.
func decodeIndex(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return parseIndex(string(n))
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return parseIndex(s)
	}
	return 0, false
}

func decodeIndexList(raw json.RawMessage) []int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		if i, ok := decodeIndex(item); ok {
			out = append(out, i)
		}
	}
	return out
}

func decodeText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.Trim(string(raw), `"`)
}

// parseIndex accepts integers and integral floats such as "2.0". Fractional
// values are not indices.
func parseIndex(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
