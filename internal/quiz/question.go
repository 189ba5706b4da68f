package quiz

import (
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/SAP-F-2025/portfolio-quiz/internal/validator"
	"github.com/google/uuid"
)

// NewID returns an opaque client-side identifier such as "q-3f2a…".
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// NewQuestion builds a question of the given type with default content.
// Unknown types produce a paragraph question.
func NewQuestion(t models.QuestionType) models.Question {
	q := models.Question{
		ID:   NewID("q"),
		Type: t,
		Text: models.DefaultQuestionText,
	}

	switch t {
	case models.MultipleChoice:
		q.Options = make([]string, models.DefaultOptionCount)
	case models.Checkboxes:
		q.Options = make([]string, models.DefaultOptionCount)
		q.CorrectSet = []int{}
	case models.ShortAnswer:
		q.SentenceLimit = models.ShortAnswerMinSentences
	default:
		q.Type = models.Paragraph
		q.SentenceLimit = models.ParagraphMinSentences
	}
	return q
}

// ChangeType converts q to the target type, keeping id and text. The result
// satisfies the target variant's invariants. An unknown target returns q
// unchanged.
func ChangeType(q models.Question, target models.QuestionType) models.Question {
	if !target.Valid() || target == q.Type {
		return q.Clone()
	}

	out := models.Question{ID: q.ID, Type: target, Text: q.Text}

	switch target {
	case models.MultipleChoice:
		out.Options = carryOptions(q)
		if q.Type == models.MultipleChoice && q.Correct != nil && *q.Correct < len(out.Options) {
			c := *q.Correct
			out.Correct = &c
		}

	case models.Checkboxes:
		out.Options = carryOptions(q)
		out.CorrectSet = []int{}
		if q.Type == models.MultipleChoice && q.Correct != nil {
			out.CorrectSet = models.NormalizeIndexSet([]int{*q.Correct}, len(out.Options))
		}

	case models.ShortAnswer:
		out.SentenceLimit = models.ShortAnswerMinSentences
		if !q.Type.HasOptions() {
			out.SentenceLimit = models.ClampSentenceLimit(target, q.SentenceLimit)
			out.ExpectedAnswer = q.ExpectedAnswer
		}

	case models.Paragraph:
		out.SentenceLimit = models.ParagraphMinSentences
		if !q.Type.HasOptions() {
			out.SentenceLimit = models.ClampSentenceLimit(target, q.SentenceLimit)
			out.ExpectedAnswer = q.ExpectedAnswer
		}
	}
	return out
}

// carryOptions keeps the option list of an option-bearing question, or
// creates the default empty set.
func carryOptions(q models.Question) []string {
	if q.Type.HasOptions() && len(q.Options) > 0 {
		return append([]string(nil), q.Options...)
	}
	return make([]string, models.DefaultOptionCount)
}

// Validate reports the structural invariants q violates.
func Validate(q models.Question) error {
	if errs := validator.NewQuestionValidator().ValidateQuestion("", q); len(errs) > 0 {
		return errs
	}
	return nil
}

// AddOption appends an empty option. Non option-bearing questions are
// returned unchanged.
func AddOption(q models.Question) models.Question {
	out := q.Clone()
	if out.Type.HasOptions() {
		out.Options = append(out.Options, "")
	}
	return out
}

// SetOption replaces the text of option i.
func SetOption(q models.Question, i int, text string) models.Question {
	out := q.Clone()
	if out.Type.HasOptions() && i >= 0 && i < len(out.Options) {
		out.Options[i] = text
	}
	return out
}

// SetCorrect marks option i as the single correct answer of a multiple
// choice question. A negative index clears it.
func SetCorrect(q models.Question, i int) models.Question {
	out := q.Clone()
	if out.Type != models.MultipleChoice {
		return out
	}
	if i < 0 {
		out.Correct = nil
		return out
	}
	if i < len(out.Options) {
		out.Correct = &i
	}
	return out
}

// ToggleCorrect flips option i in a checkbox question's correct set.
func ToggleCorrect(q models.Question, i int) models.Question {
	out := q.Clone()
	if out.Type != models.Checkboxes || i < 0 || i >= len(out.Options) {
		return out
	}
	next := make([]int, 0, len(out.CorrectSet)+1)
	found := false
	for _, c := range out.CorrectSet {
		if c == i {
			found = true
			continue
		}
		next = append(next, c)
	}
	if !found {
		next = append(next, i)
	}
	out.CorrectSet = models.NormalizeIndexSet(next, len(out.Options))
	return out
}

// SetSentenceLimit sets the limit of a text question, clamped to its bounds.
func SetSentenceLimit(q models.Question, n int) models.Question {
	out := q.Clone()
	if out.Type == models.ShortAnswer || out.Type == models.Paragraph {
		out.SentenceLimit = models.ClampSentenceLimit(out.Type, n)
	}
	return out
}

// SetExpectedAnswer sets the reference answer of a text question.
func SetExpectedAnswer(q models.Question, answer string) models.Question {
	out := q.Clone()
	if out.Type == models.ShortAnswer || out.Type == models.Paragraph {
		out.ExpectedAnswer = answer
	}
	return out
}

// SetText replaces the prompt text.
func SetText(q models.Question, text string) models.Question {
	out := q.Clone()
	out.Text = text
	return out
}
