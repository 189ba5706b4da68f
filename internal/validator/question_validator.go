package validator

import (
	"fmt"

	"github.com/SAP-F-2025/portfolio-quiz/internal/errors"
	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
)

// QuestionValidator checks the per-variant invariants of quiz questions.
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion returns every invariant the question violates. Field
// names are prefixed with prefix so callers can point at a location in the
// quiz document.
func (v *QuestionValidator) ValidateQuestion(prefix string, q models.Question) ValidationErrors {
	var errs ValidationErrors
	add := func(field, msg, rule string, value interface{}) {
		errs = append(errs, *errors.NewValidationErrorWithRule(prefix+field, msg, rule, value))
	}

	if q.ID == "" {
		add("id", "is required", "required", nil)
	}
	if !q.Type.Valid() {
		add("type", "must be a valid question type (multiple_choice, checkboxes, short_answer, paragraph)", "question_type", q.Type)
		return errs
	}

	switch q.Type {
	case models.MultipleChoice:
		if q.Correct != nil && (*q.Correct < 0 || *q.Correct >= len(q.Options)) {
			add("correctAnswer", fmt.Sprintf("must reference one of %d options", len(q.Options)), "option_index", *q.Correct)
		}
	case models.Checkboxes:
		prev := -1
		for _, c := range q.CorrectSet {
			if c < 0 || c >= len(q.Options) {
				add("correctAnswer", fmt.Sprintf("must reference one of %d options", len(q.Options)), "option_index", c)
				break
			}
			if c <= prev {
				add("correctAnswer", "must be ascending without duplicates", "index_set", q.CorrectSet)
				break
			}
			prev = c
		}
	case models.ShortAnswer:
		if q.SentenceLimit < models.ShortAnswerMinSentences || q.SentenceLimit > models.ShortAnswerMaxSentences {
			add("sentenceLimit", "must be between 1 and 3", "sentence_limit", q.SentenceLimit)
		}
	case models.Paragraph:
		if q.SentenceLimit < models.ParagraphMinSentences {
			add("sentenceLimit", "must be at least 3", "sentence_limit", q.SentenceLimit)
		}
	}

	return errs
}

// ValidatePages checks every page and question in a quiz document, including
// that page and question ids are unique.
func (v *QuestionValidator) ValidatePages(pages []models.Page) ValidationErrors {
	var errs ValidationErrors
	if len(pages) == 0 {
		return append(errs, *errors.NewValidationErrorWithRule("pages", "must contain at least one page", "min", 0))
	}

	pageIDs := make(map[string]bool, len(pages))
	questionIDs := make(map[string]bool)
	for pi, page := range pages {
		pagePrefix := fmt.Sprintf("pages[%d].", pi)
		if page.ID == "" {
			errs = append(errs, *errors.NewValidationErrorWithRule(pagePrefix+"id", "is required", "required", nil))
		} else if pageIDs[page.ID] {
			errs = append(errs, *errors.NewValidationErrorWithRule(pagePrefix+"id", "must be unique", "unique", page.ID))
		}
		pageIDs[page.ID] = true

		for qi, q := range page.Questions {
			prefix := fmt.Sprintf("%squestions[%d].", pagePrefix, qi)
			if q.ID != "" && questionIDs[q.ID] {
				errs = append(errs, *errors.NewValidationErrorWithRule(prefix+"id", "must be unique", "unique", q.ID))
			}
			questionIDs[q.ID] = true
			errs = append(errs, v.ValidateQuestion(prefix, q)...)
		}
	}
	return errs
}
