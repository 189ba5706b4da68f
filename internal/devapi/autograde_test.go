package devapi

import (
	"testing"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/stretchr/testify/assert"
	"k8s.io/utils/ptr"
)

func gradedPages() []models.Page {
	return []models.Page{{
		ID: "p1",
		Questions: []models.Question{
			{ID: "mc", Type: models.MultipleChoice, Options: []string{"a", "b", "c"}, Correct: ptr.To(1)},
			{ID: "cb", Type: models.Checkboxes, Options: []string{"a", "b", "c"}, CorrectSet: []int{0, 2}},
			{ID: "sa", Type: models.ShortAnswer, SentenceLimit: 1, ExpectedAnswer: "Nucleus"},
			{ID: "open", Type: models.MultipleChoice, Options: []string{"a", "b"}},
		},
	}}
}

func TestAutograde(t *testing.T) {
	tests := []struct {
		name        string
		pages       []models.Page
		answers     models.Answers
		score       float64
		needsManual bool
	}{
		{
			name:  "all correct",
			pages: gradedPages(),
			answers: models.Answers{
				"mc": models.ChoiceAnswer(1),
				"cb": models.MultiAnswer("2", "0", "2"),
				"sa": models.TextAnswer("  nucleus "),
			},
			score: 100,
		},
		{
			name:    "one of three",
			pages:   gradedPages(),
			answers: models.Answers{"mc": models.ChoiceAnswer(1), "cb": models.MultiAnswer("0")},
			score:   33.33,
		},
		{
			name:    "unanswered",
			pages:   gradedPages(),
			answers: models.Answers{},
			score:   0,
		},
		{
			name: "paragraph needs a teacher",
			pages: []models.Page{{ID: "p1", Questions: []models.Question{
				{ID: "mc", Type: models.MultipleChoice, Options: []string{"a", "b"}, Correct: ptr.To(0)},
				{ID: "essay", Type: models.Paragraph, SentenceLimit: 3},
			}}},
			answers:     models.Answers{"mc": models.ChoiceAnswer(0)},
			score:       100,
			needsManual: true,
		},
		{
			name: "short answer without reference",
			pages: []models.Page{{ID: "p1", Questions: []models.Question{
				{ID: "sa", Type: models.ShortAnswer, SentenceLimit: 2},
			}}},
			answers:     models.Answers{"sa": models.TextAnswer("anything")},
			score:       0,
			needsManual: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, needsManual := autograde(tt.pages, tt.answers)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.needsManual, needsManual)
		})
	}
}
