package quiz

import (
	"strings"
	"testing"

	"github.com/SAP-F-2025/portfolio-quiz/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"
)

func TestNewQuestion_Defaults(t *testing.T) {
	mc := NewQuestion(models.MultipleChoice)
	assert.True(t, strings.HasPrefix(mc.ID, "q-"))
	assert.Equal(t, models.DefaultQuestionText, mc.Text)
	assert.Equal(t, []string{"", "", "", ""}, mc.Options)
	assert.Nil(t, mc.Correct)

	cb := NewQuestion(models.Checkboxes)
	assert.Len(t, cb.Options, 4)
	assert.Empty(t, cb.CorrectSet)
	assert.NotNil(t, cb.CorrectSet)

	assert.Equal(t, 1, NewQuestion(models.ShortAnswer).SentenceLimit)
	assert.Equal(t, 3, NewQuestion(models.Paragraph).SentenceLimit)

	unknown := NewQuestion("matching")
	assert.Equal(t, models.Paragraph, unknown.Type)
	assert.Equal(t, 3, unknown.SentenceLimit)

	assert.NotEqual(t, NewQuestion(models.Paragraph).ID, NewQuestion(models.Paragraph).ID)
}

func TestChangeType_MCToCheckboxesWrapsCorrect(t *testing.T) {
	mc := models.Question{ID: "q", Type: models.MultipleChoice, Text: "t", Options: []string{"a", "b", "c"}, Correct: ptr.To(2)}

	cb := ChangeType(mc, models.Checkboxes)
	assert.Equal(t, "q", cb.ID)
	assert.Equal(t, "t", cb.Text)
	assert.Equal(t, []string{"a", "b", "c"}, cb.Options)
	assert.Equal(t, []int{2}, cb.CorrectSet)
	assert.Nil(t, cb.Correct)
}

func TestChangeType_CheckboxesToMCDropsCorrect(t *testing.T) {
	cb := models.Question{ID: "q", Type: models.Checkboxes, Text: "t", Options: []string{"a", "b"}, CorrectSet: []int{0, 1}}

	mc := ChangeType(cb, models.MultipleChoice)
	assert.Equal(t, []string{"a", "b"}, mc.Options)
	assert.Nil(t, mc.Correct)
	assert.Nil(t, mc.CorrectSet)
}

func TestChangeType_OptionsToTextDiscardsOptions(t *testing.T) {
	mc := models.Question{ID: "q", Type: models.MultipleChoice, Text: "t", Options: []string{"a"}, Correct: ptr.To(0)}

	sa := ChangeType(mc, models.ShortAnswer)
	assert.Nil(t, sa.Options)
	assert.Nil(t, sa.Correct)
	assert.Equal(t, 1, sa.SentenceLimit)
	assert.Empty(t, sa.ExpectedAnswer)

	para := ChangeType(mc, models.Paragraph)
	assert.Equal(t, 3, para.SentenceLimit)
	assert.NoError(t, Validate(para))
}

func TestChangeType_TextToTextClamps(t *testing.T) {
	para := models.Question{ID: "q", Type: models.Paragraph, Text: "t", SentenceLimit: 6, ExpectedAnswer: "essay"}

	sa := ChangeType(para, models.ShortAnswer)
	assert.Equal(t, 3, sa.SentenceLimit)
	assert.Equal(t, "essay", sa.ExpectedAnswer)

	back := ChangeType(models.Question{ID: "q", Type: models.ShortAnswer, SentenceLimit: 1}, models.Paragraph)
	assert.Equal(t, 3, back.SentenceLimit)
}

func TestChangeType_TextToOptionsGetsDefaults(t *testing.T) {
	sa := models.Question{ID: "q", Type: models.ShortAnswer, Text: "t", SentenceLimit: 2, ExpectedAnswer: "x"}

	cb := ChangeType(sa, models.Checkboxes)
	assert.Len(t, cb.Options, 4)
	assert.Equal(t, []int{}, cb.CorrectSet)
	assert.Zero(t, cb.SentenceLimit)
	assert.Empty(t, cb.ExpectedAnswer)
}

func TestChangeType_UnknownTargetIsNoop(t *testing.T) {
	q := models.Question{ID: "q", Type: models.Checkboxes, Options: []string{"a"}, CorrectSet: []int{0}}
	assert.Equal(t, q, ChangeType(q, "ordering"))
}

func TestChangeType_ResultAlwaysValid(t *testing.T) {
	sources := []models.Question{
		{ID: "a", Type: models.MultipleChoice, Options: []string{"x", "y"}, Correct: ptr.To(1)},
		{ID: "b", Type: models.Checkboxes, Options: []string{"x", "y", "z"}, CorrectSet: []int{0, 2}},
		{ID: "c", Type: models.ShortAnswer, SentenceLimit: 2},
		{ID: "d", Type: models.Paragraph, SentenceLimit: 9},
	}
	for _, src := range sources {
		for _, target := range models.QuestionTypes {
			out := ChangeType(src, target)
			assert.Equal(t, target, out.Type)
			assert.NoError(t, Validate(out), "%s -> %s", src.Type, target)
		}
	}
}

func TestOptionHelpers(t *testing.T) {
	mc := NewQuestion(models.MultipleChoice)
	mc = SetOption(mc, 1, "four")
	mc = SetCorrect(mc, 1)
	require.NotNil(t, mc.Correct)
	assert.Equal(t, "four", mc.Options[*mc.Correct])

	mc = SetCorrect(mc, 10)
	assert.Equal(t, 1, *mc.Correct, "out of range index is ignored")
	mc = SetCorrect(mc, -1)
	assert.Nil(t, mc.Correct)

	mc = AddOption(mc)
	assert.Len(t, mc.Options, 5)

	cb := NewQuestion(models.Checkboxes)
	cb = ToggleCorrect(cb, 3)
	cb = ToggleCorrect(cb, 0)
	assert.Equal(t, []int{0, 3}, cb.CorrectSet)
	cb = ToggleCorrect(cb, 3)
	assert.Equal(t, []int{0}, cb.CorrectSet)

	sa := SetSentenceLimit(NewQuestion(models.ShortAnswer), 7)
	assert.Equal(t, 3, sa.SentenceLimit)
	sa = SetExpectedAnswer(sa, "Paris")
	assert.Equal(t, "Paris", sa.ExpectedAnswer)

	para := SetSentenceLimit(NewQuestion(models.Paragraph), 1)
	assert.Equal(t, 3, para.SentenceLimit)

	assert.Equal(t, cb, SetSentenceLimit(cb, 2), "sentence limit does not apply to checkboxes")
}
