package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIndex(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2", 2, true},
		{" 3 ", 3, true},
		{"1.0", 1, true},
		{"1e1", 10, true},
		{"1.7", 0, false},
		{"-0.5", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"", 0, false},
		{"two", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseIndex(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestQuestionUnmarshal_FractionalIndices(t *testing.T) {
	var mc Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":"q1","type":"multiple_choice","options":["a","b","c"],"correctAnswer":1.7}`), &mc))
	assert.Nil(t, mc.Correct)

	var whole Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":"q1","type":"multiple_choice","options":["a","b","c"],"correctAnswer":"2"}`), &whole))
	require.NotNil(t, whole.Correct)
	assert.Equal(t, 2, *whole.Correct)

	var cb Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":"q2","type":"checkboxes","options":["a","b","c"],"correctAnswer":[2,"0.5",0,1.0]}`), &cb))
	assert.Equal(t, []int{0, 1, 2}, cb.CorrectSet)

	var short Question
	require.NoError(t, json.Unmarshal([]byte(`{"id":"q3","type":"short_answer","sentenceLimit":2.5}`), &short))
	assert.Equal(t, ShortAnswerMinSentences, short.SentenceLimit)
}
