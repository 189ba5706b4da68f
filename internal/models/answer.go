package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// AnswerValue is what a student has entered for one question: a single
// option index (multiple choice), a set of option indices (checkboxes) or
// free text. On the wire it is a JSON string or a JSON array of strings.
type AnswerValue struct {
	Text   string
	Values []string
	Multi  bool
}

func TextAnswer(s string) AnswerValue { return AnswerValue{Text: s} }

func ChoiceAnswer(index int) AnswerValue { return AnswerValue{Text: strconv.Itoa(index)} }

func MultiAnswer(values ...string) AnswerValue {
	if values == nil {
		values = []string{}
	}
	return AnswerValue{Values: values, Multi: true}
}

// Contains reports whether a checkbox answer includes v.
func (a AnswerValue) Contains(v string) bool {
	for _, x := range a.Values {
		if x == v {
			return true
		}
	}
	return false
}

// Toggle returns a checkbox answer with v added or removed.
func (a AnswerValue) Toggle(v string) AnswerValue {
	out := make([]string, 0, len(a.Values)+1)
	found := false
	for _, x := range a.Values {
		if x == v {
			found = true
			continue
		}
		out = append(out, x)
	}
	if !found {
		out = append(out, v)
	}
	return MultiAnswer(out...)
}

// Indices parses the answer as option indices, skipping anything non-numeric.
func (a AnswerValue) Indices() []int {
	src := a.Values
	if !a.Multi {
		src = []string{a.Text}
	}
	out := make([]int, 0, len(src))
	for _, s := range src {
		if i, err := strconv.Atoi(s); err == nil {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func (a AnswerValue) IsEmpty() bool {
	if a.Multi {
		return len(a.Values) == 0
	}
	return a.Text == ""
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.Multi {
		values := a.Values
		if values == nil {
			values = []string{}
		}
		return json.Marshal(values)
	}
	return json.Marshal(a.Text)
}

func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*a = AnswerValue{}
		return nil
	}
	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		values := make([]string, 0, len(items))
		for _, item := range items {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			values = append(values, s)
		}
		*a = MultiAnswer(values...)
	default:
		s, err := scalarString(data)
		if err != nil {
			return err
		}
		*a = TextAnswer(s)
	}
	return nil
}

func scalarString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("answer value %s is neither string nor number", raw)
}

type Answers map[string]AnswerValue

func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		if v.Multi {
			v.Values = append([]string{}, v.Values...)
		}
		out[k] = v
	}
	return out
}

// Attempt is the student's running attempt as seen by the client.
type Attempt struct {
	AttemptID FlexID
	AttemptNo *int
	ExpiresAt *time.Time
	Answers   Answers
}

type StartAttemptResponse struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message,omitempty"`
	AttemptID FlexID     `json:"attemptId"`
	AttemptNo *int       `json:"attemptNo,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

type SubmitAttemptRequest struct {
	AttemptID FlexID  `json:"attemptId" validate:"required"`
	Answers   Answers `json:"answers"`
}

type SubmitAttemptResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Score   *float64 `json:"score,omitempty"`
}
