package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FlexID is an identifier the backend sends either as a JSON string or a
// JSON number. It always marshals back as a string.
type FlexID string

func (id FlexID) String() string { return string(id) }

func (id FlexID) IsZero() bool { return strings.TrimSpace(string(id)) == "" }

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(id))
}

// APIResponse is the envelope every backend endpoint wraps its payload in.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
