package models

import (
	"encoding/json"
	"strings"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn represents a single message in a conversation.
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// UnmarshalJSON accepts both {"role","text"} and the Gemini shape
// {"role","parts":[{"text"}]} that the browser keeps its history in.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  string  `json:"role"`
		Text  *string `json:"text"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.Role = raw.Role
	switch {
	case raw.Text != nil:
		t.Text = *raw.Text
	case len(raw.Parts) > 0:
		texts := make([]string, len(raw.Parts))
		for i, p := range raw.Parts {
			texts[i] = p.Text
		}
		t.Text = strings.Join(texts, "")
	default:
		t.Text = ""
	}
	return nil
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message string `json:"message"`
	History []Turn `json:"history"`
	// Context is a client-formatted summary of recent symptom log entries.
	Context string `json:"context,omitempty"`
}

// ChatResponse is the reply from the AI chat.
type ChatResponse struct {
	Response string `json:"response"`
}
