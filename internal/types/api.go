package types

import "encoding/json"

// AskRequest is the askAI request body. Prompt is forwarded as-is.
type AskRequest struct {
	Prompt string `json:"prompt"`
}

type AskResponse struct {
	Response string `json:"response"`
}

type SaveTaskResponse struct {
	ID string `json:"id"`
}

// UpdateTaskRequest is the updateTask request body. Updates stays raw so it
// can be decoded with DecodeObjectBytes.
type UpdateTaskRequest struct {
	ID      string          `json:"id"`
	Updates json.RawMessage `json:"updates"`
}
