package models

// ChatTurn is a single prior turn of a conversation, resupplied by the
// caller on every request. The server keeps no conversation state.
type ChatTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}
