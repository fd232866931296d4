package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatSession struct {
	SessionID     string    `json:"session_id"`
	Title         string    `json:"title"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ChatReply is what the chat endpoint returns to the client.
type ChatReply struct {
	SessionID string `json:"session_id"`
	Response  string `json:"response"`
	Fallback  bool   `json:"fallback,omitempty"`
	Offline   bool   `json:"offline,omitempty"`
}
