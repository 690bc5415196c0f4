package models

import "time"

// ChatSender tells user and bot messages apart
type ChatSender string

const (
	SenderUser ChatSender = "user"
	SenderBot  ChatSender = "bot"
)

// ChatOption is a clickable answer; selecting it dispatches Action
type ChatOption struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Action string `json:"action"`
	Emoji  string `json:"emoji,omitempty"`
}

// ChatMessage is one bubble in the chat transcript
type ChatMessage struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Sender    ChatSender   `json:"sender"`
	Timestamp time.Time    `json:"timestamp"`
	Options   []ChatOption `json:"options,omitempty"`
}

// ChatTranscript is a point-in-time copy of a conversation
type ChatTranscript struct {
	Messages    []ChatMessage `json:"messages"`
	IsTyping    bool          `json:"is_typing"`
	CurrentFlow string        `json:"current_flow,omitempty"`
}
