package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Roles accepted in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrSystemMessage is returned when a system message is appended anywhere but first.
var ErrSystemMessage = errors.New("system message must be first and unique")

// Message is one chat turn as sent to the model service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is an ordered, append-only message history.
type Conversation struct {
	msgs []Message
}

// NewConversation seeds a conversation with the system prompt.
func NewConversation(system string) *Conversation {
	return &Conversation{msgs: []Message{{Role: RoleSystem, Content: system}}}
}

// Append adds a message. Only user and assistant roles are accepted after
// construction.
func (c *Conversation) Append(role, content string) error {
	switch role {
	case RoleUser, RoleAssistant:
	case RoleSystem:
		return ErrSystemMessage
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	c.msgs = append(c.msgs, Message{Role: role, Content: content})
	return nil
}

// AddUser appends a user message.
func (c *Conversation) AddUser(content string) {
	c.msgs = append(c.msgs, Message{Role: RoleUser, Content: content})
}

// AddAssistant appends an assistant message; content may be empty.
func (c *Conversation) AddAssistant(content string) {
	c.msgs = append(c.msgs, Message{Role: RoleAssistant, Content: content})
}

// Messages returns a copy of the history, oldest first.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.msgs))
	copy(out, c.msgs)
	return out
}

// Len reports the number of messages, system included.
func (c *Conversation) Len() int { return len(c.msgs) }

// LoadConversation reads a transcript written by SaveConversation.
// A missing file yields a nil slice and no error.
func LoadConversation(path string) ([]Message, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SaveConversation writes msgs as indented JSON.
func SaveConversation(path string, msgs []Message) error {
	b, err := json.MarshalIndent(msgs, "", " ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
