package session

import "github.com/google/uuid"

// Role identifies the author of a Message.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Message is one entry of the conversation history.
type Message struct {
	ID   uuid.UUID
	Role Role
	Text string
}

func newMessage(role Role, text string) Message {
	return Message{ID: uuid.New(), Role: role, Text: text}
}

// System messages shown in the history while the session changes state.
const (
	msgInitializing  = "[System] Initalize..."
	msgReadyToChat   = "[System] Ready to chat"
	msgUploadImage   = "[System] Upload an image to chat"
	msgProcessingImg = "[System] Processing image"
)

// The helpers below mutate history and must be called with s.mu held.

func (s *Session) appendMessageLocked(role Role, text string) {
	s.messages = append(s.messages, newMessage(role, text))
	s.publish("message", map[string]any{"role": string(role), "count": len(s.messages)})
}

// updateLastLocked replaces the most recent message. The replacement gets a
// fresh ID, so observers can tell a streamed update from an unchanged entry.
func (s *Session) updateLastLocked(role Role, text string) {
	if len(s.messages) == 0 {
		s.appendMessageLocked(role, text)
		return
	}
	s.messages[len(s.messages)-1] = newMessage(role, text)
}

func (s *Session) clearHistoryLocked() {
	s.messages = nil
	s.infoText = ""
}
