package agent

import (
	"github.com/sipeed/picosearch/pkg/providers"
)

// State is the ordered message history of one conversation thread. Messages
// are only ever appended; nothing reorders or truncates them.
type State struct {
	ThreadID string
	messages []providers.Message
}

// NewState builds a state for threadID seeded with a copy of history.
func NewState(threadID string, history []providers.Message) *State {
	s := &State{ThreadID: threadID, messages: make([]providers.Message, 0, len(history)+4)}
	s.Append(history...)
	return s
}

// Append adds copies of msgs to the end of the history.
func (s *State) Append(msgs ...providers.Message) {
	for _, m := range msgs {
		s.messages = append(s.messages, providers.CloneMessage(m))
	}
}

// Messages returns a copy of the history.
func (s *State) Messages() []providers.Message {
	if s == nil {
		return nil
	}
	out := make([]providers.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = providers.CloneMessage(m)
	}
	return out
}

func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return len(s.messages)
}

// Last returns the most recent message, or ErrInvalidState when there is none.
func (s *State) Last() (providers.Message, error) {
	if s == nil || len(s.messages) == 0 {
		return providers.Message{}, ErrInvalidState
	}
	return providers.CloneMessage(s.messages[len(s.messages)-1]), nil
}
