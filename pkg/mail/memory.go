package mail

import (
	"context"
	"sync"
)

// MemoryMailer records messages instead of delivering them. It is used by
// tests and local development setups that need to read outgoing mail.
type MemoryMailer struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

// NewMemoryMailer returns an empty MemoryMailer.
func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{}
}

// Send records msg unless the context is done or a failure was injected with SetError.
func (m *MemoryMailer) Send(ctx context.Context, msg Message) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	msg.To = append([]string(nil), msg.To...)
	m.messages = append(m.messages, msg)
	return nil
}

// SetError makes subsequent sends fail with err; nil restores delivery.
func (m *MemoryMailer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Messages returns a snapshot of recorded messages in send order.
func (m *MemoryMailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Last returns the most recent message sent to the recipient.
func (m *MemoryMailer) Last(recipient string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.messages) - 1; i >= 0; i-- {
		for _, to := range m.messages[i].To {
			if to == recipient {
				return m.messages[i], true
			}
		}
	}
	return Message{}, false
}
