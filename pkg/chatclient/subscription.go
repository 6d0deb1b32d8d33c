package chatclient

import (
	"time"

	"github.com/google/uuid"
)

// EventHandlers receives conversation events. Handlers run on the
// client's read loop; they must not block.
type EventHandlers struct {
	OnMessage func(Message)
	OnTyping  func(Typing)
	OnRead    func(Receipt)
}

// Subscription is a registration for one conversation's events. Cancel
// is idempotent.
type Subscription struct {
	client   *Client
	convID   uuid.UUID
	handlers EventHandlers
	canceled bool
}

// Subscribe registers handlers for a conversation. Multiple
// subscriptions to the same conversation each receive every event.
func (c *Client) Subscribe(convID uuid.UUID, handlers EventHandlers) *Subscription {
	sub := &Subscription{client: c, convID: convID, handlers: handlers}
	c.mu.Lock()
	set, ok := c.subs[convID]
	if !ok {
		set = make(map[*Subscription]struct{})
		c.subs[convID] = set
	}
	set[sub] = struct{}{}
	c.mu.Unlock()
	return sub
}

func (s *Subscription) Cancel() {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	if s.canceled {
		return
	}
	s.canceled = true
	set := s.client.subs[s.convID]
	delete(set, s)
	if len(set) == 0 {
		delete(s.client.subs, s.convID)
	}
}

func (s *Subscription) deliver(env envelope) {
	switch env.Type {
	case eventMessageReceived:
		if env.Message != nil && s.handlers.OnMessage != nil {
			s.handlers.OnMessage(*env.Message)
		}
	case eventTypingStart, eventTypingStop:
		if s.handlers.OnTyping != nil {
			s.handlers.OnTyping(Typing{
				ConversationID: env.ConversationID,
				UserID:         env.SenderID,
				Active:         env.Type == eventTypingStart,
			})
		}
	case eventMessageRead:
		if s.handlers.OnRead == nil {
			return
		}
		at := time.Time{}
		if env.ReadAt != nil {
			at = *env.ReadAt
		}
		s.handlers.OnRead(Receipt{
			ConversationID: env.ConversationID,
			MessageID:      env.MessageID,
			ReaderID:       env.SenderID,
			ReadAt:         at,
		})
	}
}
