package chatclient

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionState tracks where a conversation session is in its lifecycle.
type SessionState int

const (
	SessionLoading SessionState = iota
	SessionActive
	SessionFailed
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionLoading:
		return "loading"
	case SessionActive:
		return "active"
	case SessionFailed:
		return "failed"
	case SessionClosed:
		return "closed"
	}
	return "unknown"
}

// typingExpiry clears a peer's typing flag when no stop signal arrives,
// e.g. when the peer's connection drops mid-typing.
const typingExpiry = 6 * time.Second

// Session is the live view of one conversation: ordered messages, the
// peer's typing flag, and read receipts. It subscribes before fetching
// history so no event falls in the gap; live messages arriving during
// the fetch are buffered and merged once history lands.
type Session struct {
	client *Client
	convID uuid.UUID
	peerID uuid.UUID
	sub    *Subscription

	mu           sync.Mutex
	state        SessionState
	err          error
	messages     []Message
	seen         map[uuid.UUID]struct{}
	buffered     []Message
	pendingReads map[uuid.UUID]time.Time
	typing       bool
	typingTimer  *time.Timer
	typingGen    uint64

	afterFunc func(time.Duration, func()) *time.Timer
}

// OpenSession opens a session for a conversation with one peer. The
// returned session starts in SessionLoading and flips to SessionActive
// when history arrives, or SessionFailed if the fetch fails.
func (c *Client) OpenSession(ctx context.Context, convID, peerID uuid.UUID) *Session {
	s := &Session{
		client:       c,
		convID:       convID,
		peerID:       peerID,
		state:        SessionLoading,
		seen:         make(map[uuid.UUID]struct{}),
		pendingReads: make(map[uuid.UUID]time.Time),
		afterFunc:    time.AfterFunc,
	}
	s.sub = c.Subscribe(convID, EventHandlers{
		OnMessage: s.onMessage,
		OnTyping:  s.onTyping,
		OnRead:    s.onRead,
	})
	go s.loadHistory(ctx)
	return s
}

func (s *Session) loadHistory(ctx context.Context) {
	history, err := s.client.History(ctx, s.convID)
	s.finishLoad(history, err)
}

// finishLoad merges fetched history with messages buffered during the
// fetch. Late results are discarded once the session left the loading
// state.
func (s *Session) finishLoad(history []Message, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionLoading {
		return
	}
	if err != nil {
		s.state = SessionFailed
		s.err = err
		s.buffered = nil
		return
	}
	for _, m := range history {
		s.appendLocked(m)
	}
	for _, m := range s.buffered {
		s.appendLocked(m)
	}
	s.buffered = nil
	s.state = SessionActive
}

// appendLocked adds a message if it was not seen before and applies any
// receipt that arrived ahead of it. Insertion keeps s.messages ascending
// by CreatedAt no matter how delivery and the history fetch interleave;
// equal timestamps keep arrival order.
func (s *Session) appendLocked(m Message) {
	if m.ConversationID != s.convID {
		return
	}
	if _, dup := s.seen[m.ID]; dup {
		return
	}
	s.seen[m.ID] = struct{}{}
	if at, ok := s.pendingReads[m.ID]; ok {
		delete(s.pendingReads, m.ID)
		if m.ReadAt == nil || at.Before(*m.ReadAt) {
			m.ReadAt = &at
		}
	}
	i := sort.Search(len(s.messages), func(i int) bool {
		return s.messages[i].CreatedAt.After(m.CreatedAt)
	})
	s.messages = append(s.messages, Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = m
}

func (s *Session) onMessage(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case SessionLoading:
		if m.ConversationID == s.convID {
			s.buffered = append(s.buffered, m)
		}
	case SessionActive:
		s.appendLocked(m)
	}
	// A message from the peer means they are no longer mid-typing.
	if m.SenderID == s.peerID {
		s.clearTypingLocked()
	}
}

func (s *Session) onTyping(t Typing) {
	if t.UserID != s.peerID || t.ConversationID != s.convID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionClosed {
		return
	}
	if !t.Active {
		s.clearTypingLocked()
		return
	}
	s.typing = true
	s.typingGen++
	gen := s.typingGen
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = s.afterFunc(typingExpiry, func() {
		s.mu.Lock()
		if s.typingGen == gen {
			s.typing = false
		}
		s.mu.Unlock()
	})
}

func (s *Session) clearTypingLocked() {
	s.typing = false
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
}

// onRead stamps the earliest read time onto the message. Receipts may
// arrive before the message itself; those wait in pendingReads.
func (s *Session) onRead(r Receipt) {
	if r.ConversationID != s.convID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionClosed {
		return
	}
	for i := range s.messages {
		if s.messages[i].ID != r.MessageID {
			continue
		}
		cur := s.messages[i].ReadAt
		if cur == nil || r.ReadAt.Before(*cur) {
			at := r.ReadAt
			s.messages[i].ReadAt = &at
		}
		return
	}
	if cur, ok := s.pendingReads[r.MessageID]; !ok || r.ReadAt.Before(cur) {
		s.pendingReads[r.MessageID] = r.ReadAt
	}
}

// Send sends a message in this conversation and records the acked copy
// locally so the sender sees it without a round trip through delivery.
func (s *Session) Send(ctx context.Context, body string) (*Message, error) {
	msg, err := s.client.SendMessage(ctx, s.convID, s.peerID, body)
	if err != nil {
		return nil, err
	}
	if msg != nil {
		s.mu.Lock()
		if s.state == SessionActive {
			s.appendLocked(*msg)
		} else if s.state == SessionLoading {
			s.buffered = append(s.buffered, *msg)
		}
		s.mu.Unlock()
	}
	return msg, nil
}

// MarkRead reports the given message as read by the local user.
func (s *Session) MarkRead(messageID uuid.UUID) error {
	return s.client.MarkRead(s.convID, messageID)
}

// Messages returns a snapshot of the session's messages, ascending by
// creation time.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Typing reports whether the peer is currently typing.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the history error when the session is SessionFailed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) Close() {
	s.sub.Cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionClosed
	s.clearTypingLocked()
	s.buffered = nil
}
