package chatclient

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// typingQuiet is how long after the last keystroke the debounce waits
// before emitting a stop signal.
const typingQuiet = 1500 * time.Millisecond

// TypingDebounce turns a stream of keystrokes into at most one
// typing-start per burst and exactly one typing-stop when the burst
// ends. A stop is only ever emitted after a start.
type TypingDebounce struct {
	start func() error
	stop  func() error

	mu     sync.Mutex
	active bool
	timer  *time.Timer
	gen    uint64

	afterFunc func(time.Duration, func()) *time.Timer
}

// TypingFor returns a debounce wired to this client for one
// conversation.
func (c *Client) TypingFor(convID, recipientID uuid.UUID) *TypingDebounce {
	return NewTypingDebounce(
		func() error { return c.SendTypingStart(convID, recipientID) },
		func() error { return c.SendTypingStop(convID, recipientID) },
	)
}

func NewTypingDebounce(start, stop func() error) *TypingDebounce {
	return &TypingDebounce{
		start:     start,
		stop:      stop,
		afterFunc: time.AfterFunc,
	}
}

// InputChanged records the input box's current text. The first
// non-empty input of a burst emits typing-start; each one pushes the
// quiet deadline out. Clearing the box ends the burst immediately
// rather than waiting out the quiet window.
func (t *TypingDebounce) InputChanged(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if strings.TrimSpace(text) == "" {
		t.stopLocked()
		return
	}
	if !t.active {
		t.active = true
		_ = t.start()
	}
	t.resetTimerLocked()
}

// MessageSent ends the burst immediately: the send itself tells the
// peer the typing is over.
func (t *TypingDebounce) MessageSent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Flush ends an active burst, e.g. when the conversation view closes.
func (t *TypingDebounce) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *TypingDebounce) resetTimerLocked() {
	t.gen++
	gen := t.gen
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = t.afterFunc(typingQuiet, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.gen != gen {
			return
		}
		t.stopLocked()
	})
}

func (t *TypingDebounce) stopLocked() {
	if !t.active {
		return
	}
	t.active = false
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	_ = t.stop()
}
