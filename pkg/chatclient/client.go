// Package chatclient is the Go client for the messaging channel: it keeps
// a websocket open to the server, correlates send acks, and exposes
// per-conversation sessions with typing and read-receipt state.
package chatclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected = errors.New("chatclient: not connected")
	ErrAckTimeout   = errors.New("chatclient: timed out waiting for ack")
	ErrEmptyBody    = errors.New("chatclient: message body is empty")
	ErrClosed       = errors.New("chatclient: client closed")
)

// SendRejectedError carries the server's reason for refusing a send.
type SendRejectedError struct {
	Reason string
}

func (e *SendRejectedError) Error() string {
	return "chatclient: send rejected: " + e.Reason
}

const (
	defaultAckTimeout   = 10 * time.Second
	defaultReconnectMin = 1 * time.Second
	defaultReconnectMax = 30 * time.Second
	writeTimeout        = 10 * time.Second
)

type Options struct {
	// URL is the websocket endpoint, e.g. ws://host/ws.
	URL string
	// HistoryURL is the base URL of the HTTP API, e.g. http://host.
	HistoryURL  string
	AccessToken string

	// AckTimeout bounds how long SendMessage waits for the server ack.
	AckTimeout   time.Duration
	ReconnectMin time.Duration
	ReconnectMax time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger

	// OnConnectionChange is invoked from the client's run loop whenever
	// the connection is established or lost.
	OnConnectionChange func(connected bool)
}

type Client struct {
	opts Options
	log  *slog.Logger
	http *http.Client

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
	closed    bool
	seq       uint64
	pending   map[uint64]chan envelope
	subs      map[uuid.UUID]map[*Subscription]struct{}

	done chan struct{}
}

// Dial connects to the channel and starts the read loop. The client
// reconnects on its own with capped backoff after the first successful
// dial; callers observe drops through OnConnectionChange.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, fmt.Errorf("chatclient: URL is required")
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = defaultAckTimeout
	}
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = defaultReconnectMin
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = defaultReconnectMax
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	c := &Client{
		opts:    opts,
		log:     opts.Logger,
		http:    httpClient,
		pending: make(map[uint64]chan envelope),
		subs:    make(map[uuid.UUID]map[*Subscription]struct{}),
		done:    make(chan struct{}),
	}
	ws, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.setConn(ws)
	go c.run()
	return c, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.AccessToken != "" {
		header.Set("Authorization", "Bearer "+c.opts.AccessToken)
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("chatclient: dial %s: %s: %w", c.opts.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("chatclient: dial %s: %w", c.opts.URL, err)
	}
	return ws, nil
}

func (c *Client) setConn(ws *websocket.Conn) {
	c.mu.Lock()
	c.ws = ws
	c.connected = true
	c.mu.Unlock()
	if c.opts.OnConnectionChange != nil {
		c.opts.OnConnectionChange(true)
	}
}

func (c *Client) dropConn() {
	c.mu.Lock()
	if c.ws != nil {
		_ = c.ws.Close()
		c.ws = nil
	}
	wasConnected := c.connected
	c.connected = false
	// Sends in flight will never be acked on a new connection.
	for seq, ch := range c.pending {
		delete(c.pending, seq)
		select {
		case ch <- envelope{Type: eventAck, Seq: seq, Error: "connection lost"}:
		default:
		}
	}
	c.mu.Unlock()
	if wasConnected && c.opts.OnConnectionChange != nil {
		c.opts.OnConnectionChange(false)
	}
}

func (c *Client) run() {
	backoff := c.opts.ReconnectMin
	for {
		c.mu.Lock()
		ws := c.ws
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if ws != nil {
			c.readLoop(ws)
			c.dropConn()
			backoff = c.opts.ReconnectMin
		}

		select {
		case <-c.done:
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.opts.ReconnectMax {
			backoff = c.opts.ReconnectMax
		}

		ws, err := c.dial(context.Background())
		if err != nil {
			c.log.Warn("channel redial failed", "error", err)
			continue
		}
		c.setConn(ws)
	}
}

func (c *Client) readLoop(ws *websocket.Conn) {
	for {
		var env envelope
		if err := ws.ReadJSON(&env); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.log.Warn("channel read failed", "error", err)
			}
			return
		}
		c.handle(env)
	}
}

func (c *Client) handle(env envelope) {
	if env.Type == eventAck {
		c.mu.Lock()
		ch, ok := c.pending[env.Seq]
		if ok {
			delete(c.pending, env.Seq)
		}
		c.mu.Unlock()
		if ok {
			select {
			case ch <- env:
			default:
			}
		}
		return
	}

	convID := env.ConversationID
	if env.Message != nil {
		convID = env.Message.ConversationID
	}
	c.mu.Lock()
	targets := make([]*Subscription, 0, len(c.subs[convID]))
	for sub := range c.subs[convID] {
		targets = append(targets, sub)
	}
	c.mu.Unlock()
	for _, sub := range targets {
		sub.deliver(env)
	}
}

func (c *Client) write(env envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.connected || c.ws == nil {
		return ErrNotConnected
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(env)
}

// SendMessage sends one message and waits for the server's ack. A
// rejected send returns SendRejectedError; a missing ack returns
// ErrAckTimeout without retrying, so the caller decides what to do with
// the unsent text.
func (c *Client) SendMessage(ctx context.Context, convID, recipientID uuid.UUID, body string) (*Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if !c.connected {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.seq++
	seq := c.seq
	ackCh := make(chan envelope, 1)
	c.pending[seq] = ackCh
	c.mu.Unlock()

	err := c.write(envelope{
		Type:           eventSendMessage,
		Seq:            seq,
		ConversationID: convID,
		RecipientID:    recipientID,
		Body:           body,
	})
	if err != nil {
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return nil, err
	}

	timer := time.NewTimer(c.opts.AckTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return nil, ctx.Err()
	case <-timer.C:
		c.mu.Lock()
		delete(c.pending, seq)
		c.mu.Unlock()
		return nil, ErrAckTimeout
	case ack := <-ackCh:
		if !ack.Success {
			reason := ack.Error
			if reason == "" {
				reason = "connection lost"
			}
			return nil, &SendRejectedError{Reason: reason}
		}
		return ack.Message, nil
	}
}

// SendTypingStart signals the peer that the local user is typing.
// Typing events are fire-and-forget.
func (c *Client) SendTypingStart(convID, recipientID uuid.UUID) error {
	return c.write(envelope{
		Type:           eventTypingStart,
		ConversationID: convID,
		RecipientID:    recipientID,
	})
}

func (c *Client) SendTypingStop(convID, recipientID uuid.UUID) error {
	return c.write(envelope{
		Type:           eventTypingStop,
		ConversationID: convID,
		RecipientID:    recipientID,
	})
}

// MarkRead reports that the local user has read a message. The server
// relays the receipt to the sender; there is no ack.
func (c *Client) MarkRead(convID, messageID uuid.UUID) error {
	return c.write(envelope{
		Type:           eventMessageRead,
		ConversationID: convID,
		MessageID:      messageID,
	})
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	ws := c.ws
	c.ws = nil
	c.connected = false
	for seq, ch := range c.pending {
		delete(c.pending, seq)
		select {
		case ch <- envelope{Type: eventAck, Seq: seq, Error: "client closed"}:
		default:
		}
	}
	c.mu.Unlock()
	if ws != nil {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		return ws.Close()
	}
	return nil
}
