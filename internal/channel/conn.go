package channel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"messaging/internal/domain"
	"messaging/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192

	opTimeout = 10 * time.Second
)

type messageService interface {
	Append(ctx context.Context, in service.SendInput) (domain.Message, error)
	MarkRead(ctx context.Context, id domain.MessageID, readerID domain.UserID) (domain.Message, error)
}

// OfflineNotifier is invoked when a freshly stored message could not be
// delivered over any live connection of the recipient.
type OfflineNotifier interface {
	MessageStored(ctx context.Context, msg domain.Message)
}

// Conn is the server side of one client's channel connection. One reader
// goroutine dispatches inbound events; one writer goroutine drains send,
// which keeps per-connection delivery ordered.
type Conn struct {
	hub      *Hub
	ws       *websocket.Conn
	userID   domain.UserID
	send     chan []byte
	done     chan struct{}
	svc      messageService
	notifier OfflineNotifier
	log      *slog.Logger
}

func newConn(hub *Hub, ws *websocket.Conn, userID domain.UserID, svc messageService, notifier OfflineNotifier, log *slog.Logger) *Conn {
	return &Conn{
		hub:      hub,
		ws:       ws,
		userID:   userID,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		svc:      svc,
		notifier: notifier,
		log:      log.With("user_id", userID),
	}
}

func (c *Conn) readPump() {
	defer func() {
		c.hub.remove(c)
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("channel: read error", "error", err)
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.log.Warn("channel: malformed frame", "error", err)
			continue
		}
		c.handle(env)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) handle(env Envelope) {
	switch env.Type {
	case EventSendMessage:
		c.handleSend(env)
	case EventTypingStart, EventTypingStop:
		c.relayTyping(env)
	case EventMessageRead:
		c.handleRead(env)
	default:
		c.log.Warn("channel: unknown event type", "type", env.Type)
	}
}

// handleSend persists the message and acknowledges the sender before the
// recipient-side delivery is attempted. The sender's contract is with the
// store, not with the recipient being online.
func (c *Conn) handleSend(env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	msg, err := c.svc.Append(ctx, service.SendInput{
		ConversationID: env.ConversationID,
		SenderID:       c.userID,
		RecipientID:    env.RecipientID,
		Body:           env.Body,
	})
	if err != nil {
		c.enqueue(Envelope{Type: EventAck, Seq: env.Seq, Error: ackError(err)})
		return
	}
	c.enqueue(Envelope{Type: EventAck, Seq: env.Seq, Success: true, Message: wireFromDomain(msg)})

	delivered := c.hub.DeliverToUser(msg.RecipientID, Envelope{
		Type:           EventMessageReceived,
		ConversationID: msg.ConversationID,
		Message:        wireFromDomain(msg),
	})
	if !delivered && c.notifier != nil {
		c.notifier.MessageStored(ctx, msg)
	}
}

// relayTyping forwards a typing signal to the counterpart. Best effort, no
// acknowledgement, sender identity taken from the connection.
func (c *Conn) relayTyping(env Envelope) {
	if env.RecipientID == uuid.Nil || env.ConversationID == uuid.Nil {
		return
	}
	c.hub.DeliverToUser(env.RecipientID, Envelope{
		Type:           env.Type,
		ConversationID: env.ConversationID,
		SenderID:       c.userID,
	})
}

// handleRead stamps the read timestamp and relays the receipt to the
// original sender's connections only.
func (c *Conn) handleRead(env Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	msg, err := c.svc.MarkRead(ctx, env.MessageID, c.userID)
	if err != nil {
		if !errors.Is(err, domain.ErrMessageNotFound) && !errors.Is(err, service.ErrInvalidRequest) {
			c.log.Warn("channel: mark read", "error", err, "message_id", env.MessageID)
		}
		return
	}
	if msg.ReadAt == nil {
		return
	}
	c.hub.DeliverToUser(msg.SenderID, Envelope{
		Type:           EventMessageRead,
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       c.userID,
		ReadAt:         msg.ReadAt,
	})
}

func (c *Conn) enqueue(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.log.Error("channel: marshal ack", "error", err)
		return
	}
	select {
	case c.send <- data:
	default:
		c.log.Warn("channel: send buffer full, dropping frame")
	}
}

func ackError(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyBody):
		return "message body is empty"
	case errors.Is(err, domain.ErrSameParticipants):
		return "cannot message yourself"
	case errors.Is(err, service.ErrInvalidRequest):
		return "invalid request"
	default:
		return "message could not be stored"
	}
}
