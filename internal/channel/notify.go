package channel

import (
	"context"
	"log/slog"

	"messaging/internal/domain"
	"messaging/internal/push"
)

const previewLimit = 120

type deviceSource interface {
	ListDevices(ctx context.Context, userID domain.UserID) []domain.DeviceToken
	Evict(ctx context.Context, token string)
}

type dispatcher interface {
	Dispatch(ctx context.Context, tokens []domain.DeviceToken, p push.Payload) (push.Report, error)
}

// PushNotifier is the offline-delivery fallback: when a stored message
// found no live connection it fans out to the recipient's registered
// devices. Tokens the gateway reports dead are evicted.
type PushNotifier struct {
	devices    deviceSource
	dispatcher dispatcher
	log        *slog.Logger
}

func NewPushNotifier(devices deviceSource, d dispatcher, log *slog.Logger) *PushNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &PushNotifier{devices: devices, dispatcher: d, log: log}
}

func (n *PushNotifier) MessageStored(ctx context.Context, msg domain.Message) {
	tokens := n.devices.ListDevices(ctx, msg.RecipientID)
	if len(tokens) == 0 {
		return
	}

	badge := 1
	payload := push.Payload{
		Title: "New message",
		Body:  preview(msg.Body),
		Data: map[string]string{
			"conversationId": msg.ConversationID.String(),
			"messageId":      msg.ID.String(),
		},
		Badge: &badge,
		Sound: "default",
	}

	report, err := n.dispatcher.Dispatch(ctx, tokens, payload)
	if err != nil {
		n.log.Warn("push fallback: dispatch transport fault", "error", err, "recipient", msg.RecipientID)
		return
	}
	for _, token := range report.Invalid {
		n.devices.Evict(ctx, token)
	}
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLimit {
		return body
	}
	return string(runes[:previewLimit])
}
