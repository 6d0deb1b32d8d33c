package channel

import (
	"log/slog"
	"net/http"

	"messaging/internal/authz"

	"github.com/gorilla/websocket"
)

// Handler upgrades an authenticated HTTP request to a channel connection.
// One connection per client session; identity comes from the verified
// bearer token, never from request parameters.
type Handler struct {
	hub      *Hub
	svc      messageService
	notifier OfflineNotifier
	auth     *authz.HMACValidator
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHandler(hub *Hub, svc messageService, notifier OfflineNotifier, auth *authz.HMACValidator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		hub:      hub,
		svc:      svc,
		notifier: notifier,
		auth:     auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS layer in front.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.VerifyRequest(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("channel: upgrade failed", "error", err)
		return
	}

	c := newConn(h.hub, ws, userID, h.svc, h.notifier, h.log)
	h.hub.add(c)
	h.log.Info("channel: connected", "user_id", userID)

	go c.writePump()
	go c.readPump()
}
