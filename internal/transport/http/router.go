package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"messaging/internal/authz"
	"messaging/internal/domain"
	"messaging/internal/dto"
	obsmw "messaging/internal/observability/middleware"
	"messaging/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	CORSOrigins []string
}

func NewRouter(svc *service.Service, registry *service.Registry, channel http.Handler, auth *authz.HMACValidator, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.WithMetrics)
	r.Use(httprate.LimitByIP(300, 1*time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(opts.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// The channel handler verifies its own token: browser websocket dials
	// cannot carry an Authorization header.
	r.Get("/ws", channel.ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Post("/v1/devices/register", func(w http.ResponseWriter, r *http.Request) {
			userID, ok := authz.SubjectFrom(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			var req dto.DeviceRegisterRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			tok, err := registry.Register(r.Context(), userID, req.Token, req.Platform)
			if err != nil {
				writeRegistryError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, dto.DeviceRegisterResponse{
				UserID:   tok.UserID.String(),
				Platform: string(tok.Platform),
			})
		})

		r.Post("/v1/devices/unregister", func(w http.ResponseWriter, r *http.Request) {
			userID, ok := authz.SubjectFrom(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			var req dto.DeviceUnregisterRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "bad request", http.StatusBadRequest)
				return
			}
			removed, err := registry.Unregister(r.Context(), userID, req.Token)
			if err != nil {
				writeRegistryError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, dto.DeviceUnregisterResponse{Removed: removed})
		})

		r.Get("/v1/devices/tokens", func(w http.ResponseWriter, r *http.Request) {
			userID, ok := authz.SubjectFrom(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			tokens := registry.ListTokens(r.Context(), userID)
			if tokens == nil {
				tokens = []string{}
			}
			writeJSON(w, http.StatusOK, dto.TokenListResponse{Tokens: tokens})
		})

		r.Get("/v1/conversations/{conversationID}/messages", func(w http.ResponseWriter, r *http.Request) {
			userID, ok := authz.SubjectFrom(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			convID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "conversationID")))
			if err != nil {
				http.Error(w, "invalid conversation id", http.StatusBadRequest)
				return
			}
			msgs, err := svc.History(r.Context(), convID)
			if err != nil {
				http.Error(w, "history unavailable", http.StatusInternalServerError)
				return
			}
			visible := make([]domain.Message, 0, len(msgs))
			for _, m := range msgs {
				if m.SenderID == userID || m.RecipientID == userID {
					visible = append(visible, m)
				}
			}
			writeJSON(w, http.StatusOK, dto.HistoryResponse{
				ConversationID: convID.String(),
				Messages:       visible,
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeRegistryError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidPlatform),
		errors.Is(err, domain.ErrEmptyToken),
		errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func originsIfSet(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
