package push

import (
	"context"
	"errors"

	"messaging/internal/domain"
)

// ErrTokenInvalid marks a per-token result whose token the platform reports
// as permanently dead. Callers may evict it from the registry.
var ErrTokenInvalid = errors.New("push: token permanently invalid")

// Payload is the platform-neutral notification contract. Data is an opaque
// map the clients use for deep-linking.
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
	Badge *int              `json:"badge,omitempty"`
	Sound string            `json:"sound,omitempty"`
}

// Result is the outcome for one token. A nil Err means delivered.
type Result struct {
	Token string
	Err   error
}

// Gateway delivers one batch to one platform. A non-nil error means the
// gateway itself failed (unreachable, misconfigured) and no per-token
// results are meaningful; per-token rejection comes back in the results.
type Gateway interface {
	Platform() domain.Platform
	Deliver(ctx context.Context, tokens []string, p Payload) ([]Result, error)
}
