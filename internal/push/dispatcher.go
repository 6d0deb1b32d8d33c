package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"messaging/internal/domain"
	"messaging/internal/observability/metrics"
)

// Report aggregates one dispatch call. Partial failure is normal: the call
// as a whole succeeds as long as at least one platform gateway was
// reachable (or there was nothing to do).
type Report struct {
	Attempted int
	Delivered int
	Failed    []Result
	Invalid   []string // tokens reported permanently dead
}

// Dispatcher fans a payload out to a set of device tokens across the
// configured platform gateways. It is stateless and platform-agnostic;
// construct one per process and inject it where needed.
type Dispatcher struct {
	gateways map[domain.Platform]Gateway
	log      *slog.Logger
}

func NewDispatcher(log *slog.Logger, gateways ...Gateway) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	m := make(map[domain.Platform]Gateway, len(gateways))
	for _, gw := range gateways {
		m[gw.Platform()] = gw
	}
	return &Dispatcher{gateways: m, log: log}
}

// Dispatch sends the payload to every distinct token, batched per platform.
// An empty token set is a no-op, not an error. The returned error is
// non-nil only for a total fault: every platform batch failed at the
// transport level and nothing was delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []domain.DeviceToken, p Payload) (Report, error) {
	byPlatform := make(map[domain.Platform][]string)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, dup := seen[t.Token]; dup || t.Token == "" {
			continue
		}
		seen[t.Token] = struct{}{}
		byPlatform[t.Platform] = append(byPlatform[t.Platform], t.Token)
	}

	rep := Report{Attempted: len(seen)}
	if rep.Attempted == 0 {
		metrics.PushDispatchTotal.WithLabelValues("empty").Inc()
		return rep, nil
	}

	var transportErrs []error
	for platform, batch := range byPlatform {
		gw, ok := d.gateways[platform]
		if !ok {
			transportErrs = append(transportErrs, fmt.Errorf("no gateway configured for platform %q", platform))
			for _, tok := range batch {
				rep.Failed = append(rep.Failed, Result{Token: tok, Err: fmt.Errorf("no gateway for %q", platform)})
			}
			continue
		}
		results, err := gw.Deliver(ctx, batch, p)
		if err != nil {
			transportErrs = append(transportErrs, fmt.Errorf("gateway %s: %w", platform, err))
			for _, tok := range batch {
				rep.Failed = append(rep.Failed, Result{Token: tok, Err: err})
			}
			continue
		}
		for _, res := range results {
			switch {
			case res.Err == nil:
				rep.Delivered++
			case errors.Is(res.Err, ErrTokenInvalid):
				rep.Invalid = append(rep.Invalid, res.Token)
				rep.Failed = append(rep.Failed, res)
			default:
				rep.Failed = append(rep.Failed, res)
			}
		}
	}

	metrics.PushTokenFailuresTotal.Add(float64(len(rep.Failed)))
	if len(rep.Failed) > 0 {
		d.log.Warn("push: partial delivery failure",
			"attempted", rep.Attempted,
			"delivered", rep.Delivered,
			"failed", len(rep.Failed),
		)
	}

	if len(transportErrs) == len(byPlatform) && rep.Delivered == 0 {
		metrics.PushDispatchTotal.WithLabelValues("transport_fault").Inc()
		return rep, errors.Join(transportErrs...)
	}
	metrics.PushDispatchTotal.WithLabelValues("ok").Inc()
	return rep, nil
}
