package push_test

import (
	"context"
	"errors"
	"testing"

	"messaging/internal/domain"
	"messaging/internal/push"
)

type fakeGateway struct {
	platform domain.Platform
	calls    [][]string
	results  map[string]error
	fail     error
}

func (f *fakeGateway) Platform() domain.Platform { return f.platform }

func (f *fakeGateway) Deliver(_ context.Context, tokens []string, _ push.Payload) ([]push.Result, error) {
	f.calls = append(f.calls, tokens)
	if f.fail != nil {
		return nil, f.fail
	}
	out := make([]push.Result, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, push.Result{Token: tok, Err: f.results[tok]})
	}
	return out, nil
}

func device(platform domain.Platform, token string) domain.DeviceToken {
	return domain.DeviceToken{Platform: platform, Token: token}
}

func TestDispatchEmptyTokenSet(t *testing.T) {
	gw := &fakeGateway{platform: domain.PlatformIOS}
	d := push.NewDispatcher(nil, gw)

	rep, err := d.Dispatch(context.Background(), nil, push.Payload{Title: "hi"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rep.Attempted != 0 || rep.Delivered != 0 {
		t.Fatalf("expected zero report, got %+v", rep)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("expected no gateway calls, got %d", len(gw.calls))
	}
}

func TestDispatchDeduplicatesAndBatchesPerPlatform(t *testing.T) {
	ios := &fakeGateway{platform: domain.PlatformIOS}
	android := &fakeGateway{platform: domain.PlatformAndroid}
	d := push.NewDispatcher(nil, ios, android)

	tokens := []domain.DeviceToken{
		device(domain.PlatformIOS, "a"),
		device(domain.PlatformIOS, "a"),
		device(domain.PlatformAndroid, "b"),
	}
	rep, err := d.Dispatch(context.Background(), tokens, push.Payload{Title: "hi"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if rep.Attempted != 2 {
		t.Fatalf("expected 2 attempted after dedup, got %d", rep.Attempted)
	}
	if rep.Delivered != 2 {
		t.Fatalf("expected 2 delivered, got %d", rep.Delivered)
	}
	if len(ios.calls) != 1 || len(ios.calls[0]) != 1 {
		t.Fatalf("expected a single deduped ios batch, got %v", ios.calls)
	}
	if len(android.calls) != 1 {
		t.Fatalf("expected a single android batch, got %v", android.calls)
	}
}

func TestDispatchPartialFailureIsNotAnError(t *testing.T) {
	gw := &fakeGateway{
		platform: domain.PlatformIOS,
		results:  map[string]error{"bad": errors.New("unreachable")},
	}
	d := push.NewDispatcher(nil, gw)

	tokens := []domain.DeviceToken{
		device(domain.PlatformIOS, "good"),
		device(domain.PlatformIOS, "bad"),
	}
	rep, err := d.Dispatch(context.Background(), tokens, push.Payload{Title: "hi"})
	if err != nil {
		t.Fatalf("expected partial failure to succeed, got %v", err)
	}
	if rep.Delivered != 1 {
		t.Fatalf("expected 1 delivered, got %d", rep.Delivered)
	}
	if len(rep.Failed) != 1 || rep.Failed[0].Token != "bad" {
		t.Fatalf("expected bad token in Failed, got %+v", rep.Failed)
	}
}

func TestDispatchReportsInvalidTokens(t *testing.T) {
	gw := &fakeGateway{
		platform: domain.PlatformAndroid,
		results:  map[string]error{"dead": push.ErrTokenInvalid},
	}
	d := push.NewDispatcher(nil, gw)

	rep, err := d.Dispatch(context.Background(), []domain.DeviceToken{
		device(domain.PlatformAndroid, "dead"),
	}, push.Payload{Title: "hi"})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(rep.Invalid) != 1 || rep.Invalid[0] != "dead" {
		t.Fatalf("expected dead token reported invalid, got %v", rep.Invalid)
	}
}

func TestDispatchTotalTransportFault(t *testing.T) {
	gw := &fakeGateway{platform: domain.PlatformIOS, fail: errors.New("connection refused")}
	d := push.NewDispatcher(nil, gw)

	rep, err := d.Dispatch(context.Background(), []domain.DeviceToken{
		device(domain.PlatformIOS, "a"),
	}, push.Payload{Title: "hi"})
	if err == nil {
		t.Fatalf("expected transport fault error")
	}
	if rep.Delivered != 0 {
		t.Fatalf("expected nothing delivered, got %d", rep.Delivered)
	}
}

func TestDispatchMissingGatewayPlatform(t *testing.T) {
	ios := &fakeGateway{platform: domain.PlatformIOS}
	d := push.NewDispatcher(nil, ios)

	tokens := []domain.DeviceToken{
		device(domain.PlatformIOS, "a"),
		device(domain.PlatformWeb, "w"),
	}
	rep, err := d.Dispatch(context.Background(), tokens, push.Payload{Title: "hi"})
	if err != nil {
		t.Fatalf("expected success when one platform is reachable, got %v", err)
	}
	if rep.Delivered != 1 {
		t.Fatalf("expected 1 delivered, got %d", rep.Delivered)
	}
	if len(rep.Failed) != 1 || rep.Failed[0].Token != "w" {
		t.Fatalf("expected web token in Failed, got %+v", rep.Failed)
	}
}
