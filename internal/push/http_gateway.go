package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"messaging/internal/domain"
)

// HTTPGateway talks to a platform push endpoint over JSON. One instance is
// configured per platform; the dispatcher only sees the Gateway interface.
type HTTPGateway struct {
	platform domain.Platform
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewHTTPGateway(platform domain.Platform, endpoint, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		platform: platform,
		endpoint: strings.TrimRight(strings.TrimSpace(endpoint), "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) Platform() domain.Platform { return g.platform }

// PlatformGateways builds one HTTP gateway per supported platform under
// a common base URL, e.g. <base>/ios, <base>/android, <base>/web.
func PlatformGateways(baseURL, apiKey string, timeout time.Duration) []Gateway {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	platforms := []domain.Platform{domain.PlatformIOS, domain.PlatformAndroid, domain.PlatformWeb}
	out := make([]Gateway, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, NewHTTPGateway(p, base+"/"+string(p), apiKey, timeout))
	}
	return out
}

type gatewayRequest struct {
	Tokens       []string `json:"tokens"`
	Notification Payload  `json:"notification"`
}

type gatewayResponse struct {
	Results []struct {
		Token  string `json:"token"`
		Status string `json:"status"` // "ok" | "invalid" | "failed"
		Error  string `json:"error,omitempty"`
	} `json:"results"`
}

func (g *HTTPGateway) Deliver(ctx context.Context, tokens []string, p Payload) ([]Result, error) {
	if g.endpoint == "" {
		return nil, fmt.Errorf("push gateway endpoint not configured")
	}
	body, err := json.Marshal(gatewayRequest{Tokens: tokens, Notification: p})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		if len(data) == 0 {
			data = []byte(resp.Status)
		}
		return nil, fmt.Errorf("push gateway rejected batch: %s", strings.TrimSpace(string(data)))
	}

	var gr gatewayResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode push gateway response: %w", err)
	}
	out := make([]Result, 0, len(gr.Results))
	for _, r := range gr.Results {
		res := Result{Token: r.Token}
		switch r.Status {
		case "ok":
		case "invalid":
			res.Err = ErrTokenInvalid
		default:
			res.Err = fmt.Errorf("delivery failed: %s", r.Error)
		}
		out = append(out, res)
	}
	return out, nil
}
