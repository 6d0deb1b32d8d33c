package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type historyResponse struct {
	ConversationID string    `json:"conversationId"`
	Messages       []Message `json:"messages"`
}

// History fetches the stored messages of a conversation, oldest first.
func (c *Client) History(ctx context.Context, convID uuid.UUID) ([]Message, error) {
	base := strings.TrimRight(strings.TrimSpace(c.opts.HistoryURL), "/")
	if base == "" {
		return nil, fmt.Errorf("chatclient: HistoryURL is not configured")
	}
	endpoint := base + "/v1/conversations/" + convID.String() + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if c.opts.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.AccessToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		if len(data) == 0 {
			data = []byte(resp.Status)
		}
		return nil, fmt.Errorf("chatclient: history request failed: %s", strings.TrimSpace(string(data)))
	}
	var out historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}
