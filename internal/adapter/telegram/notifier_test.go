package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureClient struct {
	mu   sync.Mutex
	reqs []sendMessageRequest
	done chan struct{}
}

func (c *captureClient) Do(req *http.Request) (*http.Response, error) {
	var body sendMessageRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.reqs = append(c.reqs, body)
	c.mu.Unlock()
	close(c.done)
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestNotifier_SendsMessage(t *testing.T) {
	client := &captureClient{done: make(chan struct{})}
	n := NewNotifier(client, "test-token", zerolog.Nop())

	n.Notify(context.Background(), "chat-42", "Deposit of 50 USDT confirmed and credited")

	select {
	case <-client.done:
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	require.Len(t, client.reqs, 1)
	assert.Equal(t, "chat-42", client.reqs[0].ChatID)
	assert.Contains(t, client.reqs[0].Text, "50 USDT")
}

func TestNotifier_DisabledWithoutToken(t *testing.T) {
	client := &captureClient{done: make(chan struct{})}
	n := NewNotifier(client, "", zerolog.Nop())

	n.Notify(context.Background(), "chat-42", "hello")

	select {
	case <-client.done:
		t.Fatal("no message should be sent without a bot token")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_EmptyChatIDDropped(t *testing.T) {
	client := &captureClient{done: make(chan struct{})}
	n := NewNotifier(client, "test-token", zerolog.Nop())

	n.Notify(context.Background(), "", "hello")

	select {
	case <-client.done:
		t.Fatal("no message should be sent without a chat id")
	case <-time.After(50 * time.Millisecond):
	}
}
