// Package telegram delivers user notifications through the Telegram Bot
// API. Delivery is fire-and-forget: the ledger never waits on, or fails
// because of, a chat message.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const sendTimeout = 10 * time.Second

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Notifier implements ports.Notifier over the Bot API sendMessage method.
type Notifier struct {
	httpClient HTTPClient
	apiURL     string
	log        zerolog.Logger
}

// NewNotifier creates a Telegram notifier. An empty botToken produces a
// notifier that drops every message, for deployments without a bot.
func NewNotifier(httpClient HTTPClient, botToken string, log zerolog.Logger) *Notifier {
	apiURL := ""
	if botToken != "" {
		apiURL = fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken)
	}
	return &Notifier{
		httpClient: httpClient,
		apiURL:     apiURL,
		log:        log,
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Notify sends message to chatID asynchronously. Failures are logged and
// dropped; the in-app notification row is the durable record.
func (n *Notifier) Notify(ctx context.Context, chatID string, message string) {
	if n.apiURL == "" || chatID == "" {
		return
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()

		if err := n.send(sendCtx, chatID, message); err != nil {
			n.log.Warn().Err(err).Str("chat_id", chatID).Msg("telegram delivery failed")
		}
	}()
}

func (n *Notifier) send(ctx context.Context, chatID, message string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: message})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram api returned status %d", resp.StatusCode)
	}
	return nil
}
