package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
)

const telegramAPIBase = "https://api.telegram.org"

type telegramBody struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Telegram delivers alerts to a chat via a Telegram bot's sendMessage endpoint.
type Telegram struct {
	log     zerolog.Logger
	token   string
	chatID  string
	client  *http.Client
	apiBase string
}

// NewTelegram builds a Telegram provider. An empty token or chatID disables the provider without
// error: Telegram is an optional C5 channel, same as Webhook.
func NewTelegram(log zerolog.Logger, token, chatID string) *Telegram {
	return &Telegram{
		log:     log.With().Str("component", "notify.telegram").Logger(),
		token:   token,
		chatID:  chatID,
		client:  http.DefaultClient,
		apiBase: telegramAPIBase,
	}
}

// Name implements watchdog.Provider.
func (t *Telegram) Name() string { return "telegram" }

// Enabled implements watchdog.Provider.
func (t *Telegram) Enabled() bool { return t.token != "" && t.chatID != "" }

// Send implements watchdog.Provider.
func (t *Telegram) Send(ctx context.Context, severity watchdog.Severity, chain, message string, at time.Time) error {
	if !t.Enabled() {
		return nil
	}

	text := fmt.Sprintf(
		"*EVM Watchdog Alert: %s*\nChain: %s\nTime: %s\n%s",
		severity, chain, at.UTC().Format(time.RFC3339), message,
	)
	body := telegramBody{ChatID: t.chatID, Text: text, ParseMode: "Markdown"}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshaling telegram body")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting telegram message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return errors.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}
