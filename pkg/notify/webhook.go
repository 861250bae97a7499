// Package notify implements the outbound alert providers (C5): a Discord-compatible webhook and
// a Telegram bot, both satisfying internal/watchdog.Provider.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Severity colors, matching Discord's embed "color" integer (decimal RGB).
const (
	colorCritical = 0xFF0000
	colorHigh     = 0xE67E22
	colorMedium   = 0xF1C40F
	colorLow      = 0x3498DB
)

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
}

type webhookBody struct {
	Content *string `json:"content"`
	Embeds  []embed `json:"embeds"`
}

// Webhook delivers alerts to a Discord-compatible incoming webhook URL.
type Webhook struct {
	log    zerolog.Logger
	url    string
	client *http.Client
}

// NewWebhook builds a Webhook provider. An empty endpoint disables the provider without error:
// missing credentials are skipped, not fatal.
func NewWebhook(log zerolog.Logger, endpoint string) (*Webhook, error) {
	w := &Webhook{log: log.With().Str("component", "notify.webhook").Logger(), client: http.DefaultClient}
	if endpoint == "" {
		return w, nil
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, errors.Wrap(err, "invalid webhook url")
	}
	w.url = endpoint
	return w, nil
}

// Name implements watchdog.Provider.
func (w *Webhook) Name() string { return "webhook" }

// Enabled implements watchdog.Provider.
func (w *Webhook) Enabled() bool { return w.url != "" }

// Send implements watchdog.Provider.
func (w *Webhook) Send(ctx context.Context, severity watchdog.Severity, chain, message string, at time.Time) error {
	if !w.Enabled() {
		return nil
	}

	body := webhookBody{
		Embeds: []embed{{
			Title:       fmt.Sprintf("EVM Watchdog Alert: %s", severity),
			Description: message,
			Color:       colorFor(severity),
			Fields: []embedField{
				{Name: "Severity", Value: severity.String(), Inline: true},
				{Name: "Timestamp", Value: at.UTC().Format(time.RFC3339), Inline: false},
			},
		}},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "marshaling webhook body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return errors.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func colorFor(sev watchdog.Severity) int {
	switch sev {
	case watchdog.Critical:
		return colorCritical
	case watchdog.High:
		return colorHigh
	case watchdog.Medium:
		return colorMedium
	default:
		return colorLow
	}
}
