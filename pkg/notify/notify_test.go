package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
)

func TestWebhookPostsDiscordEmbed(t *testing.T) {
	t.Parallel()

	var captured webhookBody
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	wh, err := NewWebhook(zerolog.Nop(), ts.URL)
	require.NoError(t, err)
	require.True(t, wh.Enabled())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err = wh.Send(context.Background(), watchdog.Critical, "ethereum", "Ownership Transferred!", at)
	require.NoError(t, err)

	require.Len(t, captured.Embeds, 1)
	require.Equal(t, "EVM Watchdog Alert: Critical", captured.Embeds[0].Title)
	require.Equal(t, colorCritical, captured.Embeds[0].Color)
	require.Equal(t, "Ownership Transferred!", captured.Embeds[0].Description)
}

func TestWebhookEmptyEndpointIsDisabled(t *testing.T) {
	t.Parallel()

	wh, err := NewWebhook(zerolog.Nop(), "")
	require.NoError(t, err)
	require.False(t, wh.Enabled())
	require.NoError(t, wh.Send(context.Background(), watchdog.High, "ethereum", "msg", time.Now()))
}

func TestWebhookRejectsInvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewWebhook(zerolog.Nop(), "::not-a-url")
	require.Error(t, err)
}

func TestTelegramPostsMarkdownMessage(t *testing.T) {
	t.Parallel()

	var captured telegramBody
	var path string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tg := NewTelegram(zerolog.Nop(), "tok123", "chat456")
	tg.client = ts.Client()
	tg.apiBase = ts.URL
	require.True(t, tg.Enabled())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := tg.Send(context.Background(), watchdog.Medium, "polygon", "Large Transfer Detected: 5000 > 1000", at)
	require.NoError(t, err)
	require.Equal(t, "/bottok123/sendMessage", path)
	require.Equal(t, "chat456", captured.ChatID)
	require.Equal(t, "Markdown", captured.ParseMode)
	require.Contains(t, captured.Text, "Large Transfer Detected")
}

func TestTelegramMissingCredentialsIsDisabled(t *testing.T) {
	t.Parallel()

	tg := NewTelegram(zerolog.Nop(), "", "chat456")
	require.False(t, tg.Enabled())
	require.NoError(t, tg.Send(context.Background(), watchdog.Low, "ethereum", "msg", time.Now()))

	tg2 := NewTelegram(zerolog.Nop(), "tok123", "")
	require.False(t, tg2.Enabled())
}
