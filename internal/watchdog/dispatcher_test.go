package watchdog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name      string
	enabled   bool
	mu        sync.Mutex
	sentCount int
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Enabled() bool { return f.enabled }
func (f *fakeProvider) Send(_ context.Context, _ Severity, _, _ string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentCount++
	return nil
}

func (f *fakeProvider) sent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sentCount
}

func TestDispatcherSuppressesRepeatWithinCooldown(t *testing.T) {
	t.Parallel()

	webhook := &fakeProvider{name: "webhook", enabled: true}
	d, err := NewAlertDispatcher(zerolog.Nop(), webhook)
	require.NoError(t, err)

	ctx := context.Background()
	d.SendAlert(ctx, High, "ethereum", "Large Transfer Detected: 2000 > 1000")
	d.SendAlert(ctx, High, "ethereum", "Large Transfer Detected: 2000 > 1000")

	require.Equal(t, 1, webhook.sent())
}

func TestDispatcherSkipsDisabledProviders(t *testing.T) {
	t.Parallel()

	webhook := &fakeProvider{name: "webhook", enabled: true}
	telegram := &fakeProvider{name: "telegram", enabled: false} // missing credentials

	d, err := NewAlertDispatcher(zerolog.Nop(), webhook, telegram)
	require.NoError(t, err)

	d.SendAlert(context.Background(), Critical, "ethereum", "Ownership Transferred!")

	require.Equal(t, 1, webhook.sent())
	require.Equal(t, 0, telegram.sent())
}

func TestDispatcherDistinctKeysAreNotSuppressed(t *testing.T) {
	t.Parallel()

	webhook := &fakeProvider{name: "webhook", enabled: true}
	d, err := NewAlertDispatcher(zerolog.Nop(), webhook)
	require.NoError(t, err)

	ctx := context.Background()
	d.SendAlert(ctx, High, "ethereum", "message-a")
	d.SendAlert(ctx, Critical, "ethereum", "message-a")
	d.SendAlert(ctx, High, "ethereum", "message-b")

	require.Equal(t, 3, webhook.sent())
}
