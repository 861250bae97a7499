package watchdog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-limiter"
	"github.com/sethvargo/go-limiter/memorystore"
)

// cooldown is the minimum interval between two dispatches carrying the same deduplication key.
const cooldown = 60 * time.Second

// Provider fans an alert out to one notification channel (a Discord-shape webhook, Telegram,
// ...). A provider whose credentials are empty should report itself disabled via Enabled and
// is then skipped silently by the dispatcher.
type Provider interface {
	Name() string
	Enabled() bool
	Send(ctx context.Context, severity Severity, chain, message string, at time.Time) error
}

// AlertDispatcher deduplicates and rate-limits triggered alerts before fanning them out to every
// enabled provider. Its cooldown tracking is backed by a token-bucket store: a (severity,
// message) key gets exactly one token per cooldown window, so a second dispatch with the same
// key inside the window is suppressed instead of double-sent.
type AlertDispatcher struct {
	log       zerolog.Logger
	store     limiter.Store
	providers []Provider
}

// NewAlertDispatcher builds a dispatcher over the given providers.
func NewAlertDispatcher(log zerolog.Logger, providers ...Provider) (*AlertDispatcher, error) {
	store, err := memorystore.New(&memorystore.Config{
		Tokens:   1,
		Interval: cooldown,
	})
	if err != nil {
		return nil, err
	}
	return &AlertDispatcher{
		log:       log.With().Str("component", "dispatcher").Logger(),
		store:     store,
		providers: providers,
	}, nil
}

// SendAlert dedups by "{severity}:{message}", then fans the alert out concurrently to every
// enabled provider. Each provider's failure is logged and never affects the others.
func (d *AlertDispatcher) SendAlert(ctx context.Context, severity Severity, chain, message string) {
	key := severity.String() + ":" + message

	_, _, _, allowed, err := d.store.Take(ctx, key)
	if err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("cooldown store error, dispatching anyway")
	} else if !allowed {
		d.log.Debug().Str("key", key).Msg("alert suppressed by cooldown")
		return
	}

	now := time.Now()
	var wg sync.WaitGroup
	for _, p := range d.providers {
		if !p.Enabled() {
			continue
		}
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Send(ctx, severity, chain, message, now); err != nil {
				d.log.Error().Err(err).Str("provider", p.Name()).Msg("dispatch failed")
			}
		}()
	}
	wg.Wait()
}
