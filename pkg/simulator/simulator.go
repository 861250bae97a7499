// Package simulator implements C8, a synthetic event generator ("chaos monkey") used for demos
// and for exercising the rest of the pipeline without a live RPC connection.
package simulator

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
)

const chainName = "Simulation"

var kinds = []watchdog.EventKind{watchdog.Transfer, watchdog.Approval, watchdog.OwnershipTransferred}

// Simulator emits randomized NormalizedEvents on a jittered interval, grounded on the original
// implementation's --simulate "chaos monkey" task.
type Simulator struct {
	log  zerolog.Logger
	rand *rand.Rand
}

// New builds a Simulator seeded by seed, so a given seed always produces the same sequence of
// delays, event kinds and values (scenario S5 determinism). Tx hashes come from random UUIDs and
// differ between runs.
func New(log zerolog.Logger, seed int64) *Simulator {
	return &Simulator{
		log:  log.With().Str("component", "simulator").Logger(),
		rand: rand.New(rand.NewSource(seed)),
	}
}

// Run emits synthetic events into out until ctx is canceled. Each send respects the channel's
// backpressure contract: it blocks rather than drops when the channel is full.
func (s *Simulator) Run(ctx context.Context, out chan<- watchdog.NormalizedEvent) error {
	for {
		delayMs := 100 + s.rand.Intn(700)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(delayMs) * time.Millisecond):
		}

		event := s.nextEvent()
		select {
		case out <- event:
			s.log.Debug().Str("kind", event.Kind.String()).Msg("emitted synthetic event")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Simulator) nextEvent() watchdog.NormalizedEvent {
	kind := kinds[s.rand.Intn(len(kinds))]

	var value int64
	if s.rand.Float64() < 0.3 {
		value = 1_000_000_000 + s.rand.Int63n(50_000_000_000-1_000_000_000)
	} else {
		value = 100 + s.rand.Int63n(800)
	}

	payload := map[string]string{
		"value": strconv.FormatInt(value, 10),
		"from":  "0x000000000000000000000000000000000000dead",
		"to":    "0x000000000000000000000000000000000000beef",
	}

	return watchdog.NormalizedEvent{
		ChainName: chainName,
		Contract:  common.Address{},
		TxHash:    syntheticHash(),
		Block:     1000,
		Kind:      kind,
		Severity:  watchdog.Low,
		Payload:   payload,
	}
}

// syntheticHash mints a pseudo tx hash from two concatenated UUIDs.
func syntheticHash() common.Hash {
	var h common.Hash
	a, b := uuid.New(), uuid.New()
	copy(h[:16], a[:])
	copy(h[16:], b[:])
	return h
}
