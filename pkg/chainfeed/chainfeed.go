// Package chainfeed subscribes to live block and log streams from a single EVM-compatible
// chain and feeds normalized events into a shared, bounded channel.
package chainfeed

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
)

// ChainClient provides the subset of an RPC client's surface a Subscriber needs. It is
// satisfied by *ethclient.Client.
type ChainClient interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Contract is one contract this chain's Subscriber watches for events.
type Contract struct {
	Name    string
	Address common.Address
}

// Chain identifies the chain a Subscriber is attached to.
type Chain struct {
	Name    string
	ChainID uint64
}

// Subscriber runs one block-head task and one log task per configured contract for a single
// chain, feeding NormalizedEvents into a shared channel with backpressure: sends block when the
// channel is full, by design, so no event is ever silently dropped.
type Subscriber struct {
	log       zerolog.Logger
	chain     Chain
	client    ChainClient
	contracts []Contract
	state     *watchdog.AppState
	metrics   *metricsSet
}

// New builds a Subscriber for chain, talking to client, watching contracts, and publishing
// block-height updates into state.
func New(log zerolog.Logger, chain Chain, client ChainClient, contracts []Contract, state *watchdog.AppState) *Subscriber {
	return &Subscriber{
		log: log.With().
			Str("component", "chainfeed").
			Str("chain", chain.Name).
			Logger(),
		chain:     chain,
		client:    client,
		contracts: contracts,
		state:     state,
		metrics:   newMetricsSet(chain),
	}
}

// Run spawns the block task and one log task per contract, and blocks until ctx is canceled or
// any task returns a non-nil error. A subscription error terminates the whole chain's task set;
// there is no in-run reconnect, so operators restart the process to resume that chain's feed.
func (s *Subscriber) Run(ctx context.Context, out chan<- watchdog.NormalizedEvent) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.watchBlocks(ctx)
	})

	for _, c := range s.contracts {
		c := c
		g.Go(func() error {
			return s.watchLogs(ctx, c, out)
		})
	}

	return g.Wait()
}

func (s *Subscriber) watchBlocks(ctx context.Context) error {
	headers := make(chan *types.Header)
	sub, err := s.client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return fmt.Errorf("subscribing to new heads: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			s.log.Error().Err(err).Msg("block head subscription terminated")
			return err
		case h := <-headers:
			height := h.Number.Uint64()
			s.state.UpdateBlock(s.chain.Name, height)
			s.metrics.observeHeight(ctx, height)
		}
	}
}

func (s *Subscriber) watchLogs(ctx context.Context, c Contract, out chan<- watchdog.NormalizedEvent) error {
	log := s.log.With().Str("contract", c.Name).Str("address", c.Address.Hex()).Logger()

	query := ethereum.FilterQuery{Addresses: []common.Address{c.Address}}
	logsCh := make(chan types.Log)
	sub, err := s.client.SubscribeFilterLogs(ctx, query, logsCh)
	if err != nil {
		return fmt.Errorf("subscribing to logs for %s: %w", c.Name, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			log.Error().Err(err).Msg("log subscription terminated")
			return err
		case l := <-logsCh:
			s.handleLog(ctx, log, c, l, out)
		}
	}
}

func (s *Subscriber) handleLog(
	ctx context.Context,
	log zerolog.Logger,
	c Contract,
	l types.Log,
	out chan<- watchdog.NormalizedEvent,
) {
	kind, payload, err := watchdog.DecodeLog(l)
	if err != nil {
		log.Debug().Err(err).Str("tx_hash", l.TxHash.Hex()).Msg("dropping malformed log")
		return
	}

	event := watchdog.NormalizedEvent{
		ChainID:   s.chain.ChainID,
		ChainName: s.chain.Name,
		Contract:  c.Address,
		TxHash:    l.TxHash,
		Block:     l.BlockNumber,
		Kind:      kind,
		Severity:  watchdog.Low,
		Payload:   payload,
	}
	s.metrics.observeEvent(ctx, kind)

	select {
	case out <- event:
	case <-ctx.Done():
	}
}
