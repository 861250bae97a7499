package chainfeed

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
)

type fakeSub struct {
	errCh chan error
}

func (f *fakeSub) Unsubscribe()      {}
func (f *fakeSub) Err() <-chan error { return f.errCh }

type fakeClient struct {
	headers chan *types.Header
	logs    chan types.Log
}

func (f *fakeClient) SubscribeNewHead(_ context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	go func() {
		for h := range f.headers {
			ch <- h
		}
	}()
	return &fakeSub{errCh: make(chan error)}, nil
}

func (f *fakeClient) SubscribeFilterLogs(
	_ context.Context, _ ethereum.FilterQuery, ch chan<- types.Log,
) (ethereum.Subscription, error) {
	go func() {
		for l := range f.logs {
			ch <- l
		}
	}()
	return &fakeSub{errCh: make(chan error)}, nil
}

func TestSubscriberUpdatesHeightAndDecodesLogs(t *testing.T) {
	t.Parallel()

	client := &fakeClient{headers: make(chan *types.Header, 1), logs: make(chan types.Log, 1)}
	state := watchdog.NewAppState()
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	sub := New(zerolog.Nop(), Chain{Name: "ethereum", ChainID: 1}, client, []Contract{{Name: "token", Address: addr}}, state)

	out := make(chan watchdog.NormalizedEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx, out) }()

	client.headers <- &types.Header{Number: big.NewInt(42)}

	var owner common.Hash
	copy(owner[12:], addr.Bytes())
	client.logs <- types.Log{
		Address: addr,
		Topics: []common.Hash{
			crypto.Keccak256Hash([]byte("OwnershipTransferred(address,address)")),
			owner,
			owner,
		},
		BlockNumber: 42,
	}

	select {
	case e := <-out:
		require.Equal(t, "ethereum", e.ChainName)
		require.Equal(t, watchdog.OwnershipTransferred, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a decoded event")
	}

	require.Eventually(t, func() bool {
		h, ok := state.ChainHeights()["ethereum"]
		return ok && h == 42
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("subscriber did not stop after cancel")
	}
}

func TestSubscriberDropsMalformedLogWithoutPanicking(t *testing.T) {
	t.Parallel()

	client := &fakeClient{headers: make(chan *types.Header, 1), logs: make(chan types.Log, 1)}
	state := watchdog.NewAppState()
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	sub := New(zerolog.Nop(), Chain{Name: "ethereum", ChainID: 1}, client, []Contract{{Name: "token", Address: addr}}, state)

	out := make(chan watchdog.NormalizedEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = sub.Run(ctx, out) }()

	client.logs <- types.Log{Address: addr} // no topics at all: malformed

	select {
	case <-out:
		t.Fatal("malformed log should not have produced an event")
	case <-time.After(100 * time.Millisecond):
	}
}
