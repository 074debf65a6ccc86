package transport_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/transport"
)

var (
	identityX = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	identityY = common.HexToAddress("0x00000000000000000000000000000000000000e2")
)

type recordingReceiver struct {
	mu        sync.Mutex
	envelopes []*transport.Envelope
	err       error
}

func (r *recordingReceiver) OnMessageReceived(_ context.Context, env *transport.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
	return r.err
}

func (r *recordingReceiver) received() []*transport.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*transport.Envelope(nil), r.envelopes...)
}

func newRouter(t *testing.T, cfg transport.RouterConfig) *transport.Router {
	t.Helper()
	fees := map[asset.LedgerID]transport.Cost{
		"ledger-x": {Base: decimal.NewFromInt(2), PerByte: decimal.NewFromInt(1)},
		"ledger-y": {Base: decimal.NewFromInt(2), PerByte: decimal.NewFromInt(1)},
	}
	router, err := transport.NewRouter(fees, cfg, zap.NewNop())
	require.NoError(t, err)
	return router
}

func TestQuote(t *testing.T) {
	router := newRouter(t, transport.RouterConfig{})
	client := router.Client("ledger-x")

	t.Run("base plus per-byte", func(t *testing.T) {
		cost, err := client.Quote(context.Background(), "ledger-y", []byte("12345"))
		require.NoError(t, err)
		assert.True(t, cost.Equal(decimal.NewFromInt(7)))
	})

	t.Run("unknown destination", func(t *testing.T) {
		_, err := client.Quote(context.Background(), "ledger-z", []byte("12345"))
		require.ErrorIs(t, err, transport.ErrUnknownDestination)
	})
}

func TestSubmit(t *testing.T) {
	t.Run("delivers envelope with the attached sender identity", func(t *testing.T) {
		router := newRouter(t, transport.RouterConfig{})
		rx := &recordingReceiver{}
		router.Attach("ledger-x", identityX, &recordingReceiver{})
		router.Attach("ledger-y", identityY, rx)
		router.Start(context.Background())
		defer router.Stop()

		messageID, err := router.Client("ledger-x").Submit(
			context.Background(), "ledger-y", identityY, []byte("payload"), decimal.NewFromInt(9))
		require.NoError(t, err)
		require.NotEmpty(t, messageID)

		require.Eventually(t, func() bool { return len(rx.received()) == 1 }, time.Second, 5*time.Millisecond)
		env := rx.received()[0]
		assert.Equal(t, messageID, env.MessageID)
		assert.Equal(t, asset.LedgerID("ledger-x"), env.SourceLedger)
		assert.Equal(t, asset.LedgerID("ledger-y"), env.DestinationLedger)
		assert.Equal(t, identityX, env.Sender)
		assert.Equal(t, []byte("payload"), env.Payload)
	})

	t.Run("fails for an unattached source", func(t *testing.T) {
		router := newRouter(t, transport.RouterConfig{})
		_, err := router.Client("ledger-x").Submit(
			context.Background(), "ledger-y", identityY, []byte("payload"), decimal.Zero)
		require.ErrorIs(t, err, transport.ErrNotAttached)
	})

	t.Run("fails for an unknown destination", func(t *testing.T) {
		router := newRouter(t, transport.RouterConfig{})
		router.Attach("ledger-x", identityX, &recordingReceiver{})
		_, err := router.Client("ledger-x").Submit(
			context.Background(), "ledger-z", identityY, []byte("payload"), decimal.Zero)
		require.ErrorIs(t, err, transport.ErrUnknownDestination)
	})

	t.Run("drops envelopes for an unattached destination", func(t *testing.T) {
		router := newRouter(t, transport.RouterConfig{})
		router.Attach("ledger-x", identityX, &recordingReceiver{})
		router.Start(context.Background())
		defer router.Stop()

		_, err := router.Client("ledger-x").Submit(
			context.Background(), "ledger-y", identityY, []byte("payload"), decimal.Zero)
		require.NoError(t, err)
	})

	t.Run("fails when the queue is full", func(t *testing.T) {
		router := newRouter(t, transport.RouterConfig{QueueSize: 1})
		router.Attach("ledger-x", identityX, &recordingReceiver{})
		// Worker not started, so the queue never drains.

		client := router.Client("ledger-x")
		_, err := client.Submit(context.Background(), "ledger-y", identityY, []byte("a"), decimal.Zero)
		require.NoError(t, err)
		_, err = client.Submit(context.Background(), "ledger-y", identityY, []byte("b"), decimal.Zero)
		require.ErrorIs(t, err, transport.ErrQueueFull)
	})

	t.Run("redelivers when configured for duplicates", func(t *testing.T) {
		router := newRouter(t, transport.RouterConfig{Duplicates: 2})
		rx := &recordingReceiver{}
		router.Attach("ledger-x", identityX, &recordingReceiver{})
		router.Attach("ledger-y", identityY, rx)
		router.Start(context.Background())
		defer router.Stop()

		_, err := router.Client("ledger-x").Submit(
			context.Background(), "ledger-y", identityY, []byte("payload"), decimal.Zero)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return len(rx.received()) == 3 }, time.Second, 5*time.Millisecond)
	})
}
