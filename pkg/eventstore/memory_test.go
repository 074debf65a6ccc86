package eventstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/bridge"
	"github.com/omnibridge/asset-bridge/pkg/eventstore"
)

var (
	receiverAddr = common.HexToAddress("0x0000000000000000000000000000000000000202")
	endpointAddr = common.HexToAddress("0x00000000000000000000000000000000000000e2")
)

func sentEvent(messageID string, id asset.TokenID) *bridge.SentEvent {
	return &bridge.SentEvent{
		MessageID:   messageID,
		Destination: "ledger-y",
		Receiver:    receiverAddr,
		AssetID:     id,
		MetadataURI: "uri-A",
		At:          time.Now().UTC(),
	}
}

func receivedEvent(messageID string, id asset.TokenID) *bridge.ReceivedEvent {
	return &bridge.ReceivedEvent{
		MessageID:      messageID,
		Source:         "ledger-y",
		SourceEndpoint: endpointAddr,
		AssetID:        id,
		At:             time.Now().UTC(),
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("records both directions and lists newest first", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		require.NoError(t, store.RecordSent(ctx, sentEvent("msg-1", 1)))
		require.NoError(t, store.RecordReceived(ctx, receivedEvent("msg-2", 2)))

		events, err := store.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, eventstore.DirectionReceived, events[0].Direction)
		assert.Equal(t, "msg-2", events[0].MessageID)
		assert.Equal(t, endpointAddr, events[0].SourceEndpoint)
		assert.Equal(t, asset.LedgerID("ledger-y"), events[0].CounterpartyLedger)

		assert.Equal(t, eventstore.DirectionSent, events[1].Direction)
		assert.Equal(t, "msg-1", events[1].MessageID)
		assert.Equal(t, receiverAddr, events[1].Receiver)
		assert.Equal(t, "uri-A", events[1].MetadataURI)
	})

	t.Run("limit truncates the result", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		require.NoError(t, store.RecordSent(ctx, sentEvent("msg-1", 1)))
		require.NoError(t, store.RecordSent(ctx, sentEvent("msg-2", 2)))
		require.NoError(t, store.RecordSent(ctx, sentEvent("msg-3", 3)))

		events, err := store.Recent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, "msg-3", events[0].MessageID)
		assert.Equal(t, "msg-2", events[1].MessageID)
	})

	t.Run("empty store", func(t *testing.T) {
		store := eventstore.NewMemoryStore()
		events, err := store.Recent(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}
