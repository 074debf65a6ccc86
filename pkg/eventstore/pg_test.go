package eventstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/eventstore"
	"github.com/omnibridge/asset-bridge/pkg/pgutil"
)

func TestPgStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	db, cleanup := pgutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := eventstore.NewPgStore(db)
	require.NoError(t, store.Init(ctx))
	pgutil.AssertTableExists(t, db, "transfer_events")

	t.Run("init is idempotent", func(t *testing.T) {
		require.NoError(t, store.Init(ctx))
	})

	t.Run("records and lists events", func(t *testing.T) {
		require.NoError(t, store.RecordSent(ctx, sentEvent("msg-1", 1)))
		require.NoError(t, store.RecordReceived(ctx, receivedEvent("msg-2", 2)))
		pgutil.AssertRowCount(t, db, "transfer_events", 2)

		events, err := store.Recent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, eventstore.DirectionReceived, events[0].Direction)
		assert.Equal(t, "msg-2", events[0].MessageID)
		assert.Equal(t, endpointAddr, events[0].SourceEndpoint)
		assert.Equal(t, asset.TokenID(2), events[0].AssetID)

		assert.Equal(t, eventstore.DirectionSent, events[1].Direction)
		assert.Equal(t, "msg-1", events[1].MessageID)
		assert.Equal(t, receiverAddr, events[1].Receiver)
		assert.Equal(t, "uri-A", events[1].MetadataURI)
	})

	t.Run("limit truncates the result", func(t *testing.T) {
		events, err := store.Recent(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "msg-2", events[0].MessageID)
	})
}
