// Package eventstore persists the transfer event trace. Sent and Received
// events are the only durable record the protocol produces; everything else
// lives in ledger state or in flight inside the transport.
package eventstore

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/bridge"
)

// Direction distinguishes the two event kinds in the unified query view.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// Event is the unified query view over stored Sent and Received events.
// CounterpartyLedger is the destination for sent events and the source for
// received ones; Receiver and SourceEndpoint are populated per direction.
type Event struct {
	ID                 int64
	Direction          Direction
	MessageID          string
	CounterpartyLedger asset.LedgerID
	SourceEndpoint     common.Address
	Receiver           common.Address
	AssetID            asset.TokenID
	MetadataURI        string
	At                 time.Time
}

// Store is a queryable event sink.
type Store interface {
	bridge.EventSink
	Recent(ctx context.Context, limit int) ([]*Event, error)
}
