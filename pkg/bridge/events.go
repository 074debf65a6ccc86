package bridge

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omnibridge/asset-bridge/pkg/asset"
)

// SentEvent is the durable trace of a successful send. Together with the
// destination's ReceivedEvent it is the only externally queryable record of a
// transfer; off-protocol recovery tooling correlates the two via MessageID.
type SentEvent struct {
	MessageID   string
	Destination asset.LedgerID
	Receiver    common.Address
	AssetID     asset.TokenID
	MetadataURI string
	At          time.Time
}

// ReceivedEvent is the durable trace of a successful inbound mint.
type ReceivedEvent struct {
	MessageID      string
	Source         asset.LedgerID
	SourceEndpoint common.Address
	AssetID        asset.TokenID
	At             time.Time
}

// EventSink records transfer events. Sink failures do not abort the protocol
// step that produced the event: by the time an event exists the state
// transition is already committed, so the endpoint logs the failure and moves
// on.
type EventSink interface {
	RecordSent(ctx context.Context, ev *SentEvent) error
	RecordReceived(ctx context.Context, ev *ReceivedEvent) error
}
