// Package transport defines the message-transport boundary consumed by the
// bridge endpoint, and provides an in-process Router that implements it for
// tests and single-process deployments.
//
// The transport guarantees at-least-once, unordered, best-effort delivery and
// nothing more: a submitted envelope may arrive late, more than once, or
// never. The endpoint protocol is designed to stay correct under all three.
package transport

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/omnibridge/asset-bridge/pkg/asset"
)

// Envelope is the delivery unit the transport hands to a receiving endpoint.
// The protocol reads Sender and SourceLedger for authentication and Payload
// for the transfer message; the delivery metadata is owned by the transport.
type Envelope struct {
	MessageID         string
	SourceLedger      asset.LedgerID
	DestinationLedger asset.LedgerID
	Sender            common.Address
	Payload           []byte
}

// Transport is the outbound surface an endpoint submits messages through.
// Quote is the transport's cost oracle for a prospective payload; Submit
// authorizes collection of fee and enqueues the payload for delivery,
// returning the transport-assigned message id. There is no way to cancel a
// message after Submit returns.
type Transport interface {
	Quote(ctx context.Context, destination asset.LedgerID, payload []byte) (decimal.Decimal, error)
	Submit(ctx context.Context, destination asset.LedgerID, to common.Address, payload []byte, fee decimal.Decimal) (string, error)
}

// Receiver is the inbound delivery callback the transport invokes on the
// destination endpoint. A non-nil error tells the transport the delivery was
// rejected; the transport does not report this back to the origin.
type Receiver interface {
	OnMessageReceived(ctx context.Context, env *Envelope) error
}
