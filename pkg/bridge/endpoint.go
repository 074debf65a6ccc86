// Package bridge implements the per-ledger bridge endpoint: the component
// that orchestrates the burn-and-mint transfer protocol over an asynchronous
// message transport.
//
// The endpoint owns no asset state itself; it drives the local asset registry
// and peer table and holds only the prepaid transport fee balance. Every
// public operation runs under a single mutex, modeling the ledger's
// serialized execution, and either commits completely or leaves no
// observable change.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omnibridge/asset-bridge/internal/metrics"
	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/peers"
	"github.com/omnibridge/asset-bridge/pkg/registry"
	"github.com/omnibridge/asset-bridge/pkg/transport"
)

var (
	// ErrNotOwner is returned by Send when the caller does not own the asset.
	ErrNotOwner = errors.New("caller does not own asset")
	// ErrInsufficientFee is returned by Send when the prepaid balance cannot
	// cover the quoted transport cost. Transient: top up and retry.
	ErrInsufficientFee = errors.New("prepaid fee balance below quoted cost")
	// ErrUnauthorizedSource is returned by OnMessageReceived when the
	// envelope sender does not match the configured peer for the claimed
	// source ledger. This is the sole anti-forgery gate.
	ErrUnauthorizedSource = errors.New("envelope sender does not match configured peer")
	// ErrNotAdmin is returned by administrative operations for non-admin callers.
	ErrNotAdmin = errors.New("caller is not the endpoint admin")
)

// candidateMetadataURI stands in for real metadata when Estimate is asked to
// quote a transfer of an asset this ledger does not hold.
const candidateMetadataURI = "ipfs://placeholder"

// Endpoint is one ledger's bridge endpoint. Its identity is the address it is
// known by on the transport, which must also be the registry's configured
// minter so inbound transfers can be minted.
type Endpoint struct {
	ledger   asset.LedgerID
	identity common.Address
	admin    common.Address

	registry  *registry.Registry
	peers     *peers.Table
	transport transport.Transport
	events    EventSink
	logger    *zap.Logger

	mu         sync.Mutex
	feeBalance decimal.Decimal
}

// New creates a bridge endpoint for one ledger. The caller is responsible for
// configuring the endpoint's identity as the registry minter.
func New(
	ledger asset.LedgerID,
	identity common.Address,
	admin common.Address,
	reg *registry.Registry,
	peerTable *peers.Table,
	tr transport.Transport,
	events EventSink,
	logger *zap.Logger,
) *Endpoint {
	return &Endpoint{
		ledger:     ledger,
		identity:   identity,
		admin:      admin,
		registry:   reg,
		peers:      peerTable,
		transport:  tr,
		events:     events,
		logger:     logger,
		feeBalance: decimal.Zero,
	}
}

// Ledger returns the id of the ledger this endpoint serves.
func (e *Endpoint) Ledger() asset.LedgerID { return e.ledger }

// Identity returns the endpoint's on-transport identity.
func (e *Endpoint) Identity() common.Address { return e.identity }

// DepositFee credits the prepaid transport fee balance. Top-ups are
// unrestricted; anyone may fund delivery.
func (e *Endpoint) DepositFee(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("deposit amount must not be negative")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.feeBalance = e.feeBalance.Add(amount)
	metrics.FeeBalance.WithLabelValues(string(e.ledger)).Set(feeGauge(e.feeBalance))
	return nil
}

// WithdrawFee moves prepaid balance out of the endpoint. Admin only; exists
// to recover accidentally deposited funds.
func (e *Endpoint) WithdrawFee(caller common.Address, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.admin {
		return ErrNotAdmin
	}
	if amount.GreaterThan(e.feeBalance) {
		return ErrInsufficientFee
	}
	e.feeBalance = e.feeBalance.Sub(amount)
	metrics.FeeBalance.WithLabelValues(string(e.ledger)).Set(feeGauge(e.feeBalance))
	return nil
}

// FeeBalance returns the current prepaid balance.
func (e *Endpoint) FeeBalance() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feeBalance
}

// Estimate quotes the transport cost of sending id to receiver on the given
// destination. A zero return with nil error means the destination has no
// configured peer — an unreachable marker, never a real free-delivery quote.
// When the asset is not held locally a placeholder metadata shape is quoted
// instead, so holders can price a transfer before acquiring the asset.
func (e *Endpoint) Estimate(ctx context.Context, destination asset.LedgerID, receiver common.Address, id asset.TokenID) (decimal.Decimal, error) {
	if _, err := e.peers.Peer(destination); err != nil {
		return decimal.Zero, nil
	}

	metadataURI := candidateMetadataURI
	if rec, err := e.registry.Get(id); err == nil {
		metadataURI = rec.MetadataURI
	}

	payload, err := EncodeTransfer(receiver, id, metadataURI)
	if err != nil {
		return decimal.Zero, err
	}
	cost, err := e.transport.Quote(ctx, destination, payload)
	if err != nil {
		return decimal.Zero, fmt.Errorf("transport quote failed: %w", err)
	}
	return cost, nil
}

// Send burns the caller's asset and submits a transfer message addressed to
// the destination ledger's peer endpoint. It returns the transport-assigned
// message id: a tracking identifier, not a completion signal — whether the
// asset reappears on the destination can only be observed through that
// ledger's Received events.
//
// Ordering is deliberate: every precondition, including the fee quote against
// the real message, is checked before the burn, so a failed Send leaves the
// asset untouched. The burn happens before submission so a delivered message
// can never coexist with a live origin copy.
func (e *Endpoint) Send(ctx context.Context, caller common.Address, destination asset.LedgerID, receiver common.Address, id asset.TokenID) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	peerIdentity, err := e.peers.Peer(destination)
	if err != nil {
		return "", err
	}

	rec, err := e.registry.Get(id)
	if err != nil {
		return "", err
	}
	if rec.Owner != caller {
		return "", ErrNotOwner
	}

	// Metadata must be read before the burn erases it.
	payload, err := EncodeTransfer(receiver, id, rec.MetadataURI)
	if err != nil {
		return "", err
	}

	cost, err := e.transport.Quote(ctx, destination, payload)
	if err != nil {
		return "", fmt.Errorf("transport quote failed: %w", err)
	}
	if e.feeBalance.LessThan(cost) {
		return "", ErrInsufficientFee
	}

	// The registry enforces the delegated burn authorization the holder must
	// have granted this endpoint beforehand.
	approved := e.registry.Approved(id)
	if err := e.registry.Burn(e.identity, id); err != nil {
		return "", err
	}

	e.feeBalance = e.feeBalance.Sub(cost)
	messageID, err := e.transport.Submit(ctx, destination, peerIdentity, payload, cost)
	if err != nil {
		// Reproduce the ledger's atomic rollback: a failed submission must
		// leave no observable change from this invocation.
		e.feeBalance = e.feeBalance.Add(cost)
		if restoreErr := e.registry.Restore(e.identity, rec, approved); restoreErr != nil {
			e.logger.Error("Failed to restore asset after submission failure",
				zap.Uint64("asset_id", uint64(id)),
				zap.Error(restoreErr))
		}
		return "", fmt.Errorf("transport submission failed: %w", err)
	}

	ev := &SentEvent{
		MessageID:   messageID,
		Destination: destination,
		Receiver:    receiver,
		AssetID:     id,
		MetadataURI: rec.MetadataURI,
		At:          time.Now().UTC(),
	}
	if err := e.events.RecordSent(ctx, ev); err != nil {
		e.logger.Error("Failed to record Sent event", zap.String("message_id", messageID), zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("endpoint", "event_sink").Inc()
	}

	metrics.MessagesSent.WithLabelValues(string(e.ledger), string(destination)).Inc()
	metrics.FeesSpent.WithLabelValues(string(e.ledger), string(destination)).Add(feeGauge(cost))
	metrics.FeeBalance.WithLabelValues(string(e.ledger)).Set(feeGauge(e.feeBalance))

	e.logger.Info("Asset sent",
		zap.String("message_id", messageID),
		zap.String("destination", string(destination)),
		zap.Uint64("asset_id", uint64(id)),
		zap.String("receiver", receiver.Hex()),
		zap.String("fee", cost.String()))

	return messageID, nil
}

// OnMessageReceived is invoked by the transport when an envelope arrives.
// The sender is authenticated against the peer table before anything is
// mutated; duplicate deliveries are rejected by the registry's duplicate-id
// guard, so at-least-once delivery can never mint twice.
func (e *Endpoint) OnMessageReceived(ctx context.Context, env *transport.Envelope) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	expected, err := e.peers.Peer(env.SourceLedger)
	if err != nil || expected != env.Sender {
		metrics.DeliveriesRejected.WithLabelValues(string(e.ledger), "unauthorized_source").Inc()
		e.logger.Warn("Rejected envelope from unauthorized source",
			zap.String("message_id", env.MessageID),
			zap.String("claimed_source", string(env.SourceLedger)),
			zap.String("sender", env.Sender.Hex()))
		return fmt.Errorf("%w: ledger %s sender %s", ErrUnauthorizedSource, env.SourceLedger, env.Sender.Hex())
	}

	msg, err := DecodeTransfer(env.Payload)
	if err != nil {
		metrics.DeliveriesRejected.WithLabelValues(string(e.ledger), "bad_payload").Inc()
		return err
	}

	if err := e.registry.Mint(e.identity, msg.Receiver, msg.AssetID, msg.MetadataURI); err != nil {
		if errors.Is(err, registry.ErrDuplicateAsset) {
			metrics.DeliveriesRejected.WithLabelValues(string(e.ledger), "duplicate").Inc()
			e.logger.Info("Rejected duplicate delivery",
				zap.String("message_id", env.MessageID),
				zap.Uint64("asset_id", uint64(msg.AssetID)))
		}
		return err
	}

	ev := &ReceivedEvent{
		MessageID:      env.MessageID,
		Source:         env.SourceLedger,
		SourceEndpoint: env.Sender,
		AssetID:        msg.AssetID,
		At:             time.Now().UTC(),
	}
	if err := e.events.RecordReceived(ctx, ev); err != nil {
		e.logger.Error("Failed to record Received event", zap.String("message_id", env.MessageID), zap.Error(err))
		metrics.ErrorsTotal.WithLabelValues("endpoint", "event_sink").Inc()
	}

	metrics.MessagesReceived.WithLabelValues(string(e.ledger), string(env.SourceLedger)).Inc()

	e.logger.Info("Asset received",
		zap.String("message_id", env.MessageID),
		zap.String("source", string(env.SourceLedger)),
		zap.Uint64("asset_id", uint64(msg.AssetID)),
		zap.String("receiver", msg.Receiver.Hex()))

	return nil
}

// feeGauge converts a decimal fee to the float shape prometheus wants.
func feeGauge(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
