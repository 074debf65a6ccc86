package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omnibridge/asset-bridge/internal/metrics"
	"github.com/omnibridge/asset-bridge/pkg/asset"
)

var (
	// ErrUnknownDestination is returned by Quote and Submit for a ledger the
	// router has no fee schedule for.
	ErrUnknownDestination = errors.New("destination ledger unknown to transport")
	// ErrNotAttached is returned by Submit when the source ledger has no
	// attached endpoint, so no sender identity can be stamped on the envelope.
	ErrNotAttached = errors.New("source ledger not attached to transport")
	// ErrQueueFull is returned by Submit when the delivery queue is saturated.
	ErrQueueFull = errors.New("transport delivery queue full")
)

// Cost is the fee schedule entry for one destination ledger.
type Cost struct {
	Base    decimal.Decimal
	PerByte decimal.Decimal
}

// RouterConfig tunes the in-process router. Duplicates > 0 makes the router
// redeliver every envelope that many extra times, exercising the endpoint's
// at-least-once handling; DeliveryDelay adds latency before each delivery.
type RouterConfig struct {
	QueueSize     int           `default:"256"`
	Duplicates    int           `default:"0"`
	DeliveryDelay time.Duration `default:"0s"`
}

type attachment struct {
	identity common.Address
	receiver Receiver
}

// Router is an in-process message transport connecting the endpoints attached
// to it. Delivery is asynchronous and unordered relative to submission: a
// worker goroutine drains a queue, so a Submit on one ledger returns before
// the destination endpoint has seen anything.
type Router struct {
	cfg    RouterConfig
	fees   map[asset.LedgerID]Cost
	logger *zap.Logger

	mu        sync.RWMutex
	endpoints map[asset.LedgerID]attachment

	queue  chan *Envelope
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRouter creates a router with the given per-destination fee schedule.
func NewRouter(fees map[asset.LedgerID]Cost, cfg RouterConfig, logger *zap.Logger) (*Router, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply router defaults: %w", err)
	}
	return &Router{
		cfg:       cfg,
		fees:      fees,
		logger:    logger,
		endpoints: make(map[asset.LedgerID]attachment),
		queue:     make(chan *Envelope, cfg.QueueSize),
		stopCh:    make(chan struct{}),
	}, nil
}

// Attach registers the receiving endpoint for a ledger together with the
// identity the router stamps as sender on envelopes that ledger submits.
func (r *Router) Attach(ledger asset.LedgerID, identity common.Address, rx Receiver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[ledger] = attachment{identity: identity, receiver: rx}
	r.logger.Info("Endpoint attached",
		zap.String("ledger", string(ledger)),
		zap.String("identity", identity.Hex()))
}

// Client returns a Transport bound to the given source ledger. The bound
// client stamps that ledger's attached identity as the envelope sender.
func (r *Router) Client(source asset.LedgerID) Transport {
	return &client{router: r, source: source}
}

// Start launches the delivery worker.
func (r *Router) Start(ctx context.Context) {
	r.wg.Add(1)
	go r.run(ctx)
	r.logger.Info("Transport router started")
}

// Stop shuts the delivery worker down after the queue drains its current
// element. Queued but undelivered envelopes are dropped, which is within the
// transport's best-effort contract.
func (r *Router) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.logger.Info("Transport router stopped")
}

func (r *Router) run(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case env := <-r.queue:
			metrics.RouterQueueDepth.Dec()
			r.deliver(ctx, env)
		}
	}
}

func (r *Router) deliver(ctx context.Context, env *Envelope) {
	if r.cfg.DeliveryDelay > 0 {
		select {
		case <-time.After(r.cfg.DeliveryDelay):
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		}
	}

	r.mu.RLock()
	att, ok := r.endpoints[env.DestinationLedger]
	r.mu.RUnlock()
	if !ok {
		// Best-effort delivery: an unreachable destination drops the message.
		r.logger.Warn("Dropping envelope for unattached ledger",
			zap.String("message_id", env.MessageID),
			zap.String("destination", string(env.DestinationLedger)))
		metrics.ErrorsTotal.WithLabelValues("router", "unattached_destination").Inc()
		return
	}

	// At-least-once: every delivery attempt may be repeated. Rejections are
	// logged here and never reported back to the origin ledger.
	for i := 0; i <= r.cfg.Duplicates; i++ {
		if err := att.receiver.OnMessageReceived(ctx, env); err != nil {
			r.logger.Warn("Delivery rejected by endpoint",
				zap.String("message_id", env.MessageID),
				zap.String("destination", string(env.DestinationLedger)),
				zap.Error(err))
			metrics.ErrorsTotal.WithLabelValues("router", "delivery_rejected").Inc()
		}
	}
}

func (r *Router) quote(destination asset.LedgerID, payload []byte) (decimal.Decimal, error) {
	cost, ok := r.fees[destination]
	if !ok {
		return decimal.Zero, ErrUnknownDestination
	}
	size := decimal.NewFromInt(int64(len(payload)))
	return cost.Base.Add(cost.PerByte.Mul(size)), nil
}

func (r *Router) submit(source, destination asset.LedgerID, payload []byte) (string, error) {
	if _, ok := r.fees[destination]; !ok {
		return "", ErrUnknownDestination
	}

	r.mu.RLock()
	att, attached := r.endpoints[source]
	r.mu.RUnlock()
	if !attached {
		return "", ErrNotAttached
	}

	env := &Envelope{
		MessageID:         uuid.NewString(),
		SourceLedger:      source,
		DestinationLedger: destination,
		Sender:            att.identity,
		Payload:           append([]byte(nil), payload...),
	}

	select {
	case r.queue <- env:
		metrics.RouterQueueDepth.Inc()
	default:
		return "", ErrQueueFull
	}

	return env.MessageID, nil
}

// client binds a Router to one source ledger so it satisfies Transport.
type client struct {
	router *Router
	source asset.LedgerID
}

func (c *client) Quote(_ context.Context, destination asset.LedgerID, payload []byte) (decimal.Decimal, error) {
	return c.router.quote(destination, payload)
}

func (c *client) Submit(_ context.Context, destination asset.LedgerID, _ common.Address, payload []byte, _ decimal.Decimal) (string, error) {
	// The fee argument is the collection authorization; the in-process router
	// charges nothing beyond accepting it, so only the payload is queued.
	return c.router.submit(c.source, destination, payload)
}
