package bridge_test

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/bridge"
)

type MockTransport struct {
	QuoteFunc  func(ctx context.Context, destination asset.LedgerID, payload []byte) (decimal.Decimal, error)
	SubmitFunc func(ctx context.Context, destination asset.LedgerID, to common.Address, payload []byte, fee decimal.Decimal) (string, error)
}

func (m *MockTransport) Quote(ctx context.Context, destination asset.LedgerID, payload []byte) (decimal.Decimal, error) {
	return m.QuoteFunc(ctx, destination, payload)
}

func (m *MockTransport) Submit(ctx context.Context, destination asset.LedgerID, to common.Address, payload []byte, fee decimal.Decimal) (string, error) {
	return m.SubmitFunc(ctx, destination, to, payload, fee)
}

// MockSink collects recorded events in memory.
type MockSink struct {
	mu       sync.Mutex
	Sent     []*bridge.SentEvent
	Received []*bridge.ReceivedEvent

	RecordSentErr     error
	RecordReceivedErr error
}

func (m *MockSink) RecordSent(_ context.Context, ev *bridge.SentEvent) error {
	if m.RecordSentErr != nil {
		return m.RecordSentErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, ev)
	return nil
}

func (m *MockSink) RecordReceived(_ context.Context, ev *bridge.ReceivedEvent) error {
	if m.RecordReceivedErr != nil {
		return m.RecordReceivedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Received = append(m.Received, ev)
	return nil
}

func (m *MockSink) SentEvents() []*bridge.SentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*bridge.SentEvent(nil), m.Sent...)
}

func (m *MockSink) ReceivedEvents() []*bridge.ReceivedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*bridge.ReceivedEvent(nil), m.Received...)
}
