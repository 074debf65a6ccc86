package eventstore

import (
	"context"
	"sync"

	"github.com/omnibridge/asset-bridge/pkg/bridge"
)

type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	events []*Event
}

// NewMemoryStore creates an in-memory event store for single-process
// deployments and tests. Events do not survive a restart.
func NewMemoryStore() *memoryStore {
	return &memoryStore{nextID: 1}
}

func (s *memoryStore) RecordSent(_ context.Context, ev *bridge.SentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, &Event{
		ID:                 s.nextID,
		Direction:          DirectionSent,
		MessageID:          ev.MessageID,
		CounterpartyLedger: ev.Destination,
		Receiver:           ev.Receiver,
		AssetID:            ev.AssetID,
		MetadataURI:        ev.MetadataURI,
		At:                 ev.At,
	})
	s.nextID++
	return nil
}

func (s *memoryStore) RecordReceived(_ context.Context, ev *bridge.ReceivedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, &Event{
		ID:                 s.nextID,
		Direction:          DirectionReceived,
		MessageID:          ev.MessageID,
		CounterpartyLedger: ev.Source,
		SourceEndpoint:     ev.SourceEndpoint,
		AssetID:            ev.AssetID,
		At:                 ev.At,
	})
	s.nextID++
	return nil
}

// Recent returns up to limit events, newest first.
func (s *memoryStore) Recent(_ context.Context, limit int) ([]*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]*Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}
