package eventstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/omnibridge/asset-bridge/pkg/bridge"
)

type pgStore struct {
	db *bun.DB
}

// NewPgStore creates a postgres implementation of the event store.
func NewPgStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// Init creates the transfer_events table and its message id index.
func (s *pgStore) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*TransferEventDao)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create transfer_events table: %w", err)
	}

	_, err = s.db.NewCreateIndex().
		Model((*TransferEventDao)(nil)).
		Index("idx_transfer_events_message_id").
		Column("message_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create message id index: %w", err)
	}
	return nil
}

func (s *pgStore) RecordSent(ctx context.Context, ev *bridge.SentEvent) error {
	_, err := s.db.NewInsert().
		Model(sentToDao(ev)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record sent event: %w", err)
	}
	return nil
}

func (s *pgStore) RecordReceived(ctx context.Context, ev *bridge.ReceivedEvent) error {
	_, err := s.db.NewInsert().
		Model(receivedToDao(ev)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record received event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (s *pgStore) Recent(ctx context.Context, limit int) ([]*Event, error) {
	var daos []TransferEventDao
	err := s.db.NewSelect().
		Model(&daos).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]*Event, len(daos))
	for i := range daos {
		events[i] = toEvent(&daos[i])
	}
	return events, nil
}
