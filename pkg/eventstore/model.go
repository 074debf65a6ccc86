package eventstore

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/uptrace/bun"

	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/bridge"
)

// TransferEventDao is a data access object that maps directly to the
// 'transfer_events' table in PostgreSQL.
type TransferEventDao struct {
	bun.BaseModel        `bun:"table:transfer_events,alias:te"`
	ID                   int64     `bun:"id,pk,autoincrement"`
	Direction            string    `bun:"direction,notnull,type:varchar(10)"`
	MessageID            string    `bun:"message_id,notnull,type:varchar(64)"`
	CounterpartyLedger   string    `bun:"counterparty_ledger,notnull,type:varchar(64)"`
	CounterpartyEndpoint *string   `bun:"counterparty_endpoint,type:varchar(42)"`
	Receiver             *string   `bun:"receiver,type:varchar(42)"`
	AssetID              int64     `bun:"asset_id,notnull"`
	MetadataURI          *string   `bun:"metadata_uri,type:text"`
	OccurredAt           time.Time `bun:"occurred_at,notnull"`
	CreatedAt            time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// sentToDao converts a SentEvent to TransferEventDao.
func sentToDao(ev *bridge.SentEvent) *TransferEventDao {
	receiver := ev.Receiver.Hex()
	dao := &TransferEventDao{
		Direction:          string(DirectionSent),
		MessageID:          ev.MessageID,
		CounterpartyLedger: string(ev.Destination),
		Receiver:           &receiver,
		AssetID:            int64(ev.AssetID),
		OccurredAt:         ev.At,
	}
	if ev.MetadataURI != "" {
		uri := ev.MetadataURI
		dao.MetadataURI = &uri
	}
	return dao
}

// receivedToDao converts a ReceivedEvent to TransferEventDao.
func receivedToDao(ev *bridge.ReceivedEvent) *TransferEventDao {
	endpoint := ev.SourceEndpoint.Hex()
	return &TransferEventDao{
		Direction:            string(DirectionReceived),
		MessageID:            ev.MessageID,
		CounterpartyLedger:   string(ev.Source),
		CounterpartyEndpoint: &endpoint,
		AssetID:              int64(ev.AssetID),
		OccurredAt:           ev.At,
	}
}

// toEvent converts a TransferEventDao to the unified query view.
func toEvent(dao *TransferEventDao) *Event {
	ev := &Event{
		ID:                 dao.ID,
		Direction:          Direction(dao.Direction),
		MessageID:          dao.MessageID,
		CounterpartyLedger: asset.LedgerID(dao.CounterpartyLedger),
		AssetID:            asset.TokenID(dao.AssetID),
		At:                 dao.OccurredAt,
	}
	if dao.CounterpartyEndpoint != nil {
		ev.SourceEndpoint = common.HexToAddress(*dao.CounterpartyEndpoint)
	}
	if dao.Receiver != nil {
		ev.Receiver = common.HexToAddress(*dao.Receiver)
	}
	if dao.MetadataURI != nil {
		ev.MetadataURI = *dao.MetadataURI
	}
	return ev
}
