package bridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/omnibridge/asset-bridge/pkg/asset"
)

// transferMessageVersion guards against decoding payloads produced by an
// incompatible endpoint build.
const transferMessageVersion = 1

// ErrBadPayload is returned when an inbound payload cannot be decoded as a
// transfer message.
var ErrBadPayload = errors.New("malformed transfer payload")

// TransferMessage is the ephemeral cross-ledger payload. It is never
// persisted by the protocol; its only storage is in flight inside the
// transport.
type TransferMessage struct {
	Version     int            `json:"v"`
	Receiver    common.Address `json:"receiver"`
	AssetID     asset.TokenID  `json:"assetId"`
	MetadataURI string         `json:"metadataUri"`
}

// EncodeTransfer serializes a transfer message for submission.
func EncodeTransfer(receiver common.Address, id asset.TokenID, metadataURI string) ([]byte, error) {
	msg := TransferMessage{
		Version:     transferMessageVersion,
		Receiver:    receiver,
		AssetID:     id,
		MetadataURI: metadataURI,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transfer message: %w", err)
	}
	return payload, nil
}

// DecodeTransfer parses an inbound payload, rejecting unknown versions.
func DecodeTransfer(payload []byte) (*TransferMessage, error) {
	var msg TransferMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	if msg.Version != transferMessageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadPayload, msg.Version)
	}
	return &msg, nil
}
