// Package asset holds the leaf types shared by the registry, peer table and
// bridge endpoint. It has no dependencies on the rest of the module.
package asset

import "github.com/ethereum/go-ethereum/common"

// TokenID uniquely identifies one transferable asset. The same id refers to
// the same logical asset on every ledger it visits.
type TokenID uint64

// LedgerID identifies one ledger environment, e.g. "ledger-x".
type LedgerID string

// Asset is the canonical record of one transferable unit on one ledger.
// Existence on a ledger is represented by the record being present in that
// ledger's registry.
type Asset struct {
	ID          TokenID
	Owner       common.Address
	MetadataURI string
}
