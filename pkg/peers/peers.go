// Package peers implements the per-ledger peer registry: the mapping from a
// destination ledger id to the trusted remote bridge endpoint identity. The
// table is used both to address outbound messages and to authenticate inbound
// envelopes, so it is the sole anti-forgery configuration of an endpoint.
package peers

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/omnibridge/asset-bridge/pkg/asset"
)

var (
	// ErrPeerNotConfigured is returned when no trusted endpoint is known for
	// the requested ledger. A revoked peer reports the same error as a peer
	// that was never configured.
	ErrPeerNotConfigured = errors.New("no peer configured for ledger")
	// ErrNotAdmin is returned when a non-admin caller attempts SetPeer.
	ErrNotAdmin = errors.New("caller is not the peer table admin")
)

// Table maps remote ledger ids to trusted endpoint identities. Mutations are
// restricted to the administrative owner fixed at construction.
type Table struct {
	admin  common.Address
	logger *zap.Logger

	mu    sync.RWMutex
	peers map[asset.LedgerID]common.Address
}

// NewTable creates an empty peer table administered by admin.
func NewTable(admin common.Address, logger *zap.Logger) *Table {
	return &Table{
		admin:  admin,
		logger: logger,
		peers:  make(map[asset.LedgerID]common.Address),
	}
}

// SetPeer registers identity as the trusted remote endpoint for ledger,
// overwriting any previous entry. Setting the zero identity revokes the peer.
func (t *Table) SetPeer(caller common.Address, ledger asset.LedgerID, identity common.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.admin {
		return ErrNotAdmin
	}

	if identity == (common.Address{}) {
		delete(t.peers, ledger)
		t.logger.Info("Peer revoked", zap.String("ledger", string(ledger)))
		return nil
	}

	t.peers[ledger] = identity
	t.logger.Info("Peer configured",
		zap.String("ledger", string(ledger)),
		zap.String("identity", identity.Hex()))
	return nil
}

// Peer returns the trusted endpoint identity for ledger.
func (t *Table) Peer(ledger asset.LedgerID) (common.Address, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	identity, ok := t.peers[ledger]
	if !ok {
		return common.Address{}, ErrPeerNotConfigured
	}
	return identity, nil
}

// Entries returns a copy of the current peer table for diagnostics.
func (t *Table) Entries() map[asset.LedgerID]common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[asset.LedgerID]common.Address, len(t.peers))
	for ledger, identity := range t.peers {
		out[ledger] = identity
	}
	return out
}
