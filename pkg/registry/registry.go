// Package registry implements the ledger-local asset registry.
//
// A Registry owns the asset records for one ledger and exposes the controlled
// mint/burn operations the bridge endpoint relies on. Every operation runs
// under a single mutex, modeling the serialized all-or-nothing execution the
// ledger platform provides: no caller ever observes partial state.
package registry

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/omnibridge/asset-bridge/internal/metrics"
	"github.com/omnibridge/asset-bridge/pkg/asset"
)

var (
	// ErrUnauthorizedCaller is returned by Mint when the caller is not the configured minter.
	ErrUnauthorizedCaller = errors.New("caller is not the authorized minter")
	// ErrDuplicateAsset is returned by Mint when the asset id already exists.
	// This is the idempotency guard against replayed mint attempts.
	ErrDuplicateAsset = errors.New("asset id already exists")
	// ErrNotOwnerOrApproved is returned by Burn when the caller neither owns
	// the asset nor holds a delegated burn approval from the owner.
	ErrNotOwnerOrApproved = errors.New("caller is not owner or approved")
	// ErrAssetNotFound is returned when the asset id does not exist on this ledger.
	ErrAssetNotFound = errors.New("asset not found")
	// ErrNotAdmin is returned by administrative operations when the caller is
	// not the registry's administrative owner.
	ErrNotAdmin = errors.New("caller is not the registry admin")
)

// Registry holds the asset records of one ledger. The admin identity is fixed
// at construction; the minter is mutable via SetMinter and is normally the
// local bridge endpoint.
type Registry struct {
	ledger asset.LedgerID
	admin  common.Address
	logger *zap.Logger

	mu        sync.Mutex
	minter    common.Address
	assets    map[asset.TokenID]asset.Asset
	approvals map[asset.TokenID]common.Address
}

// New creates an empty registry for the given ledger. The admin identity is
// the only caller accepted by SetMinter and is also accepted by Mint until a
// minter has been configured, so deployments can seed initial assets.
func New(ledger asset.LedgerID, admin common.Address, logger *zap.Logger) *Registry {
	return &Registry{
		ledger:    ledger,
		admin:     admin,
		logger:    logger,
		assets:    make(map[asset.TokenID]asset.Asset),
		approvals: make(map[asset.TokenID]common.Address),
	}
}

// Ledger returns the id of the ledger this registry belongs to.
func (r *Registry) Ledger() asset.LedgerID { return r.ledger }

// SetMinter changes which caller is accepted by Mint. Restricted to the admin.
func (r *Registry) SetMinter(caller, minter common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.admin {
		return ErrNotAdmin
	}
	r.minter = minter
	r.logger.Info("Minter updated",
		zap.String("ledger", string(r.ledger)),
		zap.String("minter", minter.Hex()))
	return nil
}

// Minter returns the currently authorized minter.
func (r *Registry) Minter() common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minter
}

// Mint creates the asset record for id, assigning ownership and metadata.
// The caller must be the configured minter, or the admin while no minter has
// been configured (initialization override). A second mint for an existing id
// fails with ErrDuplicateAsset and leaves the record untouched.
func (r *Registry) Mint(caller, to common.Address, id asset.TokenID, metadataURI string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	authorized := caller == r.minter
	if r.minter == (common.Address{}) {
		authorized = caller == r.admin
	}
	if !authorized {
		return ErrUnauthorizedCaller
	}
	if _, exists := r.assets[id]; exists {
		return ErrDuplicateAsset
	}

	r.assets[id] = asset.Asset{ID: id, Owner: to, MetadataURI: metadataURI}
	metrics.AssetsMinted.WithLabelValues(string(r.ledger)).Inc()
	r.logger.Info("Asset minted",
		zap.String("ledger", string(r.ledger)),
		zap.Uint64("asset_id", uint64(id)),
		zap.String("owner", to.Hex()))
	return nil
}

// Burn removes the record for id permanently. The caller must be the current
// owner or hold a delegated approval from the owner.
func (r *Registry) Burn(caller common.Address, id asset.TokenID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.assets[id]
	if !exists {
		return ErrAssetNotFound
	}
	if caller != rec.Owner && caller != r.approvals[id] {
		return ErrNotOwnerOrApproved
	}

	delete(r.assets, id)
	delete(r.approvals, id)
	metrics.AssetsBurned.WithLabelValues(string(r.ledger)).Inc()
	r.logger.Info("Asset burned",
		zap.String("ledger", string(r.ledger)),
		zap.Uint64("asset_id", uint64(id)))
	return nil
}

// Approve grants operator the right to burn id on the owner's behalf. Only the
// current owner may approve; the zero address clears the approval.
func (r *Registry) Approve(caller common.Address, id asset.TokenID, operator common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.assets[id]
	if !exists {
		return ErrAssetNotFound
	}
	if caller != rec.Owner {
		return ErrNotOwnerOrApproved
	}

	if operator == (common.Address{}) {
		delete(r.approvals, id)
		return nil
	}
	r.approvals[id] = operator
	return nil
}

// Approved returns the operator approved for id, or the zero address.
func (r *Registry) Approved(id asset.TokenID) common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.approvals[id]
}

// Restore re-inserts a burned record together with its burn approval.
// Restricted to the minter: the bridge endpoint uses it to reproduce the
// ledger platform's atomic rollback when a send fails after the burn step.
func (r *Registry) Restore(caller common.Address, rec asset.Asset, approved common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if caller != r.minter {
		return ErrUnauthorizedCaller
	}
	if _, exists := r.assets[rec.ID]; exists {
		return ErrDuplicateAsset
	}

	r.assets[rec.ID] = rec
	if approved != (common.Address{}) {
		r.approvals[rec.ID] = approved
	}
	return nil
}

// Get returns a copy of the record for id.
func (r *Registry) Get(id asset.TokenID) (asset.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.assets[id]
	if !exists {
		return asset.Asset{}, ErrAssetNotFound
	}
	return rec, nil
}

// OwnerOf returns the current owner of id.
func (r *Registry) OwnerOf(id asset.TokenID) (common.Address, error) {
	rec, err := r.Get(id)
	if err != nil {
		return common.Address{}, err
	}
	return rec.Owner, nil
}

// Exists reports whether id is present on this ledger.
func (r *Registry) Exists(id asset.TokenID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.assets[id]
	return exists
}
