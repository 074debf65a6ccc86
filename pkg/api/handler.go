// Package api exposes the bridge endpoint over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/omnibridge/asset-bridge/pkg/app/errors"
	apphttp "github.com/omnibridge/asset-bridge/pkg/app/http"
	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/auth"
	"github.com/omnibridge/asset-bridge/pkg/bridge"
	"github.com/omnibridge/asset-bridge/pkg/eventstore"
	"github.com/omnibridge/asset-bridge/pkg/peers"
	"github.com/omnibridge/asset-bridge/pkg/registry"
)

const defaultEventLimit = 50

// Handler wires the bridge endpoint, registry and event store to HTTP routes
type Handler struct {
	endpoint *bridge.Endpoint
	registry *registry.Registry
	peers    *peers.Table
	events   eventstore.Store
	admin    common.Address
	logger   *zap.Logger
	validate *validator.Validate
}

// RegisterRoutes registers the bridge API on the given chi router. Routes
// under /admin require a valid bearer token; administrative calls into the
// domain are made with the configured admin identity.
func RegisterRoutes(
	r chi.Router,
	endpoint *bridge.Endpoint,
	reg *registry.Registry,
	peerTable *peers.Table,
	events eventstore.Store,
	admin common.Address,
	jwtValidator *auth.JWTValidator,
	logger *zap.Logger,
) {
	h := &Handler{
		endpoint: endpoint,
		registry: reg,
		peers:    peerTable,
		events:   events,
		admin:    admin,
		logger:   logger,
		validate: validator.New(),
	}

	r.Post("/transfers", apphttp.HandleError(h.sendTransfer))
	r.Post("/transfers/estimate", apphttp.HandleError(h.estimateTransfer))
	r.Get("/assets/{id}", apphttp.HandleError(h.getAsset))
	r.Post("/assets/{id}/approve", apphttp.HandleError(h.approveAsset))
	r.Get("/events", apphttp.HandleError(h.listEvents))
	r.Get("/fees/balance", apphttp.HandleError(h.feeBalance))
	r.Post("/fees/deposit", apphttp.HandleError(h.depositFee))

	r.Route("/admin", func(r chi.Router) {
		r.Use(jwtValidator.Middleware)
		r.Put("/peers/{ledger}", apphttp.HandleError(h.setPeer))
		r.Get("/peers", apphttp.HandleError(h.listPeers))
		r.Put("/minter", apphttp.HandleError(h.setMinter))
		r.Post("/fees/withdraw", apphttp.HandleError(h.withdrawFee))
	})
}

type sendTransferRequest struct {
	Caller      string `json:"caller" validate:"required,eth_addr"`
	Destination string `json:"destination" validate:"required"`
	Receiver    string `json:"receiver" validate:"required,eth_addr"`
	AssetID     uint64 `json:"asset_id" validate:"required"`
}

type sendTransferResponse struct {
	MessageID string `json:"message_id"`
}

func (h *Handler) sendTransfer(w http.ResponseWriter, r *http.Request) error {
	var req sendTransferRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	messageID, err := h.endpoint.Send(
		r.Context(),
		common.HexToAddress(req.Caller),
		asset.LedgerID(req.Destination),
		common.HexToAddress(req.Receiver),
		asset.TokenID(req.AssetID),
	)
	if err != nil {
		return mapDomainError(err)
	}

	h.writeJSON(w, http.StatusAccepted, &sendTransferResponse{MessageID: messageID})
	return nil
}

type estimateRequest struct {
	Destination string `json:"destination" validate:"required"`
	Receiver    string `json:"receiver" validate:"required,eth_addr"`
	AssetID     uint64 `json:"asset_id" validate:"required"`
}

type estimateResponse struct {
	Fee         string `json:"fee"`
	Deliverable bool   `json:"deliverable"`
}

func (h *Handler) estimateTransfer(w http.ResponseWriter, r *http.Request) error {
	var req estimateRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	fee, err := h.endpoint.Estimate(
		r.Context(),
		asset.LedgerID(req.Destination),
		common.HexToAddress(req.Receiver),
		asset.TokenID(req.AssetID),
	)
	if err != nil {
		return mapDomainError(err)
	}

	// A zero quote marks an unreachable destination, not a free delivery.
	_, peerErr := h.peers.Peer(asset.LedgerID(req.Destination))
	h.writeJSON(w, http.StatusOK, &estimateResponse{
		Fee:         fee.String(),
		Deliverable: peerErr == nil,
	})
	return nil
}

type assetResponse struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	MetadataURI string `json:"metadata_uri"`
	Approved    string `json:"approved,omitempty"`
}

func (h *Handler) getAsset(w http.ResponseWriter, r *http.Request) error {
	id, err := assetIDParam(r)
	if err != nil {
		return err
	}

	rec, err := h.registry.Get(id)
	if err != nil {
		return mapDomainError(err)
	}

	resp := &assetResponse{
		ID:          uint64(rec.ID),
		Owner:       rec.Owner.Hex(),
		MetadataURI: rec.MetadataURI,
	}
	if approved := h.registry.Approved(id); approved != (common.Address{}) {
		resp.Approved = approved.Hex()
	}
	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

type approveRequest struct {
	Caller   string `json:"caller" validate:"required,eth_addr"`
	Operator string `json:"operator" validate:"omitempty,eth_addr"`
}

func (h *Handler) approveAsset(w http.ResponseWriter, r *http.Request) error {
	id, err := assetIDParam(r)
	if err != nil {
		return err
	}

	var req approveRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	operator := common.Address{}
	if req.Operator != "" {
		operator = common.HexToAddress(req.Operator)
	}
	if err := h.registry.Approve(common.HexToAddress(req.Caller), id, operator); err != nil {
		return mapDomainError(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

type eventResponse struct {
	ID                 int64  `json:"id"`
	Direction          string `json:"direction"`
	MessageID          string `json:"message_id"`
	CounterpartyLedger string `json:"counterparty_ledger"`
	SourceEndpoint     string `json:"source_endpoint,omitempty"`
	Receiver           string `json:"receiver,omitempty"`
	AssetID            uint64 `json:"asset_id"`
	MetadataURI        string `json:"metadata_uri,omitempty"`
	At                 string `json:"at"`
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) error {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return apperrors.BadRequestError(err, "limit must be a positive integer")
		}
		limit = parsed
	}

	events, err := h.events.Recent(r.Context(), limit)
	if err != nil {
		return apperrors.GeneralError(err)
	}

	out := make([]*eventResponse, len(events))
	for i, ev := range events {
		out[i] = &eventResponse{
			ID:                 ev.ID,
			Direction:          string(ev.Direction),
			MessageID:          ev.MessageID,
			CounterpartyLedger: string(ev.CounterpartyLedger),
			AssetID:            uint64(ev.AssetID),
			MetadataURI:        ev.MetadataURI,
			At:                 ev.At.Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if ev.SourceEndpoint != (common.Address{}) {
			out[i].SourceEndpoint = ev.SourceEndpoint.Hex()
		}
		if ev.Receiver != (common.Address{}) {
			out[i].Receiver = ev.Receiver.Hex()
		}
	}
	h.writeJSON(w, http.StatusOK, out)
	return nil
}

type feeBalanceResponse struct {
	Balance string `json:"balance"`
}

func (h *Handler) feeBalance(w http.ResponseWriter, _ *http.Request) error {
	h.writeJSON(w, http.StatusOK, &feeBalanceResponse{Balance: h.endpoint.FeeBalance().String()})
	return nil
}

type feeAmountRequest struct {
	Amount string `json:"amount" validate:"required"`
}

func (h *Handler) depositFee(w http.ResponseWriter, r *http.Request) error {
	var req feeAmountRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return apperrors.BadRequestError(err, "amount must be a decimal")
	}
	if err := h.endpoint.DepositFee(amount); err != nil {
		return apperrors.BadRequestError(err, err.Error())
	}

	h.writeJSON(w, http.StatusOK, &feeBalanceResponse{Balance: h.endpoint.FeeBalance().String()})
	return nil
}

func (h *Handler) withdrawFee(w http.ResponseWriter, r *http.Request) error {
	var req feeAmountRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return apperrors.BadRequestError(err, "amount must be a decimal")
	}
	if err := h.endpoint.WithdrawFee(h.admin, amount); err != nil {
		return mapDomainError(err)
	}

	h.writeJSON(w, http.StatusOK, &feeBalanceResponse{Balance: h.endpoint.FeeBalance().String()})
	return nil
}

type setPeerRequest struct {
	// The zero identity revokes the peer.
	Identity string `json:"identity" validate:"omitempty,eth_addr"`
}

func (h *Handler) setPeer(w http.ResponseWriter, r *http.Request) error {
	ledger := chi.URLParam(r, "ledger")
	if ledger == "" {
		return apperrors.BadRequestError(nil, "ledger id is required")
	}

	var req setPeerRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	identity := common.Address{}
	if req.Identity != "" {
		identity = common.HexToAddress(req.Identity)
	}
	if err := h.peers.SetPeer(h.admin, asset.LedgerID(ledger), identity); err != nil {
		return mapDomainError(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) listPeers(w http.ResponseWriter, _ *http.Request) error {
	entries := h.peers.Entries()
	out := make(map[string]string, len(entries))
	for ledger, identity := range entries {
		out[string(ledger)] = identity.Hex()
	}
	h.writeJSON(w, http.StatusOK, out)
	return nil
}

type setMinterRequest struct {
	Minter string `json:"minter" validate:"required,eth_addr"`
}

func (h *Handler) setMinter(w http.ResponseWriter, r *http.Request) error {
	var req setMinterRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	if err := h.registry.SetMinter(h.admin, common.HexToAddress(req.Minter)); err != nil {
		return mapDomainError(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// decode reads, parses and validates a JSON request body.
func (h *Handler) decode(r *http.Request, req any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, req); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(req); err != nil {
		return apperrors.BadRequestError(err, err.Error())
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func assetIDParam(r *http.Request) (asset.TokenID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.BadRequestError(err, "asset id must be an unsigned integer")
	}
	return asset.TokenID(id), nil
}

// mapDomainError translates domain sentinel errors to service errors with the
// right HTTP status.
func mapDomainError(err error) error {
	switch {
	case errors.Is(err, registry.ErrAssetNotFound):
		return apperrors.ResourceNotFoundError(err, "asset not found")
	case errors.Is(err, registry.ErrDuplicateAsset):
		return apperrors.ConflictError(err, "asset id already exists")
	case errors.Is(err, registry.ErrNotOwnerOrApproved):
		return apperrors.ForbiddenError(err, "caller is not owner or approved")
	case errors.Is(err, registry.ErrUnauthorizedCaller):
		return apperrors.UnAuthorizedError(err, "caller is not the authorized minter")
	case errors.Is(err, registry.ErrNotAdmin), errors.Is(err, peers.ErrNotAdmin), errors.Is(err, bridge.ErrNotAdmin):
		return apperrors.UnAuthorizedError(err, "caller is not the admin")
	case errors.Is(err, bridge.ErrNotOwner):
		return apperrors.UnAuthorizedError(err, "caller does not own asset")
	case errors.Is(err, bridge.ErrUnauthorizedSource):
		return apperrors.UnAuthorizedError(err, "unauthorized source endpoint")
	case errors.Is(err, peers.ErrPeerNotConfigured):
		return apperrors.UnconfiguredError(err, "no peer configured for destination")
	case errors.Is(err, bridge.ErrInsufficientFee):
		return apperrors.InsufficientFundsError(err, "prepaid fee balance below quoted cost")
	case errors.Is(err, bridge.ErrBadPayload):
		return apperrors.BadRequestError(err, "malformed transfer payload")
	default:
		return apperrors.GeneralError(err)
	}
}
