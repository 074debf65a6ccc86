package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omnibridge/asset-bridge/pkg/api"
	"github.com/omnibridge/asset-bridge/pkg/app/httpserver"
	"github.com/omnibridge/asset-bridge/pkg/asset"
	"github.com/omnibridge/asset-bridge/pkg/auth"
	"github.com/omnibridge/asset-bridge/pkg/bridge"
	"github.com/omnibridge/asset-bridge/pkg/config"
	"github.com/omnibridge/asset-bridge/pkg/eventstore"
	"github.com/omnibridge/asset-bridge/pkg/peers"
	"github.com/omnibridge/asset-bridge/pkg/pgutil"
	"github.com/omnibridge/asset-bridge/pkg/registry"
	"github.com/omnibridge/asset-bridge/pkg/transport"
)

const requestTimeout = 60 * time.Second

var configPath = flag.String("config", "config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Bridge daemon failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ledgerID := asset.LedgerID(cfg.Ledger.ID)
	identity := common.HexToAddress(cfg.Ledger.EndpointIdentity)
	admin := common.HexToAddress(cfg.Ledger.Admin)

	logger.Info("Starting bridge daemon",
		zap.String("ledger", cfg.Ledger.ID),
		zap.String("endpoint_identity", identity.Hex()))

	events, err := openEventStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reg := registry.New(ledgerID, admin, logger)
	if err := reg.SetMinter(admin, identity); err != nil {
		return fmt.Errorf("configure minter: %w", err)
	}

	peerTable := peers.NewTable(admin, logger)
	if cfg.Ledger.PeersFile != "" {
		bootstrap, err := config.LoadPeers(cfg.Ledger.PeersFile)
		if err != nil {
			return fmt.Errorf("load peers: %w", err)
		}
		for ledger, peerIdentity := range bootstrap {
			if err := peerTable.SetPeer(admin, ledger, peerIdentity); err != nil {
				return fmt.Errorf("bootstrap peer %s: %w", ledger, err)
			}
		}
	}

	router, err := newRouter(cfg, logger)
	if err != nil {
		return err
	}

	endpoint := bridge.New(ledgerID, identity, admin, reg, peerTable, router.Client(ledgerID), events, logger)
	router.Attach(ledgerID, identity, endpoint)

	initialBalance, err := decimal.NewFromString(cfg.Ledger.InitialFeeBalance)
	if err != nil {
		return fmt.Errorf("parse initial fee balance: %w", err)
	}
	if initialBalance.IsPositive() {
		if err := endpoint.DepositFee(initialBalance); err != nil {
			return fmt.Errorf("seed fee balance: %w", err)
		}
	}

	router.Start(ctx)
	defer router.Stop()

	jwtValidator := auth.NewJWTValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	handler := setupRouter(cfg, endpoint, reg, peerTable, events, admin, jwtValidator, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler,
	}
	return httpserver.ServeAndWait(ctx, logger, srv, cfg.Shutdown.Timeout)
}

// openEventStore selects the postgres event store when a database host is
// configured and the in-memory store otherwise.
func openEventStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (eventstore.Store, error) {
	if cfg.Database.Host == "" {
		logger.Info("Using in-memory event store")
		return eventstore.NewMemoryStore(), nil
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.Database))

	store := eventstore.NewPgStore(db)
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init event store: %w", err)
	}
	return store, nil
}

func newRouter(cfg *config.Config, logger *zap.Logger) (*transport.Router, error) {
	fees := make(map[asset.LedgerID]transport.Cost, len(cfg.Transport.Fees))
	for ledger, fee := range cfg.Transport.Fees {
		base, err := decimal.NewFromString(fee.Base)
		if err != nil {
			return nil, fmt.Errorf("parse fee for %s: %w", ledger, err)
		}
		perByte, err := decimal.NewFromString(fee.PerByte)
		if err != nil {
			return nil, fmt.Errorf("parse per-byte fee for %s: %w", ledger, err)
		}
		fees[asset.LedgerID(ledger)] = transport.Cost{Base: base, PerByte: perByte}
	}

	return transport.NewRouter(fees, transport.RouterConfig{
		QueueSize:     cfg.Transport.QueueSize,
		Duplicates:    cfg.Transport.Duplicates,
		DeliveryDelay: cfg.Transport.DeliveryDelay,
	}, logger)
}

func setupRouter(
	cfg *config.Config,
	endpoint *bridge.Endpoint,
	reg *registry.Registry,
	peerTable *peers.Table,
	events eventstore.Store,
	admin common.Address,
	jwtValidator *auth.JWTValidator,
	logger *zap.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if cfg.Monitoring.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	api.RegisterRoutes(r, endpoint, reg, peerTable, events, admin, jwtValidator, logger)

	return r
}
