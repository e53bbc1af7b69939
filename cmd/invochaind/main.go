package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"invochain/config"
	"invochain/core/events"
	"invochain/core/genesis"
	"invochain/core/state"
	"invochain/crypto"
	"invochain/native/invoice"
	"invochain/observability"
	"invochain/rpc"
	"invochain/storage"
)

const eventLogCapacity = 4096

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to a genesis YAML file (overrides config GenesisFile)")
	allowAutogenesis := flag.Bool("allow-autogenesis", false, "DEV ONLY: generate an ephemeral admin and empty genesis when none is configured")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := observability.SetupLogging(observability.LogConfig{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	mgr := state.NewManager(db)
	emitter := events.NewMemoryEmitter(eventLogCapacity)

	gen, err := resolveGenesis(*genesisFlag, cfg.GenesisFile, *allowAutogenesis, logger)
	if err != nil {
		logger.Error("Failed to resolve genesis", slog.Any("error", err))
		os.Exit(1)
	}

	vault, err := gen.VaultAddress()
	if err != nil {
		logger.Error("Invalid genesis vault", slog.Any("error", err))
		os.Exit(1)
	}

	engine := invoice.NewEngine()
	engine.SetState(mgr)
	engine.SetPayments(mgr)
	engine.SetVault(vault)
	engine.SetEmitter(emitter)

	if err := gen.Apply(engine, mgr); err != nil {
		logger.Error("Failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	if strings.TrimSpace(cfg.RPCAuthToken) == "" {
		logger.Warn("No RPC auth token configured; mutating methods are disabled")
	}

	server := rpc.NewServer(engine, mgr, emitter, cfg.RPCAuthToken, logger)
	server.SetRateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	httpServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting JSON-RPC server",
			slog.String("address", cfg.RPCAddress),
			slog.String("network", cfg.NetworkName))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("RPC server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", slog.Any("error", err))
	}
}

// resolveGenesis picks the genesis document: an explicit flag wins, then the
// config file. With neither, autogenesis builds an empty dev network with a
// throwaway admin so the node can still boot for local experiments.
func resolveGenesis(flagPath, cfgPath string, allowAutogenesis bool, logger *slog.Logger) (*genesis.Genesis, error) {
	path := strings.TrimSpace(flagPath)
	if path == "" {
		path = strings.TrimSpace(cfgPath)
	}
	if path != "" {
		return genesis.LoadFile(path)
	}
	if !allowAutogenesis {
		return nil, fmt.Errorf("no genesis file configured; pass -genesis or set GenesisFile (or -allow-autogenesis for dev)")
	}

	adminKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	vaultKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	admin := adminKey.PubKey().Address().String()
	vault := vaultKey.PubKey().Address().String()
	logger.Warn("Autogenesis enabled; generated ephemeral platform admin",
		slog.String("admin", admin),
		slog.String("vault", vault))
	return &genesis.Genesis{
		Network:      "invochain-dev",
		Admin:        admin,
		Vault:        vault,
		PaymentAsset: "USD",
	}, nil
}
