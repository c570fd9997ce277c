package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/config"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/gateway"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/ledger"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/wallet"
)

// NewWalletStore builds the identity store selected by cfg.Wallet.Backend.
// The postgres backend needs db and creates its table on first use.
func NewWalletStore(ctx context.Context, cfg config.Config, db *pgxpool.Pool) (wallet.Store, error) {
	switch cfg.Wallet.Backend {
	case "filesystem":
		store, err := wallet.NewFileSystemStore(cfg.Wallet.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres wallet requires a database connection")
		}
		sealer, err := wallet.NewSealer(cfg.Wallet.EncryptionKey)
		if err != nil {
			return nil, err
		}
		store := wallet.NewPostgresStore(db, sealer)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "memory":
		return wallet.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown wallet backend %q", cfg.Wallet.Backend)
	}
}

// NewConnector returns a Fabric gateway connector. In development, a missing
// connection profile falls back to the in-memory contract.
func NewConnector(cfg config.Config, store wallet.Store, logger *slog.Logger) (gateway.Connector, error) {
	if _, err := os.Stat(cfg.Fabric.ConnectionProfile); errors.Is(err, os.ErrNotExist) && cfg.IsDev() {
		logger.Warn("connection profile not found, using in-memory ledger",
			slog.String("profile", cfg.Fabric.ConnectionProfile))
		return ledger.NewInMemory(), nil
	}

	connector, err := gateway.NewFabricConnector(gateway.Config{
		ConnectionProfile:    cfg.Fabric.ConnectionProfile,
		Channel:              cfg.Fabric.Channel,
		Contract:             cfg.Fabric.Contract,
		IdentityLabel:        cfg.Fabric.IdentityLabel,
		DiscoveryAsLocalhost: cfg.Fabric.DiscoveryAsLocalhost,
		Timeout:              cfg.Fabric.Timeout,
	}, store, logger)
	if err != nil {
		return nil, err
	}
	return connector, nil
}
