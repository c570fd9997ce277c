package gateway

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/pkg/errors"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/wallet"
)

// discoveryEnvVar is read by the SDK when resolving discovered endpoints.
const discoveryEnvVar = "DISCOVERY_AS_LOCALHOST"

// Config names the network profile, channel, contract and identity to use.
type Config struct {
	ConnectionProfile    string
	Channel              string
	Contract             string
	IdentityLabel        string
	DiscoveryAsLocalhost bool
	Timeout              time.Duration
}

// FabricConnector opens a fresh gateway session per Connect call. Nothing is
// shared between sessions.
type FabricConnector struct {
	cfg    Config
	store  wallet.Store
	logger *slog.Logger
}

// NewFabricConnector validates the profile location and prepares discovery.
func NewFabricConnector(cfg Config, store wallet.Store, logger *slog.Logger) (*FabricConnector, error) {
	if cfg.IdentityLabel == "" {
		cfg.IdentityLabel = "appUser"
	}
	if cfg.Channel == "" || cfg.Contract == "" {
		return nil, errors.New("channel and contract names are required")
	}
	cfg.ConnectionProfile = filepath.Clean(cfg.ConnectionProfile)
	if _, err := os.Stat(cfg.ConnectionProfile); err != nil {
		return nil, errors.Wrapf(err, "connection profile %s", cfg.ConnectionProfile)
	}
	if err := os.Setenv(discoveryEnvVar, strconv.FormatBool(cfg.DiscoveryAsLocalhost)); err != nil {
		return nil, errors.Wrap(err, "configure discovery")
	}
	return &FabricConnector{cfg: cfg, store: store, logger: logger}, nil
}

// IdentityLabel is the wallet label sessions authenticate as.
func (c *FabricConnector) IdentityLabel() string {
	return c.cfg.IdentityLabel
}

// Connect loads the configured identity, connects to the network with
// discovery enabled and resolves the contract.
func (c *FabricConnector) Connect(ctx context.Context) (Contract, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	id, err := c.store.Get(ctx, c.cfg.IdentityLabel)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load identity %s", c.cfg.IdentityLabel)
	}

	sessionWallet := gateway.NewInMemoryWallet()
	if err := sessionWallet.Put(c.cfg.IdentityLabel, gateway.NewX509Identity(id.MSPID, id.Certificate, id.PrivateKey)); err != nil {
		return nil, nil, errors.Wrap(err, "prepare session wallet")
	}

	var opts []gateway.Option
	if c.cfg.Timeout > 0 {
		opts = append(opts, gateway.WithTimeout(c.cfg.Timeout))
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(config.FromFile(c.cfg.ConnectionProfile)),
		gateway.WithIdentity(sessionWallet, c.cfg.IdentityLabel),
		opts...,
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect gateway")
	}

	network, err := gw.GetNetwork(c.cfg.Channel)
	if err != nil {
		gw.Close()
		return nil, nil, errors.Wrapf(err, "get network %s", c.cfg.Channel)
	}

	c.logger.Debug("gateway session opened",
		slog.String("channel", c.cfg.Channel),
		slog.String("contract", c.cfg.Contract),
		slog.String("identity", c.cfg.IdentityLabel),
	)

	release := ReleaseOnce(func() {
		gw.Close()
		c.logger.Debug("gateway session closed", slog.String("channel", c.cfg.Channel))
	})
	return network.GetContract(c.cfg.Contract), release, nil
}
