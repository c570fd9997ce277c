package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/config"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/identity"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/infra"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/logging"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/wallet"
)

const (
	adminCertName = "Admin@org1.example.com-cert.pem"
	signCertName  = "cert.pem"
)

var defaultMSPDir = filepath.Join("samples", "test-network", "organizations", "peerOrganizations",
	"org1.example.com", "users", "Admin@org1.example.com", "msp")

const usage = `usage: provision <command> [flags]

commands:
  import-admin   import the organisation admin from an MSP directory
  import-user    import the application identity from an MSP directory
  enroll         register and enroll the application identity at the CA
  list           list wallet labels
`

type caFactory func(cfg config.Config) (identity.CertificateAuthority, func(), error)

type cli struct {
	cfg    config.Config
	store  wallet.Store
	logger *slog.Logger
	out    io.Writer
	newCA  caFactory
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.AppName)
	logging.InstallSDKLogger(logger)
	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.Wallet.Backend == "postgres" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	store, err := infra.NewWalletStore(ctx, cfg, db)
	if err != nil {
		logger.Error("open wallet", "backend", cfg.Wallet.Backend, "error", err)
		os.Exit(1)
	}

	if fsStore, ok := store.(*wallet.FileSystemStore); ok {
		logger.Info("wallet path", "path", fsStore.Path())
	}

	c := &cli{cfg: cfg, store: store, logger: logger, out: os.Stdout, newCA: newFabricCA}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("provision failed", "error", err)
		os.Exit(1)
	}
}

func newFabricCA(cfg config.Config) (identity.CertificateAuthority, func(), error) {
	ca, err := identity.NewFabricCA(identity.FabricCAConfig{
		ConnectionProfile: cfg.Fabric.ConnectionProfile,
		OrgName:           cfg.Fabric.OrgName,
		CAName:            cfg.Fabric.CAName,
		MSPID:             cfg.Fabric.MSPID,
		UserStorePath:     cfg.Fabric.UserStorePath,
		KeystorePath:      cfg.Fabric.KeystorePath,
	})
	if err != nil {
		return nil, nil, err
	}
	return ca, ca.Close, nil
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return flag.ErrHelp
	}

	switch args[0] {
	case "import-admin":
		return c.importIdentity(ctx, args[1:], c.cfg.Fabric.AdminLabel, adminCertName, signCertName)
	case "import-user":
		return c.importIdentity(ctx, args[1:], c.cfg.Fabric.IdentityLabel, signCertName, adminCertName)
	case "enroll":
		return c.enroll(ctx, args[1:])
	case "list":
		return c.list(ctx)
	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (c *cli) importIdentity(ctx context.Context, args []string, label string, certNames ...string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(c.out)
	mspDir := fs.String("msp", defaultMSPDir, "MSP directory holding signcerts/ and keystore/")
	fs.StringVar(&label, "label", label, "wallet label")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := identity.NewProvisioner(c.store, nil, c.cfg.Fabric.MSPID, c.logger)
	if _, err := p.ImportFromMSP(ctx, label, *mspDir, certNames...); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "imported %q into the wallet\n", label)
	return nil
}

func (c *cli) enroll(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ContinueOnError)
	fs.SetOutput(c.out)
	label := fs.String("label", c.cfg.Fabric.IdentityLabel, "label of the identity to enroll")
	admin := fs.String("admin", c.cfg.Fabric.AdminLabel, "label of the registrar identity")
	affiliation := fs.String("affiliation", c.cfg.Fabric.Affiliation, "CA affiliation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Skip CA setup entirely when there is nothing to do.
	exists, err := wallet.Exists(ctx, c.store, *label)
	if err != nil {
		return err
	}
	if exists {
		fmt.Fprintf(c.out, "an identity for %q already exists in the wallet\n", *label)
		return nil
	}

	ca, closeCA, err := c.newCA(c.cfg)
	if err != nil {
		return err
	}
	defer closeCA()

	p := identity.NewProvisioner(c.store, ca, c.cfg.Fabric.MSPID, c.logger)
	outcome, err := p.EnrollAppUser(ctx, identity.EnrollRequest{
		Label:       *label,
		AdminLabel:  *admin,
		Affiliation: *affiliation,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s: %s\n", *label, outcome)
	return nil
}

func (c *cli) list(ctx context.Context) error {
	labels, err := c.store.List(ctx)
	if err != nil {
		return err
	}
	for _, label := range labels {
		fmt.Fprintln(c.out, label)
	}
	return nil
}
