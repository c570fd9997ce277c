package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/wallet"
)

const (
	defaultRole        = "client"
	defaultAffiliation = "org1.department1"
)

// Provisioner materialises identities into the wallet, either from MSP files
// on disk or through certificate authority enrollment.
type Provisioner struct {
	store  wallet.Store
	ca     CertificateAuthority
	mspID  string
	logger *slog.Logger
}

// NewProvisioner creates a provisioner. ca may be nil when only imports are needed.
func NewProvisioner(store wallet.Store, ca CertificateAuthority, mspID string, logger *slog.Logger) *Provisioner {
	return &Provisioner{store: store, ca: ca, mspID: mspID, logger: logger}
}

// ImportIdentity reads a PEM certificate and the first non-hidden file in
// keyDir and stores them under label.
func (p *Provisioner) ImportIdentity(ctx context.Context, label, certPath, keyDir string) (wallet.Identity, error) {
	cert, err := readFile(certPath)
	if err != nil {
		return wallet.Identity{}, err
	}
	keyPath, err := FirstKeyFile(keyDir)
	if err != nil {
		return wallet.Identity{}, err
	}
	key, err := readFile(keyPath)
	if err != nil {
		return wallet.Identity{}, err
	}

	id := wallet.Identity{
		Label:       label,
		MSPID:       p.mspID,
		Certificate: string(cert),
		PrivateKey:  string(key),
		Type:        wallet.TypeX509,
	}
	if err := p.store.Put(ctx, label, id); err != nil {
		return wallet.Identity{}, fmt.Errorf("store identity %s: %w", label, err)
	}

	p.logger.Info("identity imported",
		slog.String("label", label),
		slog.String("msp_id", p.mspID),
		slog.String("certificate", certPath),
		slog.String("key", keyPath),
	)
	return id, nil
}

// ImportFromMSP imports an identity from a conventional MSP directory
// (signcerts/ + keystore/), trying each certificate file name in order.
func (p *Provisioner) ImportFromMSP(ctx context.Context, label, mspDir string, certNames ...string) (wallet.Identity, error) {
	candidates := make([]string, 0, len(certNames))
	for _, name := range certNames {
		candidates = append(candidates, filepath.Join(mspDir, "signcerts", name))
	}
	certPath, err := ResolveCertificate(candidates...)
	if err != nil {
		return wallet.Identity{}, err
	}
	return p.ImportIdentity(ctx, label, certPath, filepath.Join(mspDir, "keystore"))
}

// EnrollAppUser registers and enrolls req.Label at the certificate authority
// using the admin identity as registrar. It is a no-op when the label is
// already present in the wallet.
func (p *Provisioner) EnrollAppUser(ctx context.Context, req EnrollRequest) (EnrollOutcome, error) {
	if req.Label == "" {
		return 0, errors.New("label is required")
	}
	if req.Role == "" {
		req.Role = defaultRole
	}
	if req.Affiliation == "" {
		req.Affiliation = defaultAffiliation
	}

	exists, err := wallet.Exists(ctx, p.store, req.Label)
	if err != nil {
		return 0, fmt.Errorf("check identity %s: %w", req.Label, err)
	}
	if exists {
		p.logger.Info("identity already exists", slog.String("label", req.Label))
		return AlreadyEnrolled, nil
	}

	admin, err := p.store.Get(ctx, req.AdminLabel)
	if err != nil {
		if errors.Is(err, wallet.ErrIdentityNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrMissingAdmin, req.AdminLabel)
		}
		return 0, fmt.Errorf("load admin identity: %w", err)
	}
	if p.ca == nil {
		return 0, errors.New("certificate authority is not configured")
	}

	secret, err := p.ca.Register(ctx, admin, Registration{
		EnrollmentID: req.Label,
		Affiliation:  req.Affiliation,
		Role:         req.Role,
	})
	if err != nil {
		return 0, fmt.Errorf("register %s: %w", req.Label, err)
	}

	enrollment, err := p.ca.Enroll(ctx, req.Label, secret)
	if err != nil {
		return 0, fmt.Errorf("enroll %s: %w", req.Label, err)
	}

	id := wallet.Identity{
		Label:       req.Label,
		MSPID:       p.mspID,
		Certificate: enrollment.Certificate,
		PrivateKey:  enrollment.PrivateKey,
		Type:        wallet.TypeX509,
	}
	if err := p.store.Put(ctx, req.Label, id); err != nil {
		return 0, fmt.Errorf("store identity %s: %w", req.Label, err)
	}

	p.logger.Info("identity enrolled",
		slog.String("label", req.Label),
		slog.String("registrar", req.AdminLabel),
		slog.String("affiliation", req.Affiliation),
	)
	return Enrolled, nil
}

// ResolveCertificate returns the first candidate path that exists.
func ResolveCertificate(candidates ...string) (string, error) {
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrFileNotFound, strings.Join(candidates, ", "))
}

// FirstKeyFile returns the lexically first non-hidden regular file in dir.
func FirstKeyFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, dir)
		}
		return "", fmt.Errorf("read keystore %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: %s", ErrEmptyKeystore, dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
