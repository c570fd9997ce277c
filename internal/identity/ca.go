package identity

import (
	"context"

	"github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/pkg/errors"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/wallet"
)

// CertificateAuthority represents a connector to the network's CA.
type CertificateAuthority interface {
	Register(ctx context.Context, registrar wallet.Identity, req Registration) (string, error)
	Enroll(ctx context.Context, enrollmentID, secret string) (Enrollment, error)
}

// FabricCAConfig locates the CA and the SDK credential stores.
type FabricCAConfig struct {
	ConnectionProfile string
	OrgName           string
	CAName            string
	MSPID             string
	// UserStorePath and KeystorePath must match client.credentialStore in the
	// connection profile.
	UserStorePath string
	KeystorePath  string
}

// FabricCA registers and enrolls identities through the fabric-sdk-go msp client.
type FabricCA struct {
	cfg    FabricCAConfig
	sdk    *fabsdk.FabricSDK
	client *msp.Client
}

// NewFabricCA opens an SDK instance from the connection profile and binds a
// CA client to the configured organisation.
func NewFabricCA(cfg FabricCAConfig) (*FabricCA, error) {
	sdk, err := fabsdk.New(config.FromFile(cfg.ConnectionProfile))
	if err != nil {
		return nil, errors.Wrap(err, "create fabric sdk")
	}

	opts := []msp.ClientOption{msp.WithOrg(cfg.OrgName)}
	if cfg.CAName != "" {
		opts = append(opts, msp.WithCAInstance(cfg.CAName))
	}
	client, err := msp.New(sdk.Context(), opts...)
	if err != nil {
		sdk.Close()
		return nil, errors.Wrap(err, "create ca client")
	}

	return &FabricCA{cfg: cfg, sdk: sdk, client: client}, nil
}

// Close releases the SDK.
func (ca *FabricCA) Close() {
	ca.sdk.Close()
}

// Register seeds the registrar into the SDK credential store, then registers
// a new client identity and returns its enrollment secret.
func (ca *FabricCA) Register(ctx context.Context, registrar wallet.Identity, req Registration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := SeedCredentialStore(ca.cfg.UserStorePath, ca.cfg.KeystorePath, registrar.Label, registrar.MSPID,
		[]byte(registrar.Certificate), []byte(registrar.PrivateKey)); err != nil {
		return "", errors.Wrap(err, "seed registrar")
	}

	secret, err := ca.client.Register(&msp.RegistrationRequest{
		Name:        req.EnrollmentID,
		Type:        req.Role,
		Affiliation: req.Affiliation,
		CAName:      ca.cfg.CAName,
	})
	if err != nil {
		return "", errors.Wrapf(err, "register %s", req.EnrollmentID)
	}
	return secret, nil
}

// Enroll exchanges the secret for a certificate and returns it with the
// private key the SDK generated into its keystore.
func (ca *FabricCA) Enroll(ctx context.Context, enrollmentID, secret string) (Enrollment, error) {
	if err := ctx.Err(); err != nil {
		return Enrollment{}, err
	}
	if err := ca.client.Enroll(enrollmentID, msp.WithSecret(secret)); err != nil {
		return Enrollment{}, errors.Wrapf(err, "enroll %s", enrollmentID)
	}

	signer, err := ca.client.GetSigningIdentity(enrollmentID)
	if err != nil {
		return Enrollment{}, errors.Wrapf(err, "load signing identity %s", enrollmentID)
	}

	key, err := ReadKey(ca.cfg.KeystorePath, signer.PrivateKey().SKI())
	if err != nil {
		return Enrollment{}, err
	}

	return Enrollment{
		Certificate: string(signer.EnrollmentCertificate()),
		PrivateKey:  string(key),
	}, nil
}
