package identity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SKI computes the subject key identifier the Fabric SDK uses to name private
// keys in its keystore: sha256 over the uncompressed public point.
func SKI(keyPEM []byte) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, errors.New("private key is not PEM encoded")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		ec, ecErr := x509.ParseECPrivateKey(block.Bytes)
		if ecErr != nil {
			return nil, errors.Wrap(err, "parse private key")
		}
		parsed = ec
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not ECDSA")
	}

	raw := elliptic.Marshal(key.Curve, key.PublicKey.X, key.PublicKey.Y) //nolint:staticcheck
	sum := sha256.Sum256(raw)
	return sum[:], nil
}

// KeyFileName is the keystore file name for a given SKI.
func KeyFileName(ski []byte) string {
	return hex.EncodeToString(ski) + "_sk"
}

// CertFileName is the user store file name for an enrollment ID within an MSP.
func CertFileName(enrollmentID, mspID string) string {
	return enrollmentID + "@" + mspID + "-cert.pem"
}

// ReadKey loads the private key stored for ski in keystoreDir.
func ReadKey(keystoreDir string, ski []byte) ([]byte, error) {
	path := filepath.Join(keystoreDir, KeyFileName(ski))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read enrolled key %s", path)
	}
	return data, nil
}

// SeedCredentialStore writes a certificate and key into the SDK's user and
// key stores so the SDK treats enrollmentID as already enrolled.
func SeedCredentialStore(userStoreDir, keystoreDir, enrollmentID, mspID string, cert, key []byte) error {
	ski, err := SKI(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(userStoreDir, 0o700); err != nil {
		return errors.Wrap(err, "create user store")
	}
	if err := os.MkdirAll(keystoreDir, 0o700); err != nil {
		return errors.Wrap(err, "create keystore")
	}
	if err := os.WriteFile(filepath.Join(userStoreDir, CertFileName(enrollmentID, mspID)), cert, 0o600); err != nil {
		return errors.Wrap(err, "write registrar certificate")
	}
	if err := os.WriteFile(filepath.Join(keystoreDir, KeyFileName(ski)), key, 0o600); err != nil {
		return errors.Wrap(err, "write registrar key")
	}
	return nil
}
