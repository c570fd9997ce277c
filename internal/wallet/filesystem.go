package wallet

import (
	"context"

	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/pkg/errors"
)

// FileSystemStore keeps one <label>.id JSON file per identity, the layout the
// Fabric SDKs share.
type FileSystemStore struct {
	path   string
	wallet *gateway.Wallet
}

// NewFileSystemStore opens (creating if needed) a wallet directory.
func NewFileSystemStore(path string) (*FileSystemStore, error) {
	w, err := gateway.NewFileSystemWallet(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open wallet at %s", path)
	}
	return &FileSystemStore{path: path, wallet: w}, nil
}

// Path returns the wallet directory.
func (s *FileSystemStore) Path() string {
	return s.path
}

// Get loads the identity stored under label.
func (s *FileSystemStore) Get(_ context.Context, label string) (Identity, error) {
	if !s.wallet.Exists(label) {
		return Identity{}, ErrIdentityNotFound
	}
	stored, err := s.wallet.Get(label)
	if err != nil {
		return Identity{}, errors.Wrapf(err, "read identity %s", label)
	}
	x509, ok := stored.(*gateway.X509Identity)
	if !ok {
		return Identity{}, errors.Errorf("identity %s is not an X.509 identity", label)
	}
	return Identity{
		Label:       label,
		MSPID:       x509.MspID,
		Certificate: x509.Certificate(),
		PrivateKey:  x509.Key(),
		Type:        TypeX509,
	}, nil
}

// Put writes the identity under label, replacing any previous file.
func (s *FileSystemStore) Put(_ context.Context, label string, id Identity) error {
	if !id.Valid() {
		return ErrInvalidIdentity
	}
	if err := s.wallet.Put(label, gateway.NewX509Identity(id.MSPID, id.Certificate, id.PrivateKey)); err != nil {
		return errors.Wrapf(err, "write identity %s", label)
	}
	return nil
}

// List returns the stored labels.
func (s *FileSystemStore) List(_ context.Context) ([]string, error) {
	labels, err := s.wallet.List()
	if err != nil {
		return nil, errors.Wrap(err, "list wallet")
	}
	return labels, nil
}
