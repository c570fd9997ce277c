package identity

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/logging"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/wallet"
)

const testCert = "-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n"

type stubCA struct {
	registrar  wallet.Identity
	registered Registration
	enrolled   string
	failWith   error
}

func (s *stubCA) Register(_ context.Context, registrar wallet.Identity, req Registration) (string, error) {
	if s.failWith != nil {
		return "", s.failWith
	}
	s.registrar = registrar
	s.registered = req
	return "s3cret", nil
}

func (s *stubCA) Enroll(_ context.Context, enrollmentID, secret string) (Enrollment, error) {
	if secret != "s3cret" {
		return Enrollment{}, errors.New("bad secret")
	}
	s.enrolled = enrollmentID
	return Enrollment{Certificate: "enrolled-cert", PrivateKey: "enrolled-key"}, nil
}

func writeMSP(t *testing.T, certName string, keyNames ...string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "signcerts"), 0o700); err != nil {
		t.Fatalf("mkdir signcerts: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "keystore"), 0o700); err != nil {
		t.Fatalf("mkdir keystore: %v", err)
	}
	if certName != "" {
		if err := os.WriteFile(filepath.Join(dir, "signcerts", certName), []byte(testCert), 0o600); err != nil {
			t.Fatalf("write cert: %v", err)
		}
	}
	for _, name := range keyNames {
		if err := os.WriteFile(filepath.Join(dir, "keystore", name), []byte("key:"+name), 0o600); err != nil {
			t.Fatalf("write key: %v", err)
		}
	}
	return dir
}

func TestImportIdentity(t *testing.T) {
	ctx := context.Background()
	store := wallet.NewMemoryStore()
	p := NewProvisioner(store, nil, "Org1MSP", logging.Discard())

	msp := writeMSP(t, "cert.pem", ".hidden", "b_sk", "a_sk")
	id, err := p.ImportIdentity(ctx, "admin", filepath.Join(msp, "signcerts", "cert.pem"), filepath.Join(msp, "keystore"))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if id.PrivateKey != "key:a_sk" {
		t.Fatalf("expected first visible key file, got %q", id.PrivateKey)
	}

	stored, err := store.Get(ctx, "admin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.MSPID != "Org1MSP" || stored.Certificate != testCert || stored.Type != wallet.TypeX509 {
		t.Fatalf("unexpected stored identity %+v", stored)
	}
}

func TestImportIdentityMissingFiles(t *testing.T) {
	ctx := context.Background()
	p := NewProvisioner(wallet.NewMemoryStore(), nil, "Org1MSP", logging.Discard())
	msp := writeMSP(t, "cert.pem", "a_sk")

	_, err := p.ImportIdentity(ctx, "admin", filepath.Join(msp, "signcerts", "missing.pem"), filepath.Join(msp, "keystore"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected file not found for cert, got %v", err)
	}

	_, err = p.ImportIdentity(ctx, "admin", filepath.Join(msp, "signcerts", "cert.pem"), filepath.Join(msp, "nokeys"))
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected file not found for keystore, got %v", err)
	}
}

func TestImportIdentityEmptyKeystore(t *testing.T) {
	p := NewProvisioner(wallet.NewMemoryStore(), nil, "Org1MSP", logging.Discard())
	msp := writeMSP(t, "cert.pem", ".DS_Store")

	_, err := p.ImportIdentity(context.Background(), "admin", filepath.Join(msp, "signcerts", "cert.pem"), filepath.Join(msp, "keystore"))
	if !errors.Is(err, ErrEmptyKeystore) {
		t.Fatalf("expected empty keystore, got %v", err)
	}
}

func TestImportFromMSPFallsBackToNamedCert(t *testing.T) {
	store := wallet.NewMemoryStore()
	p := NewProvisioner(store, nil, "Org1MSP", logging.Discard())
	msp := writeMSP(t, "Admin@org1.example.com-cert.pem", "a_sk")

	if _, err := p.ImportFromMSP(context.Background(), "appUser", msp, "cert.pem", "Admin@org1.example.com-cert.pem"); err != nil {
		t.Fatalf("import from msp: %v", err)
	}
	if _, err := store.Get(context.Background(), "appUser"); err != nil {
		t.Fatalf("expected appUser stored: %v", err)
	}
}

func TestEnrollAppUser(t *testing.T) {
	ctx := context.Background()
	store := wallet.NewMemoryStore()
	ca := &stubCA{}
	p := NewProvisioner(store, ca, "Org1MSP", logging.Discard())

	if err := store.Put(ctx, "admin", wallet.Identity{MSPID: "Org1MSP", Certificate: "admin-cert", PrivateKey: "admin-key"}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	outcome, err := p.EnrollAppUser(ctx, EnrollRequest{Label: "appUser", AdminLabel: "admin"})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if outcome != Enrolled {
		t.Fatalf("expected enrolled got %s", outcome)
	}
	if ca.registrar.Label != "admin" || ca.registered.Role != "client" || ca.registered.Affiliation != "org1.department1" {
		t.Fatalf("unexpected registration %+v by %+v", ca.registered, ca.registrar)
	}

	user, err := store.Get(ctx, "appUser")
	if err != nil {
		t.Fatalf("get appUser: %v", err)
	}
	if user.Certificate != "enrolled-cert" || user.PrivateKey != "enrolled-key" {
		t.Fatalf("unexpected enrolled identity %+v", user)
	}

	ca.failWith = errors.New("should not be called")
	outcome, err = p.EnrollAppUser(ctx, EnrollRequest{Label: "appUser", AdminLabel: "admin"})
	if err != nil {
		t.Fatalf("second enroll: %v", err)
	}
	if outcome != AlreadyEnrolled {
		t.Fatalf("expected already enrolled got %s", outcome)
	}
}

func TestEnrollAppUserMissingAdmin(t *testing.T) {
	p := NewProvisioner(wallet.NewMemoryStore(), &stubCA{}, "Org1MSP", logging.Discard())

	_, err := p.EnrollAppUser(context.Background(), EnrollRequest{Label: "appUser", AdminLabel: "admin"})
	if !errors.Is(err, ErrMissingAdmin) {
		t.Fatalf("expected missing admin, got %v", err)
	}
}

func TestSKIAndSeedCredentialStore(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	ski, err := SKI(keyPEM)
	if err != nil {
		t.Fatalf("ski: %v", err)
	}
	want := sha256.Sum256(elliptic.Marshal(elliptic.P256(), key.X, key.Y))
	if hex.EncodeToString(ski) != hex.EncodeToString(want[:]) {
		t.Fatalf("ski mismatch")
	}

	users := filepath.Join(t.TempDir(), "users")
	keys := filepath.Join(t.TempDir(), "keystore")
	if err := SeedCredentialStore(users, keys, "admin", "Org1MSP", []byte(testCert), keyPEM); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(users, "admin@Org1MSP-cert.pem")); err != nil {
		t.Fatalf("expected seeded cert: %v", err)
	}
	got, err := ReadKey(keys, ski)
	if err != nil {
		t.Fatalf("read key: %v", err)
	}
	if string(got) != string(keyPEM) {
		t.Fatalf("seeded key mismatch")
	}
}
