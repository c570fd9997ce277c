package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrIdentityNotFound is returned when no identity is stored under a label.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidIdentity rejects identities missing MSP ID, certificate or key.
	ErrInvalidIdentity = errors.New("identity is missing credential material")
)

// Store persists identities keyed by label. Backends are swappable without
// touching the provisioner or the gateway.
type Store interface {
	Get(ctx context.Context, label string) (Identity, error)
	Put(ctx context.Context, label string, id Identity) error
	List(ctx context.Context) ([]string, error)
}

// Exists reports whether an identity is stored under label. Lookup failures
// other than absence are returned as errors.
func Exists(ctx context.Context, s Store, label string) (bool, error) {
	_, err := s.Get(ctx, label)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrIdentityNotFound):
		return false, nil
	default:
		return false, err
	}
}

const identitiesSchema = `
CREATE TABLE IF NOT EXISTS wallet_identities (
    id          UUID PRIMARY KEY,
    label       TEXT NOT NULL UNIQUE,
    msp_id      TEXT NOT NULL,
    id_type     TEXT NOT NULL,
    certificate TEXT NOT NULL,
    sealed_key  BYTEA NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL
)`

// PostgresStore keeps identities in PostgreSQL with private keys sealed at rest.
type PostgresStore struct {
	db     *pgxpool.Pool
	sealer *Sealer
}

// NewPostgresStore builds a Postgres-backed identity store.
func NewPostgresStore(db *pgxpool.Pool, sealer *Sealer) *PostgresStore {
	return &PostgresStore{db: db, sealer: sealer}
}

// EnsureSchema creates the identities table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, identitiesSchema)
	return err
}

// Get loads and unseals the identity stored under label.
func (s *PostgresStore) Get(ctx context.Context, label string) (Identity, error) {
	row := s.db.QueryRow(ctx, `SELECT label, msp_id, id_type, certificate, sealed_key
        FROM wallet_identities WHERE label = $1`, label)
	var (
		id     Identity
		sealed []byte
	)
	if err := row.Scan(&id.Label, &id.MSPID, &id.Type, &id.Certificate, &sealed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrIdentityNotFound
		}
		return Identity{}, err
	}
	key, err := s.sealer.Open(sealed)
	if err != nil {
		return Identity{}, fmt.Errorf("unseal key for %s: %w", label, err)
	}
	id.PrivateKey = string(key)
	return id, nil
}

// Put seals the private key and stores the identity, replacing any previous
// entry for the label.
func (s *PostgresStore) Put(ctx context.Context, label string, id Identity) error {
	if !id.Valid() {
		return ErrInvalidIdentity
	}
	if id.Type == "" {
		id.Type = TypeX509
	}
	sealed, err := s.sealer.Seal([]byte(id.PrivateKey))
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallet_identities (id, label, msp_id, id_type, certificate, sealed_key, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (label) DO UPDATE SET msp_id = EXCLUDED.msp_id, id_type = EXCLUDED.id_type,
            certificate = EXCLUDED.certificate, sealed_key = EXCLUDED.sealed_key`,
		uuid.New(), label, id.MSPID, id.Type, id.Certificate, sealed, time.Now().UTC())
	return err
}

// List returns all stored labels in lexical order.
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT label FROM wallet_identities ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var labels []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}
