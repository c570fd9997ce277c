package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRecordNotFound is the contract's explicit "no record for this user" signal.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists is returned when a create races with an existing record.
	ErrRecordExists = errors.New("record already exists")
)

// Transaction names exposed by the bundled id-cc contract.
const (
	TxStore  = "StoreIDHash"
	TxUpdate = "UpdateIDHash"
	TxQuery  = "QueryIDHash"
)

// Transactions names the contract functions the client invokes. Deployments
// of id-cc written against fabric-contract-api in other languages expose
// lower camel case names (storeIDHash, updateIDHash, queryIDHash).
type Transactions struct {
	Store  string `yaml:"store"`
	Update string `yaml:"update"`
	Query  string `yaml:"query"`
}

// DefaultTransactions returns the names exported by the bundled chaincode.
func DefaultTransactions() Transactions {
	return Transactions{Store: TxStore, Update: TxUpdate, Query: TxQuery}
}

func (t Transactions) withDefaults() Transactions {
	d := DefaultTransactions()
	if t.Store == "" {
		t.Store = d.Store
	}
	if t.Update == "" {
		t.Update = d.Update
	}
	if t.Query == "" {
		t.Query = d.Query
	}
	return t
}

// Texts the id-cc contract returns for absent and duplicate records.
func notFoundText(userID string) string {
	return fmt.Sprintf("record %s does not exist", userID)
}

func existsText(userID string) string {
	return fmt.Sprintf("record %s already exists", userID)
}

// HashRecord is the ledger-resident fingerprint of a user's file. Update
// replaces the whole record, so UploadedAt is only present until the first update.
type HashRecord struct {
	UserID     string     `json:"userId"`
	Filename   string     `json:"filename"`
	Hash       string     `json:"hash"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

// Status tags the outcome of a read.
type Status int

const (
	// StatusFound means Lookup.Raw holds the stored record.
	StatusFound Status = iota + 1
	// StatusNotFound means the contract reported no record for the key.
	StatusNotFound
)

// Lookup is the result of a successful read round-trip. Infrastructure
// failures are returned as errors, never as StatusNotFound. Raw is the
// contract payload exactly as stored, so fields written by other clients
// survive a read.
type Lookup struct {
	Status Status
	Raw    json.RawMessage
}

// Found reports whether the lookup produced a record.
func (l Lookup) Found() bool {
	return l.Status == StatusFound
}

// Decode parses Raw into a HashRecord.
func (l Lookup) Decode() (HashRecord, error) {
	var rec HashRecord
	if !l.Found() {
		return rec, ErrRecordNotFound
	}
	if err := json.Unmarshal(l.Raw, &rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
