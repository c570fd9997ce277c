package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"idhash/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("idhash.contract")

// Events emitted on successful writes. The payload is the stored metadata.
const (
	EventStored  = "IDHashStored"
	EventUpdated = "IDHashUpdated"
)

const maxUserIDLength = 256

// IDHashContract keeps one file fingerprint per user ID in world state.
// Clients rely on the exact "record <id> does not exist" and
// "record <id> already exists" error texts.
// @contract:IDHashContract
type IDHashContract struct {
	contractapi.Contract
}

// StoreIDHash creates the record for userID. It fails if one already exists.
func (c *IDHashContract) StoreIDHash(ctx contractapi.TransactionContextInterface, userID, metadata string) error {
	logger.Infof("Chaincode Call: StoreIDHash for '%s'", userID)
	payload, err := validate(userID, metadata)
	if err != nil {
		return err
	}

	exists, err := recordExists(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("record %s already exists", userID)
	}
	return put(ctx, userID, payload, EventStored)
}

// UpdateIDHash replaces the record for userID. It fails if none exists.
func (c *IDHashContract) UpdateIDHash(ctx contractapi.TransactionContextInterface, userID, metadata string) error {
	logger.Infof("Chaincode Call: UpdateIDHash for '%s'", userID)
	payload, err := validate(userID, metadata)
	if err != nil {
		return err
	}

	exists, err := recordExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("record %s does not exist", userID)
	}
	return put(ctx, userID, payload, EventUpdated)
}

// QueryIDHash returns the stored metadata JSON for userID.
func (c *IDHashContract) QueryIDHash(ctx contractapi.TransactionContextInterface, userID string) (string, error) {
	logger.Debugf("Chaincode Call: QueryIDHash for '%s'", userID)
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("userID must not be empty")
	}
	stored, err := ctx.GetStub().GetState(userID)
	if err != nil {
		return "", fmt.Errorf("failed to read record %s: %w", userID, err)
	}
	if stored == nil {
		return "", fmt.Errorf("record %s does not exist", userID)
	}
	return string(stored), nil
}

func validate(userID, metadata string) ([]byte, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("userID must not be empty")
	}
	if len(userID) > maxUserIDLength {
		return nil, fmt.Errorf("userID exceeds %d characters", maxUserIDLength)
	}

	var rec model.HashRecord
	if err := json.Unmarshal([]byte(metadata), &rec); err != nil {
		return nil, fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("metadata userId %q does not match key %q", rec.UserID, userID)
	}
	if rec.Hash == "" {
		return nil, errors.New("metadata hash must not be empty")
	}
	return []byte(metadata), nil
}

func recordExists(ctx contractapi.TransactionContextInterface, userID string) (bool, error) {
	stored, err := ctx.GetStub().GetState(userID)
	if err != nil {
		return false, fmt.Errorf("failed to read record %s: %w", userID, err)
	}
	return stored != nil, nil
}

func put(ctx contractapi.TransactionContextInterface, userID string, payload []byte, event string) error {
	if err := ctx.GetStub().PutState(userID, payload); err != nil {
		return fmt.Errorf("failed to write record %s: %w", userID, err)
	}
	if err := ctx.GetStub().SetEvent(event, payload); err != nil {
		logger.Warningf("failed to emit %s for '%s': %v", event, userID, err)
	}
	return nil
}
