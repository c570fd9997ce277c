package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/gateway"
)

// InMemoryContract mimics the id-cc contract over a map. It doubles as a
// gateway.Connector so the service can run without a network in development
// and tests.
type InMemoryContract struct {
	mu       sync.RWMutex
	records  map[string][]byte
	failWith error
	open     int
	sessions int
}

// NewInMemory creates a concurrency-safe in-memory contract.
func NewInMemory() *InMemoryContract {
	return &InMemoryContract{records: make(map[string][]byte)}
}

var _ gateway.Connector = (*InMemoryContract)(nil)

// Connect hands out the contract itself and tracks open sessions.
func (c *InMemoryContract) Connect(ctx context.Context) (gateway.Contract, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	c.mu.Lock()
	c.open++
	c.sessions++
	c.mu.Unlock()

	release := gateway.ReleaseOnce(func() {
		c.mu.Lock()
		c.open--
		c.mu.Unlock()
	})
	return c, release, nil
}

// EvaluateTransaction serves QueryIDHash. Transaction names match without
// regard to case so either naming convention works against it.
func (c *InMemoryContract) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.failWith != nil {
		return nil, c.failWith
	}
	if !strings.EqualFold(name, TxQuery) {
		return nil, fmt.Errorf("unknown read transaction %s", name)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("%s expects 1 argument, got %d", name, len(args))
	}
	stored, ok := c.records[args[0]]
	if !ok {
		return nil, errors.New(notFoundText(args[0]))
	}
	return append([]byte(nil), stored...), nil
}

// SubmitTransaction serves StoreIDHash and UpdateIDHash.
func (c *InMemoryContract) SubmitTransaction(name string, args ...string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return nil, c.failWith
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("%s expects 2 arguments, got %d", name, len(args))
	}
	userID, metadata := args[0], args[1]

	var rec HashRecord
	if err := json.Unmarshal([]byte(metadata), &rec); err != nil {
		return nil, fmt.Errorf("metadata is not valid JSON: %w", err)
	}
	if rec.UserID != userID {
		return nil, fmt.Errorf("metadata userId %q does not match key %q", rec.UserID, userID)
	}

	_, exists := c.records[userID]
	switch {
	case strings.EqualFold(name, TxStore):
		if exists {
			return nil, errors.New(existsText(userID))
		}
	case strings.EqualFold(name, TxUpdate):
		if !exists {
			return nil, errors.New(notFoundText(userID))
		}
	default:
		return nil, fmt.Errorf("unknown write transaction %s", name)
	}
	c.records[userID] = []byte(metadata)
	return nil, nil
}

// FailWith makes every subsequent call return err; nil restores normal behaviour.
func (c *InMemoryContract) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = err
}

// OpenSessions is the number of acquired but unreleased sessions.
func (c *InMemoryContract) OpenSessions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Sessions is the total number of sessions handed out.
func (c *InMemoryContract) Sessions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions
}
