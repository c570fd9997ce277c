package gateway

import (
	"context"
	"sync"
)

// Contract is a handle to a named smart contract on a channel. Evaluate runs
// a read on one peer; Submit endorses, orders and waits for commit.
type Contract interface {
	EvaluateTransaction(name string, args ...string) ([]byte, error)
	SubmitTransaction(name string, args ...string) ([]byte, error)
}

// Connector acquires a contract handle for one unit of work. The returned
// release func must be called exactly once; extra calls are no-ops.
type Connector interface {
	Connect(ctx context.Context) (Contract, func(), error)
}

// ReleaseOnce wraps fn so that only the first call has any effect.
func ReleaseOnce(fn func()) func() {
	var once sync.Once
	return func() { once.Do(fn) }
}
