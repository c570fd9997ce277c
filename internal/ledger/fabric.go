package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/gateway"
)

var tracer = otel.Tracer("ledger")

// Ledger reads and writes HashRecords through the id-cc contract.
type Ledger struct {
	connector gateway.Connector
	tx        Transactions
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithTransactions overrides the contract function names. Empty fields keep
// their defaults.
func WithTransactions(tx Transactions) Option {
	return func(l *Ledger) {
		l.tx = tx.withDefaults()
	}
}

// New builds a ledger client over a connector.
func New(connector gateway.Connector, opts ...Option) *Ledger {
	l := &Ledger{connector: connector, tx: DefaultTransactions()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open acquires a contract handle. Callers must Close the session.
func (l *Ledger) Open(ctx context.Context) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Ledger.Open")
	defer span.End()

	contract, release, err := l.connector.Connect(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("acquire contract: %w", err)
	}
	return &Session{contract: contract, release: release, tx: l.tx}, nil
}

// Session is one short-lived contract handle.
type Session struct {
	contract gateway.Contract
	release  func()
	tx       Transactions
}

// Close releases the underlying gateway session.
func (s *Session) Close() {
	if s.release != nil {
		s.release()
	}
}

// Read fetches the record for userID. A contract-level "does not exist" or an
// empty payload yields StatusNotFound; any other failure, including a payload
// that is not JSON, is an error.
func (s *Session) Read(ctx context.Context, userID string) (Lookup, error) {
	_, span := tracer.Start(ctx, "Ledger.Read", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	payload, err := s.contract.EvaluateTransaction(s.tx.Query, userID)
	if err != nil {
		err = classify(err, userID)
		if errors.Is(err, ErrRecordNotFound) {
			return Lookup{Status: StatusNotFound}, nil
		}
		span.RecordError(err)
		return Lookup{}, fmt.Errorf("query %s: %w", userID, err)
	}
	if len(payload) == 0 {
		return Lookup{Status: StatusNotFound}, nil
	}

	if !json.Valid(payload) {
		err := fmt.Errorf("record %s: payload is not valid JSON", userID)
		span.RecordError(err)
		return Lookup{}, err
	}
	return Lookup{Status: StatusFound, Raw: json.RawMessage(payload)}, nil
}

// Create stores a new record; ErrRecordExists if one is already present.
func (s *Session) Create(ctx context.Context, rec HashRecord) error {
	return s.submit(ctx, "Ledger.Create", s.tx.Store, rec)
}

// Update replaces an existing record; ErrRecordNotFound if there is none.
func (s *Session) Update(ctx context.Context, rec HashRecord) error {
	return s.submit(ctx, "Ledger.Update", s.tx.Update, rec)
}

func (s *Session) submit(ctx context.Context, spanName, tx string, rec HashRecord) error {
	_, span := tracer.Start(ctx, spanName, trace.WithAttributes(attribute.String("user_id", rec.UserID)))
	defer span.End()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if _, err := s.contract.SubmitTransaction(tx, rec.UserID, string(payload)); err != nil {
		err = classify(err, rec.UserID)
		span.RecordError(err)
		return fmt.Errorf("%s %s: %w", tx, rec.UserID, err)
	}
	return nil
}

// classify maps the contract's record errors for userID to typed errors,
// leaving everything else untouched. The match is on the full contract text
// so unrelated "does not exist" failures (channels, chaincode) stay errors.
func classify(err error, userID string) error {
	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		msg = st.Message
	}
	switch {
	case strings.Contains(msg, notFoundText(userID)):
		return fmt.Errorf("%w: %s", ErrRecordNotFound, msg)
	case strings.Contains(msg, existsText(userID)):
		return fmt.Errorf("%w: %s", ErrRecordExists, msg)
	default:
		return err
	}
}
