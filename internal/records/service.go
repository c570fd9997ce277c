package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/userIssa/BLCKCHN-VRFCTN/internal/ledger"
	"github.com/userIssa/BLCKCHN-VRFCTN/internal/notification"
)

var tracer = otel.Tracer("records")

// Service fingerprints uploads and keeps one HashRecord per user on the ledger.
// Every call opens its own ledger session and closes it before returning.
type Service struct {
	ledger   *ledger.Ledger
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a record service. Committed writes are announced
// through notifier; a nil notifier logs them instead.
func NewService(l *ledger.Ledger, notifier notification.Notifier, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notification.NewLoggerNotifier(logger)
	}
	return &Service{
		ledger:   l,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the fingerprint of a first upload for in.UserID.
func (s *Service) Create(ctx context.Context, in Upload) (ledger.HashRecord, error) {
	if err := validate(in); err != nil {
		return ledger.HashRecord{}, err
	}
	ctx, span := tracer.Start(ctx, "Records.Service.Create", trace.WithAttributes(attribute.String("user_id", in.UserID)))
	defer span.End()

	now := s.now()
	rec := ledger.HashRecord{
		UserID:     in.UserID,
		Filename:   in.Filename,
		Hash:       Hash(in.Content),
		UploadedAt: &now,
	}

	session, err := s.ledger.Open(ctx)
	if err != nil {
		span.RecordError(err)
		return ledger.HashRecord{}, err
	}
	defer session.Close()

	lookup, err := session.Read(ctx, in.UserID)
	if err != nil {
		span.RecordError(err)
		return ledger.HashRecord{}, err
	}
	if lookup.Found() {
		return ledger.HashRecord{}, fmt.Errorf("%w: %s", ErrConflict, in.UserID)
	}

	if err := session.Create(ctx, rec); err != nil {
		if errors.Is(err, ledger.ErrRecordExists) {
			return ledger.HashRecord{}, fmt.Errorf("%w: %s", ErrConflict, in.UserID)
		}
		span.RecordError(err)
		return ledger.HashRecord{}, err
	}

	s.logger.Info("records.upload completed",
		slog.String("user_id", rec.UserID),
		slog.String("filename", rec.Filename),
		slog.String("hash", rec.Hash),
	)
	s.notify(ctx, notification.KindHashStored, rec, now)
	return rec, nil
}

// Update replaces the fingerprint for an existing in.UserID.
func (s *Service) Update(ctx context.Context, in Upload) (ledger.HashRecord, error) {
	if err := validate(in); err != nil {
		return ledger.HashRecord{}, err
	}
	ctx, span := tracer.Start(ctx, "Records.Service.Update", trace.WithAttributes(attribute.String("user_id", in.UserID)))
	defer span.End()

	now := s.now()
	rec := ledger.HashRecord{
		UserID:    in.UserID,
		Filename:  in.Filename,
		Hash:      Hash(in.Content),
		UpdatedAt: &now,
	}

	session, err := s.ledger.Open(ctx)
	if err != nil {
		span.RecordError(err)
		return ledger.HashRecord{}, err
	}
	defer session.Close()

	lookup, err := session.Read(ctx, in.UserID)
	if err != nil {
		span.RecordError(err)
		return ledger.HashRecord{}, err
	}
	if !lookup.Found() {
		return ledger.HashRecord{}, fmt.Errorf("%w: %s", ErrNotFound, in.UserID)
	}

	if err := session.Update(ctx, rec); err != nil {
		if errors.Is(err, ledger.ErrRecordNotFound) {
			return ledger.HashRecord{}, fmt.Errorf("%w: %s", ErrNotFound, in.UserID)
		}
		span.RecordError(err)
		return ledger.HashRecord{}, err
	}

	s.logger.Info("records.update completed",
		slog.String("user_id", rec.UserID),
		slog.String("filename", rec.Filename),
		slog.String("hash", rec.Hash),
	)
	s.notify(ctx, notification.KindHashUpdated, rec, now)
	return rec, nil
}

// Query returns the stored record for userID exactly as the contract holds it.
func (s *Service) Query(ctx context.Context, userID string) (json.RawMessage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	ctx, span := tracer.Start(ctx, "Records.Service.Query", trace.WithAttributes(attribute.String("user_id", userID)))
	defer span.End()

	session, err := s.ledger.Open(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer session.Close()

	lookup, err := session.Read(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !lookup.Found() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	return lookup.Raw, nil
}

// notify reports a committed write. Delivery failures are logged, not returned.
func (s *Service) notify(ctx context.Context, kind string, rec ledger.HashRecord, at time.Time) {
	err := s.notifier.Send(ctx, notification.Message{
		Kind:       kind,
		UserID:     rec.UserID,
		Filename:   rec.Filename,
		Hash:       rec.Hash,
		OccurredAt: at,
	})
	if err != nil {
		s.logger.Warn("records notification failed", slog.String("kind", kind), slog.String("user_id", rec.UserID), slog.Any("error", err))
	}
}

func validate(in Upload) error {
	if strings.TrimSpace(in.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	return nil
}
