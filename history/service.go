package history

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Service answers history and as-of questions on top of a Store.
type Service struct {
	store  *Store
	now    func() time.Time
	logger *zap.Logger
}

type ServiceOption func(*Service)

// WithNow sets the clock used by RecordStatusChange.
func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(store *Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Store() *Store {
	return s.store
}

// RecordStatusChange records a status change happening now.
func (s *Service) RecordStatusChange(ctx context.Context, entityID, status string) (string, error) {
	return s.RecordStatusChangeAt(ctx, entityID, status, s.now())
}

// RecordStatusChangeAt records a status change with an explicit timestamp.
func (s *Service) RecordStatusChangeAt(ctx context.Context, entityID, status string, ts time.Time) (string, error) {
	id, err := s.store.Append(ctx, entityID, status, ts)
	if err != nil {
		return "", err
	}

	s.logger.Debug("status change recorded",
		zap.String("entity", entityID),
		zap.String("status", status),
		zap.Time("timestamp", ts),
		zap.String("id", id),
	)
	return id, nil
}

// StatusAt returns the status an entity had at time t. found is false if
// the entity had no status yet, which is not an error.
func (s *Service) StatusAt(ctx context.Context, entityID string, t time.Time) (status string, found bool, err error) {
	records, err := s.store.RecordsAtOrBefore(ctx, entityID, t)
	if err != nil {
		return "", false, err
	}

	status, found = Resolve(records, t)
	s.logger.Debug("status resolved",
		zap.String("entity", entityID),
		zap.Time("at", t),
		zap.Int("candidates", len(records)),
		zap.Bool("found", found),
		zap.String("status", status),
	)
	return status, found, nil
}

// FullHistory returns all status changes of an entity ascending by time.
func (s *Service) FullHistory(ctx context.Context, entityID string) ([]Entry, error) {
	records, err := s.store.AllRecords(ctx, entityID)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		entries = append(entries, r.Entry())
	}
	return entries, nil
}
