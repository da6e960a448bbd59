package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pteich/elastic-status-history/elastic"
)

const (
	DefaultIndex    = "product_status_history"
	DefaultPageSize = 1000
)

// DuplicatePolicy decides what happens when a record is appended for an
// entity and timestamp that already has one.
type DuplicatePolicy int

const (
	// DuplicateReject fails the append with ErrDuplicateRecord.
	DuplicateReject DuplicatePolicy = iota
	// DuplicateOverwrite replaces the earlier record. Repeated backfills are idempotent.
	DuplicateOverwrite
	// DuplicateKeep stores both records; the one appended last wins on resolution.
	DuplicateKeep
)

// ParseDuplicatePolicy maps the config names overwrite, reject and keep.
func ParseDuplicatePolicy(name string) (DuplicatePolicy, error) {
	switch name {
	case "", "reject":
		return DuplicateReject, nil
	case "overwrite":
		return DuplicateOverwrite, nil
	case "keep":
		return DuplicateKeep, nil
	default:
		return 0, fmt.Errorf("unknown duplicate policy %q", name)
	}
}

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateOverwrite:
		return "overwrite"
	case DuplicateKeep:
		return "keep"
	default:
		return "reject"
	}
}

// Mapping declares the history fields as exact-match, sortable keywords.
var Mapping = elastic.Mapping{
	"entityId":  "keyword",
	"status":    "keyword",
	"timestamp": "keyword",
	"seq":       "long",
}

var historySort = []elastic.SortField{
	{Field: "timestamp"},
	{Field: "seq"},
}

// Store is the append-only status log of all entities in one index.
type Store struct {
	client   elastic.Client
	index    string
	policy   DuplicatePolicy
	pageSize int
	clock    func() time.Time
	lastSeq  atomic.Int64
}

type StoreOption func(*Store)

func WithIndex(index string) StoreOption {
	return func(s *Store) {
		if index != "" {
			s.index = index
		}
	}
}

func WithDuplicatePolicy(p DuplicatePolicy) StoreOption {
	return func(s *Store) {
		s.policy = p
	}
}

func WithPageSize(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithClock sets the clock used to stamp the append sequence.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.clock = clock
	}
}

func NewStore(client elastic.Client, opts ...StoreOption) *Store {
	s := &Store{
		client:   client,
		index:    DefaultIndex,
		pageSize: DefaultPageSize,
		policy:   DuplicateReject,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Index() string {
	return s.index
}

// EnsureIndex creates the history index unless it already exists.
func (s *Store) EnsureIndex(ctx context.Context) error {
	if _, err := s.client.EnsureIndex(ctx, s.index, Mapping); err != nil {
		return fmt.Errorf("%w: ensure index %s: %w", ErrPersistence, s.index, err)
	}
	return nil
}

// Reset drops the history index with all records and creates it again.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.client.DeleteIndex(ctx, s.index); err != nil {
		return fmt.Errorf("%w: delete index %s: %w", ErrPersistence, s.index, err)
	}
	return s.EnsureIndex(ctx)
}

// Append persists a new record and returns its document id.
func (s *Store) Append(ctx context.Context, entityID, status string, ts time.Time) (string, error) {
	rec, err := NewRecord(entityID, status, ts)
	if err != nil {
		return "", err
	}
	rec.Seq = s.nextSeq()

	id := rec.ID()
	mode := elastic.PutUpsert
	switch s.policy {
	case DuplicateReject:
		mode = elastic.PutCreate
	case DuplicateKeep:
		id += "_" + uuid.NewString()
		mode = elastic.PutCreate
	}

	err = s.client.Put(ctx, s.index, id, toDocument(rec), mode)
	if err != nil {
		if s.policy == DuplicateReject && errors.Is(err, elastic.ErrConflict) {
			return "", fmt.Errorf("%w: %s", ErrDuplicateRecord, id)
		}
		return "", fmt.Errorf("%w: append %s: %w", ErrPersistence, id, err)
	}

	return id, nil
}

// AllRecords returns the complete history of an entity ascending by time.
// An unknown entity yields an empty slice.
func (s *Store) AllRecords(ctx context.Context, entityID string) ([]Record, error) {
	return s.records(ctx, elastic.SearchRequest{
		Terms: map[string]string{"entityId": entityID},
		Sort:  historySort,
	})
}

// RecordsAtOrBefore returns the records of an entity with a timestamp at or
// before t, ascending by time. The bound is evaluated by the document store.
func (s *Store) RecordsAtOrBefore(ctx context.Context, entityID string, t time.Time) ([]Record, error) {
	t = t.UTC()
	if t.Before(minTimestamp) {
		return []Record{}, nil
	}
	if t.After(maxTimestamp) {
		t = maxTimestamp
	}

	return s.records(ctx, elastic.SearchRequest{
		Terms:  map[string]string{"entityId": entityID},
		Ranges: []elastic.Range{{Field: "timestamp", Lte: FormatTimestamp(t)}},
		Sort:   historySort,
	})
}

// Count returns the number of records stored for an entity.
func (s *Store) Count(ctx context.Context, entityID string) (int64, error) {
	n, err := s.client.Count(ctx, s.index, elastic.SearchRequest{
		Terms: map[string]string{"entityId": entityID},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count %s: %w", ErrPersistence, entityID, err)
	}
	return n, nil
}

func (s *Store) records(ctx context.Context, req elastic.SearchRequest) ([]Record, error) {
	scroll := s.client.Scroll(s.index, s.pageSize, req)
	defer func() { _ = scroll.Clear(context.WithoutCancel(ctx)) }()

	records := []Record{}
	for {
		result, err := scroll.Do(ctx)
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: query %s: %w", ErrPersistence, s.index, err)
		}

		for _, hit := range result.Hits() {
			var doc document
			if err := json.Unmarshal(hit.GetSource(), &doc); err != nil {
				return nil, fmt.Errorf("%w: decode %s: %w", ErrPersistence, hit.GetID(), err)
			}
			rec, err := doc.record()
			if err != nil {
				return nil, fmt.Errorf("%w: decode %s: %w", ErrPersistence, hit.GetID(), err)
			}
			records = append(records, rec)
		}
	}
}

// nextSeq is the clock in nanoseconds, bumped so it never repeats within this Store.
func (s *Store) nextSeq() int64 {
	now := s.clock().UnixNano()
	for {
		last := s.lastSeq.Load()
		next := now
		if next <= last {
			next = last + 1
		}
		if s.lastSeq.CompareAndSwap(last, next) {
			return next
		}
	}
}
