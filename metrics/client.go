package metrics

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pteich/elastic-status-history/elastic"
)

// Collectors holds the document store metrics.
type Collectors struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewCollectors creates the collectors and registers them with reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "status_history",
				Name:      "store_requests_total",
				Help:      "Total number of document store requests",
			},
			[]string{"operation", "index", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "status_history",
				Name:      "store_request_duration_seconds",
				Help:      "Document store request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"operation", "index"},
		),
	}
	reg.MustRegister(c.RequestsTotal, c.RequestDuration)
	return c
}

// Client decorates an elastic.Client with request metrics.
type Client struct {
	next elastic.Client
	c    *Collectors
}

func Instrument(next elastic.Client, c *Collectors) *Client {
	return &Client{next: next, c: c}
}

func (m *Client) observe(op, index string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil, errors.Is(err, io.EOF):
	case errors.Is(err, elastic.ErrConflict):
		status = "conflict"
	case errors.Is(err, elastic.ErrIndexNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	m.c.RequestsTotal.WithLabelValues(op, index, status).Inc()
	m.c.RequestDuration.WithLabelValues(op, index).Observe(time.Since(start).Seconds())
}

func (m *Client) EnsureIndex(ctx context.Context, index string, mapping elastic.Mapping) (bool, error) {
	start := time.Now()
	created, err := m.next.EnsureIndex(ctx, index, mapping)
	m.observe("ensure_index", index, start, err)
	return created, err
}

func (m *Client) DeleteIndex(ctx context.Context, index string) error {
	start := time.Now()
	err := m.next.DeleteIndex(ctx, index)
	m.observe("delete_index", index, start, err)
	return err
}

func (m *Client) Put(ctx context.Context, index, id string, doc any, mode elastic.PutMode) error {
	start := time.Now()
	err := m.next.Put(ctx, index, id, doc, mode)
	m.observe("put", index, start, err)
	return err
}

func (m *Client) Search(ctx context.Context, index string, req elastic.SearchRequest) (elastic.SearchResult, error) {
	start := time.Now()
	res, err := m.next.Search(ctx, index, req)
	m.observe("search", index, start, err)
	return res, err
}

func (m *Client) Count(ctx context.Context, index string, req elastic.SearchRequest) (int64, error) {
	start := time.Now()
	n, err := m.next.Count(ctx, index, req)
	m.observe("count", index, start, err)
	return n, err
}

func (m *Client) Scroll(index string, size int, req elastic.SearchRequest) elastic.ScrollService {
	return &scrollService{next: m.next.Scroll(index, size, req), index: index, m: m}
}

func (m *Client) Stop() {
	m.next.Stop()
}

type scrollService struct {
	next  elastic.ScrollService
	index string
	m     *Client
}

func (s *scrollService) Do(ctx context.Context) (elastic.SearchResult, error) {
	start := time.Now()
	res, err := s.next.Do(ctx)
	s.m.observe("scroll", s.index, start, err)
	return res, err
}

func (s *scrollService) Clear(ctx context.Context) error {
	return s.next.Clear(ctx)
}

var _ elastic.Client = (*Client)(nil)
