package elastic

import (
	"context"
	"errors"
)

var (
	// ErrConflict is returned by Put in PutCreate mode when the id already exists.
	ErrConflict = errors.New("document already exists")
	// ErrIndexNotFound is returned when an operation targets a missing index.
	ErrIndexNotFound = errors.New("index not found")
)

// PutMode selects how Put treats an existing document with the same id.
type PutMode int

const (
	PutUpsert PutMode = iota
	PutCreate
)

// Client is the document store used by the history and catalog packages.
// All backends (v7, v8, v9, sqlite) implement it.
type Client interface {
	EnsureIndex(ctx context.Context, index string, mapping Mapping) (bool, error)
	DeleteIndex(ctx context.Context, index string) error
	Put(ctx context.Context, index, id string, doc any, mode PutMode) error
	Search(ctx context.Context, index string, req SearchRequest) (SearchResult, error)
	Count(ctx context.Context, index string, req SearchRequest) (int64, error)
	Scroll(index string, size int, req SearchRequest) ScrollService
	Stop()
}

// ScrollService pages through all hits of a request. Do returns io.EOF once drained.
type ScrollService interface {
	Do(ctx context.Context) (SearchResult, error)
	Clear(ctx context.Context) error
}

type SearchResult interface {
	Hits() []SearchHit
	Total() int64
}

type SearchHit interface {
	GetID() string
	GetSource() []byte
}

// Mapping lists field name to field type (keyword, long, text, double ...).
type Mapping map[string]string

// Body renders the mapping as an index creation body.
func (m Mapping) Body() map[string]any {
	props := make(map[string]any, len(m))
	for field, typ := range m {
		props[field] = map[string]any{"type": typ}
	}
	return map[string]any{
		"mappings": map[string]any{
			"properties": props,
		},
	}
}

// Range is an inclusive range filter on a field. Empty bounds are open.
type Range struct {
	Field string
	Gte   string
	Lte   string
}

// TextQuery is a query_string query over one or more fields.
type TextQuery struct {
	Query  string
	Fields []string
}

type SortField struct {
	Field string
	Desc  bool
}

// SearchRequest describes a filtered, sorted and limited search.
// An empty request matches all documents.
type SearchRequest struct {
	Terms  map[string]string
	Ranges []Range
	Text   *TextQuery
	Sort   []SortField
	Size   int
}

// Hit is a plain SearchHit implementation shared by the backends.
type Hit struct {
	ID     string
	Source []byte
}

func (h Hit) GetID() string {
	return h.ID
}

func (h Hit) GetSource() []byte {
	return h.Source
}

// Result is a plain SearchResult implementation shared by the backends.
type Result struct {
	HitList []SearchHit
	Count   int64
}

func (r *Result) Hits() []SearchHit {
	return r.HitList
}

func (r *Result) Total() int64 {
	return r.Count
}
