package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pteich/elastic-status-history/elastic"
)

type doc struct {
	Entity string `json:"entityId"`
	Status string `json:"status"`
	Seq    int    `json:"seq"`
}

func openStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	created, err := s.EnsureIndex(context.Background(), "idx", elastic.Mapping{"entityId": "keyword"})
	require.NoError(t, err)
	require.True(t, created)
	return s
}

func ids(result elastic.SearchResult) []string {
	var out []string
	for _, h := range result.Hits() {
		out = append(out, h.GetID())
	}
	return out
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(" ")
	assert.Error(t, err)
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "docs.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.EnsureIndex(ctx, "idx", nil)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "idx", "a", doc{Entity: "1"}, elastic.PutUpsert))
	s.Stop()

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Stop()
	n, err := s.Count(ctx, "idx", elastic.SearchRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPutModes(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Put(ctx, "idx", "a", doc{Entity: "1", Status: "New"}, elastic.PutCreate))
	err := s.Put(ctx, "idx", "a", doc{Entity: "1", Status: "Old"}, elastic.PutCreate)
	assert.ErrorIs(t, err, elastic.ErrConflict)

	require.NoError(t, s.Put(ctx, "idx", "a", doc{Entity: "1", Status: "Old"}, elastic.PutUpsert))
	res, err := s.Search(ctx, "idx", elastic.SearchRequest{})
	require.NoError(t, err)
	require.Len(t, res.Hits(), 1)
	assert.JSONEq(t, `{"entityId":"1","status":"Old","seq":0}`, string(res.Hits()[0].GetSource()))
}

func TestMissingIndex(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	err := s.Put(ctx, "nope", "a", doc{}, elastic.PutUpsert)
	assert.ErrorIs(t, err, elastic.ErrIndexNotFound)

	_, err = s.Search(ctx, "nope", elastic.SearchRequest{})
	assert.ErrorIs(t, err, elastic.ErrIndexNotFound)

	_, err = s.Count(ctx, "nope", elastic.SearchRequest{})
	assert.ErrorIs(t, err, elastic.ErrIndexNotFound)

	_, err = s.Scroll("nope", 10, elastic.SearchRequest{}).Do(ctx)
	assert.ErrorIs(t, err, elastic.ErrIndexNotFound)
}

func TestSearchFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for i, d := range []doc{
		{Entity: "1", Status: "c", Seq: 3},
		{Entity: "2", Status: "x", Seq: 1},
		{Entity: "1", Status: "a", Seq: 1},
		{Entity: "1", Status: "b", Seq: 2},
	} {
		require.NoError(t, s.Put(ctx, "idx", fmt.Sprintf("d%d", i), d, elastic.PutUpsert))
	}

	res, err := s.Search(ctx, "idx", elastic.SearchRequest{
		Terms:  map[string]string{"entityId": "1"},
		Ranges: []elastic.Range{{Field: "status", Lte: "b"}},
		Sort:   []elastic.SortField{{Field: "seq"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d2", "d3"}, ids(res))

	res, err = s.Search(ctx, "idx", elastic.SearchRequest{
		Sort: []elastic.SortField{{Field: "seq", Desc: true}},
		Size: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d0", "d3"}, ids(res))

	res, err = s.Search(ctx, "idx", elastic.SearchRequest{
		Text: &elastic.TextQuery{Query: "*X*", Fields: []string{"status"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"d1"}, ids(res))

	_, err = s.Search(ctx, "idx", elastic.SearchRequest{Terms: map[string]string{`bad"field`: "1"}})
	assert.Error(t, err)
}

func TestScrollPages(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, "idx", fmt.Sprintf("d%d", i), doc{Entity: "1", Seq: i}, elastic.PutUpsert))
	}

	scroll := s.Scroll("idx", 2, elastic.SearchRequest{Sort: []elastic.SortField{{Field: "seq"}}})
	var pages [][]string
	for {
		res, err := scroll.Do(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		pages = append(pages, ids(res))
	}
	assert.Equal(t, [][]string{{"d0", "d1"}, {"d2", "d3"}, {"d4"}}, pages)

	_, err := scroll.Do(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, scroll.Clear(ctx))
}

func TestDeleteIndex(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Put(ctx, "idx", "a", doc{}, elastic.PutUpsert))
	require.NoError(t, s.DeleteIndex(ctx, "idx"))
	require.NoError(t, s.DeleteIndex(ctx, "idx"))

	_, err := s.Count(ctx, "idx", elastic.SearchRequest{})
	assert.ErrorIs(t, err, elastic.ErrIndexNotFound)

	created, err := s.EnsureIndex(ctx, "idx", nil)
	require.NoError(t, err)
	assert.True(t, created)
	n, err := s.Count(ctx, "idx", elastic.SearchRequest{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTextSearchEscapesWildcards(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	for id, status := range map[string]string{
		"pct":   "50% off",
		"plain": "500 units",
		"under": "a_b",
		"other": "axb",
	} {
		require.NoError(t, s.Put(ctx, "idx", id, doc{Status: status}, elastic.PutUpsert))
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"*50%*", []string{"pct"}},
		{"a_b", []string{"under"}},
		{`*\*`, nil},
		{"50", []string{"pct", "plain"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			res, err := s.Search(ctx, "idx", elastic.SearchRequest{
				Text: &elastic.TextQuery{Query: tt.query, Fields: []string{"status"}},
				Sort: []elastic.SortField{{Field: "status"}},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res))
		})
	}
}
