package elastic

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchBody(t *testing.T) {
	tests := []struct {
		name string
		req  SearchRequest
		want string
	}{
		{
			name: "empty request matches all",
			req:  SearchRequest{},
			want: `{"query":{"match_all":{}}}`,
		},
		{
			name: "history as of",
			req: SearchRequest{
				Terms:  map[string]string{"entityId": "1"},
				Ranges: []Range{{Field: "timestamp", Lte: "2025-04-10T14:00:00.000000000Z"}},
				Sort:   []SortField{{Field: "timestamp"}, {Field: "seq"}},
			},
			want: `{
				"query":{"bool":{"filter":[
					{"term":{"entityId":{"value":"1"}}},
					{"range":{"timestamp":{"lte":"2025-04-10T14:00:00.000000000Z"}}}
				]}},
				"sort":[{"timestamp":{"order":"asc"}},{"seq":{"order":"asc"}}]
			}`,
		},
		{
			name: "text search",
			req: SearchRequest{
				Text: &TextQuery{Query: "*phone*", Fields: []string{"name", "description"}},
				Sort: []SortField{{Field: "price", Desc: true}},
			},
			want: `{
				"query":{"bool":{"must":[{"query_string":{"query":"*phone*","fields":["name","description"]}}]}},
				"sort":[{"price":{"order":"desc"}}]
			}`,
		},
		{
			name: "terms are ordered by field",
			req:  SearchRequest{Terms: map[string]string{"status": "New", "entityId": "7"}},
			want: `{"query":{"bool":{"filter":[
				{"term":{"entityId":{"value":"7"}}},
				{"term":{"status":{"value":"New"}}}
			]}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(BuildSearchBody(tt.req))
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestBuildCountBodyHasNoSort(t *testing.T) {
	body := BuildCountBody(SearchRequest{Sort: []SortField{{Field: "timestamp"}}})
	_, ok := body["sort"]
	assert.False(t, ok)
}

func TestRangeQueryBothBounds(t *testing.T) {
	got, err := json.Marshal(NewRangeQuery("timestamp").Gte("a").Lte("b").Build())
	require.NoError(t, err)
	assert.JSONEq(t, `{"range":{"timestamp":{"gte":"a","lte":"b"}}}`, string(got))
}

func TestMappingBody(t *testing.T) {
	got, err := json.Marshal(Mapping{"entityId": "keyword"}.Body())
	require.NoError(t, err)
	assert.JSONEq(t, `{"mappings":{"properties":{"entityId":{"type":"keyword"}}}}`, string(got))
}

func TestDecodeSearchResponse(t *testing.T) {
	body := `{
		"_scroll_id":"abc",
		"hits":{"total":{"value":2,"relation":"eq"},"hits":[
			{"_id":"1_x","_source":{"status":"New"}},
			{"_id":"1_y","_source":{"status":"Old"}}
		]}
	}`

	result, scrollID, err := DecodeSearchResponse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "abc", scrollID)
	assert.EqualValues(t, 2, result.Total())
	require.Len(t, result.Hits(), 2)
	assert.Equal(t, "1_y", result.Hits()[1].GetID())
	assert.JSONEq(t, `{"status":"Old"}`, string(result.Hits()[1].GetSource()))

	_, _, err = DecodeSearchResponse(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestDecodeCountResponse(t *testing.T) {
	n, err := DecodeCountResponse(strings.NewReader(`{"count":42,"_shards":{}}`))
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
}
