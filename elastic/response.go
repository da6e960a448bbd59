package elastic

import (
	"encoding/json"
	"fmt"
	"io"
)

type searchResponse struct {
	ScrollID string `json:"_scroll_id"`
	Hits     struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// DecodeSearchResponse reads a search or scroll response body as returned
// by the REST API. The scroll id is empty for plain searches.
func DecodeSearchResponse(body io.Reader) (*Result, string, error) {
	var resp searchResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, "", fmt.Errorf("decode search response: %w", err)
	}

	result := &Result{
		HitList: make([]SearchHit, 0, len(resp.Hits.Hits)),
		Count:   resp.Hits.Total.Value,
	}
	for _, hit := range resp.Hits.Hits {
		result.HitList = append(result.HitList, Hit{ID: hit.ID, Source: hit.Source})
	}

	return result, resp.ScrollID, nil
}

// DecodeCountResponse reads the body of a _count response.
func DecodeCountResponse(body io.Reader) (int64, error) {
	var resp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return resp.Count, nil
}
