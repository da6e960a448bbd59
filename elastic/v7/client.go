package v7

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/olivere/elastic/v7"

	elasticsearch "github.com/pteich/elastic-status-history/elastic"
)

type Client struct {
	client  *elastic.Client
	refresh string
}

type ScrollService struct {
	scroll *elastic.ScrollService
}

func NewClient(esOpts []elastic.ClientOptionFunc) (*Client, error) {
	client, err := elastic.NewClient(esOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, refresh: "wait_for"}, nil
}

// WithRefresh sets the refresh parameter sent with every write ("true", "false" or "wait_for").
func (c *Client) WithRefresh(refresh string) *Client {
	c.refresh = refresh
	return c
}

func (c *Client) EnsureIndex(ctx context.Context, index string, mapping elasticsearch.Mapping) (bool, error) {
	exists, err := c.client.IndexExists(index).Do(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	_, err = c.client.CreateIndex(index).BodyJson(mapping.Body()).Do(ctx)
	if err != nil {
		if e, ok := err.(*elastic.Error); ok && e.Details != nil && e.Details.Type == "resource_already_exists_exception" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	_, err := c.client.DeleteIndex(index).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return err
	}
	return nil
}

func (c *Client) Put(ctx context.Context, index, id string, doc any, mode elasticsearch.PutMode) error {
	svc := c.client.Index().Index(index).Id(id).BodyJson(doc).Refresh(c.refresh)
	if mode == elasticsearch.PutCreate {
		svc = svc.OpType("create")
	}

	_, err := svc.Do(ctx)
	return mapError(err)
}

func (c *Client) Search(ctx context.Context, index string, req elasticsearch.SearchRequest) (elasticsearch.SearchResult, error) {
	svc := c.client.Search(index).Query(buildQuery(req)).SortBy(buildSorters(req)...)
	if req.Size > 0 {
		svc = svc.Size(req.Size)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toResult(res), nil
}

func (c *Client) Count(ctx context.Context, index string, req elasticsearch.SearchRequest) (int64, error) {
	count, err := c.client.Count(index).Query(buildQuery(req)).Do(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

func (c *Client) Scroll(index string, size int, req elasticsearch.SearchRequest) elasticsearch.ScrollService {
	return &ScrollService{
		scroll: c.client.Scroll(index).Size(size).Query(buildQuery(req)).SortBy(buildSorters(req)...),
	}
}

func (c *Client) Stop() {
	c.client.Stop()
}

// Do returns io.EOF once all results have been retrieved, as the olivere client does.
func (s *ScrollService) Do(ctx context.Context) (elasticsearch.SearchResult, error) {
	results, err := s.scroll.Do(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toResult(results), nil
}

func (s *ScrollService) Clear(ctx context.Context) error {
	return s.scroll.Clear(ctx)
}

func toResult(res *elastic.SearchResult) *elasticsearch.Result {
	result := &elasticsearch.Result{}
	if res.Hits == nil {
		return result
	}
	if res.Hits.TotalHits != nil {
		result.Count = res.Hits.TotalHits.Value
	}
	result.HitList = make([]elasticsearch.SearchHit, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		result.HitList = append(result.HitList, elasticsearch.Hit{ID: hit.Id, Source: hit.Source})
	}
	return result
}

func buildQuery(req elasticsearch.SearchRequest) elastic.Query {
	if len(req.Terms) == 0 && len(req.Ranges) == 0 && req.Text == nil {
		return elastic.NewMatchAllQuery()
	}

	q := elastic.NewBoolQuery()

	fields := make([]string, 0, len(req.Terms))
	for field := range req.Terms {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		q = q.Filter(elastic.NewTermQuery(field, req.Terms[field]))
	}

	for _, r := range req.Ranges {
		rq := elastic.NewRangeQuery(r.Field)
		if r.Gte != "" {
			rq = rq.Gte(r.Gte)
		}
		if r.Lte != "" {
			rq = rq.Lte(r.Lte)
		}
		q = q.Filter(rq)
	}

	if req.Text != nil {
		qs := elastic.NewQueryStringQuery(req.Text.Query)
		for _, field := range req.Text.Fields {
			qs = qs.Field(field)
		}
		q = q.Must(qs)
	}

	return q
}

func buildSorters(req elasticsearch.SearchRequest) []elastic.Sorter {
	sorters := make([]elastic.Sorter, 0, len(req.Sort))
	for _, s := range req.Sort {
		fs := elastic.NewFieldSort(s.Field)
		if s.Desc {
			fs = fs.Desc()
		} else {
			fs = fs.Asc()
		}
		sorters = append(sorters, fs)
	}
	return sorters
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case elastic.IsConflict(err):
		return fmt.Errorf("%w: %v", elasticsearch.ErrConflict, err)
	case elastic.IsNotFound(err):
		return fmt.Errorf("%w: %v", elasticsearch.ErrIndexNotFound, err)
	default:
		return err
	}
}

func SetHttpClient(httpClient *http.Client) elastic.ClientOptionFunc {
	return elastic.SetHttpClient(httpClient)
}

func SetURL(urls ...string) elastic.ClientOptionFunc {
	return elastic.SetURL(urls...)
}

func SetSniff(enabled bool) elastic.ClientOptionFunc {
	return elastic.SetSniff(enabled)
}

func SetHealthcheckInterval(interval time.Duration) elastic.ClientOptionFunc {
	return elastic.SetHealthcheckInterval(interval)
}

func SetErrorLog(logger *log.Logger) elastic.ClientOptionFunc {
	return elastic.SetErrorLog(logger)
}

func SetTraceLog(logger *log.Logger) elastic.ClientOptionFunc {
	return elastic.SetTraceLog(logger)
}

func SetBasicAuth(username, password string) elastic.ClientOptionFunc {
	return elastic.SetBasicAuth(username, password)
}
