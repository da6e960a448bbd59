package v8

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/pteich/elastic-status-history/elastic"
)

const defaultRefresh = "wait_for"

type Client struct {
	client  *elasticsearch.Client
	refresh string
}

type ScrollService struct {
	client     *elasticsearch.Client
	index      string
	size       int
	body       map[string]interface{}
	scrollID   string
	scrollTime time.Duration
}

func NewClient(cfg elasticsearch.Config) (*Client, error) {
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, refresh: defaultRefresh}, nil
}

// WithRefresh sets the refresh parameter sent with every write ("true", "false" or "wait_for").
func (c *Client) WithRefresh(refresh string) *Client {
	c.refresh = refresh
	return c
}

func NewConfig(url string, username string, password string, httpClient *http.Client) elasticsearch.Config {
	cfg := elasticsearch.Config{
		Addresses: []string{url},
		Username:  username,
		Password:  password,
	}
	if httpClient != nil {
		cfg.Transport = httpClient.Transport
	}
	return cfg
}

func (c *Client) EnsureIndex(ctx context.Context, index string, mapping elastic.Mapping) (bool, error) {
	exists := esapi.IndicesExistsRequest{Index: []string{index}}
	res, err := exists.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusNotFound {
		defer res.Body.Close()
		return false, errors.New(res.String())
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return false, nil
	}

	body, err := encode(mapping.Body())
	if err != nil {
		return false, err
	}

	create := esapi.IndicesCreateRequest{Index: index, Body: body}
	res, err = create.Do(ctx, c.client)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.IsError() {
		msg := res.String()
		// lost a create race against another client
		if res.StatusCode == http.StatusBadRequest && strings.Contains(msg, "resource_already_exists_exception") {
			return false, nil
		}
		return false, errors.New(msg)
	}

	return true, nil
}

func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	req := esapi.IndicesDeleteRequest{Index: []string{index}}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return errors.New(res.String())
	}
	return nil
}

func (c *Client) Put(ctx context.Context, index, id string, doc any, mode elastic.PutMode) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       body,
		Refresh:    c.refresh,
	}
	if mode == elastic.PutCreate {
		req.OpType = "create"
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(res)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, index string, search elastic.SearchRequest) (elastic.SearchResult, error) {
	body, err := encode(elastic.BuildSearchBody(search))
	if err != nil {
		return nil, err
	}

	req := esapi.SearchRequest{
		Index: []string{index},
		Body:  body,
	}
	if search.Size > 0 {
		req.Size = &search.Size
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res)
	}

	result, _, err := elastic.DecodeSearchResponse(res.Body)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Count(ctx context.Context, index string, search elastic.SearchRequest) (int64, error) {
	body, err := encode(elastic.BuildCountBody(search))
	if err != nil {
		return 0, err
	}

	req := esapi.CountRequest{
		Index: []string{index},
		Body:  body,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, responseError(res)
	}

	return elastic.DecodeCountResponse(res.Body)
}

func (c *Client) Scroll(index string, size int, search elastic.SearchRequest) elastic.ScrollService {
	return &ScrollService{
		client:     c.client,
		index:      index,
		size:       size,
		body:       elastic.BuildSearchBody(search),
		scrollTime: 5 * time.Minute,
	}
}

func (c *Client) Stop() {}

func (s *ScrollService) Do(ctx context.Context) (elastic.SearchResult, error) {
	var res *esapi.Response
	var err error

	if s.scrollID == "" {
		body, encErr := encode(s.body)
		if encErr != nil {
			return nil, encErr
		}
		req := esapi.SearchRequest{
			Index:  []string{s.index},
			Size:   &s.size,
			Scroll: s.scrollTime,
			Body:   body,
		}
		res, err = req.Do(ctx, s.client)
	} else {
		req := esapi.ScrollRequest{
			ScrollID: s.scrollID,
			Scroll:   s.scrollTime,
		}
		res, err = req.Do(ctx, s.client)
	}

	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res)
	}

	result, scrollID, err := elastic.DecodeSearchResponse(res.Body)
	if err != nil {
		return nil, err
	}
	if scrollID != "" {
		s.scrollID = scrollID
	}

	if len(result.Hits()) == 0 {
		return nil, io.EOF
	}
	return result, nil
}

func (s *ScrollService) Clear(ctx context.Context) error {
	if s.scrollID == "" {
		return nil
	}

	req := esapi.ClearScrollRequest{
		ScrollID: []string{s.scrollID},
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	s.scrollID = ""
	return nil
}

func encode(v any) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return &buf, nil
}

func responseError(res *esapi.Response) error {
	switch res.StatusCode {
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", elastic.ErrConflict, res.String())
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", elastic.ErrIndexNotFound, res.String())
	default:
		return errors.New(res.String())
	}
}
