package v9

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

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"

	"github.com/pteich/elastic-status-history/elastic"
)

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
	return &Client{client: client, refresh: "wait_for"}, nil
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
	indices := c.client.Indices

	res, err := indices.Exists([]string{index}, indices.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	status := res.StatusCode
	if status != http.StatusOK && status != http.StatusNotFound {
		defer res.Body.Close()
		return false, errors.New(res.String())
	}
	res.Body.Close()
	if status == http.StatusOK {
		return false, nil
	}

	body, err := encode(mapping.Body())
	if err != nil {
		return false, err
	}

	res, err = indices.Create(index, indices.Create.WithBody(body), indices.Create.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	if res.IsError() {
		msg := res.String()
		if res.StatusCode == http.StatusBadRequest && strings.Contains(msg, "resource_already_exists_exception") {
			return false, nil
		}
		return false, errors.New(msg)
	}

	return true, nil
}

func (c *Client) DeleteIndex(ctx context.Context, index string) error {
	indices := c.client.Indices

	res, err := indices.Delete([]string{index}, indices.Delete.WithContext(ctx))
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

	opts := []func(*esapi.IndexRequest){
		c.client.Index.WithContext(ctx),
		c.client.Index.WithDocumentID(id),
		c.client.Index.WithRefresh(c.refresh),
	}
	if mode == elastic.PutCreate {
		opts = append(opts, c.client.Index.WithOpType("create"))
	}

	res, err := c.client.Index(index, body, opts...)
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

	opts := []func(*esapi.SearchRequest){
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(index),
		c.client.Search.WithBody(body),
	}
	if search.Size > 0 {
		opts = append(opts, c.client.Search.WithSize(search.Size))
	}

	res, err := c.client.Search(opts...)
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

	res, err := c.client.Count(
		c.client.Count.WithContext(ctx),
		c.client.Count.WithIndex(index),
		c.client.Count.WithBody(body),
	)
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
		res, err = s.client.Search(
			s.client.Search.WithContext(ctx),
			s.client.Search.WithIndex(s.index),
			s.client.Search.WithSize(s.size),
			s.client.Search.WithScroll(s.scrollTime),
			s.client.Search.WithBody(body),
		)
	} else {
		res, err = s.client.Scroll(
			s.client.Scroll.WithContext(ctx),
			s.client.Scroll.WithScrollID(s.scrollID),
			s.client.Scroll.WithScroll(s.scrollTime),
		)
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

	res, err := s.client.ClearScroll(
		s.client.ClearScroll.WithContext(ctx),
		s.client.ClearScroll.WithScrollID(s.scrollID),
	)
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
