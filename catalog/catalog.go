// Package catalog keeps a small product index used to demonstrate full text
// search against the document store.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pteich/elastic-status-history/elastic"
)

const DefaultIndex = "products"

type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
}

func (p Product) String() string {
	return fmt.Sprintf("%s: %s (%s) %.2f - %s", p.ID, p.Name, p.Category, p.Price, p.Description)
}

var Mapping = elastic.Mapping{
	"id":          "keyword",
	"name":        "text",
	"description": "text",
	"price":       "double",
	"category":    "keyword",
}

// SampleProducts are indexed by the catalog demo.
var SampleProducts = []Product{
	{ID: "1", Name: "iPhone 13", Description: "Latest Apple iPhone with amazing camera", Price: 999.99, Category: "Electronics"},
	{ID: "2", Name: "Samsung Galaxy S21", Description: "Android smartphone with great features", Price: 899.99, Category: "Electronics"},
	{ID: "3", Name: "MacBook Pro", Description: "Powerful laptop for professionals", Price: 1299.99, Category: "Computers"},
}

var searchFields = []string{"name", "description"}

type Catalog struct {
	client   elastic.Client
	index    string
	pageSize int
}

func New(client elastic.Client, index string) *Catalog {
	if index == "" {
		index = DefaultIndex
	}
	return &Catalog{client: client, index: index, pageSize: 100}
}

// EnsureIndex reports whether the index had to be created.
func (c *Catalog) EnsureIndex(ctx context.Context) (bool, error) {
	return c.client.EnsureIndex(ctx, c.index, Mapping)
}

func (c *Catalog) Index(ctx context.Context, p Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	return c.client.Put(ctx, c.index, p.ID, p, elastic.PutUpsert)
}

// All returns every product ordered by id.
func (c *Catalog) All(ctx context.Context) ([]Product, error) {
	return c.collect(ctx, elastic.SearchRequest{
		Sort: []elastic.SortField{{Field: "id"}},
	})
}

// Search finds products whose name or description contains text.
func (c *Catalog) Search(ctx context.Context, text string) ([]Product, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return c.All(ctx)
	}

	return c.collect(ctx, elastic.SearchRequest{
		Text: &elastic.TextQuery{Query: "*" + text + "*", Fields: searchFields},
		Sort: []elastic.SortField{{Field: "id"}},
	})
}

func (c *Catalog) collect(ctx context.Context, req elastic.SearchRequest) ([]Product, error) {
	scroll := c.client.Scroll(c.index, c.pageSize, req)
	defer func() { _ = scroll.Clear(context.WithoutCancel(ctx)) }()

	products := []Product{}
	for {
		result, err := scroll.Do(ctx)
		if errors.Is(err, io.EOF) {
			return products, nil
		}
		if err != nil {
			return nil, err
		}

		for _, hit := range result.Hits() {
			var p Product
			if err := json.Unmarshal(hit.GetSource(), &p); err != nil {
				return nil, fmt.Errorf("decode product %s: %w", hit.GetID(), err)
			}
			products = append(products, p)
		}
	}
}
