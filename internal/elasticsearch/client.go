package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/mfenderov/doccorpus/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	Dims      int // embedding dimensions; 0 disables the vector field
}

// Client wraps the Elasticsearch client with corpus operations.
type Client struct {
	es    *elasticsearch.Client
	index string
	dims  int
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:    es,
		index: config.Index,
		dims:  config.Dims,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexMapping returns the corpus mapping. The date is a keyword: dates
// come straight from filenames and are not calendar-checked, so
// "2024-13-40" must still index.
func indexMapping(dims int) map[string]any {
	props := map[string]any{
		"id":       map[string]any{"type": "keyword"},
		"filename": map[string]any{"type": "text", "fields": map[string]any{"raw": map[string]any{"type": "keyword"}}},
		"date":     map[string]any{"type": "keyword"},
		"text":     map[string]any{"type": "text"},
	}
	if dims > 0 {
		props["embedding"] = map[string]any{
			"type":       "dense_vector",
			"dims":       dims,
			"index":      true,
			"similarity": "cosine",
		}
	}
	return map[string]any{"mappings": map[string]any{"properties": props}}
}

// CreateIndex creates the index with the corpus mapping if it does not exist.
func (c *Client) CreateIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(indexMapping(c.dims))
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index.
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// IndexDocument indexes one corpus row under doc.ID, replacing any
// previous version.
func (c *Client) IndexDocument(ctx context.Context, doc models.ExtractedDocument) error {
	if doc.ID == "" {
		doc.ID = models.GenerateDocumentID(doc.Filename)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document (status %d): %s", res.StatusCode, res.String())
	}

	return nil
}

// Refresh forces an index refresh.
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// Query describes a corpus search. From and To bound the document date
// inclusively, compared as YYYY-MM-DD strings; either may be empty.
type Query struct {
	Text  string
	From  string
	To    string
	Limit int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return 10
	}
	return q.Limit
}

func (q Query) filters() []any {
	if q.From == "" && q.To == "" {
		return nil
	}
	r := map[string]any{}
	if q.From != "" {
		r["gte"] = q.From
	}
	if q.To != "" {
		r["lte"] = q.To
	}
	return []any{map[string]any{"range": map[string]any{"date": r}}}
}

func (q Query) textQuery() map[string]any {
	return map[string]any{
		"multi_match": map[string]any{
			"query":  q.Text,
			"fields": []string{"text", "filename^2"},
		},
	}
}

// searchBody builds a BM25 query with an optional date filter.
func searchBody(q Query) map[string]any {
	boolQuery := map[string]any{"must": q.textQuery()}
	if f := q.filters(); f != nil {
		boolQuery["filter"] = f
	}
	return map[string]any{
		"query":   map[string]any{"bool": boolQuery},
		"size":    q.limit(),
		"_source": map[string]any{"excludes": []string{"embedding"}},
	}
}

// hybridBody fuses BM25 and kNN results with reciprocal rank fusion.
func hybridBody(q Query, vector []float32) map[string]any {
	standard := map[string]any{"query": map[string]any{"bool": map[string]any{"must": q.textQuery()}}}
	knn := map[string]any{
		"field":          "embedding",
		"query_vector":   vector,
		"k":              q.limit(),
		"num_candidates": q.limit() * 2,
	}
	if f := q.filters(); f != nil {
		standard["query"].(map[string]any)["bool"].(map[string]any)["filter"] = f
		knn["filter"] = f
	}

	return map[string]any{
		"retriever": map[string]any{
			"rrf": map[string]any{
				"retrievers": []any{
					map[string]any{"standard": standard},
					map[string]any{"knn": knn},
				},
			},
		},
		"size":    q.limit(),
		"_source": map[string]any{"excludes": []string{"embedding"}},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.ExtractedDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search performs a BM25 search over text and filename.
func (c *Client) Search(ctx context.Context, q Query) ([]models.ExtractedDocument, error) {
	return c.search(ctx, searchBody(q))
}

// HybridSearch combines BM25 with vector similarity. Without a query
// vector it is a plain Search.
func (c *Client) HybridSearch(ctx context.Context, q Query, vector []float32) ([]models.ExtractedDocument, error) {
	if vector == nil {
		return c.Search(ctx, q)
	}
	return c.search(ctx, hybridBody(q, vector))
}

func (c *Client) search(ctx context.Context, body map[string]any) ([]models.ExtractedDocument, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	return decodeHits(res.Body)
}

func decodeHits(r io.Reader) ([]models.ExtractedDocument, error) {
	var sr searchResponse
	if err := json.NewDecoder(r).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	docs := make([]models.ExtractedDocument, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		docs[i] = hit.Source
	}
	return docs, nil
}

type getResponse struct {
	Found  bool                     `json:"found"`
	Source models.ExtractedDocument `json:"_source"`
}

// GetDocument retrieves a document by ID. A missing document is (nil, nil).
func (c *Client) GetDocument(ctx context.Context, id string) (*models.ExtractedDocument, error) {
	res, err := c.es.Get(
		c.index,
		id,
		c.es.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if res.IsError() {
		return nil, fmt.Errorf("get error: %s", res.String())
	}

	var gr getResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !gr.Found {
		return nil, nil
	}

	return &gr.Source, nil
}
