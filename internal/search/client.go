// internal/search/client.go
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
)

// Index is the external text index the data layer mirrors searchable rows
// into. Implementations may be absent or unreachable; every consumer
// degrades to a no-op in that case.
type Index interface {
	Available() bool
	Upsert(ctx context.Context, index string, id uint, payload map[string]interface{}) error
	Delete(ctx context.Context, index string, id uint) error
	Query(ctx context.Context, indices []string, query string, page, perPage int) ([]Hit, int64, error)
}

// Hit is one ranked result from the index. Hits arrive in relevance order.
type Hit struct {
	Index string
	ID    uint
}

// Client wraps the Elasticsearch HTTP client.
type Client struct {
	es *elasticsearch.Client
}

// NewClient connects to the index at url. An empty url returns a nil client,
// which callers must treat as "search disabled".
func NewClient(url string) (*Client, error) {
	if url == "" {
		return nil, nil
	}
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Client{es: es}, nil
}

func (c *Client) Available() bool {
	res, err := c.es.Ping()
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

func (c *Client) Upsert(ctx context.Context, index string, id uint, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode document %s/%d: %w", index, id, err)
	}

	res, err := c.es.Index(index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(docID(id)),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index document %s/%d: %w", index, id, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index rejected document %s/%d: %s", index, id, res.Status())
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, index string, id uint) error {
	res, err := c.es.Delete(index, docID(id), c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%d: %w", index, id, err)
	}
	defer res.Body.Close()
	// An already-absent document is fine.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("index rejected delete of %s/%d: %s", index, id, res.Status())
	}
	return nil
}

// Query runs a free-text multi_match across the given indices and returns a
// page of ranked hits plus the total hit count.
func (c *Client) Query(ctx context.Context, indices []string, query string, page, perPage int) ([]Hit, int64, error) {
	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"*"},
			},
		},
		"from": (page - 1) * perPage,
		"size": perPage,
	})
	if err != nil {
		return nil, 0, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(indices...),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search query failed: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("search query rejected: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Index string `json:"_index"`
				ID    string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	hits := make([]Hit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		hits = append(hits, Hit{Index: h.Index, ID: uint(id)})
	}
	return hits, parsed.Hits.Total.Value, nil
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
