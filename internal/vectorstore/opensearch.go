// Package vectorstore provides similarity search over the knowledge-base
// indices backed by OpenSearch.
package vectorstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/causeway-ops/causeway/internal/models"
)

// Config holds OpenSearch connection settings.
type Config struct {
	URL      string
	Username string
	Password string
	Insecure bool
}

// Client wraps the OpenSearch client and hands out per-index search handles.
type Client struct {
	client *opensearch.Client
}

// NewClient creates an OpenSearch-backed vector store client.
func NewClient(cfg Config) (*Client, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &Client{client: client}, nil
}

// Open returns a search handle for the named knowledge-base index. Indices
// are laid out as kb-{name}-{type}.
func (c *Client) Open(name, indexType string) *Index {
	return &Index{
		client: c.client,
		index:  fmt.Sprintf("kb-%s-%s", name, indexType),
	}
}

// Index executes similarity queries against a single knowledge-base index.
type Index struct {
	client *opensearch.Client
	index  string
}

// Query runs a similarity search and returns up to topK documents, most
// similar first.
func (i *Index) Query(ctx context.Context, query string, topK int) ([]models.Document, error) {
	body := map[string]any{
		"size": topK,
		"query": map[string]any{
			"match": map[string]any{
				"text": map[string]any{"query": query},
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Text string `json:"text"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	docs := make([]models.Document, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		docs = append(docs, models.Document{
			Text:  hit.Source.Text,
			Score: hit.Score,
		})
	}
	return docs, nil
}
