package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	collectionsPath = "/vector-store/collections"

	// MaxTopK is the largest top_k the search endpoint accepts.
	MaxTopK = 50
)

// Collections lists every collection in the vector store.
func (c *Client) Collections(ctx context.Context) ([]string, error) {
	var out collectionsResponse
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL(collectionsPath, nil), nil, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

// LoadedCollection returns the collection currently loaded into memory, or ""
// when none is.
func (c *Client) LoadedCollection(ctx context.Context) (string, error) {
	var out loadedCollectionResponse
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL(collectionsPath+":loaded", nil), nil, &out); err != nil {
		return "", err
	}
	if out.LoadedCollection == nil {
		return "", nil
	}
	return *out.LoadedCollection, nil
}

// LoadCollection makes name the active collection, releasing the previous one.
func (c *Client) LoadCollection(ctx context.Context, name string) error {
	q, err := nameQuery(name)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, c.apiURL(collectionsPath+":load", q), nil, nil)
}

// CreateCollection creates and loads a collection, returning all collections.
func (c *Client) CreateCollection(ctx context.Context, name string) ([]string, error) {
	q, err := nameQuery(name)
	if err != nil {
		return nil, err
	}

	var out collectionsResponse
	if err := c.doJSON(ctx, http.MethodPost, c.apiURL(collectionsPath, q), nil, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

// DropCollection deletes a collection, returning the remaining ones.
func (c *Client) DropCollection(ctx context.Context, name string) ([]string, error) {
	q, err := nameQuery(name)
	if err != nil {
		return nil, err
	}

	var out collectionsResponse
	if err := c.doJSON(ctx, http.MethodDelete, c.apiURL(collectionsPath, q), nil, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

// VectorCount returns the number of stored vectors in a collection.
func (c *Client) VectorCount(ctx context.Context, name string) (int, error) {
	q, err := nameQuery(name)
	if err != nil {
		return 0, err
	}

	var out countResponse
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL(collectionsPath+"/vectors:count", q), nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Search returns the topK utterances of the loaded collection most similar to
// query. topK must be between 1 and MaxTopK.
func (c *Client) Search(ctx context.Context, query string, topK int) (*SearchResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("backend: search query is required")
	}
	if topK < 1 || topK > MaxTopK {
		return nil, fmt.Errorf("backend: top_k must be between 1 and %d, got %d", MaxTopK, topK)
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(topK))

	var out SearchResponse
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL("/vector-store:search", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func nameQuery(name string) (url.Values, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("backend: collection name is required")
	}

	q := url.Values{}
	q.Set("name", name)
	return q, nil
}
