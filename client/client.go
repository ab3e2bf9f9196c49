// Package client talks to the vigil HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"vigil/filter"
	"vigil/models"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client is a remote client for the inventory API.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// New creates a Client. token may be empty when the server runs without
// authentication.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{},
	}
}

// ListEntities fetches one page of entityType matching f.
func (c *Client) ListEntities(ctx context.Context, entityType models.EntityType, f filter.Filter) (models.ListResponse, error) {
	return c.list(ctx, "/api/v1/entities/"+url.PathEscape(string(entityType)), f)
}

// ListSavedFilterEntities runs a saved filter, with f overriding its keywords.
func (c *Client) ListSavedFilterEntities(ctx context.Context, id string, f filter.Filter) (models.ListResponse, error) {
	return c.list(ctx, "/api/v1/filters/"+url.PathEscape(id)+"/entities", f)
}

func (c *Client) list(ctx context.Context, path string, f filter.Filter) (models.ListResponse, error) {
	var out models.ListResponse

	q := url.Values{}
	if f.Len() > 0 {
		q.Set("filter", f.String())
	}

	resp, err := c.get(ctx, path, q)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, http.StatusOK); err != nil {
		return out, err
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode list response: %w", err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return httpClient.Do(req)
}

func checkStatus(resp *http.Response, want int) error {
	if resp.StatusCode == want {
		return nil
	}

	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	}
	return apiErr
}

// EntityFetcher lists one entity type through a Client. It satisfies
// paging.Fetcher[models.Entity].
type EntityFetcher struct {
	Client *Client
	Type   models.EntityType
}

func (f EntityFetcher) Fetch(ctx context.Context, flt filter.Filter) ([]models.Entity, filter.CollectionCounts, error) {
	resp, err := f.Client.ListEntities(ctx, f.Type, flt)
	if err != nil {
		return nil, filter.CollectionCounts{}, err
	}
	return resp.Entities, resp.Counts, nil
}
