// Package store persists dashboard data to Supabase over its PostgREST
// API: normalized trend batches, daily insight rows, production records,
// deep-dive research, and extracted entities.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotConfigured is returned by New when the Supabase URL or key is
// missing. Callers treat it as "run without persistence".
var ErrNotConfigured = errors.New("store: supabase url or key not configured")

// ErrHTTP is a non-2xx PostgREST response.
type ErrHTTP struct {
	StatusCode int
	Body       string
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("store: status %d: %s", e.StatusCode, e.Body)
}

// Client is a thin Supabase PostgREST client. Tables are addressed by
// name; filters use PostgREST operator syntax ("eq.2026-08-31").
type Client struct {
	baseURL string
	key     string
	client  *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Client) { s.client = c }
}

// New creates a store client for a Supabase project.
func New(baseURL, key string, opts ...Option) (*Client, error) {
	if baseURL == "" || key == "" {
		return nil, ErrNotConfigured
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Insert posts one or more records to a table. When out is non-nil the
// inserted rows are decoded back into it.
func (c *Client) Insert(ctx context.Context, table string, records any, out any) error {
	return c.write(ctx, http.MethodPost, table, nil, records, out, false)
}

// Upsert posts records with merge-duplicates resolution on the table's
// unique constraint, so re-running a day's pipeline overwrites instead
// of erroring.
func (c *Client) Upsert(ctx context.Context, table string, records any, out any) error {
	return c.write(ctx, http.MethodPost, table, nil, records, out, true)
}

// Update patches rows matching filters with the given record.
func (c *Client) Update(ctx context.Context, table string, filters map[string]string, record any) error {
	return c.write(ctx, http.MethodPatch, table, filters, record, nil, false)
}

// Delete removes rows matching filters. PostgREST rejects an unfiltered
// delete, and so does this client.
func (c *Client) Delete(ctx context.Context, table string, filters map[string]string) error {
	if len(filters) == 0 {
		return fmt.Errorf("store: refusing to delete from %s without filters", table)
	}
	return c.write(ctx, http.MethodDelete, table, filters, nil, nil, false)
}

// Select reads rows from a table into out. Query values are passed
// through as PostgREST parameters (filters, select, order, limit).
func (c *Client) Select(ctx context.Context, table string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL(table, query), nil)
	if err != nil {
		return err
	}
	c.auth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("store: select %s: %w", table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ErrHTTP{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (c *Client) write(ctx context.Context, method, table string, filters map[string]string, payload, out any, upsert bool) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("store: encode %s payload: %w", table, err)
		}
		body = bytes.NewReader(data)
	}

	query := url.Values{}
	for k, v := range filters {
		query.Set(k, v)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.tableURL(table, query), body)
	if err != nil {
		return err
	}
	c.auth(req)
	req.Header.Set("Content-Type", "application/json")

	prefer := "return=minimal"
	if out != nil {
		prefer = "return=representation"
	}
	if upsert {
		prefer += ",resolution=merge-duplicates"
	}
	req.Header.Set("Prefer", prefer)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("store: %s %s: %w", strings.ToLower(method), table, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ErrHTTP{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

func (c *Client) tableURL(table string, query url.Values) string {
	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) auth(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
}

// eq renders a PostgREST equality filter value.
func eq(v string) string { return "eq." + v }

// nullable returns nil for empty JSON payloads so JSONB columns store
// NULL instead of "{}" or "[]".
func nullable(raw json.RawMessage) any {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "{}" || s == "[]" || s == "null" {
		return nil
	}
	return raw
}
