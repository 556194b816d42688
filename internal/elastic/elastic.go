// Package elastic is a minimal Elasticsearch client for the _bulk API.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/cdtdelta/mft2es/internal/bulk"
	"github.com/cdtdelta/mft2es/internal/model"
)

// maxErrorBody bounds how much of a failed response is kept in errors.
const maxErrorBody = 512

// Client writes documents to one Elasticsearch cluster.
type Client struct {
	baseURL  string
	login    string
	password string
	http     *retryablehttp.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sends HTTP basic credentials with every request.
func WithBasicAuth(login, password string) Option {
	return func(c *Client) {
		c.login = login
		c.password = password
	}
}

// WithRetryMax sets how many times a failed request is retried.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithRetryWait bounds the backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

// WithLogger routes retry logging to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.http.Logger = logger
		}
	}
}

// New creates a client for the cluster at baseURL, e.g. http://localhost:9200.
func New(baseURL string, opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.Logger = nil
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ping checks that the cluster answers.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w: %w", c.baseURL, model.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError("ping", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type actionLine struct {
	Index actionMeta `json:"index"`
}

type actionMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkResponse struct {
	Errors bool                  `json:"errors"`
	Items  []map[string]bulkItem `json:"items"`
}

type bulkItem struct {
	ID     string          `json:"_id"`
	Status int             `json:"status"`
	Error  json.RawMessage `json:"error"`
}

type itemError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// Bulk indexes items into index in one _bulk request, replacing any
// document with the same id. An empty pipeline sends no pipeline parameter.
func (c *Client) Bulk(ctx context.Context, index, pipeline string, items []bulk.Item) ([]bulk.ItemResult, error) {
	if len(items) == 0 {
		return nil, nil
	}
	body, err := encodeBulk(index, items)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/_bulk"
	if pipeline != "" {
		endpoint += "?" + url.Values{"pipeline": {pipeline}}.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bulk %s: %w: %w", index, model.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, statusError("bulk "+index, resp)
	}

	var decoded bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding bulk response: %w: %w", model.ErrTransport, err)
	}
	return itemResults(decoded), nil
}

func encodeBulk(index string, items []bulk.Item) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, it := range items {
		if err := enc.Encode(actionLine{Index: actionMeta{Index: index, ID: it.ID}}); err != nil {
			return nil, err
		}
		buf.Write(bytes.TrimRight(it.Body, "\n"))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func itemResults(resp bulkResponse) []bulk.ItemResult {
	out := make([]bulk.ItemResult, 0, len(resp.Items))
	for _, entry := range resp.Items {
		// Each entry has exactly one key naming the action.
		for _, it := range entry {
			r := bulk.ItemResult{ID: it.ID, Status: it.Status}
			if len(it.Error) > 0 && string(it.Error) != "null" {
				r.Error = reason(it.Error)
			} else if it.Status >= 300 {
				r.Error = http.StatusText(it.Status)
			}
			out = append(out, r)
			break
		}
	}
	return out
}

func reason(raw json.RawMessage) string {
	var e itemError
	if err := json.Unmarshal(raw, &e); err == nil && e.Type != "" {
		if e.Reason == "" {
			return e.Type
		}
		return e.Type + ": " + e.Reason
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return string(raw)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body []byte) (*retryablehttp.Request, error) {
	var rawBody any
	if body != nil {
		rawBody = body
	}
	req, err := retryablehttp.NewRequest(method, endpoint, rawBody)
	if err != nil {
		return nil, fmt.Errorf("building request %s: %w", endpoint, err)
	}
	req = req.WithContext(ctx)
	if c.login != "" {
		req.SetBasicAuth(c.login, c.password)
	}
	return req, nil
}

func statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%s: status %d: %s: %w", op, resp.StatusCode, bytes.TrimSpace(snippet), model.ErrTransport)
}
