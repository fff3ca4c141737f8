// Package swypt talks to the Swypt mobile-money aggregator. Every call is a
// single stateless HTTP request; failures carry the aggregator's payload.
package swypt

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

	"mpesa_bridge/internal/config"
	"mpesa_bridge/internal/utils"
	"mpesa_bridge/internal/xerr"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
)

// APIError is a non-2xx answer from the aggregator
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("swypt: HTTP %d", e.StatusCode)
	}
	return e.Body
}

// Client is the aggregator API client
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	project   string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(cfg config.Swypt, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		project:   cfg.Project,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "swypt",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx answers mean the aggregator is healthy and rejected our input
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("Circuit breaker state changed")
		},
	})
	return c
}

// do sends one request through the breaker and returns the raw body
func (c *Client) do(ctx context.Context, method, path string, body any, bearer bool) (json.RawMessage, error) {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		return c.send(ctx, method, path, body, bearer)
	})
	if err != nil {
		return nil, xerr.Upstream(err)
	}
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, bearer bool) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-api-secret", c.apiSecret)
	if bearer {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"request_id": utils.RequestIDFrom(ctx),
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"latency":    time.Since(start).String(),
	}).Debug("Swypt call")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	return raw, nil
}

// reference digs the first non-empty string found at any of the dotted paths
func reference(raw json.RawMessage, paths ...string) string {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber() // Large numeric IDs would lose digits as float64
	if err := dec.Decode(&doc); err != nil {
		return ""
	}
	for _, p := range paths {
		var cur any = doc
		for _, key := range strings.Split(p, ".") {
			m, ok := cur.(map[string]any)
			if !ok {
				cur = nil
				break
			}
			cur = m[key]
		}
		switch v := cur.(type) {
		case string:
			if v != "" {
				return v
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func escape(s string) string { return url.PathEscape(s) }
