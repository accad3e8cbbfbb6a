// Package httpclient sends item uploads and query REPORTs to a caldavquery server.
package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/cyp0633/caldavquery/internal/xml"
)

// Client wraps http.Client with the requests the query server answers.
type Client interface {
	// Put uploads an item to path. A non-empty etag is sent as If-Match.
	Put(ctx context.Context, path, contentType string, data []byte, etag string) (newEtag string, err error)
	// Report sends a calendar-query or addressbook-query body to a collection.
	Report(ctx context.Context, path string, body []byte) (*xml.MultistatusResponse, error)
}

// StatusError is returned when the server answers with an unexpected status.
type StatusError struct {
	Method string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status code %d", e.Method, e.Code)
}

type httpClient struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// resolveURL resolves a URL string against the base URL
func (c *httpClient) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// New creates a client resolving request paths against baseURL.
func New(client *http.Client, baseURL url.URL, logger *slog.Logger) (Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClient{client: client, baseURL: baseURL, logger: logger}, nil
}

// send executes one request against urlStr and returns the status code,
// headers and the fully read body. Codes listed in ok are successes; any
// other code is a *StatusError.
func (c *httpClient) send(ctx context.Context, method, urlStr string, body []byte, header http.Header, ok ...int) (http.Header, []byte, error) {
	target, err := c.resolveURL(urlStr)
	if err != nil {
		return nil, nil, err
	}
	log := c.logger.With("method", method, "url", target.String())
	log.Debug("sending request", "body_length", len(body))

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Debug("request failed", "error", err)
		return nil, nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	log.Debug("received response", "status", resp.Status, "body_length", len(data))

	for _, code := range ok {
		if resp.StatusCode == code {
			return resp.Header, data, nil
		}
	}
	return nil, nil, &StatusError{Method: method, Code: resp.StatusCode, Body: string(data)}
}
