package httpclient

import (
	"context"
	"net/http"
)

func (c *httpClient) Put(ctx context.Context, path, contentType string, data []byte, etag string) (string, error) {
	header := http.Header{}
	header.Set("Content-Type", contentType+"; charset=utf-8")
	if etag != "" {
		header.Set("If-Match", etag)
	}

	respHeader, _, err := c.send(ctx, http.MethodPut, path, data, header, http.StatusCreated, http.StatusNoContent)
	if err != nil {
		return "", err
	}
	return respHeader.Get("ETag"), nil
}
