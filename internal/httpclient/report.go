package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/beevik/etree"
	"github.com/cyp0633/caldavquery/internal/xml"
)

const methodReport = "REPORT"

// Report executes a REPORT with Depth 1 and parses the multistatus reply.
func (c *httpClient) Report(ctx context.Context, path string, body []byte) (*xml.MultistatusResponse, error) {
	header := http.Header{}
	header.Set("Content-Type", "application/xml; charset=utf-8")
	header.Set("Depth", "1")

	_, data, err := c.send(ctx, methodReport, path, body, header, http.StatusMultiStatus)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	var ms xml.MultistatusResponse
	if err := ms.Parse(doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	c.logger.Debug("report parsed", "responses", len(ms.Responses))
	return &ms, nil
}
