package httpclient

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
)

// Transport is an http.RoundTripper that logs request and response bodies
// at debug level and signs requests with Basic Auth when Username is set.
type Transport struct {
	Username string
	Password string
	Base     http.RoundTripper
	Logger   *slog.Logger
}

// NewTransport creates a Transport. A nil base means http.DefaultTransport.
func NewTransport(username, password string, base http.RoundTripper, logger *slog.Logger) *Transport {
	t := &Transport{Username: username, Password: password, Base: base, Logger: logger}
	if t.Base == nil {
		t.Base = http.DefaultTransport
	}
	if t.Logger == nil {
		t.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return t
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if t.Username != "" {
		out.SetBasicAuth(t.Username, t.Password)
	}

	var reqBody []byte
	out.Body, reqBody = drain(req.Body)
	t.Logger.Debug("outgoing request", "method", out.Method, "url", out.URL.String(), "body", string(reqBody))

	resp, err := t.Base.RoundTrip(out)
	if err != nil {
		return nil, err
	}

	var respBody []byte
	resp.Body, respBody = drain(resp.Body)
	t.Logger.Debug("incoming response", "status", resp.Status, "body", string(respBody))
	return resp, nil
}

// drain reads body fully and returns a replacement reader with the same content.
func drain(body io.ReadCloser) (io.ReadCloser, []byte) {
	if body == nil || body == http.NoBody {
		return body, nil
	}
	data, _ := io.ReadAll(body)
	body.Close()
	return io.NopCloser(bytes.NewReader(data)), data
}
