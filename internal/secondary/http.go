package secondary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/amishk599/jobfacet/internal/model"
)

var _ Transport = (*HTTPTransport)(nil)

// HTTPTransport calls a classifier service over HTTP:
//
//	GET  {base}/health    probe, any 2xx is healthy
//	POST {base}/classify  body [{"description": "..."}], response a JSON array
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport returns a transport for the service at baseURL.
func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Name implements Transport.
func (t *HTTPTransport) Name() string { return "http" }

// Probe implements Transport.
func (t *HTTPTransport) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health check: %w", model.NewHTTPError(resp, nil))
	}
	return nil
}

type classifyRequestItem struct {
	Description string `json:"description"`
}

// Classify implements Transport.
func (t *HTTPTransport) Classify(ctx context.Context, descriptions []string) ([]byte, error) {
	items := make([]classifyRequestItem, len(descriptions))
	for i, d := range descriptions {
		items[i] = classifyRequestItem{Description: d}
	}
	body, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read classify response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, model.NewHTTPError(resp, respBytes)
	}
	return respBytes, nil
}
