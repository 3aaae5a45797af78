package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/0x5457/gql-index/internal/models"
)

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL-over-HTTP response body. Members are kept raw so
// they can be handed back to callers untouched.
type Response struct {
	Errors     []json.RawMessage `json:"errors,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
	Extensions json.RawMessage   `json:"extensions,omitempty"`
}

// Endpoint posts GraphQL requests to a remote server with fixed headers.
type Endpoint struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func NewEndpoint(url string, headers map[string]string, timeout time.Duration) *Endpoint {
	return &Endpoint{url: url, headers: maps.Clone(headers), client: &http.Client{Timeout: timeout}}
}

func (e *Endpoint) URL() string { return e.url }

// Source describes the endpoint by URL and header names only.
func (e *Endpoint) Source() models.SchemaSource {
	return models.EndpointSource(e.url, slices.Collect(maps.Keys(e.headers)))
}

// Post sends req and decodes the reply. Error statuses whose body is a JSON
// object are decoded like a normal reply; other bodies become a single
// GraphQL error carrying the body text.
func (e *Endpoint) Post(ctx context.Context, req *Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range e.headers {
		httpReq.Header.Set(k, v)
	}

	response, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", e.url, err)
	}
	defer func() { _ = response.Body.Close() }()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read response from %s: %w", e.url, err)
	}
	raw = bytes.TrimSpace(raw)

	var out Response
	if len(raw) == 0 {
		if response.StatusCode >= 300 {
			return nil, fmt.Errorf("%s returned status %d", e.url, response.StatusCode)
		}
		return &out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		if response.StatusCode < 300 {
			return nil, fmt.Errorf("invalid JSON from %s: %w", e.url, err)
		}
		msg, _ := json.Marshal(map[string]string{"message": string(raw)})
		return &Response{Errors: []json.RawMessage{msg}}, nil
	}
	return &out, nil
}
