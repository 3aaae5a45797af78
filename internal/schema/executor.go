package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/0x5457/gql-index/internal/parser/sdlparser"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/validator"
)

// QueryResult is what run_query reports back.
type QueryResult struct {
	Valid      bool              `json:"valid"`
	Errors     []json.RawMessage `json:"errors,omitempty"`
	Data       json.RawMessage   `json:"data,omitempty"`
	Extensions json.RawMessage   `json:"extensions,omitempty"`
}

// Executor runs a GraphQL query on behalf of an agent.
type Executor interface {
	Run(ctx context.Context, query string, variables map[string]any) (*QueryResult, error)
}

// ValidatingExecutor checks queries against the provider's schema. There
// are no resolvers, so results never carry data.
type ValidatingExecutor struct {
	provider Provider
}

func NewValidatingExecutor(provider Provider) *ValidatingExecutor {
	return &ValidatingExecutor{provider: provider}
}

func (e *ValidatingExecutor) Run(ctx context.Context, query string, variables map[string]any) (*QueryResult, error) {
	text, _, err := e.provider.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	schema, err := sdlparser.Load(text)
	if err != nil {
		return nil, err
	}

	doc, list := gqlparser.LoadQuery(schema, query)
	if len(list) > 0 {
		return failed(list...), nil
	}
	if op := doc.Operations.ForName(""); op != nil {
		if _, err := validator.VariableValues(schema, op, variables); err != nil {
			var gqlErr *gqlerror.Error
			if errors.As(err, &gqlErr) {
				return failed(gqlErr), nil
			}
			return failed(gqlerror.Errorf("%s", err.Error())), nil
		}
	}
	return &QueryResult{Valid: true}, nil
}

func failed(list ...*gqlerror.Error) *QueryResult {
	out := &QueryResult{}
	for _, e := range list {
		b, err := json.Marshal(e)
		if err != nil {
			b, _ = json.Marshal(map[string]string{"message": e.Message})
		}
		out.Errors = append(out.Errors, b)
	}
	return out
}

// ProxyExecutor forwards queries to the live endpoint and passes the reply
// through.
type ProxyExecutor struct {
	endpoint *Endpoint
}

func NewProxyExecutor(endpoint *Endpoint) *ProxyExecutor {
	return &ProxyExecutor{endpoint: endpoint}
}

func (e *ProxyExecutor) Run(ctx context.Context, query string, variables map[string]any) (*QueryResult, error) {
	resp, err := e.endpoint.Post(ctx, &Request{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("endpoint query failed: %w", err)
	}
	return &QueryResult{
		Valid:      len(resp.Errors) == 0,
		Errors:     resp.Errors,
		Data:       resp.Data,
		Extensions: resp.Extensions,
	}, nil
}
