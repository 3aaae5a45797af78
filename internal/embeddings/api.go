package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/0x5457/gql-index/internal/errs"
)

// ApiEmbedder talks to a sentence-embedding HTTP service that accepts
// {"sentences": [...]} and answers with a JSON array of vectors.
type ApiEmbedder struct {
	url    string
	model  string
	client *http.Client
}

func NewApi(url, model string, timeout time.Duration) *ApiEmbedder {
	if model == "" {
		model = "api"
	}
	return &ApiEmbedder{url: url, model: model, client: &http.Client{Timeout: timeout}}
}

func (e *ApiEmbedder) ModelName() string { return e.model }

func (e *ApiEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	embeddings, err := e.embedRequest(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errs.ErrEmbeddingBackend, e.url, err)
	}
	return normalizeAll(embeddings, len(texts))
}

func (e *ApiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

type embedRequest struct {
	Sentences []string `json:"sentences"`
}

func (e *ApiEmbedder) embedRequest(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(&embedRequest{Sentences: texts})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	response, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return nil, fmt.Errorf("status %d: %s", response.StatusCode, bytes.TrimSpace(msg))
	}
	var embeddings [][]float32
	if err := json.NewDecoder(response.Body).Decode(&embeddings); err != nil {
		return nil, err
	}
	return embeddings, nil
}
