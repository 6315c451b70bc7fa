package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Metadata is stored alongside every vector. The user_id field duplicates the
// namespace on purpose: queries filter on it as defense-in-depth against
// namespace misrouting.
type Metadata struct {
	UserID     string `json:"user_id"`
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

// SparseValues carries the lexical half of a hybrid vector.
type SparseValues struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

type Vector struct {
	ID           string        `json:"id"`
	Values       []float32     `json:"values"`
	SparseValues *SparseValues `json:"sparseValues,omitempty"`
	Metadata     Metadata      `json:"metadata"`
}

type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// PineconeClient is a minimal REST client to a Pinecone index. Hybrid
// dense+sparse fusion happens index-side; the client only ships both signals.
type PineconeClient struct {
	host      string
	apiKey    string
	dimension int
	client    *http.Client
}

type Config struct {
	Host      string
	APIKey    string
	Dimension int
	Timeout   time.Duration
}

func NewPineconeClient(cfg Config) *PineconeClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	dimension := cfg.Dimension
	if dimension == 0 {
		dimension = 768
	}
	return &PineconeClient{
		host:      cfg.Host,
		apiKey:    cfg.APIKey,
		dimension: dimension,
		client:    &http.Client{Timeout: timeout},
	}
}

// Upsert writes vectors into the given namespace.
func (c *PineconeClient) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	body := map[string]any{
		"namespace": namespace,
		"vectors":   vectors,
	}
	return c.postJSON(ctx, c.host+"/vectors/upsert", body, nil)
}

// Query runs one hybrid query against the namespace. The sparse vector is
// optional; filter is a Pinecone metadata filter expression.
func (c *PineconeClient) Query(ctx context.Context, namespace string, dense []float32, sparseVec *SparseValues, topK int, filter map[string]any) ([]Match, error) {
	if len(dense) == 0 {
		return nil, errors.New("dense query vector is empty")
	}
	if topK <= 0 {
		topK = 5
	}
	req := map[string]any{
		"namespace":       namespace,
		"vector":          dense,
		"topK":            topK,
		"includeMetadata": true,
	}
	if sparseVec != nil && len(sparseVec.Indices) > 0 {
		req["sparseVector"] = sparseVec
	}
	if filter != nil {
		req["filter"] = filter
	}

	var resp struct {
		Matches []Match `json:"matches"`
	}
	if err := c.postJSON(ctx, c.host+"/query", req, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// ListTexts pulls up to limit chunk texts stored in the namespace by querying
// with a zero vector. Used to refit lexical rankers from the index as the
// source of truth rather than trusting the cached model.
func (c *PineconeClient) ListTexts(ctx context.Context, namespace string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10000
	}
	matches, err := c.Query(ctx, namespace, make([]float32, c.dimension), nil, limit, nil)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.Text != "" {
			texts = append(texts, m.Metadata.Text)
		}
	}
	return texts, nil
}

func (c *PineconeClient) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request for %s: %w", url, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone POST %s failed: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
