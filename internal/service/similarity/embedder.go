package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmbeddingCacheSize bounds the number of memoised vectors per HTTPEmbedder.
const EmbeddingCacheSize = 4096

// Embedder turns text into a dense vector for semantic comparison.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashingEmbedder produces deterministic feature-hashed bag-of-words vectors
// without calling any external service.
type HashingEmbedder struct {
	Dim int
}

// NewHashingEmbedder returns a local embedder; dim defaults to 512.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 512
	}
	return &HashingEmbedder{Dim: dim}
}

// Embed hashes each normalised token into a bucket and L2-normalises the result.
func (e *HashingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.Dim <= 0 {
		return nil, errors.New("invalid embedding dimension")
	}
	vec := make([]float32, e.Dim)
	for _, token := range Tokenize(text, 4096) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32()%uint32(e.Dim))] += 1
	}
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		n := float32(1 / math.Sqrt(sum))
		for i := range vec {
			vec[i] *= n
		}
	}
	return vec, nil
}

// HTTPEmbedder calls an OpenAI compatible /embeddings endpoint and memoises
// the most recently used vectors per input text.
type HTTPEmbedder struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string

	cache *lru.Cache[string, []float32]
}

// NewHTTPEmbedder wires an embeddings client. A nil client gets a 15s timeout.
func NewHTTPEmbedder(client *http.Client, baseURL, apiKey, model string) *HTTPEmbedder {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	cache, _ := lru.New[string, []float32](EmbeddingCacheSize)
	return &HTTPEmbedder{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		cache:   cache,
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the cached vector or fetches it from the backend.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: []string{text}})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embeddings request failed: status=%d body=%s", resp.StatusCode, string(payload))
	}

	var decoded embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(decoded.Data) != 1 || len(decoded.Data[0].Embedding) == 0 {
		return nil, errors.New("embeddings response carried no vector")
	}
	vec := make([]float32, len(decoded.Data[0].Embedding))
	for i, v := range decoded.Data[0].Embedding {
		vec[i] = float32(v)
	}

	e.cache.Add(text, vec)
	return vec, nil
}

// Cosine returns the cosine similarity of two vectors over their common
// prefix, or 0 when either is empty or zero.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	result := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(result) {
		return 0
	}
	return result
}
