package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder turns texts into dense vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAIEmbedder embeds texts with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
}

func NewOpenAIEmbedder(client *openai.Client) *OpenAIEmbedder {
	return &OpenAIEmbedder{client: client}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.client == nil {
		return nil, errors.New("openai client not initialized")
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.AdaEmbeddingV2,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Data), len(texts))
	}
	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = d.Embedding
	}
	return out, nil
}

// VectorIndex is an in-memory similarity index over embedded documents.
type VectorIndex struct {
	mu       sync.RWMutex
	embedder Embedder
	docs     []Document
	vectors  [][]float32
}

func NewVectorIndex(embedder Embedder) *VectorIndex {
	return &VectorIndex{embedder: embedder}
}

// AddDocuments embeds and indexes the given documents.
func (ix *VectorIndex) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	ix.mu.Lock()
	ix.docs = append(ix.docs, docs...)
	ix.vectors = append(ix.vectors, vectors...)
	ix.mu.Unlock()
	return nil
}

// Query embeds the query and returns the k most similar documents passing
// the metadata filters.
func (ix *VectorIndex) Query(ctx context.Context, query string, k int, filters map[string]string) ([]Document, error) {
	vectors, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qv := vectors[0]

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	type scored struct {
		doc   Document
		score float64
	}
	var candidates []scored
	for i, doc := range ix.docs {
		if !matchesFilters(doc, filters) {
			continue
		}
		candidates = append(candidates, scored{doc: doc, score: cosine(qv, ix.vectors[i])})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	if k <= 0 {
		k = 3
	}
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	out := make([]Document, len(candidates))
	for i, c := range candidates {
		out[i] = c.doc
	}
	return out, nil
}

func matchesFilters(doc Document, filters map[string]string) bool {
	for key, want := range filters {
		if doc.Metadata[key] != want {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// LoadCorpus reads a JSON array of documents from disk.
func LoadCorpus(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	return docs, nil
}
