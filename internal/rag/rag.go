package rag

import (
	"context"

	"cloudnine-chatbot/internal/session"
)

// Document is one retrievable piece of hospital content.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Retriever finds documents similar to a query. Filters, when non-nil,
// restrict results to documents whose metadata carries every given pair.
type Retriever interface {
	Query(ctx context.Context, query string, k int, filters map[string]string) ([]Document, error)
}

// Generator produces a natural-language answer grounded in the document
// corpus. An empty result is treated as a failure by callers.
type Generator interface {
	Generate(ctx context.Context, query string, sess *session.Session, history []session.Exchange, filters map[string]string) (string, error)
}
