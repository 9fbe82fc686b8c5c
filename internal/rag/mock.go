package rag

import (
	"context"
	"strings"

	"cloudnine-chatbot/internal/session"
)

// MockGenerator produces canned replies without any network calls. Used in
// offline mode and in tests.
type MockGenerator struct{}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (g *MockGenerator) Generate(_ context.Context, query string, _ *session.Session, _ []session.Exchange, _ map[string]string) (string, error) {
	lowered := strings.ToLower(query)
	switch {
	case strings.Contains(lowered, "appointment"):
		return "I can help you schedule an appointment. Could you share which department or doctor you would like to see, and your preferred date and time?", nil
	case strings.Contains(lowered, "emergency"):
		return "If this is a medical emergency, please call our emergency line or visit the nearest emergency department right away.", nil
	case strings.Contains(lowered, "hurt"), strings.Contains(lowered, "pain"), strings.Contains(lowered, "sick"):
		return "I'm sorry to hear you're not feeling well. Could you tell me a bit more about your symptoms so I can point you to the right care?", nil
	default:
		return "Thanks for reaching out to Cloud9 Hospitals. How can I help you with appointments, departments, or general information?", nil
	}
}

// StaticRetriever returns a fixed document set regardless of query. Used in
// offline mode and in tests.
type StaticRetriever struct {
	Docs []Document
}

func (r *StaticRetriever) Query(_ context.Context, _ string, k int, filters map[string]string) ([]Document, error) {
	var out []Document
	for _, d := range r.Docs {
		if matchesFilters(d, filters) {
			out = append(out, d)
		}
		if k > 0 && len(out) >= k {
			break
		}
	}
	return out, nil
}
