package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"cloudnine-chatbot/internal/session"
)

const systemPrompt = `You are a helpful and empathetic medical assistant for Cloud9 Hospitals. Follow these guidelines:

1. Be concise and clear, using complete sentences and proper formatting
2. Keep responses between 2-4 sentences for general inquiries
3. Use bullet points on separate lines for multiple items
4. For medical advice or safety information, provide necessary detail while maintaining clarity
5. When scheduling appointments, confirm specific details (date, time, doctor) and end with a clear next step`

// OpenAIGenerator answers queries with a chat-completion model grounded in
// retrieved hospital documents plus the session's accumulated context.
type OpenAIGenerator struct {
	client    *openai.Client
	retriever Retriever
	model     string
}

func NewOpenAIGenerator(client *openai.Client, retriever Retriever, model string) *OpenAIGenerator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{client: client, retriever: retriever, model: model}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, query string, sess *session.Session, history []session.Exchange, filters map[string]string) (string, error) {
	if g.client == nil {
		return "", errors.New("openai client not initialized")
	}

	var b strings.Builder

	if g.retriever != nil {
		docs, err := g.retriever.Query(ctx, query, 3, filters)
		if err == nil && len(docs) > 0 {
			b.WriteString("Hospital information:\n")
			for _, d := range docs {
				b.WriteString("- " + d.Text + "\n")
			}
			b.WriteString("\n")
		}
	}

	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", h.User, h.Assistant)
		}
		b.WriteString("\n")
	}

	if sess != nil {
		if userInfo := describeSession(sess); userInfo != "" {
			b.WriteString("User info:\n" + userInfo + "\n")
		}
	}

	fmt.Fprintf(&b, "Current question: %s\n\nPlease provide a helpful and empathetic response based on the available context.", query)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: b.String()},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func describeSession(sess *session.Session) string {
	var lines []string
	if name := sess.Collected.Personal.Name; name != "" {
		lines = append(lines, "name: "+name)
	}
	if len(sess.Collected.Medical.Symptoms) > 0 {
		lines = append(lines, "reported symptoms: "+strings.Join(sess.Collected.Medical.Symptoms, ", "))
	}
	if v := sess.Collected.Medical.PreviousVisit; v != "" {
		lines = append(lines, "previous visit: "+v)
	}
	if d := sess.Collected.Preferences.Doctor; d != "" {
		lines = append(lines, "preferred doctor: "+d)
	}
	if d := sess.Collected.Preferences.Department; d != "" {
		lines = append(lines, "preferred department: "+d)
	}
	return strings.Join(lines, "\n")
}
