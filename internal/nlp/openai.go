package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClassifier labels utterances with a hosted chat-completion model.
// The model is instructed to answer with a strict JSON object; anything else
// is reported as an error so the caller can fall back.
type OpenAIClassifier struct {
	client *openai.Client
	model  string
	known  map[Intent]bool
}

// NewOpenAIClassifier constructs a classifier for the given model. The known
// intent set bounds what the model may answer with.
func NewOpenAIClassifier(client *openai.Client, model string, intents []Intent) *OpenAIClassifier {
	if model == "" {
		model = "gpt-4o-mini"
	}
	known := make(map[Intent]bool, len(intents))
	for _, i := range intents {
		known[i] = true
	}
	return &OpenAIClassifier{client: client, model: model, known: known}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (Prediction, error) {
	if c.client == nil {
		return Prediction{}, errors.New("openai client not initialized")
	}

	labels := make([]string, 0, len(c.known))
	for i := range c.known {
		labels = append(labels, string(i))
	}
	sort.Strings(labels)

	system := fmt.Sprintf(
		"Classify the patient utterance into exactly one of these intents: %s. "+
			`Reply with JSON only, shaped {"intent":"<label>","confidence":<0..1>}.`,
		strings.Join(labels, ", "))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return Prediction{}, err
	}
	if len(resp.Choices) == 0 {
		return Prediction{}, errors.New("empty classification response")
	}

	var out Prediction
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		return Prediction{}, fmt.Errorf("malformed classifier output: %w", err)
	}
	if !c.known[out.Intent] {
		return Prediction{}, fmt.Errorf("classifier produced unknown intent %q", out.Intent)
	}
	return out, nil
}

// OpenAIEmotionDetector scores the emotional content of an utterance with a
// hosted model, returning labels sorted by score.
type OpenAIEmotionDetector struct {
	client *openai.Client
	model  string
}

func NewOpenAIEmotionDetector(client *openai.Client, model string) *OpenAIEmotionDetector {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIEmotionDetector{client: client, model: model}
}

func (d *OpenAIEmotionDetector) Detect(ctx context.Context, text string) ([]EmotionScore, error) {
	if d.client == nil {
		return nil, errors.New("openai client not initialized")
	}

	system := "Score the emotions in the patient utterance. Possible labels: " +
		"anxiety, fear, pain, urgency, frustration, confusion, sadness, joy, neutral. " +
		`Reply with JSON only, shaped [{"emotion":"<label>","score":<0..1>}, ...].`

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty emotion response")
	}

	var scores []EmotionScore
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &scores); err != nil {
		return nil, fmt.Errorf("malformed emotion output: %w", err)
	}
	for i := range scores {
		scores[i].Emotion = strings.ToLower(scores[i].Emotion)
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores, nil
}
