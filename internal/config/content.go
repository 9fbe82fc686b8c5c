package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// IntentDef is one configured intent with its example phrases.
type IntentDef struct {
	Name     string   `yaml:"name" json:"name"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// BotContent bundles the tunable conversational content: intent patterns,
// empathy templates and suggested-action labels. A YAML file overrides the
// built-in defaults wholesale per section.
type BotContent struct {
	Intents          []IntentDef         `yaml:"intents" json:"intents"`
	EmpathyTemplates map[string][]string `yaml:"empathy_templates" json:"empathy_templates,omitempty"`
	SuggestedActions map[string][]string `yaml:"suggested_actions" json:"suggested_actions,omitempty"`
}

// LoadContent parses a bot-content YAML file. Sections left empty in the
// file keep their built-in defaults (resolved by the callers).
func LoadContent(path string) (*BotContent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bot content: %w", err)
	}
	var content BotContent
	if err := yaml.Unmarshal(data, &content); err != nil {
		return nil, fmt.Errorf("parse bot content: %w", err)
	}
	return &content, nil
}

// IntentPatterns projects the configured intents into the classifier's
// pattern table shape.
func (c *BotContent) IntentPatterns() map[string][]string {
	if c == nil || len(c.Intents) == 0 {
		return nil
	}
	out := make(map[string][]string, len(c.Intents))
	for _, def := range c.Intents {
		out[def.Name] = def.Patterns
	}
	return out
}
