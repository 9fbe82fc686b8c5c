package nlp

import (
	"context"
	"strings"
)

// KeywordClassifier scores an utterance against per-intent example patterns
// by word overlap. It serves as the in-process fallback when the hosted
// classifier is unavailable, and as the only classifier in offline mode.
type KeywordClassifier struct {
	patterns map[Intent][]string
}

// NewKeywordClassifier builds a classifier over the given pattern table,
// falling back to the built-in intents when the table is empty.
func NewKeywordClassifier(patterns map[Intent][]string) *KeywordClassifier {
	if len(patterns) == 0 {
		patterns = DefaultIntentPatterns()
	}
	return &KeywordClassifier{patterns: patterns}
}

// DefaultIntentPatterns returns the built-in example phrases per intent.
func DefaultIntentPatterns() map[Intent][]string {
	return map[Intent][]string{
		IntentGreeting: {
			"hi", "hello", "good morning", "good evening", "hey there",
		},
		IntentAppointmentBooking: {
			"i want to book an appointment",
			"schedule a consultation",
			"book a doctor visit",
			"reschedule my appointment",
		},
		IntentSymptomInquiry: {
			"i have a headache",
			"my stomach hurts",
			"i'm feeling sick",
			"my head hurts",
		},
		IntentMedicalInquiry: {
			"is this medication safe",
			"what does this diagnosis mean",
			"side effects of the treatment",
		},
		IntentDepartmentInfo: {
			"what departments do you have",
			"show me your specialties",
			"what medical services do you offer",
		},
		IntentEmergency: {
			"this is an emergency",
			"i need urgent help",
			"critical situation",
		},
		IntentMedicalRecords: {
			"show my medical records",
			"download my reports",
			"prescription history",
		},
		IntentGeneralInquiry: {
			"what are your working hours",
			"where are you located",
			"do you accept insurance",
		},
		IntentGoodbye: {
			"bye", "goodbye", "see you", "that's all",
		},
		IntentThanks: {
			"thanks", "thank you", "much appreciated",
		},
	}
}

var emergencyTerms = []string{"emergency", "urgent", "critical", "life-threatening"}

// Classify returns the best-overlapping intent. Utterances carrying an
// emergency term always classify as emergency.
func (c *KeywordClassifier) Classify(_ context.Context, text string) (Prediction, error) {
	lowered := strings.ToLower(text)

	for _, term := range emergencyTerms {
		if strings.Contains(lowered, term) {
			return Prediction{Intent: IntentEmergency, Confidence: 0.95}, nil
		}
	}

	words := tokenSet(lowered)
	best := Prediction{Intent: IntentGeneralInquiry, Confidence: 0.2}
	for intent, pats := range c.patterns {
		for _, pat := range pats {
			score := overlap(words, tokenSet(strings.ToLower(pat)))
			if score > best.Confidence {
				best = Prediction{Intent: intent, Confidence: score}
			}
		}
	}
	return best, nil
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	}) {
		set[w] = true
	}
	return set
}

// overlap is the fraction of pattern words present in the utterance.
func overlap(text, pattern map[string]bool) float64 {
	if len(pattern) == 0 {
		return 0
	}
	matched := 0
	for w := range pattern {
		if text[w] {
			matched++
		}
	}
	return float64(matched) / float64(len(pattern))
}
